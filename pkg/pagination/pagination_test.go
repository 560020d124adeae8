package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2025, 3, 1, 9, 0, 0, 123, time.UTC), ID: uuid.New()}
	out, err := ParseCursor(EncodeCursor(in))
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	c, err := ParseCursor("")
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = ParseCursor("!!!")
	assert.Error(t, err)
	_, err = ParseCursor(EncodeCursor(Cursor{}) + "x")
	assert.Error(t, err)
}

func TestFromQuery(t *testing.T) {
	assert.Equal(t, Params{Limit: DefaultLimit}, FromQuery("", ""))
	assert.Equal(t, Params{Limit: MaxLimit, Cursor: "abc"}, FromQuery("5000", " abc "))
	assert.Equal(t, Params{Limit: 10}, FromQuery("10", ""))
	assert.Equal(t, Params{Limit: DefaultLimit}, FromQuery("ten", ""))
}

func TestTrim(t *testing.T) {
	type row struct {
		at time.Time
		id uuid.UUID
	}
	now := time.Now().UTC()
	rows := []row{{now, uuid.New()}, {now.Add(-time.Second), uuid.New()}, {now.Add(-2 * time.Second), uuid.New()}}
	key := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page, next := Trim(rows, 2, key)
	assert.Len(t, page, 2)
	require.NotEmpty(t, next)
	c, err := ParseCursor(next)
	require.NoError(t, err)
	assert.Equal(t, rows[1].id, c.ID)

	page, next = Trim(rows, 3, key)
	assert.Len(t, page, 3)
	assert.Empty(t, next)
}
