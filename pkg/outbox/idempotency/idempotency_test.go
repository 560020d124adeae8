package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	setNXResult bool
	setNXError  error
	lastKey     string
	lastTTL     time.Duration
	lastDeleted string
}

func (f *fakeStore) Get(context.Context, string) (string, error) {
	return "", nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	f.lastKey = key
	f.lastTTL = ttl
	return f.setNXResult, f.setNXError
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "dl:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	if len(keys) > 0 {
		f.lastDeleted = keys[0]
	}
	return nil
}

func TestCheckAndMarkProcessed_FirstTime(t *testing.T) {
	store := &fakeStore{setNXResult: true}
	manager, err := NewManager(store, 24*time.Hour)
	require.NoError(t, err)

	eventID := uuid.New()
	already, err := manager.CheckAndMarkProcessed(context.Background(), "analytics-writer", eventID)
	require.NoError(t, err)
	require.False(t, already)
	require.Equal(t, "dl:idempotency:evt:processed:analytics-writer:"+eventID.String(), store.lastKey)
	require.Equal(t, 24*time.Hour, store.lastTTL)
}

func TestCheckAndMarkProcessed_AlreadyProcessed(t *testing.T) {
	store := &fakeStore{setNXResult: false}
	manager, err := NewManager(store, 12*time.Hour)
	require.NoError(t, err)

	already, err := manager.CheckAndMarkProcessed(context.Background(), "analytics-writer", uuid.New())
	require.NoError(t, err)
	require.True(t, already)
}

func TestCheckAndMarkProcessed_Error(t *testing.T) {
	store := &fakeStore{setNXError: errors.New("boom")}
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	_, err = manager.CheckAndMarkProcessed(context.Background(), "analytics-writer", uuid.New())
	require.Error(t, err)
}

func TestCheckAndMarkProcessed_RejectsNilID(t *testing.T) {
	manager, err := NewManager(&fakeStore{}, time.Hour)
	require.NoError(t, err)

	_, err = manager.CheckAndMarkProcessed(context.Background(), "analytics-writer", uuid.Nil)
	require.Error(t, err)
}

func TestCheckAndMarkKey_StripeEventID(t *testing.T) {
	store := &fakeStore{setNXResult: true}
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	already, err := manager.CheckAndMarkKey(context.Background(), "stripe-webhook", "evt_123")
	require.NoError(t, err)
	require.False(t, already)
	require.Equal(t, "dl:idempotency:evt:processed:stripe-webhook:evt_123", store.lastKey)

	_, err = manager.CheckAndMarkKey(context.Background(), "", "evt_123")
	require.Error(t, err)
}

func TestRelease(t *testing.T) {
	store := &fakeStore{}
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	require.NoError(t, manager.Release(context.Background(), "stripe-webhook", "evt_9"))
	require.Equal(t, "dl:idempotency:evt:processed:stripe-webhook:evt_9", store.lastDeleted)
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	require.Error(t, err)
	_, err = NewManager(&fakeStore{}, -time.Second)
	require.Error(t, err)
}
