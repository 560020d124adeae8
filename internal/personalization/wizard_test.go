package personalization

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delicado-shop/delicado-api/pkg/types"
)

func TestReduceNavigationClamps(t *testing.T) {
	state := Initial()

	state, err := Reduce(state, Action{Kind: ActionPrevious})
	require.NoError(t, err)
	assert.Equal(t, StepProduct, state.Step)

	for i := 0; i < 6; i++ {
		state, err = Reduce(state, Action{Kind: ActionNext})
		require.NoError(t, err)
	}
	assert.Equal(t, StepPreview, state.Step)

	state, err = Reduce(state, Action{Kind: ActionGoto, Step: -4})
	require.NoError(t, err)
	assert.Equal(t, StepProduct, state.Step)

	state, err = Reduce(state, Action{Kind: ActionGoto, Step: 2})
	require.NoError(t, err)
	assert.Equal(t, StepText, state.Step)
}

func TestReduceChangingProductClearsTemplate(t *testing.T) {
	productA, productB, tmpl := uuid.New(), uuid.New(), uuid.New()

	state, err := Reduce(Initial(), Action{Kind: ActionSelectProduct, ID: &productA})
	require.NoError(t, err)
	state, err = Reduce(state, Action{Kind: ActionSelectTemplate, ID: &tmpl})
	require.NoError(t, err)

	same, err := Reduce(state, Action{Kind: ActionSelectProduct, ID: &productA})
	require.NoError(t, err)
	require.NotNil(t, same.TemplateID)

	changed, err := Reduce(state, Action{Kind: ActionSelectProduct, ID: &productB})
	require.NoError(t, err)
	assert.Nil(t, changed.TemplateID)
	assert.Equal(t, productB, *changed.ProductID)
}

func TestReduceText(t *testing.T) {
	style := &types.TextStyle{Font: "Lobster", Color: "#ff0000"}
	state, err := Reduce(Initial(), Action{Kind: ActionSetText, Text: "  Feliz cumple  ", TextStyle: style})
	require.NoError(t, err)
	assert.Equal(t, "Feliz cumple", state.CustomText)
	require.NotNil(t, state.TextStyle)

	style.Font = "changed"
	assert.Equal(t, "Lobster", state.TextStyle.Font)

	_, err = Reduce(state, Action{Kind: ActionSetText, Text: strings.Repeat("ñ", MaxCustomTextLen+1)})
	assert.ErrorIs(t, err, ErrTextTooLong)

	_, err = Reduce(state, Action{Kind: ActionSetText, Text: strings.Repeat("ñ", MaxCustomTextLen)})
	assert.NoError(t, err)
}

func TestReduceErrorsKeepState(t *testing.T) {
	start := State{Step: StepTemplate, CustomText: "hola"}

	got, err := Reduce(start, Action{Kind: ActionSelectTemplate})
	assert.ErrorIs(t, err, ErrMissingTarget)
	assert.Equal(t, start, got)

	got, err = Reduce(start, Action{Kind: "jump"})
	assert.ErrorIs(t, err, ErrUnknownAction)
	assert.Equal(t, start, got)
}

func TestReduceReset(t *testing.T) {
	id := uuid.New()
	state := State{Step: StepPreview, ProductID: &id, CustomText: "x", PreviewURL: "https://cdn.example.com/p.png"}
	got, err := Reduce(state, Action{Kind: ActionReset})
	require.NoError(t, err)
	assert.Equal(t, Initial(), got)
}

func TestStateConfig(t *testing.T) {
	product := uuid.New()
	_, err := State{ProductID: &product}.Config()
	assert.ErrorIs(t, err, ErrIncomplete)

	tmpl := uuid.New()
	cfg, err := State{ProductID: &product, TemplateID: &tmpl, CustomText: "hi"}.Config()
	require.NoError(t, err)
	assert.Equal(t, product, cfg.ProductID)
	assert.Equal(t, tmpl, cfg.TemplateID)
	assert.Equal(t, "hi", cfg.CustomText)
	assert.Nil(t, cfg.ID)
}
