// Package personalization runs the four-step product personalization wizard
// and stores the configurations it produces.
package personalization

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/delicado-shop/delicado-api/pkg/types"
)

// Wizard steps in order.
const (
	StepProduct = iota
	StepTemplate
	StepText
	StepPreview
)

const (
	FirstStep        = StepProduct
	LastStep         = StepPreview
	MaxCustomTextLen = 100
	MaxPreviewURLLen = 2048
)

type ActionKind string

const (
	ActionNext           ActionKind = "next"
	ActionPrevious       ActionKind = "previous"
	ActionGoto           ActionKind = "goto"
	ActionSelectProduct  ActionKind = "select_product"
	ActionSelectTemplate ActionKind = "select_template"
	ActionSetText        ActionKind = "set_text"
	ActionSetPreview     ActionKind = "set_preview"
	ActionReset          ActionKind = "reset"
)

var (
	ErrIncomplete    = errors.New("a product and a template are required")
	ErrTextTooLong   = fmt.Errorf("custom text cannot exceed %d characters", MaxCustomTextLen)
	ErrMissingTarget = errors.New("action requires an id")
	ErrUnknownAction = errors.New("unknown wizard action")
)

// State is the wizard progress kept per session. Step is always within
// [FirstStep, LastStep].
type State struct {
	Step       int              `json:"step"`
	ProductID  *uuid.UUID       `json:"product_id,omitempty"`
	TemplateID *uuid.UUID       `json:"template_id,omitempty"`
	CustomText string           `json:"custom_text,omitempty"`
	TextStyle  *types.TextStyle `json:"text_style,omitempty"`
	PreviewURL string           `json:"preview_url,omitempty"`
}

func Initial() State {
	return State{Step: FirstStep}
}

// Action is one wizard input. Step is used by goto; ID by the select actions.
type Action struct {
	Kind       ActionKind       `json:"type" validate:"required"`
	Step       int              `json:"step,omitempty"`
	ID         *uuid.UUID       `json:"id,omitempty"`
	Text       string           `json:"text,omitempty"`
	TextStyle  *types.TextStyle `json:"text_style,omitempty"`
	PreviewURL string           `json:"preview_url,omitempty" validate:"omitempty,url"`
}

// Reduce applies action and returns the next state. Navigation clamps the
// cursor instead of failing.
func Reduce(state State, action Action) (State, error) {
	next := state
	switch action.Kind {
	case ActionNext:
		next.Step = clampStep(state.Step + 1)
	case ActionPrevious:
		next.Step = clampStep(state.Step - 1)
	case ActionGoto:
		next.Step = clampStep(action.Step)
	case ActionSelectProduct:
		if action.ID == nil || *action.ID == uuid.Nil {
			return state, ErrMissingTarget
		}
		id := *action.ID
		if state.ProductID == nil || *state.ProductID != id {
			// templates are chosen per product category
			next.TemplateID = nil
		}
		next.ProductID = &id
	case ActionSelectTemplate:
		if action.ID == nil || *action.ID == uuid.Nil {
			return state, ErrMissingTarget
		}
		id := *action.ID
		next.TemplateID = &id
	case ActionSetText:
		text := strings.TrimSpace(action.Text)
		if len([]rune(text)) > MaxCustomTextLen {
			return state, ErrTextTooLong
		}
		next.CustomText = text
		if action.TextStyle != nil {
			style := *action.TextStyle
			next.TextStyle = &style
		}
	case ActionSetPreview:
		next.PreviewURL = strings.TrimSpace(action.PreviewURL)
	case ActionReset:
		return Initial(), nil
	default:
		return state, fmt.Errorf("%w %q", ErrUnknownAction, action.Kind)
	}
	next.Step = clampStep(next.Step)
	return next, nil
}

// Config materializes the configuration a completed wizard produces.
func (s State) Config() (types.PersonalizationConfig, error) {
	if s.ProductID == nil || s.TemplateID == nil {
		return types.PersonalizationConfig{}, ErrIncomplete
	}
	cfg := types.PersonalizationConfig{
		ProductID:  *s.ProductID,
		TemplateID: *s.TemplateID,
		CustomText: s.CustomText,
		PreviewURL: s.PreviewURL,
	}
	if s.TextStyle != nil {
		style := *s.TextStyle
		cfg.TextStyle = &style
	}
	return cfg, nil
}

func clampStep(step int) int {
	if step < FirstStep {
		return FirstStep
	}
	if step > LastStep {
		return LastStep
	}
	return step
}
