package types

import "github.com/google/uuid"

// TextStyle controls how custom text is rendered on a template.
type TextStyle struct {
	Font     string `json:"font,omitempty" validate:"omitempty,max=64"`
	Size     int    `json:"size,omitempty" validate:"omitempty,min=6,max=200"`
	Color    string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Position string `json:"position,omitempty" validate:"omitempty,oneof=top center bottom left right"`
}

// PersonalizationConfig binds a product to a design template and optional text.
// It is immutable once attached to a cart line.
type PersonalizationConfig struct {
	ID         *uuid.UUID `json:"id,omitempty"`
	ProductID  uuid.UUID  `json:"product_id"`
	TemplateID uuid.UUID  `json:"template_id"`
	CustomText string     `json:"custom_text,omitempty"`
	TextStyle  *TextStyle `json:"text_style,omitempty"`
	PreviewURL string     `json:"preview_url,omitempty"`
}
