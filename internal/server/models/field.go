package models

import (
	"encoding/json"
	"math"
)

// FieldType is the kind of annotation a placement stamps.
type FieldType string

const (
	FieldSignature FieldType = "SIGNATURE"
	FieldInitial   FieldType = "INITIAL"
	FieldText      FieldType = "TEXT"
	FieldDate      FieldType = "DATE"
)

// DefaultFontSize applies when a placement carries no usable size.
const DefaultFontSize = 18.0

// Field is one placement submitted for stamping. X and Y are top-left
// origin viewer coordinates; Page is 1-indexed.
type Field struct {
	Type      FieldType `json:"type"`
	Content   string    `json:"content"`
	FontStyle *string   `json:"fontStyle,omitempty"`
	FontSize  float64   `json:"fontSize,omitempty"`
	Color     *Color    `json:"color,omitempty"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Page      int       `json:"page"`
}

// EffectiveFontSize returns FontSize or DefaultFontSize when unset or bogus.
func (f Field) EffectiveFontSize() float64 {
	if f.FontSize <= 0 || math.IsNaN(f.FontSize) || math.IsInf(f.FontSize, 0) {
		return DefaultFontSize
	}
	return f.FontSize
}

// UnmarshalJSON decodes a placement. A fontStyle that is not a string is
// dropped so the field falls back to the default face.
func (f *Field) UnmarshalJSON(b []byte) error {
	type plain Field
	aux := struct {
		*plain
		FontStyle any `json:"fontStyle,omitempty"`
	}{plain: (*plain)(f)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	f.FontStyle = styleOf(aux.FontStyle)
	return nil
}

func styleOf(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

// Style returns the font style identifier or "" when absent.
func (f Field) Style() string {
	if f.FontStyle == nil {
		return ""
	}
	return *f.FontStyle
}

// Color is an RGB triple with channels in [0,1]. Decoding never fails:
// channels that are missing or not numbers are left nil.
type Color struct {
	R *float64 `json:"r,omitempty"`
	G *float64 `json:"g,omitempty"`
	B *float64 `json:"b,omitempty"`
}

func (c *Color) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		*c = Color{}
		return nil
	}
	*c = Color{R: channel(raw["r"]), G: channel(raw["g"]), B: channel(raw["b"])}
	return nil
}

func channel(v any) *float64 {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	return &f
}

// RGB returns the usable channels, or black when any channel is missing,
// non-finite or outside [0,1].
func (c *Color) RGB() (r, g, b float64) {
	if c == nil || !valid(c.R) || !valid(c.G) || !valid(c.B) {
		return 0, 0, 0
	}
	return *c.R, *c.G, *c.B
}

func valid(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && *v >= 0 && *v <= 1
}

// ExternalFieldType is the lowercase field kind stored with invitations.
type ExternalFieldType string

const (
	ExternalFieldSignature ExternalFieldType = "signature"
	ExternalFieldText      ExternalFieldType = "text"
	ExternalFieldDate      ExternalFieldType = "date"
)

// ExternalField is a placement pre-specified by the requester.
type ExternalField struct {
	FieldType ExternalFieldType `json:"fieldType"`
	Page      int               `json:"page"`
	X         float64           `json:"x"`
	Y         float64           `json:"y"`
	Width     *float64          `json:"width,omitempty"`
	FontSize  *float64          `json:"fontSize,omitempty"`
	FontStyle *string           `json:"fontStyle,omitempty"`
	Content   *string           `json:"content,omitempty"`
}

func (f *ExternalField) UnmarshalJSON(b []byte) error {
	type plain ExternalField
	aux := struct {
		*plain
		FontStyle any `json:"fontStyle,omitempty"`
	}{plain: (*plain)(f)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	f.FontStyle = styleOf(aux.FontStyle)
	return nil
}

// Valid reports whether the field kind is known and the position is usable.
func (f ExternalField) Valid() bool {
	switch f.FieldType {
	case ExternalFieldSignature, ExternalFieldText, ExternalFieldDate:
	default:
		return false
	}
	return f.Page >= 1 && finiteNonNegative(f.X) && finiteNonNegative(f.Y)
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
