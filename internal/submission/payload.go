package submission

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/kickoff/internal/schema"
)

// EventFormResponse is the only event type accepted for ingestion.
const EventFormResponse = schema.EventFormResponse

// Payload is the parsed view of a provider webhook body.
// Informational ids and timestamps keep whatever JSON type the provider sent.
type Payload struct {
	EventID   json.RawMessage `json:"eventId,omitempty"`
	EventType string          `json:"eventType"`
	CreatedAt json.RawMessage `json:"createdAt,omitempty"`
	Data      PayloadData     `json:"data"`
}

// PayloadData holds the form identity and its answers.
type PayloadData struct {
	ResponseID json.RawMessage `json:"responseId,omitempty"`
	FormID     json.RawMessage `json:"formId,omitempty"`
	FormName   string          `json:"formName,omitempty"`
	Fields     []Field         `json:"fields"`
}

// Field is one labeled answer. Value keeps the provider's JSON type.
type Field struct {
	Key     string          `json:"key,omitempty"`
	Label   string          `json:"label,omitempty"`
	Type    string          `json:"type,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
	Options []Option        `json:"options,omitempty"`
}

// Option is a selectable choice of a CHECKBOXES, DROPDOWN or
// MULTIPLE_CHOICE field.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text,omitempty"`
}

// DisplayField is a non-empty answer with option ids resolved to text.
type DisplayField struct {
	Key   string `json:"key,omitempty"`
	Label string `json:"label"`
	Type  string `json:"type,omitempty"`
	Value string `json:"value"`
}

// Parse validates raw against the payload schema and decodes it.
// Validation failures wrap schema.ErrInvalid.
func Parse(raw []byte) (Payload, error) {
	if err := schema.Validate(raw); err != nil {
		return Payload{}, err
	}
	return Decode(raw)
}

// Decode decodes raw without schema validation.
// Used for payloads that were validated when first ingested.
func Decode(raw []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	return p, nil
}

// Category returns the normalized form name, or "" when absent.
func (p Payload) Category() string {
	return NormalizeCategory(p.Data.FormName)
}

// NormalizeCategory trims s and applies Unicode NFC so that the same label
// typed by different clients counts as one category.
func NormalizeCategory(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// DisplayFields returns the answered fields in payload order.
// Empty strings, false, null and empty lists are dropped.
func (p Payload) DisplayFields() []DisplayField {
	out := make([]DisplayField, 0, len(p.Data.Fields))
	for _, f := range p.Data.Fields {
		v, ok := f.Display()
		if !ok {
			continue
		}
		out = append(out, DisplayField{Key: f.Key, Label: f.Label, Type: f.Type, Value: v})
	}
	return out
}

// Display renders the field value as text. ok is false for empty answers.
func (f Field) Display() (string, bool) {
	raw := bytes.TrimSpace(f.Value)
	if len(raw) == 0 {
		return "", false
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", false
	}

	switch val := v.(type) {
	case nil:
		return "", false
	case bool:
		if !val {
			return "", false
		}
		return "Yes", true
	case string:
		if val == "" {
			return "", false
		}
		return f.optionText(val), true
	case json.Number:
		return val.String(), true
	case []any:
		parts := make([]string, 0, len(val))
		for _, elem := range val {
			s := scalarText(elem)
			if s == "" {
				continue
			}
			parts = append(parts, f.optionText(s))
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, ", "), true
	default:
		return string(raw), true
	}
}

// optionText maps an option id to its label, falling back to the id.
func (f Field) optionText(id string) string {
	for _, o := range f.Options {
		if o.ID == id && o.Text != "" {
			return o.Text
		}
	}
	return id
}

func scalarText(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
