package notification

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Recipients accepts either a single address or a list of addresses in JSON.
type Recipients []string

func (r *Recipients) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)

	if bytes.Equal(b, []byte("null")) {
		*r = nil
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}

		if s == "" {
			*r = nil
		} else {
			*r = Recipients{s}
		}

		return nil
	}

	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return errors.New("to must be a string or an array of strings")
	}

	*r = list

	return nil
}

// Attachment content is base64 encoded.
type Attachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	Type     string `json:"type,omitempty"`
}

// Message is a send request: either HTML or a template name with variables.
type Message struct {
	To           Recipients     `json:"to"`
	Subject      string         `json:"subject"`
	HTML         string         `json:"html,omitempty"`
	TemplateName string         `json:"template_name,omitempty"`
	Variables    map[string]any `json:"variables,omitempty"`
	Attachments  []Attachment   `json:"attachments,omitempty"`
}
