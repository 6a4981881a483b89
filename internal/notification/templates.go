package notification

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

// Templates maps a template name to its HTML body. It is loaded once at
// startup and only read afterwards.
type Templates map[string]string

// LoadTemplates reads a YAML name->html table from path, or the built-in
// table when path is empty.
func LoadTemplates(path string) (Templates, error) {
	raw := defaultTemplates

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading templates file: %w", err)
		}

		raw = b
	}

	return parseTemplates(raw)
}

func parseTemplates(raw []byte) (Templates, error) {
	var t Templates
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	if len(t) == 0 {
		return nil, fmt.Errorf("parsing templates: no templates defined")
	}

	return t, nil
}

var placeholder = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Render replaces every {{name}} in tpl with the string form of vars[name],
// or with nothing when the variable is missing. Values are inserted verbatim.
func Render(tpl string, vars map[string]any) string {
	return placeholder.ReplaceAllStringFunc(tpl, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]

		v, ok := vars[key]
		if !ok || v == nil {
			return ""
		}

		return stringify(v)
	})
}

// stringify prints JSON-decoded numbers in plain decimal form.
func stringify(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case json.Number:
		return n.String()
	default:
		return fmt.Sprint(v)
	}
}
