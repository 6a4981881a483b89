package notification_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cnstrctnetwork/cnstrct/internal/notification"
)

func TestRender(t *testing.T) {
	type testCase struct {
		name string
		tpl  string
		vars map[string]any
		want string
	}

	tests := []testCase{
		{name: "Substitutes", tpl: "Hi {{name}}", vars: map[string]any{"name": "A"}, want: "Hi A"},
		{name: "Missing variable", tpl: "Hi {{name}}", vars: nil, want: "Hi "},
		{name: "Nil value", tpl: "Hi {{name}}", vars: map[string]any{"name": nil}, want: "Hi "},
		{name: "Number", tpl: "Total {{amount}} EUR", vars: map[string]any{"amount": 12.5}, want: "Total 12.5 EUR"},
		{name: "Repeated", tpl: "{{a}}-{{a}}", vars: map[string]any{"a": "x"}, want: "x-x"},
		{name: "Not escaped", tpl: "<p>{{body}}</p>", vars: map[string]any{"body": "<b>hi</b>"}, want: "<p><b>hi</b></p>"},
		{name: "Spaces are not placeholders", tpl: "{{ name }}", vars: map[string]any{"name": "A"}, want: "{{ name }}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, notification.Render(tt.tpl, tt.vars))
		})
	}
}

func TestRender_JSONNumbers(t *testing.T) {
	var vars map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"amount": 25000000, "qty": 3, "rate": 0.075}`), &vars))

	assert.Equal(t, "Total 25000000 x3 at 0.075", notification.Render("Total {{amount}} x{{qty}} at {{rate}}", vars))
}

func TestLoadTemplates_Embedded(t *testing.T) {
	tpls, err := notification.LoadTemplates("")
	require.NoError(t, err)

	for _, name := range []string{"payment_invoice", "welcome", "password_reset"} {
		assert.Contains(t, tpls, name)
	}

	assert.Contains(t, tpls["payment_invoice"], "{{amount}}")
}

func TestLoadTemplates_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hello: \"<p>Hello {{name}}</p>\"\n"), 0o600))

	tpls, err := notification.LoadTemplates(path)
	require.NoError(t, err)
	assert.Equal(t, notification.Templates{"hello": "<p>Hello {{name}}</p>"}, tpls)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte(""), 0o600))

	_, err = notification.LoadTemplates(empty)
	assert.Error(t, err)
}
