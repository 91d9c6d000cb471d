package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaacphi/promptwheel/internal/domain"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		defaults  map[string]string
		variables map[string]any
		want      string
	}{
		{
			name:     "default value used when no override",
			body:     "Hi {{n}}",
			defaults: map[string]string{"n": "x"},
			want:     "Hi x",
		},
		{
			name:      "variable overrides default",
			body:      "Hi {{n}}",
			defaults:  map[string]string{"n": "x"},
			variables: map[string]any{"n": "y"},
			want:      "Hi y",
		},
		{
			name:      "repeated placeholder replaced everywhere",
			body:      "{{a}} and {{a}} and {{b}}",
			variables: map[string]any{"a": "one", "b": "two"},
			want:      "one and one and two",
		},
		{
			name:      "non-string values are stringified",
			body:      "count={{count}} ratio={{ratio}}",
			variables: map[string]any{"count": 3, "ratio": 0.5},
			want:      "count=3 ratio=0.5",
		},
		{
			name: "no placeholders",
			body: "plain text",
			want: "plain text",
		},
		{
			name:      "malformed placeholder left alone",
			body:      "{{not valid}} but {{ok}}",
			variables: map[string]any{"ok": "fine"},
			want:      "{{not valid}} but fine",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.body, tt.defaults, tt.variables)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderMissingVariables(t *testing.T) {
	_, err := Render("{{greeting}} {{name}}, {{name}}", map[string]string{"greeting": "hello"}, nil)
	require.Error(t, err)
	assert.True(t, domain.IsMissingVariables(err))

	var missing domain.MissingVariablesError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"name"}, missing.Names)
}

func TestPlaceholders(t *testing.T) {
	names := Placeholders("{{a}} {{b}} {{a}} {{bad name}} {{c_1}}")
	assert.Equal(t, []string{"a", "b", "c_1"}, names)
}
