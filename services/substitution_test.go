package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractVariables(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     []string
	}{
		{"empty", "", []string{}},
		{"no placeholders", "https://example.com/users", []string{}},
		{"single", "{{host}}/users", []string{"host"}},
		{"duplicates kept in order", "{{a}}-{{b}}-{{a}}", []string{"a", "b", "a"}},
		{"word characters only", "{{user_id1}} {{not-valid}} {{}}", []string{"user_id1"}},
		{"adjacent", "{{a}}{{b}}", []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractVariables(tt.template))
		})
	}
}

func TestSubstitute(t *testing.T) {
	t.Run("partial match keeps unknown placeholders", func(t *testing.T) {
		result, unmatched := Substitute("Hello {{name}}, id={{id}}", map[string]string{"name": "World"})
		assert.Equal(t, "Hello World, id={{id}}", result)
		assert.Equal(t, []string{"id"}, unmatched)
	})

	t.Run("all defined leaves no residue", func(t *testing.T) {
		vars := map[string]string{"scheme": "https", "host": "api.example.com", "v": "2"}
		result, unmatched := Substitute("{{scheme}}://{{host}}/v{{v}}/{{host}}", vars)
		assert.Equal(t, "https://api.example.com/v2/api.example.com", result)
		assert.Empty(t, unmatched)
		assert.Empty(t, ExtractVariables(result))
	})

	t.Run("all undefined returns template unchanged", func(t *testing.T) {
		template := "{{a}} and {{b}} and {{a}}"
		result, unmatched := Substitute(template, map[string]string{"c": "x"})
		assert.Equal(t, template, result)
		assert.Equal(t, []string{"a", "b", "a"}, unmatched)
	})

	t.Run("empty template", func(t *testing.T) {
		result, unmatched := Substitute("", map[string]string{"a": "b"})
		assert.Equal(t, "", result)
		assert.Empty(t, unmatched)
	})

	t.Run("nil variables", func(t *testing.T) {
		result, unmatched := Substitute("{{token}}", nil)
		assert.Equal(t, "{{token}}", result)
		assert.Equal(t, []string{"token"}, unmatched)
	})

	t.Run("values are not re-expanded", func(t *testing.T) {
		result, unmatched := Substitute("{{a}}", map[string]string{"a": "{{b}}", "b": "nope"})
		assert.Equal(t, "{{b}}", result)
		assert.Empty(t, unmatched)
	})

	t.Run("empty value", func(t *testing.T) {
		result, unmatched := Substitute("x{{a}}y", map[string]string{"a": ""})
		assert.Equal(t, "xy", result)
		assert.Empty(t, unmatched)
	})
}

func TestSubstituteMap(t *testing.T) {
	data := map[string]string{
		"Authorization": "Bearer {{token}}",
		"X-Trace":       "{{trace}}",
		"Accept":        "application/json",
	}
	result, unmatched := SubstituteMap(data, map[string]string{"token": "abc"})

	assert.Equal(t, map[string]string{
		"Authorization": "Bearer abc",
		"X-Trace":       "{{trace}}",
		"Accept":        "application/json",
	}, result)
	assert.Equal(t, []string{"trace"}, unmatched)

	empty, none := SubstituteMap(nil, nil)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
	assert.Empty(t, none)
}
