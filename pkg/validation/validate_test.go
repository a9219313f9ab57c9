package validation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateJSONRules(t *testing.T) {
	SetRules(Rules{
		Required: []string{"body"},
		Types:    map[string]string{"kind": "string"},
		MaxLen:   map[string]int{"body": 10},
		Enums:    map[string][]string{"kind": {"text", "image"}},
	})
	defer SetRules(Rules{})

	require.NoError(t, ValidateJSON([]byte(`{"body":"hi","kind":"text"}`)))
	require.Error(t, ValidateJSON([]byte(`{"kind":"text"}`)), "missing required")
	require.Error(t, ValidateJSON([]byte(`{"body":"hi","kind":7}`)), "type mismatch")
	require.Error(t, ValidateJSON([]byte(`{"body":"0123456789ab"}`)), "too long")
	require.Error(t, ValidateJSON([]byte(`{"body":"hi","kind":"video"}`)), "enum")
	require.Error(t, ValidateJSON([]byte(`{notjson`)))
}

func TestValidateJSONNestedPath(t *testing.T) {
	SetRules(Rules{Required: []string{"attachment.url"}})
	defer SetRules(Rules{})

	require.NoError(t, ValidateJSON([]byte(`{"attachment":{"url":"/v1/media/x"}}`)))
	require.Error(t, ValidateJSON([]byte(`{"attachment":{}}`)))
}

func TestValidateJSONNoRules(t *testing.T) {
	SetRules(Rules{})
	require.NoError(t, ValidateJSON([]byte(`{"anything":true}`)))
}
