// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, SchemaID(), doc["$id"])
	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok, "schema has no properties")
	for _, key := range []string{"api", "session", "log", "web"} {
		assert.Contains(t, props, key)
	}

	api := props["api"].(map[string]any)["properties"].(map[string]any)
	timeout := api["timeout"].(map[string]any)
	assert.Equal(t, "string", timeout["type"], "durations are written as strings")
}

func TestValidateSchema(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{"empty document", "", false},
		{"valid", "api:\n  base_url: http://x\n  timeout: 1m30s\n", false},
		{"bad duration", "api:\n  timeout: soon\n", true},
		{"unknown top-level key", "metrics: true\n", true},
		{"wrong type", "web:\n  secure_cookies: maybe\n", true},
		{"negative redis db", "session:\n  redis:\n    db: -1\n", true},
		{"not yaml", "api: [unclosed\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchema([]byte(tt.yaml))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFormatSchemaError(t *testing.T) {
	assert.Empty(t, FormatSchemaError(nil))
	assert.Equal(t, "bad", FormatSchemaError(errors.New("schema validation failed: bad")))
}
