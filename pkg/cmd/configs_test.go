package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecrets(t *testing.T) {
	in := map[string]any{
		"s3": map[string]any{"endpoint": "localhost:9000", "secret_access_key": "minioadmin"},
		"db": map[string]any{"password": "", "user": "docvault"},
		"mail": map[string]any{
			"password": "hunter2",
			"port":     587,
		},
	}

	got := maskSecrets(in).(map[string]any)

	assert.Equal(t, map[string]any{"endpoint": "localhost:9000", "secret_access_key": masked}, got["s3"])
	assert.Equal(t, map[string]any{"password": "", "user": "docvault"}, got["db"])
	assert.Equal(t, map[string]any{"password": masked, "port": 587}, got["mail"])

	assert.Equal(t, "0 3 * * *", maskSecrets("0 3 * * *"))
}
