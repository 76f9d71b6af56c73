package utils

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRegisterValidators(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterValidators(v))

	type payload struct {
		Amount   string `validate:"omitempty,decimal"`
		Approved string `validate:"omitempty,udecimal"`
		User     string `validate:"userid"`
	}

	tests := []struct {
		name  string
		input payload
		valid bool
	}{
		{"all valid", payload{Amount: "-12.50", Approved: "100", User: "ou_123"}, true},
		{"empty amounts", payload{User: "alice@example.com"}, true},
		{"text amount", payload{Amount: "ten", User: "u1"}, false},
		{"negative approved", payload{Approved: "-1", User: "u1"}, false},
		{"bad user id", payload{User: "bob smith"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "ab c", SanitizeString("a\x00b c\x7f\n"))
}

func TestKVLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := NewKVLogger(zap.New(core))

	logger.Info("Request submitted", "id", int64(3), "owner_id", "u1")
	logger.Error("Failed", "error", errors.New("boom"), 42, "ignored key")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "u1", entries[0].ContextMap()["owner_id"])
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
	assert.Len(t, entries[1].Context, 1)
}

func TestNewLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")
	logger, err := NewLogger(LoggerConfig{Level: "debug", OutputPath: path, Format: "json"})
	require.NoError(t, err)
	logger.Info("hello")
	require.NoError(t, logger.Sync())
	assert.FileExists(t, path)
}
