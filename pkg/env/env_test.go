package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetPrefersPrefixedKey(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("NSTC_LOG_FORMAT", "console")
	assert.Equal(t, "console", Get("LOG_FORMAT", "json"))
}

func TestGetFallsBack(t *testing.T) {
	t.Setenv("NSTC_LOG_FORMAT", "  ")
	t.Setenv("LOG_FORMAT", "")
	assert.Equal(t, "json", Get("LOG_FORMAT", "json"))
}
