package logging

import (
	"errors"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestNewReturnsUsableLogger(t *testing.T) {
	for _, env := range []string{"production", "development", ""} {
		logger := New(env)
		assert.NotNil(t, logger, env)
		logger.Info("logger ready")
	}
}

func TestIsRateLimit(t *testing.T) {
	assert.False(t, IsRateLimit(nil))
	assert.True(t, IsRateLimit(errors.New("HTTP 429 Too Many Requests")))
	assert.False(t, IsRateLimit(errors.New("HTTP 403 Forbidden")))

	restErr := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusTooManyRequests}}
	assert.True(t, IsRateLimit(restErr))
}

func TestIsUnknownChannel(t *testing.T) {
	restErr := &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownChannel}}
	assert.True(t, IsUnknownChannel(restErr))
	assert.False(t, IsUnknownChannel(errors.New("boom")))
}
