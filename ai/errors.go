package ai

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/poiesic/lectern/core"
)

// ErrEmptyResponse indicates the model returned no choices.
var ErrEmptyResponse = errors.New("model returned no choices")

// rateLimitText matches provider error text for HTTP 429 rejections. A bare
// 429 is not enough: token counts and dimensions contain those digits too.
var rateLimitText = regexp.MustCompile(`(?i)status(?: code)?:? *429\b|too many requests|rate[ _]limit`)

// IsRateLimited reports whether err is a rate-limit rejection: wrapped as
// core.ErrRateLimited, carrying HTTP status 429, or recognisable from the
// provider's error text.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, core.ErrRateLimited) {
		return true
	}
	var status interface{ StatusCode() int }
	if errors.As(err, &status) {
		return status.StatusCode() == http.StatusTooManyRequests
	}
	return rateLimitText.MatchString(err.Error())
}

// EmbeddingError classifies a provider failure as core.ErrRateLimited or
// core.ErrEmbedding, keeping the cause in the chain.
func EmbeddingError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrEmbedding) {
		return err
	}
	if IsRateLimited(err) {
		return fmt.Errorf("%w: %w", core.ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %w", core.ErrEmbedding, err)
}
