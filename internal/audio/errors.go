package audio

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"google.golang.org/genai"
)

var (
	// ErrQuotaExceeded is returned when the speech service refuses work
	// because the API quota is used up
	ErrQuotaExceeded = errors.New("API quota exceeded. Please check your Google Gemini API quota and billing. The free tier has daily limits. Visit https://ai.google.dev/gemini-api/docs/rate-limits for more information")

	// ErrPreloadFailed is returned when no item of a preload succeeded
	ErrPreloadFailed = errors.New("failed to load audio")

	// ErrNoAudio is returned when a synthesizer answers without audio data
	ErrNoAudio = errors.New("no audio data received from API")
)

// IsQuotaError reports whether err means the service quota is exhausted
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrQuotaExceeded) || errors.Is(err, gobreaker.ErrOpenState) {
		return true
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED") {
		return true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && (apiErrPtr.Code == http.StatusTooManyRequests || apiErrPtr.Status == "RESOURCE_EXHAUSTED") {
		return true
	}

	var openaiErr *openai.APIError
	if errors.As(err, &openaiErr) && openaiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "quota") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "429")
}
