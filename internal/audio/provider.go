package audio

import (
	"context"
	"fmt"
)

// Synthesizer turns Japanese text into speech
type Synthesizer interface {
	// Synthesize returns the spoken text as decoded audio
	Synthesize(ctx context.Context, text string) (*Buffer, error)

	// Name returns the provider name
	Name() string

	// IsAvailable checks if the provider is properly configured and available
	IsAvailable() error
}

// Config holds common configuration for speech providers
type Config struct {
	Provider string // "gemini", "openai" or "espeak"

	// Gemini settings
	GeminiKey   string
	GeminiModel string
	GeminiVoice string

	// OpenAI settings
	OpenAIKey         string
	OpenAIModel       string  // "tts-1", "tts-1-hd", or "gpt-4o-mini-tts"
	OpenAIVoice       string  // "alloy", "ash", "coral", "nova", "sage", "shimmer", ...
	OpenAISpeed       float64 // 0.25 to 4.0
	OpenAIInstruction string  // Voice instructions for gpt-4o-mini-tts

	// espeak-ng settings
	ESpeak *ESpeakConfig

	// Fallback names a second provider used when the first one fails
	Fallback string

	// BreakerTrips is the number of consecutive quota errors that open the
	// circuit breaker; 0 disables the breaker
	BreakerTrips uint32
}

// DefaultProviderConfig returns default configuration
func DefaultProviderConfig() *Config {
	return &Config{
		Provider:          "gemini",
		GeminiModel:       "gemini-2.5-flash-preview-tts",
		GeminiVoice:       "Kore",
		OpenAIModel:       "gpt-4o-mini-tts",
		OpenAIVoice:       "nova",
		OpenAISpeed:       1.0,
		OpenAIInstruction: "You are speaking Japanese (日本語). Pronounce the text with natural standard Japanese pitch accent. Speak clearly for language learners.",
		ESpeak:            DefaultESpeakConfig(),
		BreakerTrips:      3,
	}
}

// NewSynthesizer creates the configured provider, wrapped with a fallback
// and a circuit breaker when configured
func NewSynthesizer(ctx context.Context, config *Config) (Synthesizer, error) {
	if config == nil {
		config = DefaultProviderConfig()
	}

	primary, err := newProvider(ctx, config.Provider, config)
	if err != nil {
		return nil, err
	}
	if config.BreakerTrips > 0 {
		primary = NewBreakerSynthesizer(primary, config.BreakerTrips)
	}

	if config.Fallback == "" || config.Fallback == config.Provider {
		return primary, nil
	}

	fallback, err := newProvider(ctx, config.Fallback, config)
	if err != nil {
		return nil, fmt.Errorf("fallback provider: %w", err)
	}
	return NewSynthesizerWithFallback(primary, fallback), nil
}

func newProvider(ctx context.Context, name string, config *Config) (Synthesizer, error) {
	switch name {
	case "gemini":
		if config.GeminiKey == "" {
			return nil, fmt.Errorf("Gemini API key is required")
		}
		return NewGeminiSynthesizer(ctx, config)

	case "openai":
		if config.OpenAIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		return NewOpenAISynthesizer(config)

	case "espeak":
		return NewESpeakSynthesizer(config.ESpeak)

	default:
		return nil, fmt.Errorf("unknown audio provider: %s", name)
	}
}

// SynthesizerWithFallback wraps a primary provider with a fallback option
type SynthesizerWithFallback struct {
	primary  Synthesizer
	fallback Synthesizer
}

// NewSynthesizerWithFallback creates a provider that falls back to secondary
// if primary fails
func NewSynthesizerWithFallback(primary, fallback Synthesizer) Synthesizer {
	return &SynthesizerWithFallback{
		primary:  primary,
		fallback: fallback,
	}
}

// Synthesize tries the primary provider first, falls back to secondary on error
func (p *SynthesizerWithFallback) Synthesize(ctx context.Context, text string) (*Buffer, error) {
	buf, err := p.primary.Synthesize(ctx, text)
	if err == nil {
		return buf, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	fmt.Printf("Primary provider (%s) failed: %v. Falling back to %s\n",
		p.primary.Name(), err, p.fallback.Name())
	return p.fallback.Synthesize(ctx, text)
}

// Name returns the provider name
func (p *SynthesizerWithFallback) Name() string {
	return fmt.Sprintf("%s (fallback: %s)", p.primary.Name(), p.fallback.Name())
}

// IsAvailable checks if at least one provider is available
func (p *SynthesizerWithFallback) IsAvailable() error {
	primaryErr := p.primary.IsAvailable()
	if primaryErr == nil {
		return nil
	}

	fallbackErr := p.fallback.IsAvailable()
	if fallbackErr == nil {
		return nil
	}

	return fmt.Errorf("both providers unavailable: primary=%v, fallback=%v",
		primaryErr, fallbackErr)
}
