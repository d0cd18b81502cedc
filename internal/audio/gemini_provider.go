package audio

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiSynthesizer speaks text with the Gemini TTS model
type GeminiSynthesizer struct {
	client *genai.Client
	model  string
	voice  string
}

// NewGeminiSynthesizer creates a Gemini TTS provider
func NewGeminiSynthesizer(ctx context.Context, config *Config) (Synthesizer, error) {
	if config.GeminiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.GeminiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := config.GeminiModel
	if model == "" {
		model = "gemini-2.5-flash-preview-tts"
	}
	voice := config.GeminiVoice
	if voice == "" {
		voice = "Kore"
	}

	return &GeminiSynthesizer{client: client, model: model, voice: voice}, nil
}

// SpeechPrompt wraps text so the model reads it out even when it is a
// single short word
func SpeechPrompt(text string) string {
	return "Please pronounce the following Japanese text: " + text
}

// Synthesize requests 24 kHz mono PCM from Gemini
func (g *GeminiSynthesizer) Synthesize(ctx context.Context, text string) (*Buffer, error) {
	if err := ValidateJapaneseText(text); err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: g.voice},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(SpeechPrompt(text)), config)
	if err != nil {
		if IsQuotaError(err) {
			return nil, fmt.Errorf("%w (%v)", ErrQuotaExceeded, err)
		}
		return nil, fmt.Errorf("failed to generate speech for %q: %w", text, err)
	}

	data := inlineAudio(resp)
	if len(data) == 0 {
		return nil, fmt.Errorf("failed to generate speech for %q: %w", text, ErrNoAudio)
	}
	return DecodePCM(data, SampleRate, Channels)
}

func inlineAudio(resp *genai.GenerateContentResponse) []byte {
	if resp == nil {
		return nil
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p != nil && p.InlineData != nil && len(p.InlineData.Data) > 0 {
				return p.InlineData.Data
			}
		}
	}
	return nil
}

// Name returns the provider name
func (g *GeminiSynthesizer) Name() string {
	return "gemini"
}

// IsAvailable reports whether a client has been configured
func (g *GeminiSynthesizer) IsAvailable() error {
	if g.client == nil {
		return fmt.Errorf("Gemini client not configured")
	}
	return nil
}
