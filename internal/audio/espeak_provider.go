package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ESpeakConfig holds configuration for espeak-ng speech
type ESpeakConfig struct {
	Voice     string // Voice variant (e.g., "ja", "ja+f3")
	Speed     int    // Speech speed in words per minute (default: 150)
	Pitch     int    // Pitch adjustment, 0 to 99 (default: 50)
	Amplitude int    // Volume/amplitude, 0 to 200 (default: 100)
}

// DefaultESpeakConfig returns the default configuration for the Japanese voice
func DefaultESpeakConfig() *ESpeakConfig {
	return &ESpeakConfig{
		Voice:     "ja",
		Speed:     140,
		Pitch:     50,
		Amplitude: 100,
	}
}

// ESpeakSynthesizer speaks text offline with espeak-ng. The quality is far
// below the remote models but it needs neither network nor API key.
type ESpeakSynthesizer struct {
	config *ESpeakConfig
	binary string
}

// NewESpeakSynthesizer creates an espeak-ng provider
func NewESpeakSynthesizer(config *ESpeakConfig) (Synthesizer, error) {
	if config == nil {
		config = DefaultESpeakConfig()
	}
	config.Speed = clamp(config.Speed, 80, 450)
	config.Pitch = clamp(config.Pitch, 0, 99)
	config.Amplitude = clamp(config.Amplitude, 0, 200)

	return &ESpeakSynthesizer{config: config, binary: "espeak-ng"}, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Args returns the espeak-ng arguments for text
func (e *ESpeakSynthesizer) Args(text string) []string {
	return []string{
		"-v", e.config.Voice,
		"-s", fmt.Sprintf("%d", e.config.Speed),
		"-p", fmt.Sprintf("%d", e.config.Pitch),
		"-a", fmt.Sprintf("%d", e.config.Amplitude),
		"--stdout",
		text,
	}
}

// Synthesize runs espeak-ng and decodes the WAV it writes to stdout
func (e *ESpeakSynthesizer) Synthesize(ctx context.Context, text string) (*Buffer, error) {
	if err := ValidateJapaneseText(text); err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.binary, e.Args(strings.TrimSpace(text))...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("espeak-ng failed: %w\nOutput: %s", err, stderr.String())
	}

	return DecodeWAV(stdout.Bytes())
}

// Name returns the provider name
func (e *ESpeakSynthesizer) Name() string {
	return "espeak-ng"
}

// IsAvailable checks if espeak-ng is installed
func (e *ESpeakSynthesizer) IsAvailable() error {
	if _, err := exec.LookPath(e.binary); err != nil {
		return fmt.Errorf("espeak-ng is not installed or not in PATH: %w", err)
	}
	return nil
}
