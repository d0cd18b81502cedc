package testutil

import (
	"context"
	"fmt"
	"sync"

	"codeberg.org/snonux/kotoba/internal/analyzer"
	"codeberg.org/snonux/kotoba/internal/audio"
	"codeberg.org/snonux/kotoba/internal/model"
)

// MockAnalyzer returns canned analyses and records its calls
type MockAnalyzer struct {
	Result model.Analysis
	Err    error

	// Block, when set, holds every call until it is closed
	Block chan struct{}

	mu    sync.Mutex
	Calls []string
}

func (m *MockAnalyzer) record(call string) (model.Analysis, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, call)
	block := m.Block
	m.mu.Unlock()

	if block != nil {
		<-block
	}
	if m.Err != nil {
		return model.Analysis{}, m.Err
	}
	return m.Result, nil
}

// AnalyzeText mocks text analysis
func (m *MockAnalyzer) AnalyzeText(ctx context.Context, text string) (model.Analysis, error) {
	return m.record("text: " + text)
}

// AnalyzeImage mocks image analysis
func (m *MockAnalyzer) AnalyzeImage(ctx context.Context, img analyzer.Image) (model.Analysis, error) {
	return m.record(fmt.Sprintf("image: %s (%d bytes)", img.MIMEType, len(img.Data)))
}

// AnalyzeImageWithTranslation mocks aligned image analysis
func (m *MockAnalyzer) AnalyzeImageWithTranslation(ctx context.Context, japanese, chinese analyzer.Image) (model.Analysis, error) {
	return m.record(fmt.Sprintf("images: %d+%d bytes", len(japanese.Data), len(chinese.Data)))
}

// Name returns the mock name
func (m *MockAnalyzer) Name() string {
	return "mock"
}

// CallCount returns the number of analyses requested
func (m *MockAnalyzer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockSynthesizer produces a short silent buffer for every text
type MockSynthesizer struct {
	Errors map[string]error

	mu    sync.Mutex
	Calls []string
}

// Synthesize mocks speech synthesis
func (m *MockSynthesizer) Synthesize(ctx context.Context, text string) (*audio.Buffer, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, text)
	m.mu.Unlock()

	if err, ok := m.Errors[text]; ok {
		return nil, err
	}
	return &audio.Buffer{SampleRate: audio.SampleRate, Channels: 1, Samples: make([]float32, 240)}, nil
}

// Name returns the mock name
func (m *MockSynthesizer) Name() string {
	return "mock"
}

// IsAvailable always succeeds
func (m *MockSynthesizer) IsAvailable() error {
	return nil
}

// CallCount returns the number of synthesized texts
func (m *MockSynthesizer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
