package analyzer

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"codeberg.org/snonux/kotoba/internal/model"
)

// DefaultGeminiModel is the model used for text and image analysis
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiConfig configures the Gemini analyzer
type GeminiConfig struct {
	APIKey string
	Model  string
}

// generator is the part of the genai client the analyzer uses
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiAnalyzer asks Gemini for a structured analysis
type GeminiAnalyzer struct {
	models generator
	model  string
}

// NewGeminiAnalyzer creates a Gemini analyzer
func NewGeminiAnalyzer(ctx context.Context, config GeminiConfig) (*GeminiAnalyzer, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newGeminiAnalyzer(client.Models, config.Model), nil
}

func newGeminiAnalyzer(models generator, modelName string) *GeminiAnalyzer {
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	return &GeminiAnalyzer{models: models, model: modelName}
}

// AnalyzeText analyzes text
func (g *GeminiAnalyzer) AnalyzeText(ctx context.Context, text string) (model.Analysis, error) {
	text = NormalizeInput(text)
	if strings.TrimSpace(text) == "" {
		return model.Analysis{}, fmt.Errorf("no text to analyze")
	}
	return g.generate(ctx, genai.Text(TextPrompt(text)))
}

// AnalyzeImage extracts and analyzes the text of an image
func (g *GeminiAnalyzer) AnalyzeImage(ctx context.Context, img Image) (model.Analysis, error) {
	if len(img.Data) == 0 {
		return model.Analysis{}, fmt.Errorf("image is empty")
	}
	parts := []*genai.Part{
		genai.NewPartFromText(imagePrompt),
		genai.NewPartFromBytes(img.Data, img.MIMEType),
	}
	return g.generate(ctx, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)})
}

// AnalyzeImageWithTranslation analyzes a Japanese image and takes the
// translations from a second image
func (g *GeminiAnalyzer) AnalyzeImageWithTranslation(ctx context.Context, japanese, chinese Image) (model.Analysis, error) {
	if len(japanese.Data) == 0 || len(chinese.Data) == 0 {
		return model.Analysis{}, fmt.Errorf("both images are required")
	}
	parts := []*genai.Part{
		genai.NewPartFromText(alignedImagePrompt),
		genai.NewPartFromBytes(japanese.Data, japanese.MIMEType),
		genai.NewPartFromBytes(chinese.Data, chinese.MIMEType),
	}
	return g.generate(ctx, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)})
}

func (g *GeminiAnalyzer) generate(ctx context.Context, contents []*genai.Content) (model.Analysis, error) {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   ResponseSchema(),
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return model.Analysis{}, fmt.Errorf("analysis request failed: %w", err)
	}
	if resp == nil {
		return model.Analysis{}, ErrEmptyResponse
	}
	return ParseResponse(resp.Text())
}

// Name returns the analyzer name
func (g *GeminiAnalyzer) Name() string {
	return "gemini"
}
