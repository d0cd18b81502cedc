package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"

	"codeberg.org/snonux/kotoba/internal/model"
)

// ErrNoAPIKey is returned when the translator has no OpenAI key
var ErrNoAPIKey = errors.New("OpenAI API key not found")

const prompt = "Translate the following Japanese sentence into natural Traditional Chinese (繁體中文). Respond with only the translation, nothing else.\n\n%s"

// chatClient is the part of the OpenAI client the translator uses
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Translator translates Japanese sentences and remembers the results
type Translator struct {
	apiKey string
	model  string
	client chatClient
	cache  *TranslationCache
}

// NewTranslator creates a new translator instance
func NewTranslator(apiKey string) *Translator {
	return &Translator{
		apiKey: apiKey,
		model:  openai.GPT4oMini,
		client: openai.NewClient(apiKey),
		cache:  NewTranslationCache(),
	}
}

// TranslateSentence returns the Traditional Chinese translation of text
func (t *Translator) TranslateSentence(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("nothing to translate")
	}
	if cached, ok := t.cache.Get(text); ok {
		return cached, nil
	}
	if t.apiKey == "" {
		return "", ErrNoAPIKey
	}

	req := openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(prompt, text),
			},
		},
		MaxTokens:   300,
		Temperature: 0.3,
	}

	resp, err := t.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no translation returned")
	}

	translation := strings.TrimSpace(resp.Choices[0].Message.Content)
	if translation == "" {
		return "", fmt.Errorf("empty translation returned")
	}
	t.cache.Add(text, translation)
	return translation, nil
}

// Fill returns the sentence with a translation, translating it only when it
// has none
func (t *Translator) Fill(ctx context.Context, s model.Sentence) (model.Sentence, error) {
	if strings.TrimSpace(s.ChineseTranslation) != "" {
		return s, nil
	}
	translation, err := t.TranslateSentence(ctx, s.JapaneseText())
	if err != nil {
		return s, err
	}
	s.ChineseTranslation = translation
	return s, nil
}

// TranslationCache stores translations in memory for batch operations
type TranslationCache struct {
	mu           sync.Mutex
	translations map[string]string
}

// NewTranslationCache creates a new translation cache
func NewTranslationCache() *TranslationCache {
	return &TranslationCache{
		translations: make(map[string]string),
	}
}

// Add adds a translation to the cache
func (tc *TranslationCache) Add(text, translation string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.translations[text] = translation
}

// Get retrieves a translation from the cache
func (tc *TranslationCache) Get(text string) (string, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	translation, ok := tc.translations[text]
	return translation, ok
}

// GetAll returns all cached translations
func (tc *TranslationCache) GetAll() map[string]string {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	// Return a copy to prevent external modification
	result := make(map[string]string, len(tc.translations))
	for k, v := range tc.translations {
		result[k] = v
	}
	return result
}
