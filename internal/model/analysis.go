package model

import "time"

const titleLength = 40

// SavedAnalysis is a stored analysis result. It is never modified after
// creation.
type SavedAnalysis struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	InputText string   `json:"inputText"`
	Analysis  Analysis `json:"analysis"`
}

// NewSavedAnalysis stamps an analysis with now and derives its title from
// the input text
func NewSavedAnalysis(input string, analysis Analysis, now time.Time) SavedAnalysis {
	return SavedAnalysis{
		ID:        now.UnixMilli(),
		Title:     Title(input),
		InputText: input,
		Analysis:  analysis,
	}
}

// Title returns the first 40 characters of the input, followed by "..." when
// the input is longer
func Title(input string) string {
	runes := []rune(input)
	if len(runes) <= titleLength {
		return input
	}
	return string(runes[:titleLength]) + "..."
}

// BackupData is the export/import document
type BackupData struct {
	SavedAnalyses  []SavedAnalysis `json:"savedAnalyses"`
	SavedCardDecks []Deck          `json:"savedCardDecks"`
	DismissedWords []string        `json:"dismissedWords"`
}

// JLPTDistribution counts words per JLPT level
type JLPTDistribution struct {
	N5      int `json:"n5"`
	N4      int `json:"n4"`
	N3      int `json:"n3"`
	N2      int `json:"n2"`
	N1      int `json:"n1"`
	Unknown int `json:"unknown"`
}

// Statistics summarizes an analysis
type Statistics struct {
	TotalWords       int              `json:"totalWords"`
	UniqueWords      int              `json:"uniqueWords"`
	CharacterCount   int              `json:"characterCount"`
	JLPTDistribution JLPTDistribution `json:"jlptDistribution"`
}
