package cli

import (
	"os"
	"path/filepath"
)

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile     string
	DBPath      string
	ArchiveDir  string
	ArchiveKeep int
	Verbose     bool

	// Analyzer flags
	Analyzer    string
	GeminiModel string

	// analyze command flags
	File             string
	URL              string
	Image            string
	TranslationImage string
	Batch            string
	Offline          bool
	Save             bool
	Simplified       bool
	Stats            bool
	JSON             bool

	// Audio flags
	AudioProvider string
	AudioFallback string
	GeminiVoice   string
	OpenAIModel   string
	OpenAIVoice   string
	OpenAISpeed   float64
	NoAudio       bool

	// Deck flags
	Output     string
	AnkiCSV    bool
	WithAudio  bool
	ReviewDeck int64
	Translate  bool

	// Game flags
	AnalysisID int64

	// serve flags
	ListenAddr   string
	AllowOrigins []string
	RateLimit    float64
	RateBurst    int
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		DBPath:        DefaultDBPath(),
		ArchiveDir:    DefaultArchiveDir(),
		ArchiveKeep:   20,
		Analyzer:      "gemini",
		GeminiModel:   "gemini-2.5-flash",
		AudioProvider: "gemini",
		GeminiVoice:   "Kore",
		OpenAIModel:   "gpt-4o-mini-tts",
		OpenAIVoice:   "nova",
		OpenAISpeed:   1.0,
		ListenAddr:    ":8080",
		RateBurst:     5,
	}
}

// StateDir returns the directory holding the database and the archive
func StateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".kotoba")
	}
	return filepath.Join(home, ".local", "state", "kotoba")
}

// DefaultDBPath returns the default location of the database
func DefaultDBPath() string {
	return filepath.Join(StateDir(), "kotoba.db")
}

// DefaultArchiveDir returns the default location of import snapshots
func DefaultArchiveDir() string {
	return filepath.Join(StateDir(), "archive")
}
