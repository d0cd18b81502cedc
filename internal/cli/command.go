package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/kotoba/internal"
)

// Action names the operation a command line asks for
type Action string

const (
	ActionAnalyze             Action = "analyze"
	ActionAnalysesList        Action = "analyses list"
	ActionAnalysesShow        Action = "analyses show"
	ActionAnalysesDelete      Action = "analyses delete"
	ActionDecksList           Action = "decks list"
	ActionDecksShow           Action = "decks show"
	ActionDecksDelete         Action = "decks delete"
	ActionDecksExportAnki     Action = "decks export-anki"
	ActionWordsSave           Action = "words save"
	ActionWordsUnsave         Action = "words unsave"
	ActionSentencesSave       Action = "sentences save"
	ActionSentencesDeleteCard Action = "sentences delete-card"
	ActionDismissedList       Action = "dismissed list"
	ActionDismissedAdd        Action = "dismissed add"
	ActionDismissedRestore    Action = "dismissed restore"
	ActionExport              Action = "export"
	ActionImport              Action = "import"
	ActionFlashcards          Action = "flashcards"
	ActionGame                Action = "game"
	ActionQuiz                Action = "quiz"
	ActionModels              Action = "models"
	ActionServe               Action = "serve"
)

// RunFunc executes an action
type RunFunc func(cmd *cobra.Command, action Action, args []string) error

// CreateRootCommand creates the root cobra command with every subcommand.
// Each subcommand hands its action to run.
func CreateRootCommand(flags *Flags, run RunFunc) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kotoba",
		Short: "Japanese text analyzer and vocabulary trainer",
		Long: `kotoba analyzes Japanese text into words with readings, parts of speech,
JLPT levels and Traditional Chinese glosses, and turns them into flashcards,
listening games and quizzes.

Examples:
  kotoba analyze "猫がとても好きです。"     # Analyze text with Gemini
  kotoba analyze --url https://... --save  # Analyze a web page and save it
  kotoba analyze --offline --file text.txt # Analyze offline with kagome
  kotoba game --analysis 1700000000000     # Listening game over a saved analysis
  kotoba serve                             # Run the JSON API`,
		Version:       internal.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	setupFlags(rootCmd, flags)

	leaf := func(use, short string, args cobra.PositionalArgs, action Action) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  args,
			RunE: func(cmd *cobra.Command, a []string) error {
				return run(cmd, action, a)
			},
		}
	}
	group := func(use, short string, children ...*cobra.Command) *cobra.Command {
		cmd := &cobra.Command{Use: use, Short: short}
		cmd.AddCommand(children...)
		return cmd
	}

	analyzeCmd := leaf("analyze [text]", "Analyze Japanese text, a file, a web page or an image", cobra.MaximumNArgs(1), ActionAnalyze)
	setupAnalyzeFlags(analyzeCmd, flags)

	exportAnkiCmd := leaf("export-anki <deck-id> [output]", "Export a deck as an Anki package", cobra.RangeArgs(1, 2), ActionDecksExportAnki)
	exportAnkiCmd.Flags().BoolVar(&flags.AnkiCSV, "csv", false, "Write CSV for Anki's text importer instead of .apkg")
	exportAnkiCmd.Flags().BoolVar(&flags.WithAudio, "audio", false, "Synthesize and include pronunciation audio")

	unsaveCmd := leaf("unsave <surface|reading>", "Remove a word from My Vocabulary", cobra.ExactArgs(1), ActionWordsUnsave)
	unsaveCmd.Flags().Int64Var(&flags.ReviewDeck, "review-deck", 0, "Also remove the word from this deck")

	exportCmd := leaf("export [file]", "Export all data as a backup document", cobra.MaximumNArgs(1), ActionExport)
	importCmd := leaf("import <file>", "Merge a backup document into the current data", cobra.ExactArgs(1), ActionImport)

	flashcardsCmd := leaf("flashcards", "Review the flashcards of a saved analysis", cobra.NoArgs, ActionFlashcards)
	gameCmd := leaf("game", "Play the listening game over a saved analysis", cobra.NoArgs, ActionGame)
	quizCmd := leaf("quiz [deck-id]", "Take the audio quiz over a saved analysis or a deck", cobra.MaximumNArgs(1), ActionQuiz)
	for _, cmd := range []*cobra.Command{flashcardsCmd, gameCmd, quizCmd} {
		cmd.Flags().Int64Var(&flags.AnalysisID, "analysis", 0, "Saved analysis id (default: most recent)")
		cmd.Flags().BoolVar(&flags.Simplified, "simplified", false, "Use essential words only")
	}

	serveCmd := leaf("serve", "Run the JSON API server", cobra.NoArgs, ActionServe)
	serveCmd.Flags().StringVar(&flags.ListenAddr, "listen", flags.ListenAddr, "Listen address")
	serveCmd.Flags().StringSliceVar(&flags.AllowOrigins, "allow-origin", nil, "CORS origin to allow (repeatable, default: all)")
	serveCmd.Flags().Float64Var(&flags.RateLimit, "rate-limit", 0, "Model requests per second (0 = unlimited)")
	serveCmd.Flags().IntVar(&flags.RateBurst, "rate-burst", flags.RateBurst, "Burst size of the rate limit")
	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))

	saveSentenceCmd := leaf("save <analysis-id> <number>", "Save a sentence of a saved analysis", cobra.ExactArgs(2), ActionSentencesSave)
	saveSentenceCmd.Flags().BoolVar(&flags.Translate, "translate", false, "Translate the sentence with OpenAI when it has no translation")

	rootCmd.AddCommand(
		analyzeCmd,
		group("analyses", "Manage saved analyses",
			leaf("list", "List saved analyses", cobra.NoArgs, ActionAnalysesList),
			leaf("show <id>", "Show a saved analysis", cobra.ExactArgs(1), ActionAnalysesShow),
			leaf("delete <id>", "Delete a saved analysis", cobra.ExactArgs(1), ActionAnalysesDelete),
		),
		group("decks", "Manage flashcard decks",
			leaf("list", "List decks", cobra.NoArgs, ActionDecksList),
			leaf("show <id>", "Show the cards of a deck", cobra.ExactArgs(1), ActionDecksShow),
			leaf("delete <id>", "Delete a deck", cobra.ExactArgs(1), ActionDecksDelete),
			exportAnkiCmd,
		),
		group("words", "Save words to My Vocabulary",
			leaf("save <analysis-id> <surface>", "Save a word of a saved analysis", cobra.ExactArgs(2), ActionWordsSave),
			unsaveCmd,
		),
		group("sentences", "Save sentences to My Sentences",
			saveSentenceCmd,
			leaf("delete-card <deck-id> <card-id>", "Delete a sentence card", cobra.ExactArgs(2), ActionSentencesDeleteCard),
		),
		group("dismissed", "Manage words hidden from flashcards and games",
			leaf("list", "List dismissed words", cobra.NoArgs, ActionDismissedList),
			leaf("add <surface|reading>", "Dismiss a word", cobra.ExactArgs(1), ActionDismissedAdd),
			leaf("restore <surface|reading>", "Restore a dismissed word", cobra.ExactArgs(1), ActionDismissedRestore),
		),
		exportCmd,
		importCmd,
		flashcardsCmd,
		gameCmd,
		quizCmd,
		leaf("models", "List available Gemini and OpenAI models", cobra.NoArgs, ActionModels),
		serveCmd,
	)

	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	pf := cmd.PersistentFlags()

	// Global flags
	pf.StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.kotoba.yaml)")
	pf.StringVar(&flags.DBPath, "db", flags.DBPath, "Database file")
	pf.StringVar(&flags.ArchiveDir, "archive-dir", flags.ArchiveDir, "Directory for snapshots taken before import")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "Log diagnostics to stderr")

	// Analyzer flags
	pf.StringVar(&flags.Analyzer, "analyzer", flags.Analyzer, "Analyzer: gemini or kagome")
	pf.StringVar(&flags.GeminiModel, "gemini-model", flags.GeminiModel, "Gemini model used for analysis")

	// Audio flags
	pf.StringVar(&flags.AudioProvider, "audio-provider", flags.AudioProvider, "Speech provider: gemini, openai or espeak")
	pf.StringVar(&flags.AudioFallback, "audio-fallback", "", "Speech provider used when the first one fails")
	pf.StringVar(&flags.GeminiVoice, "gemini-voice", flags.GeminiVoice, "Gemini TTS voice")
	pf.StringVar(&flags.OpenAIModel, "openai-model", flags.OpenAIModel, "OpenAI TTS model: tts-1, tts-1-hd, gpt-4o-mini-tts")
	pf.StringVar(&flags.OpenAIVoice, "openai-voice", flags.OpenAIVoice, "OpenAI voice: alloy, ash, coral, nova, sage, shimmer, ...")
	pf.Float64Var(&flags.OpenAISpeed, "openai-speed", flags.OpenAISpeed, "OpenAI speech speed (0.25 to 4.0)")
	pf.BoolVar(&flags.NoAudio, "no-audio", false, "Disable audio playback")

	bindFlagsToViper(cmd)
}

func setupAnalyzeFlags(cmd *cobra.Command, flags *Flags) {
	f := cmd.Flags()
	f.StringVarP(&flags.File, "file", "f", "", "Read the text from a file")
	f.StringVarP(&flags.URL, "url", "u", "", "Fetch the text from a web page")
	f.StringVarP(&flags.Image, "image", "i", "", "Analyze an image (Gemini only)")
	f.StringVar(&flags.TranslationImage, "translation-image", "", "Image of the Chinese translation aligned with --image")
	f.StringVar(&flags.Batch, "batch", "", "Analyze every entry of a batch file (entries separated by ---)")
	f.BoolVar(&flags.Offline, "offline", false, "Analyze with kagome instead of Gemini")
	f.BoolVarP(&flags.Save, "save", "s", false, "Save the analysis")
	f.BoolVar(&flags.Simplified, "simplified", false, "Show essential words only")
	f.BoolVar(&flags.Stats, "stats", false, "Print statistics")
	f.BoolVar(&flags.JSON, "json", false, "Print the analysis as JSON")
}

func bindFlagsToViper(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	viper.BindPFlag("storage.db", pf.Lookup("db"))
	viper.BindPFlag("storage.archive_dir", pf.Lookup("archive-dir"))
	viper.BindPFlag("analyzer.provider", pf.Lookup("analyzer"))
	viper.BindPFlag("analyzer.gemini_model", pf.Lookup("gemini-model"))
	viper.BindPFlag("audio.provider", pf.Lookup("audio-provider"))
	viper.BindPFlag("audio.fallback", pf.Lookup("audio-fallback"))
	viper.BindPFlag("audio.gemini_voice", pf.Lookup("gemini-voice"))
	viper.BindPFlag("audio.openai_model", pf.Lookup("openai-model"))
	viper.BindPFlag("audio.openai_voice", pf.Lookup("openai-voice"))
	viper.BindPFlag("audio.openai_speed", pf.Lookup("openai-speed"))
}

// InitConfig loads .env and initializes viper configuration
func InitConfig(cfgFile string) {
	// A missing .env file is normal
	_ = godotenv.Load()

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".kotoba" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".kotoba")
	}

	// Environment variables
	viper.SetEnvPrefix("KOTOBA")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// ApplyConfig copies configured values into flags the user did not set on
// the command line
func ApplyConfig(cmd *cobra.Command, flags *Flags) {
	str := func(flag, key string, dst *string) {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			return
		}
		if v := viper.GetString(key); v != "" {
			*dst = v
		}
	}
	str("db", "storage.db", &flags.DBPath)
	str("archive-dir", "storage.archive_dir", &flags.ArchiveDir)
	str("analyzer", "analyzer.provider", &flags.Analyzer)
	str("gemini-model", "analyzer.gemini_model", &flags.GeminiModel)
	str("audio-provider", "audio.provider", &flags.AudioProvider)
	str("audio-fallback", "audio.fallback", &flags.AudioFallback)
	str("gemini-voice", "audio.gemini_voice", &flags.GeminiVoice)
	str("openai-model", "audio.openai_model", &flags.OpenAIModel)
	str("openai-voice", "audio.openai_voice", &flags.OpenAIVoice)
	str("listen", "server.listen", &flags.ListenAddr)

	if f := cmd.Flags().Lookup("openai-speed"); (f == nil || !f.Changed) && viper.IsSet("audio.openai_speed") {
		flags.OpenAISpeed = viper.GetFloat64("audio.openai_speed")
	}
	if f := cmd.Flags().Lookup("rate-limit"); (f == nil || !f.Changed) && viper.IsSet("server.rate_limit") {
		flags.RateLimit = viper.GetFloat64("server.rate_limit")
	}
}

// GetGeminiKey retrieves the Gemini API key from environment or config
func GetGeminiKey() string {
	for _, env := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if key := os.Getenv(env); key != "" {
			return key
		}
	}
	return viper.GetString("analyzer.gemini_key")
}

// GetOpenAIKey retrieves the OpenAI API key from environment or config
func GetOpenAIKey() string {
	// First check environment variable
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}

	// Then check config file
	return viper.GetString("audio.openai_key")
}
