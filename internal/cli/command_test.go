package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// recorder captures the action a command line dispatches
type recorder struct {
	action Action
	args   []string
}

func (r *recorder) run(cmd *cobra.Command, action Action, args []string) error {
	r.action = action
	r.args = args
	return nil
}

func execute(t *testing.T, args ...string) (*recorder, *Flags) {
	t.Helper()
	viper.Reset()
	flags := NewFlags()
	rec := &recorder{}
	cmd := CreateRootCommand(flags, rec.run)
	cmd.SetArgs(args)
	cmd.SetOut(&strings.Builder{})
	cmd.SetErr(&strings.Builder{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute(%v) failed: %v", args, err)
	}
	return rec, flags
}

func TestCreateRootCommand(t *testing.T) {
	cmd := CreateRootCommand(NewFlags(), (&recorder{}).run)

	if cmd.Use != "kotoba" {
		t.Errorf("Expected Use to be 'kotoba', got %s", cmd.Use)
	}
	if !strings.Contains(cmd.Short, "Japanese") {
		t.Errorf("Short description should mention Japanese: %q", cmd.Short)
	}

	persistent := []string{
		"config", "db", "archive-dir", "verbose", "analyzer", "gemini-model",
		"audio-provider", "audio-fallback", "gemini-voice", "openai-model",
		"openai-voice", "openai-speed", "no-audio",
	}
	for _, name := range persistent {
		t.Run("flag_"+name, func(t *testing.T) {
			if cmd.PersistentFlags().Lookup(name) == nil {
				t.Errorf("Expected persistent flag %s to exist", name)
			}
		})
	}
}

func TestAnalyzeFlags(t *testing.T) {
	cmd := &cobra.Command{}
	setupAnalyzeFlags(cmd, NewFlags())

	for _, name := range []string{"file", "url", "image", "translation-image", "batch", "offline", "save", "simplified", "stats", "json"} {
		var flag *pflag.Flag
		if flag = cmd.Flags().Lookup(name); flag == nil {
			t.Errorf("Expected flag %s to exist", name)
		}
	}
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		args   []string
		action Action
		rest   []string
	}{
		{[]string{"analyze", "猫"}, ActionAnalyze, []string{"猫"}},
		{[]string{"analyses", "list"}, ActionAnalysesList, []string{}},
		{[]string{"analyses", "show", "17"}, ActionAnalysesShow, []string{"17"}},
		{[]string{"analyses", "delete", "17"}, ActionAnalysesDelete, []string{"17"}},
		{[]string{"decks", "list"}, ActionDecksList, []string{}},
		{[]string{"decks", "export-anki", "3", "out.apkg"}, ActionDecksExportAnki, []string{"3", "out.apkg"}},
		{[]string{"words", "save", "17", "猫"}, ActionWordsSave, []string{"17", "猫"}},
		{[]string{"words", "unsave", "猫|ねこ"}, ActionWordsUnsave, []string{"猫|ねこ"}},
		{[]string{"sentences", "save", "17", "1"}, ActionSentencesSave, []string{"17", "1"}},
		{[]string{"sentences", "delete-card", "2", "x"}, ActionSentencesDeleteCard, []string{"2", "x"}},
		{[]string{"dismissed", "add", "猫|ねこ"}, ActionDismissedAdd, []string{"猫|ねこ"}},
		{[]string{"dismissed", "restore", "猫|ねこ"}, ActionDismissedRestore, []string{"猫|ねこ"}},
		{[]string{"export"}, ActionExport, []string{}},
		{[]string{"import", "backup.json"}, ActionImport, []string{"backup.json"}},
		{[]string{"flashcards"}, ActionFlashcards, []string{}},
		{[]string{"game"}, ActionGame, []string{}},
		{[]string{"quiz", "2"}, ActionQuiz, []string{"2"}},
		{[]string{"models"}, ActionModels, []string{}},
		{[]string{"serve"}, ActionServe, []string{}},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, "_"), func(t *testing.T) {
			rec, _ := execute(t, tt.args...)
			if rec.action != tt.action {
				t.Errorf("action = %q, want %q", rec.action, tt.action)
			}
			if strings.Join(rec.args, ",") != strings.Join(tt.rest, ",") {
				t.Errorf("args = %v, want %v", rec.args, tt.rest)
			}
		})
	}
}

func TestCommandFlagsReachFlags(t *testing.T) {
	_, flags := execute(t, "analyze", "--offline", "--save", "--url", "https://example.com", "--db", "/tmp/k.db")
	if !flags.Offline || !flags.Save || flags.URL != "https://example.com" || flags.DBPath != "/tmp/k.db" {
		t.Errorf("flags not populated: %+v", flags)
	}

	_, flags = execute(t, "game", "--analysis", "1700000000001", "--simplified")
	if flags.AnalysisID != 1700000000001 || !flags.Simplified {
		t.Errorf("game flags not populated: %+v", flags)
	}

	_, flags = execute(t, "sentences", "save", "17", "2", "--translate")
	if !flags.Translate {
		t.Error("--translate not populated")
	}

	_, flags = execute(t, "serve", "--listen", ":9999", "--allow-origin", "http://a", "--allow-origin", "http://b", "--rate-limit", "2")
	if flags.ListenAddr != ":9999" || len(flags.AllowOrigins) != 2 || flags.RateLimit != 2 {
		t.Errorf("serve flags not populated: %+v", flags)
	}
}

func TestArgumentValidation(t *testing.T) {
	viper.Reset()
	cmd := CreateRootCommand(NewFlags(), (&recorder{}).run)
	cmd.SetArgs([]string{"analyses", "show"})
	cmd.SetOut(&strings.Builder{})
	cmd.SetErr(&strings.Builder{})
	if err := cmd.Execute(); err == nil {
		t.Error("expected an error for a missing id")
	}
}

func TestInitConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	tests := []struct {
		name      string
		setupFunc func(t *testing.T) string
		provider  string
	}{
		{
			name: "with config file",
			setupFunc: func(t *testing.T) string {
				cfgPath := filepath.Join(t.TempDir(), "test-config.yaml")
				content := `analyzer:
  provider: kagome
audio:
  provider: openai
  openai_key: test-key`
				if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
					t.Fatalf("Failed to create test config: %v", err)
				}
				return cfgPath
			},
			provider: "kagome",
		},
		{
			name:      "without config file",
			setupFunc: func(t *testing.T) string { return "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Chdir(t.TempDir())
			t.Setenv("HOME", t.TempDir())
			t.Setenv("KOTOBA_TEST_VAR", "test-value")

			InitConfig(tt.setupFunc(t))

			if viper.GetString("test_var") != "test-value" {
				t.Error("Environment variable not properly loaded")
			}
			if got := viper.GetString("analyzer.provider"); got != tt.provider {
				t.Errorf("analyzer.provider = %q, want %q", got, tt.provider)
			}
		})
	}
}

func TestApplyConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Reset()

	flags := NewFlags()
	cmd := CreateRootCommand(flags, (&recorder{}).run)
	viper.Set("audio.openai_voice", "alloy")
	viper.Set("audio.openai_speed", 1.5)
	viper.Set("storage.db", "/from/config.db")

	if err := cmd.PersistentFlags().Set("db", "/from/flag.db"); err != nil {
		t.Fatal(err)
	}
	ApplyConfig(cmd, flags)

	if flags.OpenAIVoice != "alloy" {
		t.Errorf("OpenAIVoice = %q", flags.OpenAIVoice)
	}
	if flags.OpenAISpeed != 1.5 {
		t.Errorf("OpenAISpeed = %v", flags.OpenAISpeed)
	}
	if flags.DBPath != "/from/flag.db" {
		t.Errorf("an explicit flag was overridden: %q", flags.DBPath)
	}
}

func TestGetGeminiKey(t *testing.T) {
	t.Cleanup(viper.Reset)

	tests := []struct {
		name      string
		gemini    string
		google    string
		configKey string
		expected  string
	}{
		{"gemini env wins", "g1", "g2", "cfg", "g1"},
		{"google env", "", "g2", "cfg", "g2"},
		{"from config when no env", "", "", "cfg", "cfg"},
		{"empty when neither set", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Setenv("GEMINI_API_KEY", tt.gemini)
			t.Setenv("GOOGLE_API_KEY", tt.google)
			if tt.configKey != "" {
				viper.Set("analyzer.gemini_key", tt.configKey)
			}

			if got := GetGeminiKey(); got != tt.expected {
				t.Errorf("GetGeminiKey() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestGetOpenAIKey(t *testing.T) {
	t.Cleanup(viper.Reset)

	tests := []struct {
		name      string
		envKey    string
		configKey string
		expected  string
	}{
		{"from environment", "env-test-key", "config-test-key", "env-test-key"},
		{"from config when no env", "", "config-test-key", "config-test-key"},
		{"empty when neither set", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Setenv("OPENAI_API_KEY", tt.envKey)
			if tt.configKey != "" {
				viper.Set("audio.openai_key", tt.configKey)
			}

			if got := GetOpenAIKey(); got != tt.expected {
				t.Errorf("GetOpenAIKey() = %q, want %q", got, tt.expected)
			}
		})
	}
}
