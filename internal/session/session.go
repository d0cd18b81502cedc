// Package session holds the state of one analysis: the input, the result,
// the saved flag and the undo window for the last dismissed word.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"codeberg.org/snonux/kotoba/internal/analyzer"
	"codeberg.org/snonux/kotoba/internal/audio"
	"codeberg.org/snonux/kotoba/internal/flashcard"
	"codeberg.org/snonux/kotoba/internal/model"
	"codeberg.org/snonux/kotoba/internal/store"
	"codeberg.org/snonux/kotoba/internal/timer"
)

// UndoWindow is how long a dismissal can be taken back
const UndoWindow = 5 * time.Second

var (
	// ErrEmptyInput is returned when neither text nor an image was given
	ErrEmptyInput = errors.New("no text or image to analyze")

	// ErrBusy is returned when an analysis is already running
	ErrBusy = errors.New("an analysis is already running")

	// ErrNothingToSave is returned when there is no result to save
	ErrNothingToSave = errors.New("no analysis to save")

	// ErrNothingToUndo is returned when the undo window has closed
	ErrNothingToUndo = errors.New("nothing to undo")
)

const (
	emptyInputMessage     = "Please enter some text or upload an image to analyze."
	analysisFailedMessage = "An error occurred during analysis. The model may be unable to parse the content. Please try again."
	unsupportedMessage    = "Image analysis needs the Gemini analyzer."
)

// UserMessage turns an analysis error into the text shown to the user
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyInput):
		return emptyInputMessage
	case errors.Is(err, ErrBusy):
		return "An analysis is already running."
	case errors.Is(err, analyzer.ErrUnsupported):
		return unsupportedMessage
	case audio.IsQuotaError(err):
		return audio.ErrQuotaExceeded.Error()
	}
	return analysisFailedMessage
}

// Session is the analysis workspace. All methods are safe for concurrent use.
type Session struct {
	analyzer analyzer.Analyzer
	store    *store.Store
	sched    timer.Scheduler

	mu          sync.Mutex
	input       string
	image       *analyzer.Image
	translation *analyzer.Image
	result      *model.Analysis
	loading     bool
	err         error
	loadedID    int64
	saved       bool
	simplified  bool

	lastDismissed string
	undo          timer.Handle
	undoGen       uint64
}

// New creates an empty session. sched may be nil for the real clock.
func New(a analyzer.Analyzer, st *store.Store, sched timer.Scheduler) *Session {
	if sched == nil {
		sched = timer.Real{}
	}
	return &Session{analyzer: a, store: st, sched: sched}
}

// State is a copy of the session fields
type State struct {
	Input         string
	HasImage      bool
	Result        *model.Analysis
	Loading       bool
	Err           error
	Message       string
	LoadedID      int64
	Saved         bool
	Simplified    bool
	LastDismissed string
}

// State returns a snapshot of the session
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Input:         s.input,
		HasImage:      s.image != nil,
		Loading:       s.loading,
		Err:           s.err,
		Message:       UserMessage(s.err),
		LoadedID:      s.loadedID,
		Saved:         s.saved,
		Simplified:    s.simplified,
		LastDismissed: s.lastDismissed,
	}
	if s.result != nil {
		r := *s.result
		st.Result = &r
	}
	return st
}

// SetInput replaces the text to analyze
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = text
}

// SetImage sets or clears the image to analyze. An image takes precedence
// over the text.
func (s *Session) SetImage(img *analyzer.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = img
}

// SetTranslationImage sets or clears a picture of the Chinese translation
// that accompanies the image
func (s *Session) SetTranslationImage(img *analyzer.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.translation = img
}

// SetSimplified toggles the essential-words view
func (s *Session) SetSimplified(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simplified = on
}

// Analyze runs the analyzer on the image or the text. A previous result is
// discarded first. The loading flag is cleared on every path.
func (s *Session) Analyze(ctx context.Context) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	s.loading = true
	s.err = nil
	s.result = nil
	s.saved = false
	s.loadedID = 0
	s.simplified = false
	input, img, translation := s.input, s.image, s.translation
	s.mu.Unlock()

	var (
		result model.Analysis
		err    error
	)
	switch {
	case img != nil && translation != nil:
		result, err = s.analyzer.AnalyzeImageWithTranslation(ctx, *img, *translation)
	case img != nil:
		result, err = s.analyzer.AnalyzeImage(ctx, *img)
	case strings.TrimSpace(input) != "":
		result, err = s.analyzer.AnalyzeText(ctx, input)
	default:
		err = ErrEmptyInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.err = err
		return err
	}
	if img != nil {
		s.input = analyzer.ReconstructText(result)
	}
	s.result = &result
	return nil
}

// Result returns the current analysis
func (s *Session) Result() (model.Analysis, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return model.Analysis{}, false
	}
	return *s.result, true
}

// Save stores the current result under the input text
func (s *Session) Save() (model.SavedAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result == nil || s.input == "" {
		return model.SavedAnalysis{}, ErrNothingToSave
	}
	saved, err := s.store.SaveAnalysis(s.input, *s.result)
	if err != nil {
		return model.SavedAnalysis{}, fmt.Errorf("failed to save analysis: %w", err)
	}
	s.loadedID = saved.ID
	s.saved = true
	return saved, nil
}

// Load shows a saved analysis
func (s *Session) Load(saved model.SavedAnalysis) {
	s.mu.Lock()
	defer s.mu.Unlock()

	analysis := saved.Analysis
	s.input = saved.InputText
	s.image = nil
	s.translation = nil
	s.result = &analysis
	s.err = nil
	s.saved = true
	s.loadedID = saved.ID
}

// Delete removes a saved analysis. Deleting the loaded one clears the saved
// flag but keeps the result on screen.
func (s *Session) Delete(id int64) error {
	if err := s.store.DeleteAnalysis(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadedID == id {
		s.saved = false
		s.loadedID = 0
	}
	return nil
}

// Clear resets the input and the result
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.input = ""
	s.image = nil
	s.translation = nil
	s.result = nil
	s.err = nil
	s.saved = false
	s.loadedID = 0
	s.simplified = false
}

// Dismiss hides a word from flashcards and games. The dismissal is stored
// at once and can be undone for UndoWindow.
func (s *Session) Dismiss(key string) error {
	if err := s.store.Dismiss(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	timer.Stop(s.undo)
	s.undoGen++
	gen := s.undoGen
	s.lastDismissed = key
	s.undo = s.sched.AfterFunc(UndoWindow, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.undoGen == gen {
			s.lastDismissed = ""
			s.undo = nil
		}
	})
	return nil
}

// Undo restores the last dismissed word while the window is open
func (s *Session) Undo() error {
	s.mu.Lock()
	key := s.lastDismissed
	if key == "" {
		s.mu.Unlock()
		return ErrNothingToUndo
	}
	timer.Stop(s.undo)
	s.undo = nil
	s.undoGen++
	s.lastDismissed = ""
	s.mu.Unlock()

	return s.store.Restore(key)
}

// FlashcardWords returns the study words of the result, minus dismissed ones
func (s *Session) FlashcardWords() []model.Word {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}
	words := flashcard.FlashcardWords(s.result.Sentences, s.simplified)
	return flashcard.Visible(words, s.store.DismissedSet())
}

// Statistics summarizes the result
func (s *Session) Statistics() (model.Statistics, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return model.Statistics{}, false
	}
	return flashcard.ComputeStatistics(s.result.Sentences), true
}
