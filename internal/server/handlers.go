package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"codeberg.org/snonux/kotoba/internal/analyzer"
	"codeberg.org/snonux/kotoba/internal/audio"
	"codeberg.org/snonux/kotoba/internal/flashcard"
	"codeberg.org/snonux/kotoba/internal/model"
	"codeberg.org/snonux/kotoba/internal/session"
	"codeberg.org/snonux/kotoba/internal/store"
)

type analyzeRequest struct {
	Text                string `json:"text"`
	Image               []byte `json:"image,omitempty"`
	ImageMIMEType       string `json:"imageMimeType,omitempty"`
	TranslationImage    []byte `json:"translationImage,omitempty"`
	TranslationMIMEType string `json:"translationMimeType,omitempty"`
}

type analyzeResponse struct {
	InputText string         `json:"inputText"`
	Analysis  model.Analysis `json:"analysis"`
}

type saveAnalysisRequest struct {
	InputText string         `json:"inputText"`
	Analysis  model.Analysis `json:"analysis"`
}

type toggleWordRequest struct {
	Word         model.Word `json:"word"`
	Saved        bool       `json:"saved"`
	ReviewDeckID int64      `json:"reviewDeckId,omitempty"`
}

type toggleSentenceRequest struct {
	Sentence model.Sentence `json:"sentence"`
	Saved    bool           `json:"saved"`
}

type dismissRequest struct {
	Key string `json:"key"`
}

type flashcardsRequest struct {
	Analysis   model.Analysis `json:"analysis"`
	Simplified bool           `json:"simplified"`
}

type flashcardsResponse struct {
	Words        []model.Word `json:"words"`
	CanStartQuiz bool         `json:"canStartQuiz"`
}

type speechRequest struct {
	Text string `json:"text"`
}

func respondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func newImage(data []byte, mimeType string) *analyzer.Image {
	if len(data) == 0 {
		return nil
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return &analyzer.Image{Data: data, MIMEType: mimeType}
}

func (s *Server) analyze(c *gin.Context) {
	var req analyzeRequest
	if !bindJSON(c, &req) {
		return
	}

	sess := session.New(s.analyzer, s.store, nil)
	sess.SetInput(analyzer.NormalizeInput(req.Text))
	sess.SetImage(newImage(req.Image, req.ImageMIMEType))
	sess.SetTranslationImage(newImage(req.TranslationImage, req.TranslationMIMEType))

	if err := sess.Analyze(c.Request.Context()); err != nil {
		s.logf("Analysis failed: %v", err)
		respondError(c, analyzeStatus(err), session.UserMessage(err))
		return
	}

	st := sess.State()
	c.JSON(http.StatusOK, analyzeResponse{InputText: st.Input, Analysis: *st.Result})
}

func analyzeStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, analyzer.ErrUnsupported):
		return http.StatusNotImplemented
	case audio.IsQuotaError(err):
		return http.StatusTooManyRequests
	}
	return http.StatusBadGateway
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("invalid %s %q", name, c.Param(name)))
		return 0, false
	}
	return id, true
}

func (s *Server) storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrNoTranslation), errors.Is(err, store.ErrInvalidBackup):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		s.logf("Store error: %v", err)
		respondError(c, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) listAnalyses(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Analyses())
}

func (s *Server) getAnalysis(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	saved, err := s.store.Analysis(id)
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (s *Server) saveAnalysis(c *gin.Context) {
	var req saveAnalysisRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.InputText == "" || len(req.Analysis.Sentences) == 0 {
		respondError(c, http.StatusBadRequest, "inputText and analysis are required")
		return
	}
	saved, err := s.store.SaveAnalysis(req.InputText, req.Analysis)
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (s *Server) deleteAnalysis(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteAnalysis(id); err != nil {
		s.storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listDecks(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Decks())
}

func (s *Server) deleteDeck(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteDeck(id); err != nil {
		s.storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteCard(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteSentenceCard(id, c.Param("cardId")); err != nil {
		s.storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) toggleWord(c *gin.Context) {
	var req toggleWordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.store.ToggleWord(req.Word, req.Saved, req.ReviewDeckID); err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": !req.Saved, "decks": s.store.Decks()})
}

func (s *Server) toggleSentence(c *gin.Context) {
	var req toggleSentenceRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.store.ToggleSentence(req.Sentence, req.Saved); err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": !req.Saved, "decks": s.store.Decks()})
}

func (s *Server) listDismissed(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Dismissed())
}

func (s *Server) dismiss(c *gin.Context) {
	var req dismissRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Key == "" {
		respondError(c, http.StatusBadRequest, "key is required")
		return
	}
	if err := s.store.Dismiss(req.Key); err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.store.Dismissed())
}

func (s *Server) restore(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		respondError(c, http.StatusBadRequest, "key query parameter is required")
		return
	}
	if err := s.store.Restore(key); err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.store.Dismissed())
}

func (s *Server) export(c *gin.Context) {
	doc, err := s.store.ExportJSON()
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="japanese_analyzer_backup.json"`)
	c.Data(http.StatusOK, "application/json", doc)
}

func (s *Server) importBackup(c *gin.Context) {
	content, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("failed to read body: %v", err))
		return
	}
	result, err := s.store.Import(content)
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"analysesAdded":  result.AnalysesAdded,
		"decksAdded":     result.DecksAdded,
		"cardsAdded":     result.CardsAdded,
		"dismissedAdded": result.DismissedAdded,
	})
}

func (s *Server) flashcards(c *gin.Context) {
	var req flashcardsRequest
	if !bindJSON(c, &req) {
		return
	}
	words := flashcard.FlashcardWords(req.Analysis.Sentences, req.Simplified)
	words = flashcard.Visible(words, s.store.DismissedSet())
	if words == nil {
		words = []model.Word{}
	}
	c.JSON(http.StatusOK, flashcardsResponse{Words: words, CanStartQuiz: flashcard.CanStartQuiz(words)})
}

func (s *Server) statistics(c *gin.Context) {
	var req flashcardsRequest
	if !bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, flashcard.ComputeStatistics(req.Analysis.Sentences))
}

func (s *Server) speech(c *gin.Context) {
	if s.synth == nil {
		respondError(c, http.StatusServiceUnavailable, "speech synthesis is not configured")
		return
	}
	var req speechRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := audio.ValidateJapaneseText(req.Text); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	buf, ok := s.cache.Get(req.Text)
	if !ok {
		start := time.Now()
		var err error
		buf, err = s.synth.Synthesize(c.Request.Context(), req.Text)
		if err != nil {
			s.logf("Speech synthesis failed: %v", err)
			status := http.StatusBadGateway
			if audio.IsQuotaError(err) {
				status = http.StatusTooManyRequests
			}
			respondError(c, status, err.Error())
			return
		}
		s.cache.Put(req.Text, buf)
		s.logf("Synthesized %q in %v", req.Text, time.Since(start))
	}
	data, err := buf.EncodeWAV()
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusOK, "audio/wav", data)
}
