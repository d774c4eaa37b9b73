package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"notescan/internal/export"
	"notescan/internal/models"
	"notescan/internal/storage"
)

type Server struct {
	cfg      *models.Config
	router   *gin.Engine
	db       *storage.Storage
	producer *kafka.Writer
	exporter *export.Writer
}

func NewServer(cfg *models.Config, db *storage.Storage, producer *kafka.Writer) *Server {
	r := gin.Default()
	r.Static("/files", cfg.StoragePath)

	s := &Server{
		cfg:      cfg,
		router:   r,
		db:       db,
		producer: producer,
		exporter: export.NewWriter(cfg.ExportPath),
	}

	r.POST("/notes", s.handleCreateNote)
	r.GET("/notes", s.handleListNotes)
	r.GET("/notes/:id", s.handleGetNote)
	r.DELETE("/notes/:id", s.handleDeleteNote)
	r.POST("/notes/:id/retry", s.handleRetry)
	r.PUT("/notes/:id/text", s.handleUpdateText)
	r.POST("/notes/:id/export", s.handleExportNote)
	r.POST("/export", s.handleExportBatch)
	r.GET("/events", s.handleEvents)

	return s
}

func (s *Server) Start() error {
	return s.router.Run(s.cfg.ServerAddr)
}

func (s *Server) Stop() {
	// No shutdown needed for gin
}

// handleCreateNote accepts a captured image, stores it under the image root,
// inserts the note with status pending and enqueues it for OCR.
func (s *Server) handleCreateNote(c *gin.Context) {
	const op = "server.handleCreateNote"

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	title := c.PostForm("title")
	if title == "" {
		title = models.DefaultTitle
	}

	imagePath := filepath.Join(s.cfg.StoragePath, "original", uuid.New().String()+filepath.Ext(file.Filename))
	if err := os.MkdirAll(filepath.Dir(imagePath), 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	f, err := os.Create(imagePath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	defer f.Close()

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	defer src.Close()

	if _, err := io.Copy(f, src); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	note := models.Note{
		ImagePath: imagePath,
		Timestamp: time.Now().UnixMilli(),
		Title:     title,
		OcrStatus: models.StatusPending,
	}
	if err := s.db.SaveNote(c.Request.Context(), &note); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	if err := s.enqueue(c, note.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	c.JSON(http.StatusCreated, note)
}

func (s *Server) handleListNotes(c *gin.Context) {
	const op = "server.handleListNotes"

	notes, err := s.db.ListNotes(c.Request.Context(), storage.SortOrder(c.Query("sort")))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

func (s *Server) handleGetNote(c *gin.Context) {
	const op = "server.handleGetNote"

	id, ok := noteID(c)
	if !ok {
		return
	}

	note, err := s.db.GetNote(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNoteNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "note not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	c.JSON(http.StatusOK, note)
}

func (s *Server) handleDeleteNote(c *gin.Context) {
	const op = "server.handleDeleteNote"

	id, ok := noteID(c)
	if !ok {
		return
	}

	note, err := s.db.GetNote(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNoteNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "note not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	os.Remove(note.ImagePath)

	if err := s.db.DeleteNote(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	c.Status(http.StatusNoContent)
}

// handleRetry re-enqueues a failed note for another OCR attempt. Only failed
// notes are retryable by hand.
func (s *Server) handleRetry(c *gin.Context) {
	const op = "server.handleRetry"

	id, ok := noteID(c)
	if !ok {
		return
	}

	note, err := s.db.GetNote(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNoteNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "note not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	if !note.OcrStatus.CanRetry() {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("note is %s, only failed notes can be retried", note.OcrStatus)})
		return
	}

	if err := s.enqueue(c, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"id": id})
}

// handleUpdateText is the server side of the editing surface's auto-save.
// Editing is only reachable from completed notes and keeps them completed.
func (s *Server) handleUpdateText(c *gin.Context) {
	const op = "server.handleUpdateText"

	id, ok := noteID(c)
	if !ok {
		return
	}

	var req struct {
		ParsedText string `json:"parsedText"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	note, err := s.db.GetNote(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNoteNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "note not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	if !note.OcrStatus.CanEdit() {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("note is %s, text can only be edited once OCR has completed", note.OcrStatus)})
		return
	}

	if err := s.db.UpdateText(c.Request.Context(), id, req.ParsedText, models.StatusCompleted); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) handleExportNote(c *gin.Context) {
	const op = "server.handleExportNote"

	id, ok := noteID(c)
	if !ok {
		return
	}

	note, err := s.db.GetNote(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNoteNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "note not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	var path string
	switch c.DefaultQuery("format", "txt") {
	case "txt":
		path, err = s.exporter.ExportText(*note)
	case "pdf":
		path, err = s.exporter.ExportPDF(*note)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be txt or pdf"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"path": path})
}

// handleExportBatch exports every completed note into a single file.
func (s *Server) handleExportBatch(c *gin.Context) {
	const op = "server.handleExportBatch"

	notes, err := s.db.ListNotes(c.Request.Context(), storage.SortOldest)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	var completed []models.Note
	for _, note := range notes {
		if note.OcrStatus == models.StatusCompleted {
			completed = append(completed, note)
		}
	}
	if len(completed) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no completed notes to export"})
		return
	}

	var path string
	switch c.DefaultQuery("format", "txt") {
	case "txt":
		path, err = s.exporter.ExportBatchText(completed)
	case "pdf":
		path, err = s.exporter.ExportBatchPDF(completed)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be txt or pdf"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"path": path, "count": len(completed)})
}

// handleEvents streams the id of every mutated note as server-sent events so
// the list surface can re-render without polling.
func (s *Server) handleEvents(c *gin.Context) {
	changes, cancel := s.db.Subscribe()
	defer cancel()

	c.Stream(func(w io.Writer) bool {
		select {
		case id, open := <-changes:
			if !open {
				return false
			}
			c.SSEvent("note", gin.H{"id": id})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (s *Server) enqueue(c *gin.Context, id int64) error {
	return s.producer.WriteMessages(c.Request.Context(),
		kafka.Message{Value: []byte(strconv.FormatInt(id, 10))})
}

func noteID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid note id"})
		return 0, false
	}
	return id, true
}
