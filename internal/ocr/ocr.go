// Package ocr drives the capture -> preprocess -> recognize -> persist
// pipeline for a single note, surfacing every failure through the note's
// status rather than through errors.
package ocr

import (
	"context"
	"errors"
	"image"
	"log"
	"os"
	"sync"

	"github.com/disintegration/imaging"

	"notescan/internal/models"
	"notescan/internal/preprocess"
	"notescan/internal/storage"
)

// ErrAttemptInFlight is returned when a processing attempt for the same note
// is already active. The second caller is rejected, not queued.
var ErrAttemptInFlight = errors.New("ocr attempt already in flight for this note")

// Recognizer converts an in-memory image into plain text. Implementations
// must be safe for concurrent use.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// NoteStore is the slice of the note store the orchestrator needs.
type NoteStore interface {
	GetNote(ctx context.Context, id int64) (*models.Note, error)
	UpdateStatus(ctx context.Context, id int64, status models.OcrStatus) error
	UpdateText(ctx context.Context, id int64, text string, status models.OcrStatus) error
}

// Orchestrator runs OCR attempts against notes. At most one attempt is in
// flight per note id at any time.
type Orchestrator struct {
	store NoteStore
	rec   Recognizer
	level preprocess.Level

	mu       sync.Mutex
	inflight map[int64]struct{}
}

func NewOrchestrator(store NoteStore, rec Recognizer, level preprocess.Level) *Orchestrator {
	return &Orchestrator{
		store:    store,
		rec:      rec,
		level:    level,
		inflight: make(map[int64]struct{}),
	}
}

// Process runs one full OCR attempt for the note with the given id.
//
// A missing note is a silent no-op; a missing or undecodable image file and a
// recognizer failure all terminate in status=failed. The returned error only
// reports infrastructure problems (store writes, double entry) for the
// caller's log; it never reflects recognition outcome.
func (o *Orchestrator) Process(ctx context.Context, noteID int64) error {
	const op = "ocr.Process"

	if !o.acquire(noteID) {
		return ErrAttemptInFlight
	}
	defer o.release(noteID)

	note, err := o.store.GetNote(ctx, noteID)
	if errors.Is(err, storage.ErrNoteNotFound) {
		return nil // already gone
	}
	if err != nil {
		return err
	}

	// The pending -> processing transition is persisted before any work so
	// the list surface can show the spinner immediately.
	if err := o.store.UpdateStatus(ctx, noteID, models.StatusProcessing); err != nil {
		if errors.Is(err, storage.ErrNoteNotFound) {
			return nil
		}
		return err
	}

	if _, err := os.Stat(note.ImagePath); err != nil {
		log.Printf("%s: note %d image missing: %v", op, noteID, err)
		return o.fail(ctx, noteID)
	}

	img, err := imaging.Open(note.ImagePath)
	if err != nil {
		log.Printf("%s: note %d image decode failed: %v", op, noteID, err)
		return o.fail(ctx, noteID)
	}

	prepared := preprocess.Preprocess(img, o.level)

	text, err := o.rec.Recognize(ctx, prepared)
	if err != nil {
		log.Printf("%s: note %d recognition failed: %v", op, noteID, err)
		return o.fail(ctx, noteID)
	}

	return o.store.UpdateText(ctx, noteID, text, models.StatusCompleted)
}

// Retry re-runs a failed attempt. It is exactly Process: no distinct retry
// state, no backoff.
func (o *Orchestrator) Retry(ctx context.Context, noteID int64) error {
	return o.Process(ctx, noteID)
}

func (o *Orchestrator) fail(ctx context.Context, noteID int64) error {
	err := o.store.UpdateStatus(ctx, noteID, models.StatusFailed)
	if errors.Is(err, storage.ErrNoteNotFound) {
		return nil
	}
	return err
}

func (o *Orchestrator) acquire(noteID int64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, active := o.inflight[noteID]; active {
		return false
	}
	o.inflight[noteID] = struct{}{}
	return true
}

func (o *Orchestrator) release(noteID int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, noteID)
}
