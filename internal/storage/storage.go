// internal/storage/storage.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"notescan/internal/models"
)

// ErrNoteNotFound is returned by point lookups when no row matches the id.
var ErrNoteNotFound = errors.New("note not found")

// SortOrder selects the ordering of ListNotes results.
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
	SortTitle  SortOrder = "title"
)

// Storage is a pgx-backed note store. It is constructed once at startup and
// injected into every consumer; there is no process-wide singleton.
type Storage struct {
	pool *pgxpool.Pool
	db   *sql.DB // For migrations

	mu      sync.Mutex
	subs    map[int]chan int64
	nextSub int
}

func NewStorage(dsn string) (*Storage, error) {
	const op = "storage.NewStorage"

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %v", op, err)
	}

	storage := &Storage{pool: pool, db: db, subs: make(map[int]chan int64)}

	// Check and update schema if needed
	if err := storage.ensureSchemaCompatibility(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %v", op, err)
	}

	return storage, nil
}

func (s *Storage) Close() {
	s.db.Close()
	s.pool.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

// ensureSchemaCompatibility adds the ocr_status column to stores created
// before the field existed, mirroring migration 0002 for databases that were
// provisioned out of band.
func (s *Storage) ensureSchemaCompatibility() error {
	const op = "storage.ensureSchemaCompatibility"

	var count int
	err := s.pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM information_schema.columns
		 WHERE table_name = 'notes' AND column_name = 'ocr_status'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("%s: failed to check schema: %v", op, err)
	}

	if count == 0 {
		_, err = s.pool.Exec(context.Background(),
			`ALTER TABLE notes ADD COLUMN ocr_status TEXT NOT NULL DEFAULT 'pending'`)
		if err != nil {
			return fmt.Errorf("%s: failed to add status column: %v", op, err)
		}
	}

	return nil
}

// SaveNote inserts a new note and fills in its assigned id.
func (s *Storage) SaveNote(ctx context.Context, note *models.Note) error {
	const op = "storage.SaveNote"

	err := s.pool.QueryRow(ctx,
		`INSERT INTO notes (image_path, created_at, title, parsed_text, ocr_status)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		note.ImagePath, note.Timestamp, note.Title, note.ParsedText, string(note.OcrStatus)).
		Scan(&note.ID)
	if err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}
	s.notify(note.ID)
	return nil
}

func (s *Storage) GetNote(ctx context.Context, id int64) (*models.Note, error) {
	const op = "storage.GetNote"

	var note models.Note
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT id, image_path, created_at, title, parsed_text,
		 COALESCE(ocr_status, 'pending') AS ocr_status
		 FROM notes WHERE id = $1`,
		id).Scan(&note.ID, &note.ImagePath, &note.Timestamp, &note.Title, &note.ParsedText, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}
	note.OcrStatus = models.ParseOcrStatus(status)
	return &note, nil
}

// ListNotes returns all notes in the requested order. Unknown orders fall
// back to newest-first, which is what the list surface shows by default.
func (s *Storage) ListNotes(ctx context.Context, order SortOrder) ([]models.Note, error) {
	const op = "storage.ListNotes"

	orderBy := "created_at DESC"
	switch order {
	case SortOldest:
		orderBy = "created_at ASC"
	case SortTitle:
		orderBy = "title ASC, created_at DESC"
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, image_path, created_at, title, parsed_text,
		 COALESCE(ocr_status, 'pending') AS ocr_status
		 FROM notes ORDER BY `+orderBy)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}
	defer rows.Close()

	var notes []models.Note
	for rows.Next() {
		var note models.Note
		var status string
		if err := rows.Scan(&note.ID, &note.ImagePath, &note.Timestamp, &note.Title, &note.ParsedText, &status); err != nil {
			return nil, fmt.Errorf("%s: %v", op, err)
		}
		note.OcrStatus = models.ParseOcrStatus(status)
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}
	return notes, nil
}

// UpdateStatus sets only the OCR status of a note.
func (s *Storage) UpdateStatus(ctx context.Context, id int64, status models.OcrStatus) error {
	const op = "storage.UpdateStatus"

	tag, err := s.pool.Exec(ctx,
		`UPDATE notes SET ocr_status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoteNotFound
	}
	s.notify(id)
	return nil
}

// UpdateText sets the parsed text and status of a note in one write.
func (s *Storage) UpdateText(ctx context.Context, id int64, text string, status models.OcrStatus) error {
	const op = "storage.UpdateText"

	tag, err := s.pool.Exec(ctx,
		`UPDATE notes SET parsed_text = $2, ocr_status = $3 WHERE id = $1`,
		id, text, string(status))
	if err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoteNotFound
	}
	s.notify(id)
	return nil
}

func (s *Storage) DeleteNote(ctx context.Context, id int64) error {
	const op = "storage.DeleteNote"

	_, err := s.pool.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}
	s.notify(id)
	return nil
}

// Subscribe registers a change listener. The returned channel receives the id
// of every mutated note; slow listeners drop notifications rather than block
// writers. The cancel func must be called when the listener goes away.
func (s *Storage) Subscribe() (<-chan int64, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan int64, 16)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if ch, ok := s.subs[id]; ok {
			close(ch)
			delete(s.subs, id)
		}
	}
	return ch, cancel
}

func (s *Storage) notify(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- id:
		default:
		}
	}
}
