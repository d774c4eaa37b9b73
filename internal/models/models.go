// internal/models/note.go
package models

// OcrStatus is the processing state of a note's OCR attempt.
type OcrStatus string

const (
	StatusPending    OcrStatus = "pending"
	StatusProcessing OcrStatus = "processing"
	StatusCompleted  OcrStatus = "completed"
	StatusFailed     OcrStatus = "failed"
)

// Valid reports whether s is one of the four known statuses.
func (s OcrStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// CanRetry reports whether a manual retry is allowed from this status.
// Only failed notes may be re-entered into processing.
func (s OcrStatus) CanRetry() bool {
	return s == StatusFailed
}

// CanEdit reports whether the text-editing surface is reachable.
func (s OcrStatus) CanEdit() bool {
	return s == StatusCompleted
}

// ParseOcrStatus converts a stored string into an OcrStatus, falling back
// to pending for rows written before the status column existed.
func ParseOcrStatus(raw string) OcrStatus {
	s := OcrStatus(raw)
	if !s.Valid() {
		return StatusPending
	}
	return s
}

// Note is one captured-image-plus-derived-text record.
type Note struct {
	ID         int64     `db:"id" json:"id"`
	ImagePath  string    `db:"image_path" json:"imagePath"`
	Timestamp  int64     `db:"created_at" json:"timestamp"` // epoch millis, set once at creation
	Title      string    `db:"title" json:"title"`
	ParsedText string    `db:"parsed_text" json:"parsedText"`
	OcrStatus  OcrStatus `db:"ocr_status" json:"ocrStatus"`
}

// DefaultTitle is used when the capture surface supplies no title.
const DefaultTitle = "Untitled Note"
