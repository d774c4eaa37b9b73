// Package export formats notes into flat files under a downloads-style
// directory. TXT output matches the in-app preview; PDF output is a minimal
// but structurally valid single-font document.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"notescan/internal/models"
)

// Exports land in a fixed subfolder of the configured export path.
const subfolderName = "NoteScanner"

const (
	fileTimestampLayout = "20060102_150405"
	displayDateLayout   = "02.01.2006 15:04:05"
)

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Writer formats notes into files. The zero value is not usable; construct
// with NewWriter.
type Writer struct {
	dir string
	now func() time.Time
}

func NewWriter(basePath string) *Writer {
	return &Writer{
		dir: filepath.Join(basePath, subfolderName),
		now: time.Now,
	}
}

// Dir returns the directory exports are written to.
func (w *Writer) Dir() string { return w.dir }

// ExportText writes a single note as a flat text file and returns its path.
func (w *Writer) ExportText(note models.Note) (string, error) {
	const op = "export.ExportText"

	name := noteFileName(note, "txt")
	content := strings.Join(noteLines(note), "\n") + "\n"

	path, err := w.writeFile(name, content)
	if err != nil {
		return "", fmt.Errorf("%s: %v", op, err)
	}
	return path, nil
}

// ExportPDF writes a single note as a minimal PDF document.
func (w *Writer) ExportPDF(note models.Note) (string, error) {
	const op = "export.ExportPDF"

	name := noteFileName(note, "pdf")
	path, err := w.writeFileBytes(name, buildPDF(noteLines(note)))
	if err != nil {
		return "", fmt.Errorf("%s: %v", op, err)
	}
	return path, nil
}

// ExportBatchText writes all given notes into one text file, in the order
// given, separated by dashed rules.
func (w *Writer) ExportBatchText(notes []models.Note) (string, error) {
	const op = "export.ExportBatchText"

	name := fmt.Sprintf("batch_export_%s.txt", w.now().Format(fileTimestampLayout))
	content := strings.Join(w.batchLines(notes), "\n") + "\n"

	path, err := w.writeFile(name, content)
	if err != nil {
		return "", fmt.Errorf("%s: %v", op, err)
	}
	return path, nil
}

// ExportBatchPDF writes all given notes into one minimal PDF document.
func (w *Writer) ExportBatchPDF(notes []models.Note) (string, error) {
	const op = "export.ExportBatchPDF"

	name := fmt.Sprintf("batch_export_%s.pdf", w.now().Format(fileTimestampLayout))
	path, err := w.writeFileBytes(name, buildPDF(w.batchLines(notes)))
	if err != nil {
		return "", fmt.Errorf("%s: %v", op, err)
	}
	return path, nil
}

func noteLines(note models.Note) []string {
	lines := []string{
		"Title: " + note.Title,
		"Date: " + time.UnixMilli(note.Timestamp).Format(displayDateLayout),
		"---",
		"",
	}
	return append(lines, strings.Split(note.ParsedText, "\n")...)
}

func (w *Writer) batchLines(notes []models.Note) []string {
	lines := []string{
		"Batch Export - " + w.now().Format(displayDateLayout),
		fmt.Sprintf("Total Notes: %d", len(notes)),
		strings.Repeat("=", 50),
		"",
	}
	for i, note := range notes {
		lines = append(lines,
			fmt.Sprintf("Note %d: %s", i+1, note.Title),
			"Date: "+time.UnixMilli(note.Timestamp).Format(displayDateLayout),
			strings.Repeat("-", 30),
		)
		lines = append(lines, strings.Split(note.ParsedText, "\n")...)
		lines = append(lines, "", "")
	}
	return lines
}

func noteFileName(note models.Note, ext string) string {
	stamp := time.UnixMilli(note.Timestamp).Format(fileTimestampLayout)
	return sanitizeFileName(fmt.Sprintf("%s_%s.%s", note.Title, stamp, ext))
}

// sanitizeFileName replaces every character outside [A-Za-z0-9._-] with '_'.
func sanitizeFileName(name string) string {
	return unsafeFileChars.ReplaceAllString(name, "_")
}

func (w *Writer) writeFile(name, content string) (string, error) {
	return w.writeFileBytes(name, []byte(content))
}

func (w *Writer) writeFileBytes(name string, data []byte) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
