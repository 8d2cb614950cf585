package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"

	"polnischlernen/internal/logging"
	"polnischlernen/internal/models"
	"polnischlernen/internal/storage"

	"github.com/ledongthuc/pdf"
)

// Lesegeschwindigkeit für die geschätzte Lektionsdauer
const wordsPerMinute = 150

// Document ist der extrahierte Text einer PDF-Datei
type Document struct {
	Name      string
	Content   string
	PageCount int
}

// Section repräsentiert einen erkannten Abschnitt
type Section struct {
	Title   string
	Content string
}

// ParseFromReader parst PDF aus einem io.Reader (für Uploads)
func ParseFromReader(reader io.Reader, filename string) (*Document, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("fehler beim Lesen der PDF: %w", err)
	}

	var content strings.Builder
	totalPages := r.NumPage()
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		content.WriteString(text)
		content.WriteString("\n")
	}

	return &Document{Name: filename, Content: content.String(), PageCount: totalPages}, nil
}

var headingPrefixes = []string{"Lekcja", "Rozdział", "Lektion", "Kapitel", "Abschnitt", "Teil"}

// ExtractSections versucht, Abschnitte/Kapitel zu identifizieren.
// Text vor der ersten Überschrift wird verworfen.
func ExtractSections(content string) []Section {
	var sections []Section
	var current *Section

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if isHeading(trimmed) {
			if current != nil {
				sections = append(sections, *current)
			}
			current = &Section{Title: trimmed}
		} else if current != nil {
			current.Content += trimmed + "\n"
		}
	}

	if current != nil {
		sections = append(sections, *current)
	}
	return sections
}

func isHeading(line string) bool {
	for _, prefix := range headingPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return isNumberedHeading(line) || isUpperHeading(line)
}

// isUpperHeading erkennt kurze Zeilen in Großbuchstaben, auch mit polnischen Zeichen
func isUpperHeading(line string) bool {
	if len([]rune(line)) <= 3 || len(line) >= 80 {
		return false
	}
	hasLetter := false
	for _, r := range line {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func isNumberedHeading(line string) bool {
	// Muster wie "1. ", "1.1 ", "1.1.1 "
	if len(line) < 2 {
		return false
	}

	dotCount := 0
	for i, r := range line {
		if r >= '0' && r <= '9' {
			continue
		}
		if r == '.' {
			dotCount++
			continue
		}
		if r == ' ' && dotCount > 0 && i < len(line)/2 {
			return true
		}
		break
	}
	return false
}

// LessonsFromSections baut aus den Abschnitten Lektionen, fortlaufend ab startOrder nummeriert
func LessonsFromSections(moduleID string, sections []Section, startOrder int) []models.Lesson {
	lessons := make([]models.Lesson, 0, len(sections))
	for i, s := range sections {
		content := strings.TrimSpace(s.Content)
		lessons = append(lessons, models.Lesson{
			ModuleID: moduleID,
			Title:    limitTitle(s.Title),
			Content:  content,
			Duration: readingMinutes(content),
			Order:    startOrder + i,
		})
	}
	return lessons
}

func limitTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= 200 {
		return title
	}
	return string(runes[:200])
}

func readingMinutes(content string) int {
	words := len(strings.Fields(content))
	if words == 0 {
		return 0
	}
	return (words + wordsPerMinute - 1) / wordsPerMinute
}

// Importer legt Lektionen aus hochgeladenen PDF-Dateien an
type Importer struct {
	store  storage.Storage
	logger logging.Logger
	parse  func(io.Reader, string) (*Document, error)
}

func NewImporter(store storage.Storage, logger logging.Logger) *Importer {
	return &Importer{store: store, logger: logger, parse: ParseFromReader}
}

// Import hängt die Abschnitte der PDF als Lektionen an das Modul an.
// Ohne erkennbare Überschriften wird das ganze Dokument eine Lektion.
func (i *Importer) Import(ctx context.Context, moduleID string, reader io.Reader, filename string) ([]models.Lesson, error) {
	module, err := i.store.GetModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}

	doc, err := i.parse(reader, filename)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(doc.Content) == "" {
		return nil, fmt.Errorf("pdf %q enthält keinen Text", filename)
	}

	sections := ExtractSections(doc.Content)
	if len(sections) == 0 {
		title := strings.TrimSuffix(filename, ".pdf")
		sections = []Section{{Title: title, Content: doc.Content}}
	}

	startOrder := 1
	for _, l := range module.Lessons {
		if l.Order >= startOrder {
			startOrder = l.Order + 1
		}
	}

	lessons := LessonsFromSections(module.ID, sections, startOrder)
	for idx := range lessons {
		if err := i.store.SaveLesson(ctx, &lessons[idx]); err != nil {
			return nil, fmt.Errorf("lektion %q speichern: %w", lessons[idx].Title, err)
		}
	}

	i.logger.Info("📄 PDF importiert",
		"file", filename,
		"pages", doc.PageCount,
		"module_id", module.ID,
		"lessons", len(lessons),
	)
	return lessons, nil
}
