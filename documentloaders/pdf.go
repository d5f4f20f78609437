package documentloaders

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/Seif-aber/pdf-chat-assistant/schema"
)

const pageMarkerTemplate = "\n--- Page %d ---\n"

var ErrNoTextContent = errors.New("no text extracted from PDF")

// PDFLoader extracts the plain text of a PDF file into a single document,
// with page markers preserved so answers can cite pages.
type PDFLoader struct {
	path   string
	logger *slog.Logger
}

func NewPDFLoader(path string, opts ...Option) *PDFLoader {
	o := applyOptions(opts...)
	return &PDFLoader{
		path:   path,
		logger: o.logger.With("component", "pdf_loader"),
	}
}

// Load reads the file and returns one document containing the text of all
// pages. Pages with no extractable text are skipped.
func (l *PDFLoader) Load(ctx context.Context) (schema.Document, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return schema.Document{}, fmt.Errorf("failed to open PDF file %s: %w", l.path, err)
	}
	defer f.Close()

	fsInfo, err := f.Stat()
	if err != nil {
		return schema.Document{}, fmt.Errorf("failed to get file info for %s: %w", l.path, err)
	}

	pdfReader, err := pdf.NewReader(f, fsInfo.Size())
	if err != nil {
		return schema.Document{}, fmt.Errorf("failed to create PDF reader for %s: %w", l.path, err)
	}

	numPages := pdfReader.NumPage()
	if numPages == 0 {
		return schema.Document{}, ErrNoTextContent
	}

	l.logger.DebugContext(ctx, "PDF text extraction starting", "path", l.path, "pages", numPages)

	var builder strings.Builder
	pagesWithText := 0

	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return schema.Document{}, err
		}

		page := pdfReader.Page(i)
		if page.V.IsNull() {
			l.logger.WarnContext(ctx, "Skipping null page", "page", i, "path", l.path)
			continue
		}

		pageText := strings.TrimSpace(extractPageText(page))
		if pageText == "" {
			l.logger.DebugContext(ctx, "No text extracted from page", "page", i, "path", l.path)
			continue
		}

		builder.WriteString(fmt.Sprintf(pageMarkerTemplate, i))
		builder.WriteString(pageText)
		pagesWithText++
	}

	if pagesWithText == 0 {
		return schema.Document{}, ErrNoTextContent
	}

	text := builder.String()

	metadata := map[string]any{
		"source":          filepath.Base(l.path),
		"page_count":      numPages,
		"pages_with_text": pagesWithText,
		"file_size_bytes": fsInfo.Size(),
		"mod_time":        fsInfo.ModTime().Format(time.RFC3339),
	}
	if title := extractHeuristicTitle(text); title != "" {
		metadata["title_heuristic"] = title
	}

	l.logger.InfoContext(ctx, "PDF text extraction finished",
		"path", l.path,
		"pages_with_text", pagesWithText,
		"chars", len(text))

	return schema.NewDocument(text, metadata), nil
}

// extractPageText gets the text of a single page, falling back to raw
// content tokens when GetPlainText yields nothing.
func extractPageText(page pdf.Page) string {
	if pageContent, err := page.GetPlainText(nil); err == nil && strings.TrimSpace(pageContent) != "" {
		return pageContent
	}

	var textBuilder bytes.Buffer
	content := page.Content()

	for i, token := range content.Text {
		textBuilder.WriteString(token.S)
		if i < len(content.Text)-1 && !strings.HasSuffix(token.S, " ") && !strings.HasSuffix(token.S, "\n") {
			textBuilder.WriteString(" ")
		}
	}
	return textBuilder.String()
}

// extractHeuristicTitle guesses the document title from the first lines.
func extractHeuristicTitle(text string) string {
	lines := strings.SplitN(text, "\n", 8)
	for i, line := range lines {
		trimmedLine := strings.TrimSpace(line)
		if strings.HasPrefix(trimmedLine, "--- Page") || trimmedLine == "" {
			continue
		}
		if len(trimmedLine) > 10 && len(trimmedLine) < 150 {
			if i < 4 || isMostlyTitleCase(trimmedLine) {
				return trimmedLine
			}
		}
	}
	return ""
}

func isMostlyTitleCase(s string) bool {
	words := strings.Fields(s)
	if len(words) == 0 {
		return false
	}
	titleCaseWords := 0
	for _, word := range words {
		first, _ := utf8.DecodeRuneInString(word)
		if unicode.IsUpper(first) {
			titleCaseWords++
		}
	}
	return float64(titleCaseWords)/float64(len(words)) >= 0.6
}
