package service

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/lshigami/Tamarin/internal/apperr"
	"github.com/rs/zerolog/log"
)

// DocumentInfo carries the metadata recovered alongside extracted text.
// PageCount and the PDF word count are estimates; Title and Author are empty
// when the document does not declare them.
type DocumentInfo struct {
	PageCount int
	WordCount int
	Title     string
	Author    string
}

// TextExtractor converts an uploaded file's bytes into plain text.
type TextExtractor interface {
	Extract(data []byte, fileType string) (string, *DocumentInfo, error)
	Supported(fileType string) bool
}

type textExtractor struct{}

func NewTextExtractor() TextExtractor {
	return &textExtractor{}
}

func (e *textExtractor) Supported(fileType string) bool {
	switch normalizeFileType(fileType) {
	case "pdf", "txt", "md", "docx":
		return true
	}
	return false
}

func (e *textExtractor) Extract(data []byte, fileType string) (string, *DocumentInfo, error) {
	switch normalizeFileType(fileType) {
	case "pdf":
		return extractPDF(data)
	case "txt", "md":
		text := strings.ToValidUTF8(string(data), "")
		info := &DocumentInfo{PageCount: 1, WordCount: len(strings.Fields(text))}
		return text, info, nil
	case "docx":
		return extractDOCX(data)
	default:
		return "", nil, fmt.Errorf("file type %q: %w", fileType, apperr.ErrUnsupportedFormat)
	}
}

func normalizeFileType(fileType string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(fileType), "."))
}

// extractPDF walks the document page by page. A page whose content cannot be
// decoded contributes an empty string rather than failing the whole document,
// so one corrupt page does not lose the rest.
func extractPDF(data []byte) (string, *DocumentInfo, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, fmt.Errorf("open pdf: %v: %w", err, apperr.ErrExtractionFailed)
	}

	totalPages := reader.NumPage()
	pages := make([]string, 0, totalPages)
	for i := 1; i <= totalPages; i++ {
		pages = append(pages, extractPDFPage(reader, i))
	}

	info := &DocumentInfo{PageCount: totalPages}
	if trailer := reader.Trailer(); !trailer.IsNull() {
		docInfo := trailer.Key("Info")
		if docInfo.Kind() == pdf.Dict {
			if v := docInfo.Key("Title"); v.Kind() == pdf.String {
				info.Title = strings.TrimSpace(v.Text())
			}
			if v := docInfo.Key("Author"); v.Kind() == pdf.String {
				info.Author = strings.TrimSpace(v.Text())
			}
		}
	}

	// Word count is estimated from the first non-empty page scaled by the
	// page count. Counting every page is not worth the cost for large files.
	for _, page := range pages {
		if page != "" {
			info.WordCount = len(strings.Fields(page)) * totalPages
			break
		}
	}

	return strings.Join(pages, "\n\n"), info, nil
}

func extractPDFPage(reader *pdf.Reader, pageNum int) (text string) {
	// The pdf library panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Int("page", pageNum).Interface("cause", r).Msg("pdf page extraction panicked")
			text = ""
		}
	}()

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return ""
	}
	content, err := page.GetPlainText(nil)
	if err != nil {
		log.Warn().Int("page", pageNum).Err(err).Msg("pdf page extraction failed")
		return ""
	}
	return strings.TrimSpace(content)
}

// extractDOCX reads word/document.xml from the docx archive and collects the
// text runs, inserting a newline at each paragraph end.
func extractDOCX(data []byte) (string, *DocumentInfo, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, fmt.Errorf("open docx archive: %v: %w", err, apperr.ErrExtractionFailed)
	}

	var documentXML []byte
	for _, file := range archive.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", nil, fmt.Errorf("open docx document part: %v: %w", err, apperr.ErrExtractionFailed)
		}
		documentXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", nil, fmt.Errorf("read docx document part: %v: %w", err, apperr.ErrExtractionFailed)
		}
		break
	}
	if documentXML == nil {
		return "", nil, fmt.Errorf("docx has no document part: %w", apperr.ErrExtractionFailed)
	}

	var b strings.Builder
	decoder := xml.NewDecoder(bytes.NewReader(documentXML))
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("parse docx xml: %v: %w", err, apperr.ErrExtractionFailed)
		}
		switch el := token.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				var run string
				if err := decoder.DecodeElement(&run, &el); err != nil {
					return "", nil, fmt.Errorf("parse docx text run: %v: %w", err, apperr.ErrExtractionFailed)
				}
				b.WriteString(run)
			}
		case xml.EndElement:
			if el.Name.Local == "p" {
				b.WriteString("\n")
			}
		}
	}

	text := strings.TrimSpace(b.String())
	info := &DocumentInfo{PageCount: 1, WordCount: len(strings.Fields(text))}
	return text, info, nil
}
