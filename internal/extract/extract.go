// Package extract pulls plain text out of uploaded documents. Everything is
// done in memory; uploads never touch the disk.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/fumiama/go-docx"
	pdflib "github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"

	"github.com/valpere/simplylegal/internal/markdown"
)

// DefaultMaxBytes is the upload size limit when none is configured.
const DefaultMaxBytes = 10 << 20

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrEmptyFile       = errors.New("uploaded file is empty")
	ErrTooLarge        = errors.New("file too large")
	ErrUnreadable      = errors.New("could not extract text from file")
	ErrNoText          = errors.New("no text could be extracted from the file")
)

// Extensions lists the accepted file extensions.
var Extensions = []string{".txt", ".md", ".pdf", ".docx"}

// Document is the text recovered from one upload.
type Document struct {
	Text      string `json:"text"`
	Filename  string `json:"filename"`
	FileType  string `json:"file_type"`
	CharCount int    `json:"char_count"`
}

// FileType returns the lower-cased extension of filename if it is accepted.
func FileType(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range Extensions {
		if ext == allowed {
			return ext, nil
		}
	}
	return "", fmt.Errorf("%w '%s'. Allowed: %s", ErrUnsupportedType, ext, strings.Join(Extensions, ", "))
}

// Extract reads content according to the extension of filename. maxBytes ≤ 0
// means DefaultMaxBytes.
func Extract(filename string, content []byte, maxBytes int64) (*Document, error) {
	ext, err := FileType(filename)
	if err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, ErrEmptyFile
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if int64(len(content)) > maxBytes {
		return nil, fmt.Errorf("%w (%d KB). Maximum is %d KB", ErrTooLarge, len(content)/1024, maxBytes/1024)
	}

	var text string
	switch ext {
	case ".txt":
		text = strings.ToValidUTF8(string(content), "�")
	case ".md":
		text = markdown.ToPlainText([]byte(strings.ToValidUTF8(string(content), "�")))
	case ".pdf":
		text, err = extractPDF(content)
	case ".docx":
		text, err = extractDOCX(content)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	text = strings.TrimSpace(norm.NFC.String(strings.ReplaceAll(text, "\r\n", "\n")))
	if text == "" {
		return nil, ErrNoText
	}

	return &Document{
		Text:      text,
		Filename:  filename,
		FileType:  ext,
		CharCount: utf8.RuneCountInString(text),
	}, nil
}

// extractPDF joins page texts with blank lines. The PDF library panics on
// some malformed files, so panics are turned into errors.
func extractPDF(content []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if pageText = strings.TrimSpace(pageText); pageText != "" {
			pages = append(pages, pageText)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

// extractDOCX returns the non-empty paragraphs of the document body, one per
// block.
func extractDOCX(content []byte) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var paras []string
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		if text := paragraphText(para); text != "" {
			paras = append(paras, text)
		}
	}
	return strings.Join(paras, "\n\n"), nil
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		switch c := child.(type) {
		case *docx.Run:
			buf.WriteString(runText(c))
		case *docx.Hyperlink:
			// link text is either a text run or, as go-docx writes it, instrText
			if text := runText(&c.Run); text != "" {
				buf.WriteString(text)
			} else {
				buf.WriteString(c.Run.InstrText)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

func runText(run *docx.Run) string {
	var buf strings.Builder
	for _, rc := range run.Children {
		switch x := rc.(type) {
		case *docx.Text:
			buf.WriteString(x.Text)
		case *docx.Tab:
			buf.WriteByte('\t')
		}
	}
	return buf.String()
}
