package extract

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// ErrNoDocxText signals a DOCX whose body contains no text.
var ErrNoDocxText = errors.New("docx contains no text")

var (
	paragraphEnd = regexp.MustCompile(`</w:p>`)
	xmlTag       = regexp.MustCompile(`<[^>]+>`)
)

var xmlEntities = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

// ExtractDocx pulls the plain text out of an in-memory Word document. The
// WordprocessingML markup is stripped; paragraph boundaries become newlines.
func ExtractDocx(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer doc.Close()

	text := StripDocumentXML(doc.Editable().GetContent())
	if text == "" {
		return "", ErrNoDocxText
	}
	return text, nil
}

// StripDocumentXML converts raw word/document.xml content to plain text.
func StripDocumentXML(content string) string {
	content = paragraphEnd.ReplaceAllString(content, "\n")
	content = xmlTag.ReplaceAllString(content, "")
	content = xmlEntities.Replace(content)

	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
