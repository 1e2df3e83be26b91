package report

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"contractdiff/internal/diff"
)

// The report is a minimal WordprocessingML package: content types, package
// relationships and a single word/document.xml. Added/modified words render
// red, deleted words blue and underlined, as in the legend.

const (
	colorAdded   = "FF0000"
	colorDeleted = "0000FF"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

const documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`

const (
	documentOpen  = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`
	documentClose = `</w:body></w:document>`
)

type runStyle int

const (
	stylePlain runStyle = iota
	styleAdded
	styleDeleted
	styleBold
)

// BuildReport renders the diff segments into a DOCX. A non-empty analysis is
// appended as its own section.
func BuildReport(segments []diff.Segment, analysis string) ([]byte, error) {
	var doc strings.Builder
	doc.WriteString(documentOpen)

	writeLegend(&doc)
	writeBody(&doc, segments)

	if strings.TrimSpace(analysis) != "" {
		writeAnalysis(&doc, analysis)
	}

	doc.WriteString(documentClose)
	return packDocx(doc.String())
}

func writeLegend(doc *strings.Builder) {
	doc.WriteString("<w:p>")
	writeRun(doc, "Red: words added or modified in the signed version", styleAdded)
	doc.WriteString("</w:p><w:p>")
	writeRun(doc, "Blue underlined: words removed from the original", styleDeleted)
	doc.WriteString("</w:p><w:p/>")
}

// writeBody emits the merged text in one paragraph: new words for equal,
// insert and replace segments, old words trailing replace and delete
// segments, mirroring the reference rendering.
func writeBody(doc *strings.Builder, segments []diff.Segment) {
	doc.WriteString("<w:p>")
	for _, seg := range segments {
		switch seg.Op {
		case diff.OpEqual:
			writeWords(doc, seg.New, stylePlain)
		case diff.OpInsert:
			writeWords(doc, seg.New, styleAdded)
		case diff.OpDelete:
			writeWords(doc, seg.Old, styleDeleted)
		case diff.OpReplace:
			writeWords(doc, seg.New, styleAdded)
			writeWords(doc, seg.Old, styleDeleted)
		}
	}
	doc.WriteString("</w:p>")
}

func writeAnalysis(doc *strings.Builder, analysis string) {
	doc.WriteString("<w:p/>")
	doc.WriteString("<w:p>")
	writeRun(doc, "Implications analysis", styleBold)
	doc.WriteString("</w:p>")
	for _, line := range strings.Split(strings.TrimSpace(analysis), "\n") {
		doc.WriteString("<w:p>")
		writeRun(doc, line, stylePlain)
		doc.WriteString("</w:p>")
	}
}

func writeWords(doc *strings.Builder, words []string, style runStyle) {
	for _, w := range words {
		writeRun(doc, w+" ", style)
	}
}

func writeRun(doc *strings.Builder, text string, style runStyle) {
	doc.WriteString("<w:r>")
	switch style {
	case styleAdded:
		fmt.Fprintf(doc, `<w:rPr><w:color w:val="%s"/></w:rPr>`, colorAdded)
	case styleDeleted:
		fmt.Fprintf(doc, `<w:rPr><w:color w:val="%s"/><w:u w:val="single" w:color="%s"/></w:rPr>`, colorDeleted, colorDeleted)
	case styleBold:
		doc.WriteString(`<w:rPr><w:b/></w:rPr>`)
	}
	doc.WriteString(`<w:t xml:space="preserve">`)
	doc.WriteString(escapeXML(text))
	doc.WriteString(`</w:t></w:r>`)
}

func escapeXML(s string) string {
	var b bytes.Buffer
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return s
	}
	return b.String()
}

func packDocx(documentXML string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/_rels/document.xml.rels", documentRelsXML},
		{"word/document.xml", documentXML},
	}
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", part.name, err)
		}
		if _, err := w.Write([]byte(part.body)); err != nil {
			return nil, fmt.Errorf("write %s: %w", part.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close docx: %w", err)
	}
	return buf.Bytes(), nil
}
