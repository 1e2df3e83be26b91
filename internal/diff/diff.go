package diff

import (
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"contractdiff/internal/extract"
)

// Op classifies a diff segment.
type Op int

const (
	OpEqual Op = iota
	OpInsert
	OpDelete
	OpReplace
)

func (o Op) String() string {
	switch o {
	case OpEqual:
		return "equal"
	case OpInsert:
		return "insert"
	case OpDelete:
		return "delete"
	case OpReplace:
		return "replace"
	}
	return "unknown"
}

// Segment is a run of consecutive words sharing one Op. Old holds original
// words from the reference document, New holds original words from the signed
// document. Matching happens on normalized words; the original spelling is
// preserved here for the report.
type Segment struct {
	Op  Op
	Old []string
	New []string
}

// Result bundles the segments with their summary.
type Result struct {
	Segments []Segment
	Summary  *Summary
}

// Compare diffs two documents word by word. oldText is the original (DOCX)
// text, newText the signed (PDF) text. topN bounds the per-bucket top-term
// lists in the summary.
func Compare(oldText, newText string, topN int) *Result {
	oldWords := extract.Words(oldText)
	newWords := extract.Words(newText)
	segments := diffWords(oldWords, newWords)
	return &Result{
		Segments: segments,
		Summary:  Summarize(segments, topN),
	}
}

// encodeWords maps each normalized word onto one line so the diff engine's
// line mode yields word-level operations.
func encodeWords(words []string) string {
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	for _, w := range words {
		b.WriteString(extract.Normalize(w))
		b.WriteByte('\n')
	}
	return b.String()
}

func diffWords(oldWords, newWords []string) []Segment {
	dmp := diffmatchpatch.New()
	oldEnc, newEnc, _ := dmp.DiffLinesToChars(encodeWords(oldWords), encodeWords(newWords))
	diffs := dmp.DiffMain(oldEnc, newEnc, false)

	var segments []Segment
	oldIdx, newIdx := 0, 0

	take := func(words []string, idx, n int) ([]string, int) {
		end := idx + n
		if end > len(words) {
			end = len(words)
		}
		return words[idx:end], end
	}

	for i := 0; i < len(diffs); i++ {
		d := diffs[i]
		n := utf8.RuneCountInString(d.Text)
		if n == 0 {
			continue
		}

		switch d.Type {
		case diffmatchpatch.DiffEqual:
			var removed, added []string
			removed, oldIdx = take(oldWords, oldIdx, n)
			added, newIdx = take(newWords, newIdx, n)
			segments = append(segments, Segment{Op: OpEqual, Old: removed, New: added})

		case diffmatchpatch.DiffDelete:
			// A deletion directly followed by an insertion is a replacement,
			// matching difflib's "replace" opcode.
			if i+1 < len(diffs) && diffs[i+1].Type == diffmatchpatch.DiffInsert {
				ins := utf8.RuneCountInString(diffs[i+1].Text)
				var removed, added []string
				removed, oldIdx = take(oldWords, oldIdx, n)
				added, newIdx = take(newWords, newIdx, ins)
				segments = append(segments, Segment{Op: OpReplace, Old: removed, New: added})
				i++
				continue
			}
			var removed []string
			removed, oldIdx = take(oldWords, oldIdx, n)
			segments = append(segments, Segment{Op: OpDelete, Old: removed})

		case diffmatchpatch.DiffInsert:
			var added []string
			added, newIdx = take(newWords, newIdx, n)
			segments = append(segments, Segment{Op: OpInsert, New: added})
		}
	}

	return segments
}
