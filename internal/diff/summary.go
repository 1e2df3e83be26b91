package diff

import (
	"sort"

	"contractdiff/internal/extract"
)

// Counts tallies changed words per bucket.
type Counts struct {
	Added       int `json:"added"`
	Deleted     int `json:"deleted"`
	ReplacedOld int `json:"replaced_old"`
	ReplacedNew int `json:"replaced_new"`
}

// TermCount is one entry of a top-terms list.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// Summary describes a comparison at a glance: how many words changed and
// which normalized terms changed most often. The raw word lists feed the
// implications heuristics and the LLM prompt; they are not part of the JSON
// body.
type Summary struct {
	Counts         Counts      `json:"counts"`
	AddedTop       []TermCount `json:"added_top"`
	DeletedTop     []TermCount `json:"deleted_top"`
	ReplacedOldTop []TermCount `json:"replaced_old_top"`
	ReplacedNewTop []TermCount `json:"replaced_new_top"`

	Added       []string `json:"-"`
	Deleted     []string `json:"-"`
	ReplacedOld []string `json:"-"`
	ReplacedNew []string `json:"-"`
}

// ChangedTerms returns every changed word across all buckets, in bucket order.
func (s *Summary) ChangedTerms() []string {
	terms := make([]string, 0, len(s.Added)+len(s.Deleted)+len(s.ReplacedNew)+len(s.ReplacedOld))
	terms = append(terms, s.Added...)
	terms = append(terms, s.Deleted...)
	terms = append(terms, s.ReplacedNew...)
	terms = append(terms, s.ReplacedOld...)
	return terms
}

// Summarize builds a Summary from diff segments. topN bounds each top-terms
// list.
func Summarize(segments []Segment, topN int) *Summary {
	sum := &Summary{}
	for _, seg := range segments {
		switch seg.Op {
		case OpInsert:
			sum.Added = append(sum.Added, seg.New...)
		case OpDelete:
			sum.Deleted = append(sum.Deleted, seg.Old...)
		case OpReplace:
			sum.ReplacedOld = append(sum.ReplacedOld, seg.Old...)
			sum.ReplacedNew = append(sum.ReplacedNew, seg.New...)
		}
	}

	sum.Counts = Counts{
		Added:       len(sum.Added),
		Deleted:     len(sum.Deleted),
		ReplacedOld: len(sum.ReplacedOld),
		ReplacedNew: len(sum.ReplacedNew),
	}
	sum.AddedTop = topTerms(sum.Added, topN)
	sum.DeletedTop = topTerms(sum.Deleted, topN)
	sum.ReplacedOldTop = topTerms(sum.ReplacedOld, topN)
	sum.ReplacedNewTop = topTerms(sum.ReplacedNew, topN)
	return sum
}

// topTerms counts normalized words and returns the n most frequent, ties
// broken alphabetically so the output is stable.
func topTerms(words []string, n int) []TermCount {
	counts := make(map[string]int)
	for _, w := range words {
		term := extract.Normalize(w)
		if term == "" {
			continue
		}
		counts[term]++
	}

	terms := make([]TermCount, 0, len(counts))
	for term, count := range counts {
		terms = append(terms, TermCount{Term: term, Count: count})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Term < terms[j].Term
	})

	if n > 0 && len(terms) > n {
		terms = terms[:n]
	}
	return terms
}
