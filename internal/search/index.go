// Package search ranks short catalog documents against a free-text query.
// The query layer uses it to order error definitions by how well they match
// the detail attached to a failed interface message.
//
// Scoring is Jaccard similarity over case-folded word sets,
// |Q ∩ D| / |Q ∪ D|. An Index is immutable once built and safe for
// concurrent use.
package search

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Document is one indexed unit. ID is opaque to the index.
type Document struct {
	ID   string
	Text string
}

// Result pairs a document ID with its score in [0,1].
type Result struct {
	ID    string
	Score float64
}

// Index ranks its documents against a query.
type Index interface {
	// Rank scores every document, best first. Equal scores, including
	// zero, keep insertion order.
	Rank(query string) []Result
}

// Option configures NewIndex.
type Option func(*index)

// WithStopwords drops the given words from documents and queries.
func WithStopwords(words []string) Option {
	return func(ix *index) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			if w = fold(strings.TrimSpace(w)); w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			ix.stop = m
		}
	}
}

// DefaultStopwords is a short English list tuned for remediation text, where
// verbs like "check" or "ensure" carry no signal.
var DefaultStopwords = []string{
	"a", "an", "and", "the", "of", "to", "in", "is", "it", "if", "on", "for",
	"be", "by", "or", "not", "with", "as", "at", "from", "this", "that",
	"needed", "check", "ensure", "verify",
}

type entry struct {
	id    string
	words map[string]struct{}
}

type index struct {
	stop    map[string]struct{}
	entries []entry
}

// NewIndex builds an Index over docs. Blank documents are skipped.
func NewIndex(docs []Document, opts ...Option) Index {
	ix := &index{}
	for _, o := range opts {
		o(ix)
	}
	ix.entries = make([]entry, 0, len(docs))
	for _, d := range docs {
		if strings.TrimSpace(d.Text) == "" {
			continue
		}
		ix.entries = append(ix.entries, entry{id: d.ID, words: ix.words(d.Text)})
	}
	return ix
}

// Rank implements Index.
func (ix *index) Rank(query string) []Result {
	q := ix.words(query)
	out := make([]Result, len(ix.entries))
	for n, e := range ix.entries {
		out[n] = Result{ID: e.id, Score: jaccard(q, e.words)}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	return out
}

var (
	wordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)
	folder = cases.Fold()
)

func fold(s string) string { return folder.String(s) }

func (ix *index) words(s string) map[string]struct{} {
	found := wordRE.FindAllString(fold(s), -1)
	if len(found) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(found))
	for _, w := range found {
		if _, skip := ix.stop[w]; !skip {
			out[w] = struct{}{}
		}
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	shared := 0
	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}
	if shared == 0 {
		return 0
	}
	return float64(shared) / float64(len(a)+len(b)-shared)
}
