// Package index builds the in-memory inverted index over a media catalog.
// A Builder accumulates records and produces an immutable Snapshot; a
// Snapshot is never modified after Build returns, so it can be shared by
// any number of concurrent readers.
package index

import (
	"slices"

	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/indexer/tokenizer"
)

// RecordTerms holds the per-field terms of one record, kept alongside the
// postings so that scoring never re-tokenises catalog text.
type RecordTerms struct {
	Title       TermSet
	Description TermSet
	// Tags holds the distinct normalised tags, paired index-for-index with
	// TagLabels which keeps the first spelling seen in the record.
	Tags      []string
	TagLabels []string
}

// TermSet is a set of terms from one field.
type TermSet map[string]struct{}

// Has reports whether term is in the set.
func (t TermSet) Has(term string) bool {
	_, ok := t[term]
	return ok
}

func newTermSet(terms []string) TermSet {
	set := make(TermSet, len(terms))
	for _, term := range terms {
		set[term] = struct{}{}
	}
	return set
}

type Builder struct {
	terms    []string
	postings map[string]PostingSet
	records  []catalog.Record
	fields   []RecordTerms
	byID     map[string]int
	size     int64
}

func NewBuilder(capacity int) *Builder {
	return &Builder{
		terms:    make([]string, 0, capacity*4),
		postings: make(map[string]PostingSet, capacity*4),
		records:  make([]catalog.Record, 0, capacity),
		fields:   make([]RecordTerms, 0, capacity),
		byID:     make(map[string]int, capacity),
	}
}

// Add indexes one record. Title and description are tokenised; every tag is
// a single lower-cased term. A record whose ID was already added is ignored.
func (b *Builder) Add(rec catalog.Record) {
	if _, dup := b.byID[rec.ID]; dup {
		return
	}
	rec.Tags = slices.Clone(rec.Tags)
	b.byID[rec.ID] = len(b.records)
	b.records = append(b.records, rec)

	titleTerms := tokenizer.Tokenize(rec.Title)
	descTerms := tokenizer.Tokenize(rec.Description)
	fields := RecordTerms{
		Title:       newTermSet(titleTerms),
		Description: newTermSet(descTerms),
	}
	for _, term := range titleTerms {
		b.addPosting(term, rec.ID)
	}
	for _, term := range descTerms {
		b.addPosting(term, rec.ID)
	}
	for _, tag := range rec.Tags {
		term := tokenizer.NormalizeTag(tag)
		if term == "" {
			continue
		}
		b.addPosting(term, rec.ID)
		if !slices.Contains(fields.Tags, term) {
			fields.Tags = append(fields.Tags, term)
			fields.TagLabels = append(fields.TagLabels, tag)
		}
	}
	b.fields = append(b.fields, fields)
}

func (b *Builder) addPosting(term, recordID string) {
	set, exists := b.postings[term]
	if !exists {
		set = make(PostingSet)
		b.postings[term] = set
		b.terms = append(b.terms, term)
	}
	if !set.Contains(recordID) {
		set.Add(recordID)
		b.size += int64(len(term) + len(recordID) + 16)
	}
}

// Build hands the accumulated state over to a Snapshot. The Builder must not
// be used afterwards.
func (b *Builder) Build() *Snapshot {
	s := &Snapshot{
		terms:    b.terms,
		postings: b.postings,
		records:  b.records,
		fields:   b.fields,
		byID:     b.byID,
		size:     b.size,
	}
	*b = Builder{}
	return s
}

// Build indexes a whole catalog in one pass.
func Build(records []catalog.Record) *Snapshot {
	b := NewBuilder(len(records))
	for _, rec := range records {
		b.Add(rec)
	}
	return b.Build()
}

// Snapshot is an immutable inverted index together with the catalog it was
// built from.
type Snapshot struct {
	terms    []string
	postings map[string]PostingSet
	records  []catalog.Record
	fields   []RecordTerms
	byID     map[string]int
	size     int64
}

// Empty returns a snapshot with no records and no terms.
func Empty() *Snapshot {
	return &Snapshot{
		postings: make(map[string]PostingSet),
		byID:     make(map[string]int),
	}
}

// Terms returns every indexed term in first-insertion order. The returned
// slice is shared and must not be modified.
func (s *Snapshot) Terms() []string {
	return s.terms
}

// Positions returns the catalog positions of the records containing term,
// in catalog order, or nil when the term is unknown.
func (s *Snapshot) Positions(term string) []int {
	set := s.postings[term]
	if len(set) == 0 {
		return nil
	}
	out := make([]int, 0, len(set))
	for id := range set {
		out = append(out, s.byID[id])
	}
	slices.Sort(out)
	return out
}

// Records returns the indexed catalog in its original order. The returned
// slice is shared and must not be modified.
func (s *Snapshot) Records() []catalog.Record {
	return s.records
}

// Fields returns the per-field terms of the i-th record in catalog order.
func (s *Snapshot) Fields(i int) RecordTerms {
	return s.fields[i]
}

func (s *Snapshot) TermCount() int {
	return len(s.terms)
}

func (s *Snapshot) DocCount() int {
	return len(s.records)
}

// Size is a rough estimate of the posting memory in bytes.
func (s *Snapshot) Size() int64 {
	return s.size
}
