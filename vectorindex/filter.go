package vectorindex

// Payload keys.
const (
	KeyDocumentID   = "document_id"
	KeyDocumentName = "document_name"
	KeyChunkID      = "chunk_id"
	KeyText         = "text"
)

// Filter restricts a search, scroll or delete. Every Must condition has to
// hold; when Should is non-empty at least one of its conditions has to hold.
type Filter struct {
	Must   []Condition
	Should []Condition
}

// Condition matches a payload key either by exact value or by numeric range.
type Condition struct {
	Key   string
	Match any
	Range *Range
}

// Range is a half-open numeric interval. Nil bounds are unbounded.
type Range struct {
	GTE *float64
	LT  *float64
}

// ForDocument matches every chunk of one document.
func ForDocument(documentID string) *Filter {
	return &Filter{Must: []Condition{{Key: KeyDocumentID, Match: documentID}}}
}

// ForAnyDocument matches chunks of any listed document. It returns nil for
// an empty list, meaning no restriction.
func ForAnyDocument(documentIDs []string) *Filter {
	if len(documentIDs) == 0 {
		return nil
	}
	f := &Filter{Should: make([]Condition, 0, len(documentIDs))}
	for _, id := range documentIDs {
		f.Should = append(f.Should, Condition{Key: KeyDocumentID, Match: id})
	}
	return f
}

// LeadingChunks matches the first n chunks of a document.
func LeadingChunks(documentID string, n int) *Filter {
	lo, hi := 0.0, float64(n)
	f := ForDocument(documentID)
	f.Must = append(f.Must, Condition{Key: KeyChunkID, Range: &Range{GTE: &lo, LT: &hi}})
	return f
}

// Matches evaluates the filter against a payload. A nil filter matches everything.
func (f *Filter) Matches(p Payload) bool {
	if f == nil {
		return true
	}
	for _, c := range f.Must {
		if !c.matches(p) {
			return false
		}
	}
	if len(f.Should) == 0 {
		return true
	}
	for _, c := range f.Should {
		if c.matches(p) {
			return true
		}
	}
	return false
}

func (c Condition) matches(p Payload) bool {
	var value any
	switch c.Key {
	case KeyDocumentID:
		value = p.DocumentID
	case KeyDocumentName:
		value = p.DocumentName
	case KeyChunkID:
		value = p.ChunkID
	case KeyText:
		value = p.Text
	default:
		return false
	}

	if c.Range != nil {
		n, ok := value.(int)
		if !ok {
			return false
		}
		if c.Range.GTE != nil && float64(n) < *c.Range.GTE {
			return false
		}
		if c.Range.LT != nil && float64(n) >= *c.Range.LT {
			return false
		}
		return true
	}
	return value == c.Match
}
