package index

// PostingSet is the set of record IDs that contain one term.
type PostingSet map[string]struct{}

// Add inserts a record ID into the set.
func (p PostingSet) Add(recordID string) {
	p[recordID] = struct{}{}
}

// Contains reports whether the record ID is in the set.
func (p PostingSet) Contains(recordID string) bool {
	_, ok := p[recordID]
	return ok
}
