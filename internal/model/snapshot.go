package model

// Snapshot is the full content of a progress store at one point in time.
type Snapshot struct {
	results []Result
	byKey   map[WorkKey]int
}

// NewSnapshot indexes results in append order; later records for the same key
// shadow earlier ones.
func NewSnapshot(results []Result) *Snapshot {
	s := &Snapshot{
		results: results,
		byKey:   make(map[WorkKey]int, len(results)),
	}
	for i, r := range results {
		s.byKey[r.Key] = i
	}
	return s
}

// Results returns every stored record in append order.
func (s *Snapshot) Results() []Result {
	if s == nil {
		return nil
	}
	return s.results
}

// Len returns the number of stored records.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.results)
}

// Keys returns the number of distinct keys.
func (s *Snapshot) Keys() int {
	if s == nil {
		return 0
	}
	return len(s.byKey)
}

// Has reports whether a record exists for key.
func (s *Snapshot) Has(key WorkKey) bool {
	if s == nil {
		return false
	}
	_, ok := s.byKey[key]
	return ok
}

// Get returns the latest record for key.
func (s *Snapshot) Get(key WorkKey) (Result, bool) {
	if s == nil {
		return Result{}, false
	}
	i, ok := s.byKey[key]
	if !ok {
		return Result{}, false
	}
	return s.results[i], true
}
