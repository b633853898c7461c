package engine

type visitState uint8

const (
	stateQueued visitState = iota + 1
	stateVisited
)

// VisitSet records every URL the crawl has encountered, either queued or
// already fetched. Keys are the exact resolved URL strings.
type VisitSet struct {
	state  map[string]visitState
	visits int
}

// NewVisitSet creates a VisitSet with the given estimated capacity.
func NewVisitSet(estimatedCapacity int) *VisitSet {
	return &VisitSet{
		state: make(map[string]visitState, estimatedCapacity),
	}
}

// MarkQueued records rawURL as queued. It returns false if the URL was
// already known.
func (v *VisitSet) MarkQueued(rawURL string) bool {
	if _, ok := v.state[rawURL]; ok {
		return false
	}
	v.state[rawURL] = stateQueued
	return true
}

// MarkVisited records rawURL as fetched.
func (v *VisitSet) MarkVisited(rawURL string) {
	if v.state[rawURL] == stateVisited {
		return
	}
	v.state[rawURL] = stateVisited
	v.visits++
}

// Visits returns the number of distinct URLs fetched.
func (v *VisitSet) Visits() int {
	return v.visits
}

// Count returns the number of distinct URLs encountered.
func (v *VisitSet) Count() int {
	return len(v.state)
}
