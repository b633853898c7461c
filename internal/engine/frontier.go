package engine

// Frontier is the FIFO queue of URLs waiting to be fetched. It consults its
// VisitSet so that no URL is enqueued twice and nothing visited comes back.
type Frontier struct {
	queue []string
	head  int
	seen  *VisitSet
}

// NewFrontier creates an empty Frontier backed by seen.
func NewFrontier(seen *VisitSet) *Frontier {
	if seen == nil {
		seen = NewVisitSet(0)
	}
	return &Frontier{
		queue: make([]string, 0, 64),
		seen:  seen,
	}
}

// Push enqueues rawURL unless it has already been queued or visited. It
// reports whether the URL was added.
func (f *Frontier) Push(rawURL string) bool {
	if !f.seen.MarkQueued(rawURL) {
		return false
	}
	f.queue = append(f.queue, rawURL)
	return true
}

// Pop removes the oldest URL and marks it visited. ok is false when the
// queue is empty.
func (f *Frontier) Pop() (rawURL string, ok bool) {
	if f.head >= len(f.queue) {
		return "", false
	}
	rawURL = f.queue[f.head]
	f.queue[f.head] = ""
	f.head++
	if f.head == len(f.queue) {
		f.queue = f.queue[:0]
		f.head = 0
	}
	f.seen.MarkVisited(rawURL)
	return rawURL, true
}

// Len returns the number of URLs still queued.
func (f *Frontier) Len() int {
	return len(f.queue) - f.head
}

// IsEmpty returns true if nothing is queued.
func (f *Frontier) IsEmpty() bool {
	return f.Len() == 0
}

// Seen exposes the backing VisitSet.
func (f *Frontier) Seen() *VisitSet {
	return f.seen
}
