// ABOUTME: Replayable per-stream packet log with a movable read cursor
// ABOUTME: Appends keep arrival order; consumers advance or seek the cursor
package queue

// Timestamped is anything that carries a presentation timestamp
type Timestamped interface {
	PTS() int64
}

// Queue is an append-only sequence of entries with a cursor. Entries are
// never removed; progress is tracked by moving the cursor. The cursor is
// unset (-1) only while the queue is empty.
//
// Queue is not safe for concurrent use; callers serialize access.
type Queue[T Timestamped] struct {
	items []T
	pos   int
}

// New creates an empty queue
func New[T Timestamped]() *Queue[T] {
	return &Queue[T]{pos: -1}
}

// PushBack appends an entry. The first entry sets the cursor to 0; later
// appends leave the cursor where it is.
func (q *Queue[T]) PushBack(item T) {
	q.items = append(q.items, item)
	if q.pos < 0 {
		q.pos = 0
	}
}

// CanMove reports whether the cursor can move by n and stay in bounds
func (q *Queue[T]) CanMove(n int) bool {
	if len(q.items) == 0 {
		return false
	}
	target := q.pos + n
	return target >= 0 && target < len(q.items)
}

// TryMove moves the cursor by n if the result stays in bounds
func (q *Queue[T]) TryMove(n int) bool {
	if !q.CanMove(n) {
		return false
	}
	q.pos += n
	return true
}

// Get returns the entry at the cursor
func (q *Queue[T]) Get() (T, bool) {
	var zero T
	if q.pos < 0 || q.pos >= len(q.items) {
		return zero, false
	}
	return q.items[q.pos], true
}

// At returns the entry at index i
func (q *Queue[T]) At(i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(q.items) {
		return zero, false
	}
	return q.items[i], true
}

// SeekToTimestamp moves the cursor to the first entry whose timestamp is
// at or after pts. If every entry is earlier the cursor moves to the last
// entry and false is returned.
func (q *Queue[T]) SeekToTimestamp(pts int64) bool {
	if len(q.items) == 0 {
		return false
	}

	for i, item := range q.items {
		if isNil(item) {
			continue
		}
		if item.PTS() >= pts {
			q.pos = i
			return true
		}
	}

	q.pos = len(q.items) - 1
	return false
}

// SetPos moves the cursor to an absolute index if it is in bounds
func (q *Queue[T]) SetPos(i int) bool {
	if i < 0 || i >= len(q.items) {
		return false
	}
	q.pos = i
	return true
}

// Len returns the number of entries
func (q *Queue[T]) Len() int {
	return len(q.items)
}

// Pos returns the cursor index, or -1 when the queue is empty
func (q *Queue[T]) Pos() int {
	return q.pos
}

// Pending returns the number of entries after the cursor
func (q *Queue[T]) Pending() int {
	if q.pos < 0 {
		return 0
	}
	return len(q.items) - q.pos - 1
}

// Each calls fn for every entry in order
func (q *Queue[T]) Each(fn func(i int, item T)) {
	for i, item := range q.items {
		fn(i, item)
	}
}

// Reset drops every entry and unsets the cursor
func (q *Queue[T]) Reset() {
	var zero T
	for i := range q.items {
		q.items[i] = zero
	}
	q.items = q.items[:0]
	q.pos = -1
}

// isNil reports an empty slot (a nil interface entry)
func isNil[T Timestamped](item T) bool {
	var v any = item
	return v == nil
}
