package dispatch

import "time"

type timeout[K comparable] struct {
	when time.Time
	key  K
	next *timeout[K]
}

// Queue is a list of pending timeouts sorted by deadline. At most one entry
// exists per key; adding an existing key moves it to the new deadline.
// Entries with equal deadlines fire in insertion order.
type Queue[K comparable] struct {
	head *timeout[K]
	free *timeout[K]
	n    int
	fire func(K)
}

func NewQueue[K comparable](fire func(K)) *Queue[K] {
	return &Queue[K]{fire: fire}
}

func (q *Queue[K]) Add(when time.Time, key K) {
	q.Cancel(key)

	t := q.free
	if t != nil {
		q.free = t.next
		t.next = nil
	} else {
		t = &timeout[K]{}
	}
	t.when = when
	t.key = key

	if q.head == nil || q.head.when.After(when) {
		t.next = q.head
		q.head = t
		q.n++
		return
	}

	prev := q.head
	for prev.next != nil && !prev.next.when.After(when) {
		prev = prev.next
	}
	t.next = prev.next
	prev.next = t
	q.n++
}

// Cancel removes the entry for key. Missing keys are ignored.
func (q *Queue[K]) Cancel(key K) bool {
	var prev *timeout[K]
	for t := q.head; t != nil; t = t.next {
		if t.key != key {
			prev = t
			continue
		}
		if prev == nil {
			q.head = t.next
		} else {
			prev.next = t.next
		}
		q.release(t)
		q.n--
		return true
	}
	return false
}

// CancelFunc removes every entry whose key matches.
func (q *Queue[K]) CancelFunc(match func(K) bool) int {
	removed := 0
	var prev *timeout[K]
	for t := q.head; t != nil; {
		next := t.next
		if match(t.key) {
			if prev == nil {
				q.head = next
			} else {
				prev.next = next
			}
			q.release(t)
			q.n--
			removed++
		} else {
			prev = t
		}
		t = next
	}
	return removed
}

func (q *Queue[K]) Pending(key K) (time.Time, bool) {
	for t := q.head; t != nil; t = t.next {
		if t.key == key {
			return t.when, true
		}
	}
	return time.Time{}, false
}

// Next returns the earliest deadline.
func (q *Queue[K]) Next() (time.Time, bool) {
	if q.head == nil {
		return time.Time{}, false
	}
	return q.head.when, true
}

func (q *Queue[K]) Len() int {
	return q.n
}

// Keys returns the pending keys in firing order.
func (q *Queue[K]) Keys() []K {
	keys := make([]K, 0, q.n)
	for t := q.head; t != nil; t = t.next {
		keys = append(keys, t.key)
	}
	return keys
}

// Fire runs every entry due at now. Each entry is unlinked before its
// callback runs, so callbacks may add or cancel timeouts freely.
func (q *Queue[K]) Fire(now time.Time) int {
	fired := 0
	for q.head != nil && !q.head.when.After(now) {
		t := q.head
		q.head = t.next
		q.n--
		key := t.key
		q.release(t)
		q.fire(key)
		fired++
	}
	return fired
}

func (q *Queue[K]) release(t *timeout[K]) {
	var zero K
	t.key = zero
	t.next = q.free
	q.free = t
}
