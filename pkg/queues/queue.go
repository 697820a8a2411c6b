package queues

// Queue is a FIFO. It is not safe for concurrent use.
type Queue[T any] struct {
	items []T
	limit int
}

// NewQueue returns a queue holding at most limit items; pushing onto a full
// queue drops the oldest one. A limit <= 0 means unbounded.
func NewQueue[T any](limit int) *Queue[T] {
	return &Queue[T]{limit: limit}
}

// Push reports whether an item had to be dropped to make room.
func (q *Queue[T]) Push(x T) bool {
	dropped := false
	if q.limit > 0 && len(q.items) >= q.limit {
		q.items = q.items[1:]
		dropped = true
	}
	q.items = append(q.items, x)
	return dropped
}

func (q *Queue[T]) Peek() T {
	return q.items[0]
}

func (q *Queue[T]) Pop() T {
	x := q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	return x
}

func (q *Queue[T]) Len() int {
	return len(q.items)
}

func (q *Queue[T]) IsEmpty() bool {
	return len(q.items) == 0
}
