package comm

// DefaultQueueCapacity is the capacity of the ready queue.
const DefaultQueueCapacity = 50

// OverflowPolicy decides which packet is lost when the ready queue is full.
type OverflowPolicy int

const (
	// DropNewest keeps queued packets and drops the incoming one.
	DropNewest OverflowPolicy = iota
	// DropOldest evicts the head of the queue for the incoming packet.
	DropOldest
)

// String implements fmt.Stringer.
func (p OverflowPolicy) String() string {
	if p == DropOldest {
		return "drop-oldest"
	}
	return "drop-newest"
}

// Queue is a bounded FIFO of ready packets backed by a ring buffer.
// It's not goroutine-safe.
type Queue struct {
	Policy OverflowPolicy

	items []*Packet
	head  int
	size  int
}

// NewQueue creates a Queue. A non-positive capacity uses DefaultQueueCapacity.
func NewQueue(capacity int, policy OverflowPolicy) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{Policy: policy, items: make([]*Packet, capacity)}
}

// Push appends a packet. When the queue is full, the packet lost
// according to Policy is returned together with ErrQueueOverflow.
func (q *Queue) Push(pkt *Packet) (*Packet, error) {
	if q.size < len(q.items) {
		q.items[(q.head+q.size)%len(q.items)] = pkt
		q.size++
		return nil, nil
	}
	if q.Policy != DropOldest {
		return pkt, ErrQueueOverflow
	}
	dropped := q.items[q.head]
	q.items[q.head] = pkt
	q.head = (q.head + 1) % len(q.items)
	return dropped, ErrQueueOverflow
}

// Pop removes and returns the oldest packet.
func (q *Queue) Pop() (*Packet, bool) {
	if q.size == 0 {
		return nil, false
	}
	pkt := q.items[q.head]
	q.items[q.head] = nil
	q.head = (q.head + 1) % len(q.items)
	q.size--
	return pkt, true
}

// Len returns the number of queued packets.
func (q *Queue) Len() int {
	return q.size
}

// Cap returns the capacity.
func (q *Queue) Cap() int {
	return len(q.items)
}

// Reset drops all queued packets.
func (q *Queue) Reset() {
	for i := range q.items {
		q.items[i] = nil
	}
	q.head, q.size = 0, 0
}
