package player

import (
	"sync"
)

// PacketQueue is an unbounded FIFO of packets for one elementary stream. Push and Pop may
// run on different goroutines; neither blocks.
type PacketQueue struct {
	mu      sync.Mutex
	packets []queuedPacket
	head    int
	seq     int64
	closed  bool
}

type queuedPacket struct {
	pkt Packet
	seq int64
}

func NewPacketQueue() *PacketQueue {
	return &PacketQueue{}
}

// Push appends p and takes ownership of it. After Close it returns false and the caller
// keeps ownership.
func (q *PacketQueue) Push(p Packet) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.packets = append(q.packets, queuedPacket{pkt: p, seq: q.seq})
	q.seq++
	return true
}

// Pop removes the oldest packet. ok is false when the queue is empty; callers should try
// again later.
func (q *PacketQueue) Pop() (p Packet, seq int64, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == len(q.packets) {
		return nil, 0, false
	}

	qp := q.packets[q.head]
	q.packets[q.head] = queuedPacket{}
	q.head++

	// compact once the consumed prefix dominates
	if q.head == len(q.packets) {
		q.packets = q.packets[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 > len(q.packets) {
		n := copy(q.packets, q.packets[q.head:])
		clear(q.packets[n:])
		q.packets = q.packets[:n]
		q.head = 0
	}
	return qp.pkt, qp.seq, true
}

func (q *PacketQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.packets) - q.head
}

// Close frees every queued packet unread.
func (q *PacketQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	for i := q.head; i < len(q.packets); i++ {
		q.packets[i].pkt.Free()
	}
	q.packets = nil
	q.head = 0
}
