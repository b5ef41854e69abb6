package mqtt

import (
	"sync"

	"go.uber.org/zap"
)

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is a fixed-capacity FIFO that stores messages while disconnected.
// Not safe for concurrent use; the caller must synchronize.
type ringBuffer struct {
	buf      []bufferedMsg
	capacity int
	head     int // next write position
	count    int
	overflow bool // true if any message was dropped since last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{
		buf:      make([]bufferedMsg, capacity),
		capacity: capacity,
	}
}

// push appends msg, overwriting the oldest entry when full. It returns true
// the first time a message is dropped after a drain.
func (r *ringBuffer) push(msg bufferedMsg) bool {
	if r.count == r.capacity {
		first := !r.overflow
		r.overflow = true
		r.buf[r.head] = msg
		r.head = (r.head + 1) % r.capacity
		return first
	}
	r.buf[r.head] = msg
	r.head = (r.head + 1) % r.capacity
	r.count++
	return false
}

func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}

	result := make([]bufferedMsg, r.count)
	// Oldest item is at (head - count) mod capacity
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		result[i] = r.buf[(start+i)%r.capacity]
	}

	r.count = 0
	r.head = 0
	r.overflow = false
	return result
}

func (r *ringBuffer) len() int {
	return r.count
}

// outbox sends messages while connected and buffers them otherwise.
type outbox struct {
	mu   sync.Mutex
	buf  *ringBuffer
	send func(bufferedMsg) error
	log  *zap.Logger
}

func newOutbox(capacity int, send func(bufferedMsg) error, log *zap.Logger) *outbox {
	return &outbox{buf: newRingBuffer(capacity), send: send, log: log}
}

func (o *outbox) queue(msg bufferedMsg) {
	if o.buf.push(msg) {
		o.log.Warn("mqtt buffer full, dropping oldest", zap.Int("capacity", o.buf.capacity))
	}
}

// deliver sends msg when connected. Undeliverable messages are buffered and
// the send error is returned.
func (o *outbox) deliver(msg bufferedMsg, connected bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !connected {
		o.queue(msg)
		return nil
	}
	if err := o.send(msg); err != nil {
		o.queue(msg)
		return err
	}
	return nil
}

// flush replays buffered messages in order and returns how many were sent.
// It stops at the first failure and keeps the rest buffered.
func (o *outbox) flush() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	msgs := o.buf.drainAll()
	for i, msg := range msgs {
		if err := o.send(msg); err != nil {
			o.log.Warn("mqtt replay failed", zap.Error(err), zap.Int("remaining", len(msgs)-i))
			for _, rest := range msgs[i:] {
				o.queue(rest)
			}
			return i
		}
	}
	return len(msgs)
}

func (o *outbox) pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buf.len()
}
