// Package queue provides the bounded transmit queue keyed by frame
// sequence number.
package queue

import (
	"container/list"
	"errors"
	"sync"
)

var (
	// ErrFull indicates the queue reached its capacity.
	ErrFull = errors.New("queue full")
	// ErrKeyInUse indicates an entry with the same key is still queued.
	ErrKeyInUse = errors.New("key in use")
)

// Queue is a fixed capacity FIFO of frames keyed by sequence number.
// An entry retrieved by Get stays in the queue, checked out, until it is
// removed by key or released for another attempt.
type Queue struct {
	capacity int
	entries  *list.List
	lock     sync.Mutex
}

type entry struct {
	key      uint8
	buf      []byte
	inflight bool
}

// New creates a Queue.
func New(capacity int) *Queue {
	if capacity <= 0 {
		panic("queue capacity must be positive")
	}
	return &Queue{capacity: capacity, entries: list.New()}
}

// Cap returns the capacity.
func (q *Queue) Cap() int {
	return q.capacity
}

// Len returns the number of entries, including checked out ones.
func (q *Queue) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.entries.Len()
}

func (q *Queue) findLocked(key uint8) *list.Element {
	for elm := q.entries.Front(); elm != nil; elm = elm.Next() {
		if elm.Value.(*entry).key == key {
			return elm
		}
	}
	return nil
}

// Put appends buf with key. The queue owns buf afterwards.
func (q *Queue) Put(buf []byte, key uint8) error {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.entries.Len() >= q.capacity {
		return ErrFull
	}
	if q.findLocked(key) != nil {
		return ErrKeyInUse
	}
	q.entries.PushBack(&entry{key: key, buf: buf})
	return nil
}

// Get checks out the oldest entry which is not checked out.
func (q *Queue) Get() ([]byte, uint8, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	for elm := q.entries.Front(); elm != nil; elm = elm.Next() {
		if e := elm.Value.(*entry); !e.inflight {
			e.inflight = true
			return e.buf, e.key, true
		}
	}
	return nil, 0, false
}

// Release returns a checked out entry so the next Get can retrieve it
// again, keeping its original position.
func (q *Queue) Release(key uint8) bool {
	q.lock.Lock()
	defer q.lock.Unlock()
	elm := q.findLocked(key)
	if elm == nil {
		return false
	}
	e := elm.Value.(*entry)
	released := e.inflight
	e.inflight = false
	return released
}

// Remove deletes the entry with key.
func (q *Queue) Remove(key uint8) bool {
	q.lock.Lock()
	defer q.lock.Unlock()
	elm := q.findLocked(key)
	if elm == nil {
		return false
	}
	q.entries.Remove(elm)
	return true
}

// Reset drops all entries.
func (q *Queue) Reset() {
	q.lock.Lock()
	q.entries.Init()
	q.lock.Unlock()
}

// Keys lists keys in queue order.
func (q *Queue) Keys() []uint8 {
	q.lock.Lock()
	defer q.lock.Unlock()
	keys := make([]uint8, 0, q.entries.Len())
	for elm := q.entries.Front(); elm != nil; elm = elm.Next() {
		keys = append(keys, elm.Value.(*entry).key)
	}
	return keys
}
