package graph

import (
	"fmt"
	"sync"

	"github.com/desertthunder/tunemap/internal/shared"
)

// Store holds the snapshot currently on display.
type Store struct {
	mu      sync.RWMutex
	current *Snapshot
	version uint64
	subs    map[int]chan *Snapshot
	nextSub int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{subs: make(map[int]chan *Snapshot)}
}

// Current returns a copy of the current snapshot and its version, or nil before the first Replace.
func (s *Store) Current() (*Snapshot, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone(), s.version
}

// Replace validates snap and swaps it in. An invalid snapshot leaves the store untouched.
func (s *Store) Replace(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: nil snapshot", shared.ErrInvalidInput)
	}
	if err := snap.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = snap.Clone()
	s.version++
	subs := make([]chan *Snapshot, 0, len(s.subs))
	for _, ch := range s.subs {
		subs = append(subs, ch)
	}
	s.mu.Unlock()

	for _, ch := range subs {
		notify(ch, snap.Clone())
	}
	return nil
}

// notify delivers the latest snapshot, dropping an undelivered older one.
func notify(ch chan *Snapshot, snap *Snapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Subscribe returns a channel that receives each replaced snapshot and a func that unsubscribes.
//
// A slow subscriber only sees the most recent snapshot.
func (s *Store) Subscribe() (<-chan *Snapshot, func()) {
	ch := make(chan *Snapshot, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}
