package capability

import (
	"sync"
	"sync/atomic"
)

// ChangeFunc observes capability changes.
type ChangeFunc func(Change)

// Set holds the current profile of an adapter and swaps it atomically.
// Readers never observe a partially updated profile.
type Set struct {
	current  atomic.Pointer[Profile]
	mu       sync.Mutex
	onChange []observer
	nextID   uint64
}

type observer struct {
	id uint64
	fn ChangeFunc
}

// NewSet creates a Set holding a copy of p.
func NewSet(p Profile) *Set {
	s := &Set{}
	snapshot := p.Clone()
	s.current.Store(&snapshot)
	return s
}

// Profile returns the current snapshot. Treat it as read-only.
func (s *Set) Profile() *Profile {
	return s.current.Load()
}

// OnChange registers an observer called for every changed capability and
// returns a function that removes it. Observers must not call the returned
// function from inside a notification.
func (s *Set) OnChange(fn ChangeFunc) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.onChange = append(s.onChange, observer{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, o := range s.onChange {
				if o.id == id {
					s.onChange = append(s.onChange[:i:i], s.onChange[i+1:]...)
					return
				}
			}
		})
	}
}

// ObserverCount returns the number of registered observers.
func (s *Set) ObserverCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.onChange)
}

// Replace installs a new profile. Observers are notified of each change
// before the new profile becomes visible to Profile.
func (s *Set) Replace(p Profile) []Change {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := p.Clone()
	changes := Diff(s.current.Load(), &next)
	for _, change := range changes {
		for _, o := range s.onChange {
			o.fn(change)
		}
	}
	s.current.Store(&next)
	return changes
}
