// Package roster keeps the day's passenger list and presence marks.
package roster

import (
	"iter"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Mark is the presence of a passenger for the tracked day.
type Mark int

const (
	Unset Mark = iota
	Present
	Absent
)

func (m Mark) String() string {
	switch m {
	case Present:
		return "present"
	case Absent:
		return "absent"
	default:
		return "unset"
	}
}

// Presente returns the mark as the tri-state bool the front end expects:
// nil while unset.
func (m Mark) Presente() *bool {
	if m == Unset {
		return nil
	}
	v := m == Present
	return &v
}

// Passenger is a person on the day's list.
type Passenger struct {
	ID          string `json:"id"`
	Name        string `json:"nome"`
	Affiliation string `json:"faculdade"`
}

// Entry pairs a passenger with its current mark.
type Entry struct {
	Passenger
	Mark Mark
}

// Tally counts passengers per mark. The three buckets partition the list.
type Tally struct {
	Present int `json:"presentes"`
	Absent  int `json:"ausentes"`
	Unset   int `json:"pendentes"`
}

// Total is the number of passengers counted.
func (t Tally) Total() int { return t.Present + t.Absent + t.Unset }

// Store holds one day's roster. Each method is a single atomic state change.
type Store struct {
	mu         sync.RWMutex
	passengers []Passenger
	marks      map[string]Mark
	newID      func() string
}

// NewStore returns an empty roster.
func NewStore() *Store {
	return &Store{
		marks: make(map[string]Mark),
		newID: uuid.NewString,
	}
}

// Add appends a passenger with an unset mark and returns it.
func (s *Store) Add(name, affiliation string) Passenger {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := Passenger{ID: s.newID(), Name: name, Affiliation: affiliation}
	s.passengers = append(s.passengers, p)
	s.marks[p.ID] = Unset
	return p
}

// Remove deletes a passenger and its mark. Unknown ids are ignored.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.passengers = slices.DeleteFunc(s.passengers, func(p Passenger) bool { return p.ID == id })
	delete(s.marks, id)
}

// SetPresence marks a passenger present or absent. A mark for an id that is
// not on the list is kept until the next ResetAll.
func (s *Store) SetPresence(id string, present bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if present {
		s.marks[id] = Present
	} else {
		s.marks[id] = Absent
	}
}

// ResetAll sets every passenger back to Unset and drops dangling marks.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	marks := make(map[string]Mark, len(s.passengers))
	for _, p := range s.passengers {
		marks[p.ID] = Unset
	}
	s.marks = marks
}

// Passengers returns a copy of the list in insertion order.
func (s *Store) Passengers() []Passenger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.passengers)
}

// Has reports whether id is on the list.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.ContainsFunc(s.passengers, func(p Passenger) bool { return p.ID == id })
}

// WithPresence yields each passenger with its mark, in insertion order. Every
// iteration reads the state current at the time it starts.
func (s *Store) WithPresence() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, e := range s.snapshot() {
			if !yield(e) {
				return
			}
		}
	}
}

// Tally counts the current marks.
func (s *Store) Tally() Tally {
	return tallyOf(s.snapshot())
}

func tallyOf(entries []Entry) Tally {
	var t Tally
	for _, e := range entries {
		switch e.Mark {
		case Present:
			t.Present++
		case Absent:
			t.Absent++
		default:
			t.Unset++
		}
	}
	return t
}

func (s *Store) snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.passengers))
	for i, p := range s.passengers {
		out[i] = Entry{Passenger: p, Mark: s.marks[p.ID]}
	}
	return out
}
