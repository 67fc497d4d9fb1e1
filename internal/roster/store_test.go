package roster

import (
	"fmt"
	"math/rand"
	"slices"
	"testing"
)

func sequentialIDs(s *Store) {
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprint(n)
	}
}

func markKeys(s *Store) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.marks))
	for k := range s.marks {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func passengerIDs(s *Store) []string {
	var ids []string
	for _, p := range s.Passengers() {
		ids = append(ids, p.ID)
	}
	return ids
}

func collect(s *Store) []Entry {
	var out []Entry
	for e := range s.WithPresence() {
		out = append(out, e)
	}
	return out
}

func TestAnaBrunoScenario(t *testing.T) {
	s := NewStore()
	sequentialIDs(s)
	s.Add("Ana", "UFSC")
	s.Add("Bruno", "UDESC")

	got := collect(s)
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "2" {
		t.Fatalf("unexpected entries %+v", got)
	}
	for _, e := range got {
		if e.Mark.Presente() != nil {
			t.Fatalf("expected %s unset, got %s", e.Name, e.Mark)
		}
	}

	s.SetPresence("1", true)
	got = collect(s)
	if p := got[0].Mark.Presente(); p == nil || !*p {
		t.Fatalf("expected Ana present, got %s", got[0].Mark)
	}
	if got[1].Mark.Presente() != nil {
		t.Fatalf("expected Bruno unset, got %s", got[1].Mark)
	}

	s.ResetAll()
	for _, e := range collect(s) {
		if e.Mark != Unset {
			t.Fatalf("expected %s unset after reset, got %s", e.Name, e.Mark)
		}
	}
}

func TestAddRemoveReplay(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		s := NewStore()
		sequentialIDs(s)
		var want []string
		for step := 0; step < 40; step++ {
			if len(want) > 0 && rng.Intn(3) == 0 {
				victim := want[rng.Intn(len(want))]
				s.Remove(victim)
				want = slices.DeleteFunc(want, func(id string) bool { return id == victim })
				continue
			}
			p := s.Add(fmt.Sprintf("p%d", step), "x")
			want = append(want, p.ID)
			if rng.Intn(2) == 0 {
				s.SetPresence(p.ID, rng.Intn(2) == 0)
			}
		}
		if got := passengerIDs(s); !slices.Equal(got, want) {
			t.Fatalf("round %d: expected %v, got %v", round, want, got)
		}
		sorted := slices.Clone(want)
		slices.Sort(sorted)
		if got := markKeys(s); !slices.Equal(got, sorted) {
			t.Fatalf("round %d: mark keys %v do not match passengers %v", round, got, sorted)
		}
		tally := s.Tally()
		if tally.Total() != len(want) {
			t.Fatalf("round %d: tally %+v does not cover %d passengers", round, tally, len(want))
		}
	}
}

func TestRemoveUnknownIsNoop(t *testing.T) {
	s := NewStore()
	sequentialIDs(s)
	s.Add("Ana", "UFSC")
	s.Remove("missing")
	if got := passengerIDs(s); !slices.Equal(got, []string{"1"}) {
		t.Fatalf("unexpected passengers %v", got)
	}
}

func TestResetPreservesOrder(t *testing.T) {
	s := NewStore()
	for _, name := range []string{"Carla", "Ana", "Bruno"} {
		p := s.Add(name, "IFSC")
		s.SetPresence(p.ID, name != "Ana")
	}
	before := passengerIDs(s)
	s.ResetAll()
	if after := passengerIDs(s); !slices.Equal(before, after) {
		t.Fatalf("reset changed order: %v -> %v", before, after)
	}
	if tally := s.Tally(); tally != (Tally{Unset: 3}) {
		t.Fatalf("expected all unset, got %+v", tally)
	}
}

func TestDanglingMark(t *testing.T) {
	s := NewStore()
	sequentialIDs(s)
	s.Add("Ana", "UFSC")
	s.SetPresence("ghost", true)

	if got := markKeys(s); !slices.Equal(got, []string{"1", "ghost"}) {
		t.Fatalf("expected dangling mark kept, got %v", got)
	}
	if tally := s.Tally(); tally.Total() != 1 || tally.Unset != 1 {
		t.Fatalf("dangling mark must not be counted, got %+v", tally)
	}
	s.ResetAll()
	if got := markKeys(s); !slices.Equal(got, []string{"1"}) {
		t.Fatalf("expected reset to drop dangling mark, got %v", got)
	}
}

func TestWithPresenceIsRestartable(t *testing.T) {
	s := NewStore()
	a := s.Add("Ana", "UFSC")
	s.Add("Bruno", "UDESC")
	seq := s.WithPresence()

	n := 0
	for range seq {
		n++
		break
	}
	if n != 1 {
		t.Fatalf("expected early stop after one entry, got %d", n)
	}

	s.SetPresence(a.ID, false)
	var marks []Mark
	for e := range seq {
		marks = append(marks, e.Mark)
	}
	if !slices.Equal(marks, []Mark{Absent, Unset}) {
		t.Fatalf("expected second pass to see new mark, got %v", marks)
	}
}
