package session

import (
	"testing"

	"rollcall/internal/model"
)

func TestClearRunsHooksOnce(t *testing.T) {
	s := New("tok")
	s.SetUser(model.User{ID: 1, Role: model.RoleStudent})

	calls := 0
	s.OnClear(func() { calls++ })
	s.Clear()
	s.Clear()

	if calls != 1 {
		t.Fatalf("expected hook to run once, ran %d", calls)
	}
	if s.Token() != "" {
		t.Fatalf("cleared session must not expose its token")
	}
	if _, ok := s.User(); ok {
		t.Fatalf("cleared session must not expose its user")
	}
}

func TestUserCache(t *testing.T) {
	s := New("tok")
	if _, ok := s.User(); ok {
		t.Fatalf("expected no cached user")
	}
	s.SetUser(model.User{ID: 9, Name: "Ana"})
	u, ok := s.User()
	if !ok || u.ID != 9 {
		t.Fatalf("unexpected user %+v", u)
	}
	if s.Token() != "tok" {
		t.Fatalf("expected token")
	}
}
