package main

import (
	"context"
	"testing"
	"time"

	"rollcall/internal/journal"
	"rollcall/internal/queue"
)

func TestRecorderFor(t *testing.T) {
	tests := []struct {
		name     string
		backend  string
		draining bool
		wantNil  bool
	}{
		{name: "memory without database", backend: "memory", wantNil: true},
		{name: "memory with drain", backend: "memory", draining: true},
		{name: "redis", backend: "redis"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := recorderFor(tt.backend, queue.NewInMemory(1), tt.draining)
			if (rec == nil) != tt.wantNil {
				t.Fatalf("expected nil recorder %v, got %v", tt.wantNil, rec)
			}
		})
	}
}

func TestUndrainedMemoryQueueNeverStalls(t *testing.T) {
	q := queue.NewInMemory(1)
	rec := recorderFor("memory", q, false)

	start := time.Now()
	for i := 0; i < 5; i++ {
		rec.Record(context.Background(), journal.Entry{Type: journal.TypeJoined, TripID: int64(i)})
	}
	if took := time.Since(start); took > 500*time.Millisecond {
		t.Fatalf("recording took %s with nobody draining the queue", took)
	}
}
