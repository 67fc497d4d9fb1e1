// Package journal records what happened during a call: joins, confirmations
// and trip closings. Controllers publish entries to a queue; the worker
// drains the queue into Postgres.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"rollcall/internal/metrics"
	"rollcall/internal/queue"
)

const (
	TypeJoined     = "attendance.joined"
	TypeConfirmed  = "attendance.confirmed"
	TypeTripClosed = "trip.closed"
)

const publishTimeout = 2 * time.Second

// Entry is one journal line.
type Entry struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	TripID    int64     `json:"trip_id"`
	StudentID *int64    `json:"student_id,omitempty"`
	ActorID   int64     `json:"actor_id"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Encode wraps the entry in a queue message.
func Encode(e Entry) (queue.Message, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return queue.Message{}, err
	}
	return queue.Message{Type: e.Type, Body: body}, nil
}

// Decode reads an entry back from a queue message.
func Decode(msg queue.Message) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(msg.Body, &e); err != nil {
		return Entry{}, fmt.Errorf("decode %s entry: %w", msg.Type, err)
	}
	if e.ID == "" || e.Type == "" {
		return Entry{}, fmt.Errorf("decode %s entry: missing id or type", msg.Type)
	}
	return e, nil
}

// Recorder publishes entries. A nil Recorder drops everything, so callers
// never need to check whether journaling is configured.
type Recorder struct {
	q   queue.Queue
	now func() time.Time
}

// NewRecorder creates a recorder publishing to q.
func NewRecorder(q queue.Queue) *Recorder {
	return &Recorder{q: q, now: time.Now}
}

// Record fills in ID and timestamp and publishes the entry. Failures are
// logged; they never fail the operation being journaled.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if r == nil || r.q == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = r.now().UTC()
	}
	msg, err := Encode(e)
	if err == nil {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		err = r.q.Publish(pubCtx, msg)
		cancel()
	}
	if err != nil {
		metrics.JournalEntry(e.Type, "failed")
		log.Warn().Err(err).Str("type", e.Type).Int64("trip_id", e.TripID).Msg("journal publish failed")
		return
	}
	metrics.JournalEntry(e.Type, "published")
}
