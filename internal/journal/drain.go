package journal

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"rollcall/internal/metrics"
	"rollcall/internal/queue"
)

// Sink is where the worker writes entries.
type Sink interface {
	Insert(ctx context.Context, e Entry) error
}

// Drain writes every journal message to sink until messages closes and
// returns how many entries were stored. Undecodable messages are dropped.
func Drain(ctx context.Context, messages <-chan queue.Message, sink Sink) int {
	stored := 0
	for msg := range messages {
		e, err := Decode(msg)
		if err != nil {
			metrics.JournalEntry(msg.Type, "failed")
			log.Warn().Err(err).Str("type", msg.Type).Msg("dropping journal message")
			continue
		}

		insertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		err = sink.Insert(insertCtx, e)
		cancel()
		if err != nil {
			metrics.JournalEntry(e.Type, "failed")
			log.Error().Err(err).Str("id", e.ID).Str("type", e.Type).Int64("trip_id", e.TripID).Msg("journal insert failed")
			continue
		}

		metrics.JournalEntry(e.Type, "stored")
		log.Debug().Str("id", e.ID).Str("type", e.Type).Int64("trip_id", e.TripID).Msg("journal entry stored")
		stored++
	}
	return stored
}
