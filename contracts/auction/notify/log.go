package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Log is a publisher that writes the events to a logger.
//
// - implements notify.Publisher
type Log struct {
	logger zerolog.Logger
}

// NewLog returns a publisher that logs the events at the info level.
func NewLog(logger zerolog.Logger) Log {
	return Log{
		logger: logger.With().Str("component", "notify").Logger(),
	}
}

// Publish implements notify.Publisher.
func (l Log) Publish(ctx context.Context, e Event) error {
	evt := l.logger.Info().
		Str("id", e.ID).
		Str("kind", string(e.Kind)).
		Uint64("auction", e.AuctionID)

	switch e.Kind {
	case KindAuctionCreated:
		evt = evt.Str("title", e.Title).
			Str("category", e.Category).
			Uint64("minimum", e.MinimumBid).
			Str("creator", e.Creator)

		if e.EndsAt != nil {
			evt = evt.Time("ends", *e.EndsAt)
		}
	case KindBidPlaced:
		evt = evt.Str("bidder", e.Bidder)
	case KindAuctionEnded:
		evt = evt.Str("winner", e.Winner).Uint64("amount", e.WinningAmount)
	}

	evt.Msg("event")

	return nil
}
