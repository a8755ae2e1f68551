// Package notify defines the events emitted by the auction ledger and the
// publishers that forward them to the observers.
//
// Events are published once the operation that produced them has been
// committed. A publisher failure never affects the ledger.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.dedis.ch/sealbid/serde/json"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

var format = json.NewContext()

// Kind is the type of an event.
type Kind string

const (
	// KindAuctionCreated is emitted when an auction is opened.
	KindAuctionCreated Kind = "AuctionCreated"

	// KindBidPlaced is emitted when a bid is accepted. It never carries the
	// amount.
	KindBidPlaced Kind = "BidPlaced"

	// KindAuctionEnded is emitted when an auction is settled.
	KindAuctionEnded Kind = "AuctionEnded"
)

// Event is the public description of something that happened on the
// ledger.
type Event struct {
	ID            string     `json:"id"`
	Kind          Kind       `json:"kind"`
	AuctionID     uint64     `json:"auctionId"`
	Timestamp     time.Time  `json:"timestamp"`
	Title         string     `json:"title,omitempty"`
	Category      string     `json:"category,omitempty"`
	MinimumBid    uint64     `json:"minimumBid,omitempty"`
	Creator       string     `json:"creator,omitempty"`
	EndsAt        *time.Time `json:"endsAt,omitempty"`
	Bidder        string     `json:"bidder,omitempty"`
	Winner        string     `json:"winner,omitempty"`
	WinningAmount uint64     `json:"winningAmount,omitempty"`
}

// NewEvent returns an event of the given kind with a unique identifier.
func NewEvent(kind Kind, auctionID uint64, ts time.Time) Event {
	return Event{
		ID:        uuid.New().String(),
		Kind:      kind,
		AuctionID: auctionID,
		Timestamp: ts,
	}
}

// Encode returns the JSON representation of the event.
func (e Event) Encode() ([]byte, error) {
	data, err := format.Marshal(e)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode event: %v", err)
	}

	return data, nil
}

// Decode populates the event from its JSON representation.
func Decode(data []byte) (Event, error) {
	var e Event

	err := format.Unmarshal(data, &e)
	if err != nil {
		return e, xerrors.Errorf("failed to decode event: %v", err)
	}

	return e, nil
}

// Publisher is the interface of the observers of the ledger.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Multi is a publisher that forwards the events to several publishers
// concurrently. It returns the first error but always tries every publisher.
//
// - implements notify.Publisher
type Multi []Publisher

// Publish implements notify.Publisher.
func (m Multi) Publish(ctx context.Context, e Event) error {
	var grp errgroup.Group

	for _, p := range m {
		p := p

		grp.Go(func() error {
			return p.Publish(ctx, e)
		})
	}

	return grp.Wait()
}
