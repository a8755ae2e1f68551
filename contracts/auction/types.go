package auction

import (
	"fmt"
	"time"

	"go.dedis.ch/sealbid/core/access"
	"go.dedis.ch/sealbid/core/seal"
)

// State is the state of an auction.
type State uint8

const (
	// StateActive is the state of an auction accepting bids.
	StateActive State = iota + 1

	// StateEnded is the terminal state of a settled auction.
	StateEnded
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateActive:
		return "Active"
	case StateEnded:
		return "Ended"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Auction is the record of an auction. Only the ledger updates it and it is
// never deleted.
type Auction struct {
	ID          uint64           `cbor:"1,keyasint"`
	Title       string           `cbor:"2,keyasint"`
	Description string           `cbor:"3,keyasint"`
	Category    string           `cbor:"4,keyasint"`
	MinimumBid  uint64           `cbor:"5,keyasint"`
	Creator     access.Principal `cbor:"6,keyasint"`
	CreatedAt   time.Time        `cbor:"7,keyasint"`
	EndsAt      time.Time        `cbor:"8,keyasint"`
	State       State            `cbor:"9,keyasint"`

	// HighestSealedAmount is the sealed maximum of the bids, or a sealed zero
	// when there is no bid.
	HighestSealedAmount seal.Value `cbor:"10,keyasint"`

	// HighestBidder is the sealed position of the leading bid in the bid
	// list, starting at 1. It is nil if and only if there is no bid.
	HighestBidder *seal.Value `cbor:"11,keyasint,omitempty"`

	BidCount uint64 `cbor:"12,keyasint"`

	// Settlement, filled when the auction ends.
	Winner        access.Principal `cbor:"13,keyasint,omitempty"`
	WinningAmount uint64           `cbor:"14,keyasint,omitempty"`
	EndedAt       time.Time        `cbor:"15,keyasint"`
}

// IsOpen returns true if the auction accepts bids at the given time.
func (a Auction) IsOpen(now time.Time) bool {
	return a.State == StateActive && now.Before(a.EndsAt)
}

// Bid is the record of a bid. The amount and the claim are sealed and only
// the bidder and the contract can reveal them.
type Bid struct {
	Bidder            access.Principal `cbor:"1,keyasint"`
	SealedAmount      seal.Value       `cbor:"2,keyasint"`
	SealedIsHighClaim seal.Value       `cbor:"3,keyasint"`
	Comment           string           `cbor:"4,keyasint"`
	SubmittedAt       time.Time        `cbor:"5,keyasint"`

	// Revealed is set on the winning bid when its amount is disclosed at
	// settlement.
	Revealed bool `cbor:"6,keyasint"`

	// SealedPayment is the payment held by the escrow for the bid. It is only
	// opened by the contract at settlement to compute the refunds.
	SealedPayment seal.Value `cbor:"7,keyasint"`
}

// CreateRequest is the request to open an auction.
type CreateRequest struct {
	Title       string
	Description string
	Category    string
	MinimumBid  uint64
}

// BidRequest is the request to bid on an auction.
type BidRequest struct {
	AuctionID   uint64
	ClaimedHigh bool
	Amount      uint64
	Comment     string
	Payment     uint64
}

// Reveal is the plaintext of a bid disclosed to its bidder.
type Reveal struct {
	Amount      uint64
	ClaimedHigh bool
	Payment     uint64
}

// meta is the persisted state of the ledger that does not belong to an
// auction.
type meta struct {
	NextID uint64 `cbor:"1,keyasint"`
}

// creatorIndex is the list of auctions created by a principal, in creation
// order.
type creatorIndex struct {
	IDs []uint64 `cbor:"1,keyasint"`
}
