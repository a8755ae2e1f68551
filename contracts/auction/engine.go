package auction

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.dedis.ch/sealbid/contracts/auction/notify"
	"go.dedis.ch/sealbid/core/access"
	"go.dedis.ch/sealbid/core/seal"
	"go.dedis.ch/sealbid/core/store"
	"go.dedis.ch/sealbid/core/store/prefixed"
	"go.dedis.ch/sealbid/serde"
	"go.dedis.ch/sealbid/serde/cbor"
	"golang.org/x/xerrors"
)

var metaKey = []byte("meta")

func auctionKey(id uint64) []byte {
	return []byte(fmt.Sprintf("auction/%d", id))
}

func bidKey(id, n uint64) []byte {
	return []byte(fmt.Sprintf("bids/%d/%d", id, n))
}

func hasBidKey(id uint64, p access.Principal) []byte {
	return []byte(fmt.Sprintf("hasbid/%d/%s", id, p))
}

func creatorKey(p access.Principal) []byte {
	return []byte(fmt.Sprintf("creator/%s", p))
}

// Escrow is the payment capability of the ledger. The ledger holds the payment
// of every bid, pays the winning amount to the creator, and refunds what
// remains after the settlement.
type Escrow interface {
	Hold(auction uint64, bidder string, amount uint64) error
	Pay(auction uint64, from, to string, amount uint64) error
	Refund(auction uint64, bidder string, amount uint64) error
}

// transfer is an amount released by the escrow at settlement.
type transfer struct {
	principal access.Principal
	amount    uint64
}

// engine implements the operations of the ledger on a transaction of the
// store. The records of the contract live in their own namespace of the
// snapshot.
type engine struct {
	oracle    seal.Oracle
	self      access.Principal
	config    Config
	escrow    Escrow
	publisher notify.Publisher
	logger    zerolog.Logger
	context   serde.Context
}

func newEngine(oracle seal.Oracle, tmpl template) engine {
	return engine{
		oracle:    oracle,
		self:      access.Principal(tmpl.config.Contract),
		config:    tmpl.config,
		escrow:    tmpl.escrow,
		publisher: tmpl.publisher,
		logger:    tmpl.logger.With().Str("contract", ContractName).Logger(),
		context:   cbor.NewContext(),
	}
}

// create opens a new auction and returns its identifier.
func (e engine) create(tx store.WritableTx, req CreateRequest,
	creator access.Principal, now time.Time) (uint64, error) {

	err := e.checkPrincipal(creator)
	if err != nil {
		return 0, err
	}

	switch {
	case req.Title == "":
		return 0, xerrors.Errorf("title is empty: %w", ErrValidation)
	case req.Description == "":
		return 0, xerrors.Errorf("description is empty: %w", ErrValidation)
	case req.Category == "":
		return 0, xerrors.Errorf("category is empty: %w", ErrValidation)
	case req.MinimumBid == 0:
		return 0, xerrors.Errorf("minimum bid must be positive: %w", ErrValidation)
	}

	snap := prefixed.NewSnapshot(ContractName, tx)

	m, err := e.loadMeta(snap)
	if err != nil {
		return 0, err
	}

	// The contract is implicitly granted the sealed zero.
	zero, err := seal.SealUint64(e.oracle, tx, 0)
	if err != nil {
		return 0, xerrors.Errorf("failed to seal initial amount: %v", err)
	}

	a := Auction{
		ID:                  m.NextID,
		Title:               req.Title,
		Description:         req.Description,
		Category:            req.Category,
		MinimumBid:          req.MinimumBid,
		Creator:             creator,
		CreatedAt:           now,
		EndsAt:              now.Add(e.config.Duration),
		State:               StateActive,
		HighestSealedAmount: zero,
	}

	err = e.write(snap, auctionKey(a.ID), a)
	if err != nil {
		return 0, err
	}

	m.NextID++

	err = e.write(snap, metaKey, m)
	if err != nil {
		return 0, err
	}

	index, err := e.loadCreatorIndex(snap, creator)
	if err != nil {
		return 0, err
	}

	index.IDs = append(index.IDs, a.ID)

	err = e.write(snap, creatorKey(creator), index)
	if err != nil {
		return 0, err
	}

	tx.OnCommit(func() {
		promCreated.Inc()

		evt := notify.NewEvent(notify.KindAuctionCreated, a.ID, now)
		evt.Title = a.Title
		evt.Category = a.Category
		evt.MinimumBid = a.MinimumBid
		evt.Creator = a.Creator.String()
		evt.EndsAt = &a.EndsAt

		e.publish(evt)
	})

	e.logger.Debug().Uint64("id", a.ID).Str("creator", creator.String()).Msg("auction created")

	return a.ID, nil
}

// placeBid appends a bid to the auction. The sealed maximum and the sealed
// position of the leading bid are updated with the same hidden comparison so
// that nobody learns whether the bid leads.
func (e engine) placeBid(tx store.WritableTx, req BidRequest,
	bidder access.Principal, now time.Time) error {

	err := e.checkPrincipal(bidder)
	if err != nil {
		return err
	}

	snap := prefixed.NewSnapshot(ContractName, tx)

	a, err := e.loadAuction(snap, req.AuctionID)
	if err != nil {
		return err
	}

	if a.State != StateActive {
		return xerrors.Errorf("auction %d is %v: %w", a.ID, a.State, ErrInvalidState)
	}

	if !now.Before(a.EndsAt) {
		return xerrors.Errorf("auction %d has expired: %w", a.ID, ErrInvalidState)
	}

	if bidder == a.Creator {
		return xerrors.Errorf("creator cannot bid on auction %d: %w", a.ID, ErrPolicyViolation)
	}

	_, found, err := e.bidIndex(snap, a.ID, bidder)
	if err != nil {
		return err
	}

	if found {
		return xerrors.Errorf("%s has already bid on auction %d: %w", bidder, a.ID, ErrPolicyViolation)
	}

	if req.Amount < a.MinimumBid {
		return xerrors.Errorf("bid is below the minimum of %d: %w", a.MinimumBid, ErrPolicyViolation)
	}

	if req.Payment < req.Amount {
		return xerrors.Errorf("payment does not cover the bid: %w", ErrPolicyViolation)
	}

	if len(req.Comment) > e.config.MaxComment {
		return xerrors.Errorf("comment is longer than %d bytes: %w",
			e.config.MaxComment, ErrValidation)
	}

	amount, err := seal.SealUint64(e.oracle, tx, req.Amount)
	if err != nil {
		return xerrors.Errorf("failed to seal amount: %v", err)
	}

	claim, err := seal.SealBool(e.oracle, tx, req.ClaimedHigh)
	if err != nil {
		return xerrors.Errorf("failed to seal claim: %v", err)
	}

	payment, err := seal.SealUint64(e.oracle, tx, req.Payment)
	if err != nil {
		return xerrors.Errorf("failed to seal payment: %v", err)
	}

	for _, v := range []seal.Value{amount, claim, payment} {
		err = e.oracle.GrantAccess(tx, v, bidder)
		if err != nil {
			return xerrors.Errorf("failed to grant bidder: %v", err)
		}
	}

	position := a.BidCount + 1

	bid := Bid{
		Bidder:            bidder,
		SealedAmount:      amount,
		SealedIsHighClaim: claim,
		Comment:           req.Comment,
		SubmittedAt:       now,
		SealedPayment:     payment,
	}

	err = e.write(snap, bidKey(a.ID, position), bid)
	if err != nil {
		return err
	}

	a.BidCount = position

	value := make([]byte, 8)
	binary.BigEndian.PutUint64(value, position)

	err = snap.Set(hasBidKey(a.ID, bidder), value)
	if err != nil {
		return xerrors.Errorf("failed to store bid index: %v", err)
	}

	isNew, err := e.oracle.GreaterThan(tx, amount, a.HighestSealedAmount)
	if err != nil {
		return xerrors.Errorf("failed to compare: %v", err)
	}

	a.HighestSealedAmount, err = e.oracle.Select(tx, isNew, amount, a.HighestSealedAmount)
	if err != nil {
		return xerrors.Errorf("failed to select amount: %v", err)
	}

	sealedPosition, err := seal.SealUint64(e.oracle, tx, position)
	if err != nil {
		return xerrors.Errorf("failed to seal position: %v", err)
	}

	// The presence of a leader only depends on the public number of bids.
	if a.HighestBidder != nil {
		sealedPosition, err = e.oracle.Select(tx, isNew, sealedPosition, *a.HighestBidder)
		if err != nil {
			return xerrors.Errorf("failed to select leader: %v", err)
		}
	}

	a.HighestBidder = &sealedPosition

	err = e.write(snap, auctionKey(a.ID), a)
	if err != nil {
		return err
	}

	tx.OnCommit(func() {
		promBids.Inc()

		if e.escrow != nil {
			err := e.escrow.Hold(a.ID, bidder.String(), req.Payment)
			if err != nil {
				e.logger.Warn().Err(err).Uint64("auction", a.ID).Msg("escrow hold failed")
			}
		}

		evt := notify.NewEvent(notify.KindBidPlaced, a.ID, now)
		evt.Bidder = bidder.String()

		e.publish(evt)
	})

	e.logger.Debug().Uint64("auction", a.ID).Str("bidder", bidder.String()).Msg("bid placed")

	return nil
}

// end closes the auction and settles it. The winning amount is disclosed to
// the creator and the position of the leading bid is opened by the contract.
func (e engine) end(tx store.WritableTx, id uint64, caller access.Principal, now time.Time) (Auction, error) {
	err := e.checkPrincipal(caller)
	if err != nil {
		return Auction{}, err
	}

	snap := prefixed.NewSnapshot(ContractName, tx)

	a, err := e.loadAuction(snap, id)
	if err != nil {
		return a, err
	}

	if a.State == StateEnded {
		return a, xerrors.Errorf("auction %d has already ended: %w", a.ID, ErrInvalidState)
	}

	if now.Before(a.EndsAt) && caller != a.Creator {
		return a, xerrors.Errorf("only the creator can end auction %d before its deadline: %w",
			a.ID, ErrPolicyViolation)
	}

	a.State = StateEnded
	a.EndedAt = now

	// Holds are settled from the persisted payments, not from the escrow.
	refunds := make([]transfer, 0, a.BidCount)

	for n := uint64(1); n <= a.BidCount; n++ {
		bid, err := e.loadBid(snap, a.ID, n)
		if err != nil {
			return a, err
		}

		payment, err := e.oracle.RevealTo(tx, bid.SealedPayment, e.self)
		if err != nil {
			return a, xerrors.Errorf("failed to reveal payment: %v", err)
		}

		refunds = append(refunds, transfer{principal: bid.Bidder, amount: payment})
	}

	if a.BidCount > 0 {
		err = e.oracle.GrantAccess(tx, a.HighestSealedAmount, a.Creator)
		if err != nil {
			return a, xerrors.Errorf("failed to grant creator: %v", err)
		}

		a.WinningAmount, err = e.oracle.RevealTo(tx, a.HighestSealedAmount, a.Creator)
		if err != nil {
			return a, xerrors.Errorf("failed to reveal amount: %v", err)
		}

		if a.HighestBidder == nil {
			return a, xerrors.Errorf("auction %d has bids but no leader", a.ID)
		}

		position, err := e.oracle.RevealTo(tx, *a.HighestBidder, e.self)
		if err != nil {
			return a, xerrors.Errorf("failed to reveal leader: %v", err)
		}

		if position == 0 || position > a.BidCount {
			return a, xerrors.Errorf("leader %d is out of range", position)
		}

		bid, err := e.loadBid(snap, a.ID, position)
		if err != nil {
			return a, err
		}

		if refunds[position-1].amount < a.WinningAmount {
			return a, xerrors.Errorf("payment of %s does not cover %d", bid.Bidder, a.WinningAmount)
		}

		refunds[position-1].amount -= a.WinningAmount

		bid.Revealed = true

		err = e.write(snap, bidKey(a.ID, position), bid)
		if err != nil {
			return a, err
		}

		a.Winner = bid.Bidder
	}

	err = e.write(snap, auctionKey(a.ID), a)
	if err != nil {
		return a, err
	}

	tx.OnCommit(func() {
		promEnded.Inc()

		e.settle(a, refunds)

		evt := notify.NewEvent(notify.KindAuctionEnded, a.ID, now)
		evt.Winner = a.Winner.String()
		evt.WinningAmount = a.WinningAmount

		e.publish(evt)
	})

	e.logger.Debug().Uint64("auction", a.ID).Str("winner", a.Winner.String()).Msg("auction ended")

	return a, nil
}

// settle pays the creator from the hold of the winner, then refunds what
// remains of every hold of the auction.
func (e engine) settle(a Auction, refunds []transfer) {
	if e.escrow == nil {
		return
	}

	if a.Winner != "" {
		err := e.escrow.Pay(a.ID, a.Winner.String(), a.Creator.String(), a.WinningAmount)
		if err != nil {
			e.logger.Warn().Err(err).Uint64("auction", a.ID).Msg("payment failed")
		}
	}

	for _, r := range refunds {
		err := e.escrow.Refund(a.ID, r.principal.String(), r.amount)
		if err != nil {
			e.logger.Warn().Err(err).Uint64("auction", a.ID).
				Str("bidder", r.principal.String()).Msg("refund failed")
		}
	}
}

func (e engine) publish(evt notify.Event) {
	if e.publisher == nil {
		return
	}

	err := e.publisher.Publish(context.Background(), evt)
	if err != nil {
		e.logger.Warn().Err(err).Str("kind", string(evt.Kind)).Msg("failed to publish")
	}
}

func (e engine) get(r store.Readable, id uint64) (Auction, error) {
	return e.loadAuction(prefixed.NewReadable(ContractName, r), id)
}

func (e engine) listActive(r store.Readable, now time.Time) ([]Auction, error) {
	r = prefixed.NewReadable(ContractName, r)

	m, err := e.loadMeta(r)
	if err != nil {
		return nil, err
	}

	active := []Auction{}

	for id := uint64(1); id < m.NextID; id++ {
		a, err := e.loadAuction(r, id)
		if err != nil {
			return nil, err
		}

		if a.IsOpen(now) {
			active = append(active, a)
		}
	}

	return active, nil
}

func (e engine) auctionsOf(r store.Readable, p access.Principal) ([]uint64, error) {
	index, err := e.loadCreatorIndex(prefixed.NewReadable(ContractName, r), p)
	if err != nil {
		return nil, err
	}

	return index.IDs, nil
}

func (e engine) hasBid(r store.Readable, id uint64, p access.Principal) (bool, error) {
	r = prefixed.NewReadable(ContractName, r)

	_, err := e.loadAuction(r, id)
	if err != nil {
		return false, err
	}

	_, found, err := e.bidIndex(r, id, p)

	return found, err
}

func (e engine) bids(r store.Readable, id uint64) ([]Bid, error) {
	r = prefixed.NewReadable(ContractName, r)

	a, err := e.loadAuction(r, id)
	if err != nil {
		return nil, err
	}

	bids := make([]Bid, 0, a.BidCount)

	for n := uint64(1); n <= a.BidCount; n++ {
		bid, err := e.loadBid(r, id, n)
		if err != nil {
			return nil, err
		}

		bids = append(bids, bid)
	}

	return bids, nil
}

// reveal discloses the bid of the principal to the principal itself.
func (e engine) reveal(r store.Readable, id uint64, p access.Principal) (Reveal, error) {
	pr := prefixed.NewReadable(ContractName, r)

	_, err := e.loadAuction(pr, id)
	if err != nil {
		return Reveal{}, err
	}

	n, found, err := e.bidIndex(pr, id, p)
	if err != nil {
		return Reveal{}, err
	}

	if !found {
		return Reveal{}, xerrors.Errorf("%s has no bid on auction %d: %w", p, id, ErrNotFound)
	}

	bid, err := e.loadBid(pr, id, n)
	if err != nil {
		return Reveal{}, err
	}

	amount, err := e.oracle.RevealTo(r, bid.SealedAmount, p)
	if err != nil {
		return Reveal{}, xerrors.Errorf("failed to reveal amount: %w", err)
	}

	claim, err := seal.RevealBool(e.oracle, r, bid.SealedIsHighClaim, p)
	if err != nil {
		return Reveal{}, xerrors.Errorf("failed to reveal claim: %w", err)
	}

	payment, err := e.oracle.RevealTo(r, bid.SealedPayment, p)
	if err != nil {
		return Reveal{}, xerrors.Errorf("failed to reveal payment: %w", err)
	}

	return Reveal{Amount: amount, ClaimedHigh: claim, Payment: payment}, nil
}

// checkPrincipal refuses the identities that cannot act on the ledger. The
// identity of the contract is reserved as it has access to every value.
func (e engine) checkPrincipal(p access.Principal) error {
	if p == "" {
		return xerrors.Errorf("principal is empty: %w", ErrValidation)
	}

	if p == e.self {
		return xerrors.Errorf("principal '%s' is reserved: %w", p, ErrPolicyViolation)
	}

	return nil
}

func (e engine) loadMeta(r store.Readable) (meta, error) {
	m := meta{NextID: 1}

	_, err := e.read(r, metaKey, &m)
	if err != nil {
		return m, err
	}

	return m, nil
}

func (e engine) loadAuction(r store.Readable, id uint64) (Auction, error) {
	var a Auction

	found, err := e.read(r, auctionKey(id), &a)
	if err != nil {
		return a, err
	}

	if !found {
		return a, xerrors.Errorf("auction %d: %w", id, ErrNotFound)
	}

	return a, nil
}

func (e engine) loadBid(r store.Readable, id, n uint64) (Bid, error) {
	var bid Bid

	found, err := e.read(r, bidKey(id, n), &bid)
	if err != nil {
		return bid, err
	}

	if !found {
		return bid, xerrors.Errorf("bid %d of auction %d is missing", n, id)
	}

	return bid, nil
}

func (e engine) loadCreatorIndex(r store.Readable, p access.Principal) (creatorIndex, error) {
	var index creatorIndex

	_, err := e.read(r, creatorKey(p), &index)
	if err != nil {
		return index, err
	}

	if index.IDs == nil {
		index.IDs = []uint64{}
	}

	return index, nil
}

// bidIndex returns the position of the bid of the principal in the bid list.
func (e engine) bidIndex(r store.Readable, id uint64, p access.Principal) (uint64, bool, error) {
	value, err := r.Get(hasBidKey(id, p))
	if err != nil {
		return 0, false, xerrors.Errorf("failed to read bid index: %v", err)
	}

	if value == nil {
		return 0, false, nil
	}

	if len(value) != 8 {
		return 0, false, xerrors.Errorf("invalid bid index of length %d", len(value))
	}

	return binary.BigEndian.Uint64(value), true, nil
}

func (e engine) read(r store.Readable, key []byte, m interface{}) (bool, error) {
	data, err := r.Get(key)
	if err != nil {
		return false, xerrors.Errorf("failed to read '%s': %v", key, err)
	}

	if data == nil {
		return false, nil
	}

	err = e.context.Unmarshal(data, m)
	if err != nil {
		return false, xerrors.Errorf("failed to deserialize '%s': %v", key, err)
	}

	return true, nil
}

func (e engine) write(w store.Writable, key []byte, m interface{}) error {
	data, err := e.context.Marshal(m)
	if err != nil {
		return xerrors.Errorf("failed to serialize '%s': %v", key, err)
	}

	err = w.Set(key, data)
	if err != nil {
		return xerrors.Errorf("failed to store '%s': %v", key, err)
	}

	return nil
}
