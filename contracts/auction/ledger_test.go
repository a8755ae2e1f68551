package auction

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/sealbid/contracts/auction/escrow"
	"go.dedis.ch/sealbid/contracts/auction/notify"
	"go.dedis.ch/sealbid/core/access"
	"go.dedis.ch/sealbid/core/access/acl"
	"go.dedis.ch/sealbid/core/seal"
	"go.dedis.ch/sealbid/core/seal/clear"
	"go.dedis.ch/sealbid/core/seal/elgamal"
	"go.dedis.ch/sealbid/core/store"
	"go.dedis.ch/sealbid/core/store/kv"
	"go.dedis.ch/sealbid/core/store/mem"
	"go.dedis.ch/sealbid/internal/testing/fake"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const (
	alice = access.Principal("alice")
	bob   = access.Principal("bob")
	carol = access.Principal("carol")
	dave  = access.Principal("dave")
)

func TestLedger_CreateAuction(t *testing.T) {
	l := makeLedger(t)

	id := l.create(t, alice, 100)
	require.Equal(t, uint64(1), id)

	id = l.create(t, bob, 5)
	require.Equal(t, uint64(2), id)

	id = l.create(t, alice, 7)
	require.Equal(t, uint64(3), id)

	a, err := l.GetAuction(1)
	require.NoError(t, err)
	require.Equal(t, "Painting", a.Title)
	require.Equal(t, "Oil on canvas", a.Description)
	require.Equal(t, "art", a.Category)
	require.Equal(t, uint64(100), a.MinimumBid)
	require.Equal(t, alice, a.Creator)
	require.Equal(t, StateActive, a.State)
	require.True(t, now.Equal(a.CreatedAt))
	require.True(t, now.Add(7*24*time.Hour).Equal(a.EndsAt))
	require.Nil(t, a.HighestBidder)
	require.Zero(t, a.BidCount)
	require.False(t, a.HighestSealedAmount.IsZero())

	amount := l.reveal(t, a.HighestSealedAmount, l.Self())
	require.Zero(t, amount)

	ids, err := l.AuctionsOf(alice)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 3}, ids)

	ids, err = l.AuctionsOf(carol)
	require.NoError(t, err)
	require.Empty(t, ids)

	events := l.events.Events()
	require.Len(t, events, 3)
	require.Equal(t, notify.KindAuctionCreated, events[0].Kind)
	require.Equal(t, uint64(1), events[0].AuctionID)
	require.Equal(t, "Painting", events[0].Title)
	require.Equal(t, "art", events[0].Category)
	require.Equal(t, uint64(100), events[0].MinimumBid)
	require.Equal(t, "alice", events[0].Creator)
	require.NotNil(t, events[0].EndsAt)
	require.True(t, a.EndsAt.Equal(*events[0].EndsAt))
}

func TestLedger_CreateAuction_Validation(t *testing.T) {
	l := makeLedger(t)

	valid := CreateRequest{
		Title:       "a",
		Description: "b",
		Category:    "c",
		MinimumBid:  1,
	}

	bad := []CreateRequest{
		{Description: "b", Category: "c", MinimumBid: 1},
		{Title: "a", Category: "c", MinimumBid: 1},
		{Title: "a", Description: "b", MinimumBid: 1},
		{Title: "a", Description: "b", Category: "c"},
	}

	for _, req := range bad {
		_, err := l.CreateAuction(req, alice, now)
		require.ErrorIs(t, err, ErrValidation)
	}

	_, err := l.CreateAuction(valid, "", now)
	require.ErrorIs(t, err, ErrValidation)

	_, err = l.CreateAuction(valid, access.Principal(DefaultContract), now)
	require.ErrorIs(t, err, ErrPolicyViolation)

	require.Zero(t, l.store.Len())
	require.Empty(t, l.events.Events())

	id, err := l.CreateAuction(valid, alice, now)
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)
}

func TestLedger_GetAuction_NotFound(t *testing.T) {
	l := makeLedger(t)

	_, err := l.GetAuction(0)
	require.ErrorIs(t, err, ErrNotFound)

	l.create(t, alice, 10)

	_, err = l.GetAuction(2)
	require.ErrorIs(t, err, ErrNotFound)
	require.EqualError(t, err, "auction 2: not found")

	_, err = l.BidCount(2)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = l.HasBid(2, bob)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = l.GetBids(2)
	require.ErrorIs(t, err, ErrNotFound)

	err = l.PlaceBid(BidRequest{AuctionID: 2, Amount: 10, Payment: 10}, bob, now)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = l.EndAuction(2, alice, now)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLedger_ListActive(t *testing.T) {
	l := makeLedger(t, WithConfig(Config{
		Duration:   time.Hour,
		MaxComment: 10,
		Contract:   DefaultContract,
	}))

	l.create(t, alice, 1)
	l.createAt(t, bob, 1, now.Add(30*time.Minute))
	l.create(t, carol, 1)

	list, err := l.ListActive(now)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 3}, idsOf(list))

	_, err = l.EndAuction(3, carol, now)
	require.NoError(t, err)

	list, err = l.ListActive(now)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, idsOf(list))

	list, err = l.ListActive(now.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, []uint64{2}, idsOf(list))

	list, err = l.ListActive(now.Add(2 * time.Hour))
	require.NoError(t, err)
	require.Empty(t, list)

	// Ended auctions can still be queried.
	a, err := l.GetAuction(3)
	require.NoError(t, err)
	require.Equal(t, StateEnded, a.State)
}

// Scenario A: a bidder bids once, then again, then the creator tries to bid.
func TestLedger_SingleBidPerPrincipal(t *testing.T) {
	l := makeLedger(t)

	id := l.create(t, alice, 100)

	err := l.PlaceBid(BidRequest{AuctionID: id, Amount: 150, Payment: 150}, bob, now)
	require.NoError(t, err)

	count, err := l.BidCount(id)
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)

	found, err := l.HasBid(id, bob)
	require.NoError(t, err)
	require.True(t, found)

	found, err = l.HasBid(id, carol)
	require.NoError(t, err)
	require.False(t, found)

	require.Equal(t, uint64(150), l.vault.Held(id, "bob"))

	dump := l.store.Dump()

	err = l.PlaceBid(BidRequest{AuctionID: id, Amount: 200, Payment: 200}, bob, now)
	require.ErrorIs(t, err, ErrPolicyViolation)
	require.Contains(t, err.Error(), "bob has already bid on auction 1")

	err = l.PlaceBid(BidRequest{AuctionID: id, Amount: 200, Payment: 200}, alice, now)
	require.ErrorIs(t, err, ErrPolicyViolation)
	require.Contains(t, err.Error(), "creator cannot bid on auction 1")

	require.Equal(t, dump, l.store.Dump())

	count, err = l.BidCount(id)
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)
}

// Scenario B: a bid below the minimum is refused before any effect.
func TestLedger_BidBelowMinimum(t *testing.T) {
	l := makeLedger(t)

	id := l.create(t, alice, 100)
	dump := l.store.Dump()

	err := l.PlaceBid(BidRequest{AuctionID: id, Amount: 50, Payment: 50}, bob, now)
	require.ErrorIs(t, err, ErrPolicyViolation)
	require.EqualError(t, err, "failed to place bid: bid is below the minimum of 100: policy violation")

	require.Equal(t, dump, l.store.Dump())

	count, err := l.BidCount(id)
	require.NoError(t, err)
	require.Zero(t, count)
	require.Len(t, l.events.Events(), 1)
}

// Scenario C: a bid at or after the deadline is refused.
func TestLedger_BidAfterDeadline(t *testing.T) {
	l := makeLedger(t)

	id := l.create(t, alice, 100)

	a, err := l.GetAuction(id)
	require.NoError(t, err)

	err = l.PlaceBid(BidRequest{AuctionID: id, Amount: 150, Payment: 150}, bob, a.EndsAt)
	require.ErrorIs(t, err, ErrInvalidState)

	err = l.PlaceBid(BidRequest{AuctionID: id, Amount: 150, Payment: 150}, bob, a.EndsAt.Add(time.Second))
	require.ErrorIs(t, err, ErrInvalidState)

	err = l.PlaceBid(BidRequest{AuctionID: id, Amount: 150, Payment: 150}, bob, a.EndsAt.Add(-time.Second))
	require.NoError(t, err)
}

func TestLedger_BidOnEndedAuction(t *testing.T) {
	l := makeLedger(t)

	id := l.create(t, alice, 100)

	_, err := l.EndAuction(id, alice, now.Add(time.Minute))
	require.NoError(t, err)

	// The deadline is not reached but the auction has been ended early.
	err = l.PlaceBid(BidRequest{AuctionID: id, Amount: 150, Payment: 150}, bob, now.Add(time.Hour))
	require.ErrorIs(t, err, ErrInvalidState)
	require.Contains(t, err.Error(), "auction 1 is Ended")
}

func TestLedger_PlaceBid_Policies(t *testing.T) {
	l := makeLedger(t)

	id := l.create(t, alice, 100)
	dump := l.store.Dump()

	err := l.PlaceBid(BidRequest{AuctionID: id, Amount: 150, Payment: 149}, bob, now)
	require.ErrorIs(t, err, ErrPolicyViolation)
	require.Contains(t, err.Error(), "payment does not cover the bid")

	err = l.PlaceBid(BidRequest{
		AuctionID: id,
		Amount:    150,
		Payment:   150,
		Comment:   strings.Repeat("x", DefaultMaxComment+1),
	}, bob, now)
	require.ErrorIs(t, err, ErrValidation)

	err = l.PlaceBid(BidRequest{AuctionID: id, Amount: 150, Payment: 150}, "", now)
	require.ErrorIs(t, err, ErrValidation)

	err = l.PlaceBid(BidRequest{AuctionID: id, Amount: 150, Payment: 150},
		access.Principal(DefaultContract), now)
	require.ErrorIs(t, err, ErrPolicyViolation)

	require.Equal(t, dump, l.store.Dump())

	err = l.PlaceBid(BidRequest{
		AuctionID: id,
		Amount:    150,
		Payment:   150,
		Comment:   strings.Repeat("x", DefaultMaxComment),
	}, bob, now)
	require.NoError(t, err)
}

// Scenario D: the creator learns the highest amount at the settlement.
func TestLedger_Settlement(t *testing.T) {
	l := makeLedger(t)

	id := l.create(t, alice, 100)

	err := l.PlaceBid(BidRequest{AuctionID: id, Amount: 100, Payment: 100, Comment: "first"}, bob, now)
	require.NoError(t, err)

	err = l.PlaceBid(BidRequest{AuctionID: id, Amount: 200, Payment: 250, ClaimedHigh: true}, carol, now)
	require.NoError(t, err)

	a, err := l.GetAuction(id)
	require.NoError(t, err)
	require.Equal(t, uint64(2), a.BidCount)
	require.NotNil(t, a.HighestBidder)
	require.Empty(t, a.Winner)

	// Nobody but the contract can read the maximum before the settlement.
	_, err = l.revealErr(a.HighestSealedAmount, alice)
	require.ErrorIs(t, err, seal.ErrAccessDenied)

	_, err = l.revealErr(*a.HighestBidder, carol)
	require.ErrorIs(t, err, seal.ErrAccessDenied)

	a, err = l.EndAuction(id, alice, now.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, StateEnded, a.State)
	require.Equal(t, carol, a.Winner)
	require.Equal(t, uint64(200), a.WinningAmount)
	require.True(t, now.Add(time.Hour).Equal(a.EndedAt))

	stored, err := l.GetAuction(id)
	require.NoError(t, err)
	require.Equal(t, carol, stored.Winner)
	require.Equal(t, uint64(200), stored.WinningAmount)

	require.Equal(t, uint64(200), l.reveal(t, stored.HighestSealedAmount, alice))

	_, err = l.revealErr(stored.HighestSealedAmount, bob)
	require.ErrorIs(t, err, seal.ErrAccessDenied)

	events := l.events.Events()
	require.Equal(t, []notify.Kind{
		notify.KindAuctionCreated,
		notify.KindBidPlaced,
		notify.KindBidPlaced,
		notify.KindAuctionEnded,
	}, l.events.Kinds())
	require.Equal(t, "bob", events[1].Bidder)
	require.Zero(t, events[1].WinningAmount)
	require.Equal(t, "carol", events[3].Winner)
	require.Equal(t, uint64(200), events[3].WinningAmount)

	bids, err := l.GetBids(id)
	require.NoError(t, err)
	require.Len(t, bids, 2)
	require.Equal(t, bob, bids[0].Bidder)
	require.Equal(t, "first", bids[0].Comment)
	require.False(t, bids[0].Revealed)
	require.Equal(t, carol, bids[1].Bidder)
	require.True(t, bids[1].Revealed)

	reveal, err := l.RevealBid(id, carol)
	require.NoError(t, err)
	require.Equal(t, uint64(250), reveal.Payment)

	require.Equal(t, uint64(200), l.vault.Balance("alice"))
	require.Equal(t, uint64(50), l.vault.Balance("carol"))
	require.Equal(t, uint64(100), l.vault.Balance("bob"))
	require.Zero(t, l.vault.Held(id, "carol"))
	require.Zero(t, l.vault.Held(id, "bob"))
}

// Scenario E: an auction cannot be ended twice.
func TestLedger_EndTwice(t *testing.T) {
	l := makeLedger(t)

	id := l.create(t, alice, 100)

	err := l.PlaceBid(BidRequest{AuctionID: id, Amount: 100, Payment: 100}, bob, now)
	require.NoError(t, err)

	_, err = l.EndAuction(id, alice, now)
	require.NoError(t, err)

	dump := l.store.Dump()

	_, err = l.EndAuction(id, alice, now)
	require.ErrorIs(t, err, ErrInvalidState)
	require.EqualError(t, err, "failed to end auction: auction 1 has already ended: invalid state")

	require.Equal(t, dump, l.store.Dump())
	require.Equal(t, uint64(100), l.vault.Balance("alice"))

	ended := 0
	for _, kind := range l.events.Kinds() {
		if kind == notify.KindAuctionEnded {
			ended++
		}
	}

	require.Equal(t, 1, ended)
}

func TestLedger_EndAuction_Deadline(t *testing.T) {
	l := makeLedger(t)

	id := l.create(t, alice, 100)

	a, err := l.GetAuction(id)
	require.NoError(t, err)

	_, err = l.EndAuction(id, bob, a.EndsAt.Add(-time.Second))
	require.ErrorIs(t, err, ErrPolicyViolation)

	// Anyone can end an expired auction, except the reserved identities.
	_, err = l.EndAuction(id, "", a.EndsAt)
	require.ErrorIs(t, err, ErrValidation)

	_, err = l.EndAuction(id, access.Principal(DefaultContract), a.EndsAt)
	require.ErrorIs(t, err, ErrPolicyViolation)
	require.EqualError(t, err, "failed to end auction: principal 'sealbid' is reserved: policy violation")

	a, err = l.EndAuction(id, bob, a.EndsAt)
	require.NoError(t, err)
	require.Equal(t, StateEnded, a.State)
	require.Empty(t, a.Winner)
	require.Zero(t, a.WinningAmount)

	events := l.events.Events()
	require.Len(t, events, 2)
	require.Equal(t, notify.KindAuctionEnded, events[1].Kind)
	require.Empty(t, events[1].Winner)
	require.Zero(t, events[1].WinningAmount)
}

func TestLedger_LeaderIsTheFirstHighestBid(t *testing.T) {
	l := makeLedger(t)

	id := l.create(t, alice, 10)

	l.bid(t, id, bob, 300)
	l.bid(t, id, carol, 100)
	l.bid(t, id, dave, 200)

	a, err := l.EndAuction(id, alice, now)
	require.NoError(t, err)
	require.Equal(t, bob, a.Winner)
	require.Equal(t, uint64(300), a.WinningAmount)

	// Ties keep the earliest bid.
	id = l.create(t, alice, 10)

	l.bid(t, id, bob, 50)
	l.bid(t, id, carol, 80)
	l.bid(t, id, dave, 80)

	a, err = l.EndAuction(id, alice, now)
	require.NoError(t, err)
	require.Equal(t, carol, a.Winner)
	require.Equal(t, uint64(80), a.WinningAmount)
}

func TestLedger_BidCountTracksBids(t *testing.T) {
	l := makeLedger(t)

	id := l.create(t, alice, 1)

	bidders := []access.Principal{"p1", "p2", "p3", "p4", "p5", "p6"}

	for i, bidder := range bidders {
		l.bid(t, id, bidder, uint64(10-i))

		count, err := l.BidCount(id)
		require.NoError(t, err)
		require.Equal(t, uint64(i+1), count)

		bids, err := l.GetBids(id)
		require.NoError(t, err)
		require.Len(t, bids, i+1)

		a, err := l.GetAuction(id)
		require.NoError(t, err)
		require.NotNil(t, a.HighestBidder)
	}

	a, err := l.EndAuction(id, alice, now)
	require.NoError(t, err)
	require.Equal(t, access.Principal("p1"), a.Winner)
	require.Equal(t, uint64(10), a.WinningAmount)
}

func TestLedger_RevealBid(t *testing.T) {
	l := makeLedger(t)

	id := l.create(t, alice, 100)

	err := l.PlaceBid(BidRequest{AuctionID: id, Amount: 120, Payment: 130, ClaimedHigh: true}, bob, now)
	require.NoError(t, err)

	reveal, err := l.RevealBid(id, bob)
	require.NoError(t, err)
	require.Equal(t, Reveal{Amount: 120, ClaimedHigh: true, Payment: 130}, reveal)

	_, err = l.RevealBid(id, carol)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = l.RevealBid(5, bob)
	require.ErrorIs(t, err, ErrNotFound)

	bids, err := l.GetBids(id)
	require.NoError(t, err)

	// Neither the creator nor another principal can read the bid.
	_, err = l.revealErr(bids[0].SealedAmount, alice)
	require.ErrorIs(t, err, seal.ErrAccessDenied)

	_, err = l.revealErr(bids[0].SealedIsHighClaim, carol)
	require.ErrorIs(t, err, seal.ErrAccessDenied)

	_, err = l.revealErr(bids[0].SealedPayment, carol)
	require.ErrorIs(t, err, seal.ErrAccessDenied)

	// The grants of the bidder are never revoked.
	_, err = l.EndAuction(id, alice, now)
	require.NoError(t, err)

	reveal, err = l.RevealBid(id, bob)
	require.NoError(t, err)
	require.Equal(t, uint64(120), reveal.Amount)
}

func TestLedger_GetBids_PaymentIsSealed(t *testing.T) {
	l := makeLedger(t)

	id := l.create(t, alice, 100)

	err := l.PlaceBid(BidRequest{AuctionID: id, Amount: 173, Payment: 173}, bob, now)
	require.NoError(t, err)

	bids, err := l.GetBids(id)
	require.NoError(t, err)
	require.Len(t, bids, 1)

	// The payment of a bid would disclose its amount.
	for _, v := range []seal.Value{bids[0].SealedAmount, bids[0].SealedPayment} {
		_, err = l.revealErr(v, carol)
		require.ErrorIs(t, err, seal.ErrAccessDenied)

		_, err = l.revealErr(v, alice)
		require.ErrorIs(t, err, seal.ErrAccessDenied)
	}

	require.Equal(t, uint64(173), l.reveal(t, bids[0].SealedPayment, bob))
}

func TestLedger_FailingOracleLeavesStoreUnchanged(t *testing.T) {
	st := mem.NewStore()
	oracle := makeOracle(t)

	good, err := NewLedger(st, oracle, WithPublisher(notify.NewMemory()))
	require.NoError(t, err)

	id, err := good.CreateAuction(CreateRequest{
		Title:       "a",
		Description: "b",
		Category:    "c",
		MinimumBid:  1,
	}, alice, now)
	require.NoError(t, err)

	err = good.PlaceBid(BidRequest{AuctionID: id, Amount: 5, Payment: 5}, bob, now)
	require.NoError(t, err)

	events := notify.NewMemory()
	vault := escrow.NewVault()

	bad, err := NewLedger(st, badOracle{Oracle: oracle}, WithPublisher(events), WithEscrow(vault))
	require.NoError(t, err)

	dump := st.Dump()

	err = bad.PlaceBid(BidRequest{AuctionID: id, Amount: 10, Payment: 10}, carol, now)
	require.EqualError(t, err, fake.Err("failed to place bid: failed to select amount"))

	require.Equal(t, dump, st.Dump())
	require.Empty(t, events.Events())
	require.Zero(t, vault.Held(id, "carol"))

	found, err := good.HasBid(id, carol)
	require.NoError(t, err)
	require.False(t, found)
}

func TestLedger_Durable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	cipher := elgamal.GenerateCipher()

	open := func() (*Ledger, kv.DB, *escrow.Vault) {
		db, err := kv.New(path)
		require.NoError(t, err)

		srvc, err := acl.NewService(access.Principal(DefaultContract))
		require.NoError(t, err)

		vault := escrow.NewVault()

		l, err := NewLedger(kv.NewStore(db, []byte("ledger")), elgamal.NewOracle(cipher, srvc, ContractName),
			WithPublisher(notify.NewMemory()), WithEscrow(vault))
		require.NoError(t, err)

		return l, db, vault
	}

	l, db, _ := open()

	id, err := l.CreateAuction(CreateRequest{
		Title:       "Bike",
		Description: "Road bike",
		Category:    "sport",
		MinimumBid:  50,
	}, alice, now)
	require.NoError(t, err)

	err = l.PlaceBid(BidRequest{AuctionID: id, Amount: 70, Payment: 80}, bob, now)
	require.NoError(t, err)

	err = l.PlaceBid(BidRequest{AuctionID: id, Amount: 60, Payment: 60}, carol, now)
	require.NoError(t, err)

	require.NoError(t, db.Close())

	// The new escrow has not seen the holds of the previous process.
	l, db, vault := open()
	defer db.Close()

	a, err := l.GetAuction(id)
	require.NoError(t, err)
	require.Equal(t, uint64(2), a.BidCount)
	require.Equal(t, "Bike", a.Title)

	reveal, err := l.RevealBid(id, carol)
	require.NoError(t, err)
	require.Equal(t, uint64(60), reveal.Amount)

	err = l.PlaceBid(BidRequest{AuctionID: id, Amount: 60, Payment: 60}, carol, now)
	require.ErrorIs(t, err, ErrPolicyViolation)

	a, err = l.EndAuction(id, alice, now)
	require.NoError(t, err)
	require.Equal(t, bob, a.Winner)
	require.Equal(t, uint64(70), a.WinningAmount)
	require.Equal(t, uint64(70), vault.Balance("alice"))
	require.Equal(t, uint64(10), vault.Balance("bob"))
	require.Equal(t, uint64(60), vault.Balance("carol"))

	id, err = l.CreateAuction(CreateRequest{
		Title:       "Car",
		Description: "Red car",
		Category:    "auto",
		MinimumBid:  1,
	}, alice, now)
	require.NoError(t, err)
	require.Equal(t, uint64(2), id)

	ids, err := l.AuctionsOf(alice)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, ids)
}

func TestLedger_InvalidConfig(t *testing.T) {
	_, err := NewLedger(mem.NewStore(), makeOracle(t), WithConfig(Config{}))
	require.ErrorIs(t, err, ErrValidation)
	require.EqualError(t, err, "invalid config: duration 0s must be positive: validation error")
}

// -----------------------------------------------------------------------------
// Utility functions

type testLedger struct {
	*Ledger

	store  *mem.Store
	events *notify.Memory
	vault  *escrow.Vault
}

func makeLedger(t *testing.T, opts ...Option) testLedger {
	st := mem.NewStore()
	events := notify.NewMemory()
	vault := escrow.NewVault()

	opts = append([]Option{WithPublisher(events), WithEscrow(vault)}, opts...)

	l, err := NewLedger(st, makeOracle(t), opts...)
	require.NoError(t, err)

	return testLedger{
		Ledger: l,
		store:  st,
		events: events,
		vault:  vault,
	}
}

func makeOracle(t *testing.T) seal.Oracle {
	srvc, err := acl.NewService(access.Principal(DefaultContract))
	require.NoError(t, err)

	return clear.NewOracle(srvc, ContractName)
}

func (l testLedger) create(t *testing.T, creator access.Principal, minimum uint64) uint64 {
	return l.createAt(t, creator, minimum, now)
}

func (l testLedger) createAt(t *testing.T, creator access.Principal, minimum uint64, at time.Time) uint64 {
	id, err := l.CreateAuction(CreateRequest{
		Title:       "Painting",
		Description: "Oil on canvas",
		Category:    "art",
		MinimumBid:  minimum,
	}, creator, at)
	require.NoError(t, err)

	return id
}

func (l testLedger) bid(t *testing.T, id uint64, bidder access.Principal, amount uint64) {
	err := l.PlaceBid(BidRequest{AuctionID: id, Amount: amount, Payment: amount}, bidder, now)
	require.NoError(t, err)
}

func (l testLedger) reveal(t *testing.T, v seal.Value, ident access.Identity) uint64 {
	n, err := l.revealErr(v, ident)
	require.NoError(t, err)

	return n
}

func (l testLedger) revealErr(v seal.Value, ident access.Identity) (uint64, error) {
	var n uint64

	err := l.store.View(func(r store.Readable) error {
		var err error
		n, err = l.engine.oracle.RevealTo(r, v, ident)

		return err
	})

	return n, err
}

func idsOf(list []Auction) []uint64 {
	ids := make([]uint64, len(list))
	for i, a := range list {
		ids[i] = a.ID
	}

	return ids
}

// badOracle is an oracle that fails to select.
type badOracle struct {
	seal.Oracle
}

func (badOracle) Select(store.Snapshot, seal.Value, seal.Value, seal.Value) (seal.Value, error) {
	return seal.Value{}, fake.GetError()
}
