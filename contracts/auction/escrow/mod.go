// Package escrow implements the payment capability of the auction ledger. The
// payment attached to a bid is held until the auction is settled, then the
// winning amount is paid to the creator and every remaining hold is refunded.
//
// The ledger persists the payments and gives the settled amounts to the
// escrow, which can therefore settle holds it has not seen, for instance
// after a restart.
package escrow

import (
	"fmt"
	"sync"

	"go.dedis.ch/sealbid"
	"golang.org/x/xerrors"
)

// ErrAlreadyPaid is returned when the creator of an auction has already been
// paid.
var ErrAlreadyPaid = xerrors.New("auction already paid")

type holdKey struct {
	auction uint64
	bidder  string
}

func (k holdKey) String() string {
	return fmt.Sprintf("%d/%s", k.auction, k.bidder)
}

// Vault is an in-memory escrow. Balances are credited with the payments and
// the refunds. A hold known to the vault must cover what is released from it.
//
// - implements auction.Escrow
type Vault struct {
	sync.Mutex

	holds    map[holdKey]uint64
	paid     map[uint64]struct{}
	balances map[string]uint64
}

// NewVault returns an empty vault.
func NewVault() *Vault {
	return &Vault{
		holds:    make(map[holdKey]uint64),
		paid:     make(map[uint64]struct{}),
		balances: make(map[string]uint64),
	}
}

// Hold records the payment of a bidder for an auction. A bidder has at most
// one hold per auction.
func (v *Vault) Hold(auction uint64, bidder string, amount uint64) error {
	v.Lock()
	defer v.Unlock()

	key := holdKey{auction: auction, bidder: bidder}

	_, found := v.holds[key]
	if found {
		return xerrors.Errorf("hold %v already exists", key)
	}

	v.holds[key] = amount

	return nil
}

// Held returns the amount currently held for the bidder.
func (v *Vault) Held(auction uint64, bidder string) uint64 {
	v.Lock()
	defer v.Unlock()

	return v.holds[holdKey{auction: auction, bidder: bidder}]
}

// Pay transfers the amount from the hold of the payer to the creator. It can
// only succeed once per auction.
func (v *Vault) Pay(auction uint64, from, to string, amount uint64) error {
	v.Lock()
	defer v.Unlock()

	_, done := v.paid[auction]
	if done {
		return xerrors.Errorf("payout of auction %d: %w", auction, ErrAlreadyPaid)
	}

	key := holdKey{auction: auction, bidder: from}

	err := v.release(key, amount)
	if err != nil {
		return err
	}

	v.balances[to] += amount
	v.paid[auction] = struct{}{}

	sealbid.Logger.Debug().
		Uint64("auction", auction).
		Str("from", from).
		Str("to", to).
		Uint64("amount", amount).
		Msg("payment")

	return nil
}

// Refund credits the bidder with the amount that remains of its hold and
// closes the hold.
func (v *Vault) Refund(auction uint64, bidder string, amount uint64) error {
	v.Lock()
	defer v.Unlock()

	key := holdKey{auction: auction, bidder: bidder}

	err := v.release(key, amount)
	if err != nil {
		return err
	}

	delete(v.holds, key)
	v.balances[bidder] += amount

	return nil
}

func (v *Vault) release(key holdKey, amount uint64) error {
	held, found := v.holds[key]
	if !found {
		return nil
	}

	if held < amount {
		return xerrors.Errorf("hold %v is insufficient: %d < %d", key, held, amount)
	}

	v.holds[key] = held - amount

	return nil
}

// Balance returns the amount credited to the principal.
func (v *Vault) Balance(principal string) uint64 {
	v.Lock()
	defer v.Unlock()

	return v.balances[principal]
}
