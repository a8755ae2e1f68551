// Package plain implements a transaction that carries the identity of its
// creator and a set of arguments. The ledger trusts the identity as the
// authentication is done by the wallet that submits the transaction.
package plain

import (
	"sort"

	"go.dedis.ch/sealbid/core/access"
	"go.dedis.ch/sealbid/core/txn"
	"golang.org/x/xerrors"
)

// Transaction is a transaction made of an identity and arguments.
//
// - implements txn.Transaction
type Transaction struct {
	identity access.Identity
	args     map[string][]byte
}

// TransactionOption is the type of options to create a transaction.
type TransactionOption func(*Transaction)

// WithArg is an option to set an argument with the key and the value.
func WithArg(key string, value []byte) TransactionOption {
	return func(tx *Transaction) {
		tx.args[key] = value
	}
}

// NewTransaction creates a new transaction for the identity.
func NewTransaction(ident access.Identity, opts ...TransactionOption) (Transaction, error) {
	if ident == nil {
		return Transaction{}, xerrors.New("identity is missing")
	}

	tx := Transaction{
		identity: ident,
		args:     make(map[string][]byte),
	}

	for _, opt := range opts {
		opt(&tx)
	}

	return tx, nil
}

// GetIdentity implements txn.Transaction. It returns the creator of the
// transaction.
func (t Transaction) GetIdentity() access.Identity {
	return t.identity
}

// GetArgs returns the sorted list of arguments available.
func (t Transaction) GetArgs() []string {
	args := make([]string, 0, len(t.args))
	for key := range t.args {
		args = append(args, key)
	}

	sort.Strings(args)

	return args
}

// GetArg implements txn.Transaction. It returns the value of the argument if it
// is set, otherwise nil.
func (t Transaction) GetArg(key string) []byte {
	return t.args[key]
}

// manager creates transactions for a single identity.
//
// - implements txn.Manager
type manager struct {
	identity access.Identity
}

// NewManager creates a new transaction manager for the identity.
func NewManager(ident access.Identity) txn.Manager {
	return manager{identity: ident}
}

// Make implements txn.Manager. It creates a transaction populated with the
// arguments.
func (mgr manager) Make(args ...txn.Arg) (txn.Transaction, error) {
	opts := make([]TransactionOption, len(args))
	for i, arg := range args {
		opts[i] = WithArg(arg.Key, arg.Value)
	}

	tx, err := NewTransaction(mgr.identity, opts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to create tx: %v", err)
	}

	return tx, nil
}
