// Package txn defines the abstraction of transactions.
//
// A transaction is a smart contract input. It is created by an identity that
// the contracts use as the principal of the operation, and it carries the
// arguments of the command.
package txn

import (
	"go.dedis.ch/sealbid/core/access"
)

// Transaction is what triggers a smart contract execution by passing it as part
// of the input.
type Transaction interface {
	// GetIdentity returns the identity that created the transaction.
	GetIdentity() access.Identity

	// GetArg is a getter for the arguments of the transaction.
	GetArg(key string) []byte
}

// Arg is a generic argument that can be stored in a transaction.
type Arg struct {
	Key   string
	Value []byte
}

// Manager is a manager to create transaction on behalf of an identity.
type Manager interface {
	Make(args ...Arg) (Transaction, error)
}
