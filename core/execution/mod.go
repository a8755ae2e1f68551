// Package execution defines the service that applies transactions to a
// snapshot of the ledger.
package execution

import (
	"go.dedis.ch/sealbid/core/store"
	"go.dedis.ch/sealbid/core/txn"
)

// Step is a context of execution. It contains the transactions that were
// executed earlier in the same batch and the transaction to execute.
type Step struct {
	Previous []txn.Transaction
	Current  txn.Transaction
}

// Result is the result of a transaction execution.
type Result struct {
	// Accepted is the success state of the transaction.
	Accepted bool

	// Message gives a change to the execution to explain why a transaction has
	// failed.
	Message string
}

// Service is the execution service that defines the primitives to execute a
// transaction.
type Service interface {
	// Execute must apply the transaction to the snapshot and return the
	// result of it. The side effects of the execution are registered on the
	// transaction of the snapshot.
	Execute(tx store.WritableTx, step Step) (Result, error)
}
