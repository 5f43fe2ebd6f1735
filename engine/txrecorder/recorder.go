// Package txrecorder implementa TransactionRecorder: escribe la bitácora
// append-only de ejecución de nodos sobre UserTransactionRepository.
package txrecorder

import (
	"context"

	"github.com/Abraxas-365/relay/engine"
)

// Recorder implementa engine.TransactionRecorder
type Recorder struct {
	transactions engine.UserTransactionRepository
}

func New(transactions engine.UserTransactionRepository) *Recorder {
	return &Recorder{transactions: transactions}
}

var _ engine.TransactionRecorder = (*Recorder)(nil)

func (r *Recorder) Record(ctx context.Context, tx engine.UserTransaction) error {
	return r.transactions.Append(ctx, tx)
}
