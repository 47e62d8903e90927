package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// SequenceQuerier adapts the tx-aware querier selection for pkg/sequence,
// so a number drawn inside a transaction rolls back with it.
type SequenceQuerier struct {
	txm *TxManager
}

// NewSequenceQuerier creates a sequence querier over the tx manager.
func NewSequenceQuerier(txm *TxManager) SequenceQuerier {
	return SequenceQuerier{txm: txm}
}

// QueryRow routes through the context transaction when present.
func (q SequenceQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return q.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...)
}
