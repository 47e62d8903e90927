package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"kedai/internal/domain/documents/sale"
)

const paymentTable = "reg_payments"

// Compile-time check that PaymentRepo implements sale.PaymentRepository.
var _ sale.PaymentRepository = (*PaymentRepo)(nil)

// PaymentRepo stores the top-level payments register. Each row duplicates
// a doc_sale_payments entry so period reports can range-scan settlements
// without joining through sales.
type PaymentRepo struct {
	txm  *TxManager
	cols []string
}

// NewPaymentRepo creates a new payment register repository.
func NewPaymentRepo(txm *TxManager) *PaymentRepo {
	return &PaymentRepo{
		txm:  txm,
		cols: ExtractDBColumns[sale.Payment](),
	}
}

func (r *PaymentRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create inserts a payment row.
func (r *PaymentRepo) Create(ctx context.Context, payment sale.Payment) error {
	sql, args, err := r.builder().
		Insert(paymentTable).
		SetMap(StructToMap(payment)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", paymentTable, err)
	}
	return nil
}

// ListByPeriod returns payments recorded in [from, to), oldest first.
func (r *PaymentRepo) ListByPeriod(ctx context.Context, from, to time.Time) ([]sale.Payment, error) {
	sql, args, err := r.builder().
		Select(r.cols...).
		From(paymentTable).
		Where(squirrel.GtOrEq{"created_at": from}).
		Where(squirrel.Lt{"created_at": to}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build period query: %w", err)
	}

	var payments []sale.Payment
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &payments, sql, args...); err != nil {
		return nil, fmt.Errorf("list payments by period: %w", err)
	}
	return payments, nil
}
