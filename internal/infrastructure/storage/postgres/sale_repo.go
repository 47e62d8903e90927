package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"kedai/internal/core/apperror"
	"kedai/internal/core/id"
	"kedai/internal/domain"
	"kedai/internal/domain/documents/sale"
)

const (
	saleTable        = "doc_sales"
	saleLineTable    = "doc_sale_lines"
	salePaymentTable = "doc_sale_payments"
)

// Compile-time check that SaleRepo implements sale.Repository.
var _ sale.Repository = (*SaleRepo)(nil)

// SaleRepo implements sale.Repository. Lines and payments are table
// parts keyed by sale_id; the header row carries the derived totals.
type SaleRepo struct {
	txm      *TxManager
	cols     []string
	lineCols []string
	payCols  []string
}

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txm *TxManager) *SaleRepo {
	return &SaleRepo{
		txm:      txm,
		cols:     ExtractDBColumns[sale.Sale](),
		lineCols: ExtractDBColumns[sale.LineItem](),
		payCols:  ExtractDBColumns[sale.Payment](),
	}
}

func (r *SaleRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *SaleRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder().Select(r.cols...).From(saleTable)
}

// Create inserts the sale header row.
func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	sql, args, err := r.builder().
		Insert(saleTable).
		SetMap(StructToMap(s)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", saleTable, err)
	}
	return nil
}

// GetByID retrieves a sale header by ID. Lines and payments are loaded
// separately by the service.
func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return r.getOne(ctx, saleID, false)
}

// GetForUpdate retrieves a sale header with a row lock.
func (r *SaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return r.getOne(ctx, saleID, true)
}

func (r *SaleRepo) getOne(ctx context.Context, saleID id.ID, lock bool) (*sale.Sale, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": saleID}).
		Limit(1)
	if lock {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var s sale.Sale
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale", saleID.String())
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return &s, nil
}

// Update modifies the sale header with optimistic locking.
func (r *SaleRepo) Update(ctx context.Context, s *sale.Sale) error {
	data := StructToMap(s)
	delete(data, "id")
	delete(data, "version")
	delete(data, "created_at")

	sql, args, err := r.builder().
		Update(saleTable).
		SetMap(data).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": s.ID}).
		Where(squirrel.Eq{"version": s.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", saleTable, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(saleTable, s.ID)
	}

	s.SetVersion(s.Version + 1)
	return nil
}

// GetLines returns the line items of a sale in line order.
func (r *SaleRepo) GetLines(ctx context.Context, saleID id.ID) ([]sale.LineItem, error) {
	sql, args, err := r.builder().
		Select(r.lineCols...).
		From(saleLineTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("line_no ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lines query: %w", err)
	}

	var lines []sale.LineItem
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get sale lines: %w", err)
	}
	return lines, nil
}

// SaveLines replaces the table part wholesale: delete then insert. Line
// rewrites happen only inside the owning document's transaction.
func (r *SaleRepo) SaveLines(ctx context.Context, saleID id.ID, lines []sale.LineItem) error {
	querier := r.txm.GetQuerier(ctx)

	delSQL, delArgs, err := r.builder().
		Delete(saleLineTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build lines delete: %w", err)
	}
	if _, err := querier.Exec(ctx, delSQL, delArgs...); err != nil {
		return fmt.Errorf("delete sale lines: %w", err)
	}

	for _, line := range lines {
		data := StructToMap(line)
		data["sale_id"] = saleID

		sql, args, err := r.builder().
			Insert(saleLineTable).
			SetMap(data).
			ToSql()
		if err != nil {
			return fmt.Errorf("build line insert: %w", err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert sale line: %w", err)
		}
	}
	return nil
}

// UpdateLine rewrites one line item in place.
func (r *SaleRepo) UpdateLine(ctx context.Context, saleID id.ID, line sale.LineItem) error {
	data := StructToMap(line)
	delete(data, "line_id")

	sql, args, err := r.builder().
		Update(saleLineTable).
		SetMap(data).
		Where(squirrel.Eq{"sale_id": saleID}).
		Where(squirrel.Eq{"line_id": line.LineID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build line update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update sale line: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("line item", line.LineID.String())
	}
	return nil
}

// AppendPayment stores one settlement under the sale.
func (r *SaleRepo) AppendPayment(ctx context.Context, payment sale.Payment) error {
	sql, args, err := r.builder().
		Insert(salePaymentTable).
		SetMap(StructToMap(payment)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build payment insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", salePaymentTable, err)
	}
	return nil
}

// GetPayments returns a sale's settlements, oldest first.
func (r *SaleRepo) GetPayments(ctx context.Context, saleID id.ID) ([]sale.Payment, error) {
	sql, args, err := r.builder().
		Select(r.payCols...).
		From(salePaymentTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build payments query: %w", err)
	}

	var payments []sale.Payment
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &payments, sql, args...); err != nil {
		return nil, fmt.Errorf("get sale payments: %w", err)
	}
	return payments, nil
}

// List retrieves sales with filtering and pagination.
func (r *SaleRepo) List(ctx context.Context, filter sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	result := domain.ListResult[*sale.Sale]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()
	countQ := r.builder().Select("COUNT(*)").From(saleTable)

	addWhere := func(cond any, args ...any) {
		q = q.Where(cond, args...)
		countQ = countQ.Where(cond, args...)
	}

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		addWhere(squirrel.Or{
			squirrel.ILike{"customer": pattern},
			squirrel.ILike{"number": pattern},
		})
	}
	if filter.Customer != "" {
		addWhere(squirrel.Eq{"customer": filter.Customer})
	}
	if filter.PaymentType != nil {
		addWhere(squirrel.Eq{"payment_type": *filter.PaymentType})
	}
	if filter.Status != nil {
		addWhere(squirrel.Eq{"status": *filter.Status})
	}
	if filter.DateFrom != nil {
		addWhere(squirrel.GtOrEq{"created_at": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		addWhere(squirrel.Lt{"created_at": *filter.DateTo})
	}
	if len(filter.IDs) > 0 {
		addWhere(squirrel.Eq{"id": filter.IDs})
	}

	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "created_at DESC"
	}
	q = q.OrderBy(orderBy)

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build list: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	var items []*sale.Sale
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return result, fmt.Errorf("list sales: %w", err)
	}
	result.Items = items

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count sales: %w", err)
	}

	return result, nil
}
