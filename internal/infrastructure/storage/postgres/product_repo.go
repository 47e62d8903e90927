package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"kedai/internal/core/apperror"
	"kedai/internal/core/id"
	"kedai/internal/domain"
	"kedai/internal/domain/catalogs/product"
)

const productTable = "cat_products"

// Compile-time check that ProductRepo implements product.Repository.
var _ product.Repository = (*ProductRepo)(nil)

// ProductRepo implements product.Repository.
type ProductRepo struct {
	txm  *TxManager
	cols []string
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txm *TxManager) *ProductRepo {
	return &ProductRepo{
		txm:  txm,
		cols: ExtractDBColumns[product.Product](),
	}
}

func (r *ProductRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *ProductRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder().Select(r.cols...).From(productTable)
}

// Create inserts a new product using its "db" tags.
func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	data := StructToMap(p)

	sql, args, err := r.builder().
		Insert(productTable).
		SetMap(data).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", productTable, err)
	}
	return nil
}

// GetByID retrieves a product by ID.
func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.getOne(ctx, productID, false)
}

// GetForUpdate retrieves a product and locks its row for the duration of
// the surrounding transaction.
func (r *ProductRepo) GetForUpdate(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.getOne(ctx, productID, true)
}

func (r *ProductRepo) getOne(ctx context.Context, productID id.ID, lock bool) (*product.Product, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": productID}).
		Limit(1)
	if lock {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p product.Product
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", productID.String())
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// Update modifies an existing product with optimistic locking.
func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	data := StructToMap(p)
	delete(data, "id")
	delete(data, "version")
	delete(data, "created_at")

	sql, args, err := r.builder().
		Update(productTable).
		SetMap(data).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": p.ID}).
		Where(squirrel.Eq{"version": p.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", productTable, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(productTable, p.ID)
	}

	p.SetVersion(p.Version + 1)
	return nil
}

// Delete removes a product outright.
func (r *ProductRepo) Delete(ctx context.Context, productID id.ID) error {
	sql, args, err := r.builder().
		Delete(productTable).
		Where(squirrel.Eq{"id": productID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", productTable, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("product", productID.String())
	}
	return nil
}

// List retrieves products with filtering and pagination.
func (r *ProductRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*product.Product], error) {
	result := domain.ListResult[*product.Product]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()
	countQ := r.builder().Select("COUNT(*)").From(productTable)

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		cond := squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"supplier": pattern},
		}
		q = q.Where(cond)
		countQ = countQ.Where(cond)
	}
	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.IDs})
		countQ = countQ.Where(squirrel.Eq{"id": filter.IDs})
	}

	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "name ASC"
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
	var items []*product.Product
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return result, fmt.Errorf("list products: %w", err)
	}
	result.Items = items

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count products: %w", err)
	}

	return result, nil
}

// FindLowStock retrieves products at or below their reorder point.
// Products without a reorder point are never flagged.
func (r *ProductRepo) FindLowStock(ctx context.Context) ([]*product.Product, error) {
	// Imported rows may carry counters as zero with only starting_stock
	// set; fall back to it the same way Product.CurrentStock does.
	sql, args, err := r.baseSelect().
		Where("reorder_point IS NOT NULL").
		Where(`(CASE WHEN balance = 0 AND total_purchased = 0 AND quantity_sold = 0
			THEN starting_stock ELSE balance END) <= reorder_point`).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build low stock query: %w", err)
	}

	var items []*product.Product
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("find low stock: %w", err)
	}
	return items, nil
}
