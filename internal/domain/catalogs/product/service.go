package product

import (
	"context"
	"encoding/json"
	"fmt"

	"kedai/internal/core/id"
	"kedai/internal/core/tx"
	"kedai/internal/core/watch"
	"kedai/internal/domain"
	"kedai/pkg/logger"
)

// Service provides business operations for the product catalog.
type Service struct {
	repo      Repository
	txManager tx.RetryableManager
	hub       *watch.Hub
}

// NewService creates a new product service.
func NewService(repo Repository, txManager tx.RetryableManager, hub *watch.Hub) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		hub:       hub,
	}
}

// Add creates a new product. The balance is derived from starting stock
// when the caller leaves it at zero.
func (s *Service) Add(ctx context.Context, p *Product) error {
	if p.Balance == 0 {
		p.Balance = p.StartingStock + p.TotalPurchased - p.QuantitySold
	}

	if err := p.Validate(ctx); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, p)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "product added", "id", p.ID, "name", p.Name)
	s.publishSnapshot(ctx)
	return nil
}

// GetByID retrieves a single product.
func (s *Service) GetByID(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// Update modifies catalog fields. Stock counters go through AdjustStock,
// not through here.
func (s *Service) Update(ctx context.Context, p *Product) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, p)
	})
	if err != nil {
		return err
	}

	s.publishSnapshot(ctx)
	return nil
}

// Delete removes a product outright.
func (s *Service) Delete(ctx context.Context, productID id.ID) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, productID)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "product deleted", "id", productID)
	s.publishSnapshot(ctx)
	return nil
}

// AdjustStock atomically applies purchased/sold deltas and re-derives the
// balance. Retried on write conflict.
func (s *Service) AdjustStock(ctx context.Context, productID id.ID, deltaPurchased, deltaSold int64) error {
	err := s.txManager.RunInRetryableTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}

		p.ApplyStockDelta(deltaPurchased, deltaSold)

		if err := s.repo.Update(ctx, p); err != nil {
			return fmt.Errorf("update stock: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "stock adjusted",
		"product_id", productID,
		"delta_purchased", deltaPurchased,
		"delta_sold", deltaSold,
	)
	s.publishSnapshot(ctx)
	return nil
}

// List retrieves products with filtering.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Product], error) {
	return s.repo.List(ctx, filter)
}

// FindLowStock retrieves products at or below their reorder point.
func (s *Service) FindLowStock(ctx context.Context) ([]*Product, error) {
	return s.repo.FindLowStock(ctx)
}

// Subscribe registers a listener that receives the full product list on
// every change. The returned handle detaches the listener.
func (s *Service) Subscribe(fn func([]*Product)) (cancel func()) {
	return s.hub.Subscribe(watch.TopicProducts, func(ev watch.Event) {
		var items []*Product
		if err := json.Unmarshal(ev.Snapshot, &items); err != nil {
			return
		}
		fn(items)
	})
}

// publishSnapshot pushes the full refreshed product list to subscribers.
// Failures are logged, never propagated: the write already committed.
func (s *Service) publishSnapshot(ctx context.Context) {
	if s.hub == nil {
		return
	}

	result, err := s.repo.List(ctx, domain.ListFilter{OrderBy: "created_at DESC"})
	if err != nil {
		logger.Warn(ctx, "product snapshot fetch failed", "error", err)
		return
	}

	payload, err := json.Marshal(result.Items)
	if err != nil {
		logger.Warn(ctx, "product snapshot marshal failed", "error", err)
		return
	}

	s.hub.Publish(ctx, watch.TopicProducts, payload)
}
