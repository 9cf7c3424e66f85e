package app

import (
	"context"

	"github.com/avkrapivin/ecommerce-microservices-sub001/internal/domain"
)

type CatalogRepository interface {
	CreateProduct(ctx context.Context, product domain.Product) error
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	UpdateStock(ctx context.Context, productID string, stockQuantity int) error
}

// CatalogService is the minimal ledger-maintenance surface: creating products
// and adjusting their stock baseline. The reservation engine itself only
// reads from it.
type CatalogService struct {
	repo CatalogRepository
}

func NewCatalogService(repo CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

type CreateProductInput struct {
	Name          string
	StockQuantity int
}

func (s *CatalogService) CreateProduct(ctx context.Context, in CreateProductInput) (domain.Product, error) {
	if in.Name == "" {
		return domain.Product{}, domain.ErrProductNameRequired
	}
	if in.StockQuantity < 0 {
		return domain.Product{}, domain.ErrInvalidStock
	}

	product := domain.Product{
		ID:            newID(),
		Name:          in.Name,
		StockQuantity: in.StockQuantity,
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	if productID == "" {
		return domain.Product{}, domain.ErrInvalidID
	}
	return s.repo.GetProduct(ctx, productID)
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

// SetStock moves the capacity baseline. Outstanding holds are untouched; the
// next availability check simply observes the new total.
func (s *CatalogService) SetStock(ctx context.Context, productID string, stockQuantity int) error {
	if productID == "" {
		return domain.ErrInvalidID
	}
	if stockQuantity < 0 {
		return domain.ErrInvalidStock
	}
	return s.repo.UpdateStock(ctx, productID, stockQuantity)
}
