package service

import (
	"context"
	"errors"

	"go-pos-invoice/internal/model"
	"go-pos-invoice/internal/repository"

	"github.com/google/uuid"
)

const ProductPageSize = 20

// ProductPage is one page of a catalog search. Pages is the page count for
// the whole result.
type ProductPage struct {
	Products []model.Product `json:"products"`
	Page     int             `json:"page"`
	Pages    int             `json:"pages"`
}

// CatalogService is the read-only product lookup cashiers use to fill an invoice.
type CatalogService interface {
	SearchProducts(ctx context.Context, keyword string, page int) (*ProductPage, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
}

type catalogService struct {
	productRepo repository.ProductRepository
}

func NewCatalogService(productRepo repository.ProductRepository) CatalogService {
	return &catalogService{productRepo: productRepo}
}

// SearchProducts matches keyword against name or SKU, newest first. Pages
// below 1 are read as the first page.
func (s *catalogService) SearchProducts(ctx context.Context, keyword string, page int) (*ProductPage, error) {
	if page < 1 {
		page = 1
	}
	products, total, err := s.productRepo.Search(ctx, repository.ProductQuery{
		Keyword: keyword,
		Offset:  (page - 1) * ProductPageSize,
		Limit:   ProductPageSize,
	})
	if err != nil {
		return nil, &PersistenceError{Op: "search products", Err: err}
	}
	return &ProductPage{
		Products: products,
		Page:     page,
		Pages:    int((total + ProductPageSize - 1) / ProductPageSize),
	}, nil
}

func (s *catalogService) GetProductByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, err := s.productRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &ProductNotFoundError{ProductID: id}
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get product", Err: err}
	}
	return p, nil
}
