package catalog

import (
	"context"

	"github.com/vladislavdragonenkov/cartstate/internal/domain"
)

// StaticCatalog отдаёт фиксированный список товаров (локальная разработка и тесты).
type StaticCatalog struct {
	products []domain.Product
}

// NewStaticCatalog копирует products.
func NewStaticCatalog(products []domain.Product) *StaticCatalog {
	return &StaticCatalog{products: append([]domain.Product(nil), products...)}
}

// DefaultProducts: демонстрационный набор для запуска без внешнего каталога.
func DefaultProducts() []domain.Product {
	return []domain.Product{
		{ID: "1", Title: "Quarterly box", ImageURL: "https://images.example.com/products/quarterly.png", Price: 150},
		{ID: "2", Title: "Annual box", ImageURL: "https://images.example.com/products/annual.png", Price: 540},
	}
}

// ListProducts возвращает копию списка.
func (c *StaticCatalog) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]domain.Product{}, c.products...), nil
}

var _ domain.Catalog = (*StaticCatalog)(nil)
