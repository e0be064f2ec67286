package services

import (
	"sokojumla/internal/domain"
	"sokojumla/internal/repos"
)

type CatalogService struct {
	Prods *repos.ProductRepo
}

func NewCatalogService(prods *repos.ProductRepo) *CatalogService {
	return &CatalogService{Prods: prods}
}

// ActiveProducts returns the catalog in stable (insertion) order.
func (s *CatalogService) ActiveProducts() ([]domain.Product, error) {
	return s.Prods.ListActive()
}

func (s *CatalogService) Get(id string) (domain.Product, error) {
	return s.Prods.Get(id)
}

// Suggestions returns up to limit in-stock products for the chat assistant.
func (s *CatalogService) Suggestions(limit int) ([]domain.Product, error) {
	if limit <= 0 || limit > 10 {
		limit = 10
	}
	return s.Prods.InStock(limit)
}
