package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/repo"
)

// ProductIndex is satisfied by *search.Index.
type ProductIndex interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	RemoveProduct(ctx context.Context, id uint) error
	Search(ctx context.Context, query string, from, size int) (int64, []uint, error)
}

type CatalogService struct {
	Repo      *repo.GormRepo
	Publisher Publisher
	Index     ProductIndex
}

type ProductInput struct {
	Name        string
	Description string
	Price       float64
	Stock       int
	Category    string
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if in.Price < 0 {
		return fmt.Errorf("%w: price cannot be negative", ErrValidation)
	}
	if in.Stock < 0 {
		return fmt.Errorf("%w: stock cannot be negative", ErrValidation)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.Repo.ListProducts(ctx)
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// CreateProduct stores the row; image is the stored upload path or nil.
func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput, image *string) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := &models.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Image:       image,
		Category:    in.Category,
	}
	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.reindex(ctx, p)
	publish(ctx, s.Publisher, mykafka.TopicProductEvents, p.ID, map[string]any{
		"type":      "product_created",
		"productID": p.ID,
		"name":      p.Name,
		"price":     p.Price,
	})
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	p, err := s.Repo.UpdateProductFields(ctx, id, models.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Category:    in.Category,
	})
	if err != nil {
		return nil, notFound(err)
	}

	s.reindex(ctx, p)
	publish(ctx, s.Publisher, mykafka.TopicProductEvents, p.ID, map[string]any{
		"type":      "product_updated",
		"productID": p.ID,
	})
	return p, nil
}

// UpdateProductImage returns the previous image path, if any.
func (s *CatalogService) UpdateProductImage(ctx context.Context, id uint, image string) (*string, error) {
	prev, err := s.Repo.UpdateProductImage(ctx, id, image)
	if err != nil {
		return nil, notFound(err)
	}

	publish(ctx, s.Publisher, mykafka.TopicProductEvents, id, map[string]any{
		"type":      "product_image_updated",
		"productID": id,
		"image":     image,
	})
	return prev, nil
}

// DeleteProduct returns the image path of the removed product, if it had one.
func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) (*string, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		return nil, notFound(err)
	}

	if s.Index != nil {
		if err := s.Index.RemoveProduct(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("search_remove_error", "productID", id, "error", err)
		}
	}
	publish(ctx, s.Publisher, mykafka.TopicProductEvents, id, map[string]any{
		"type":      "product_deleted",
		"productID": id,
	})
	return p.Image, nil
}

type SearchResult struct {
	Total int64            `json:"total"`
	Items []models.Product `json:"items"`
}

// SearchProducts asks the search index when one is configured and falls back to
// the database if it is absent or failing.
func (s *CatalogService) SearchProducts(ctx context.Context, q string, offset, limit int) (SearchResult, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return SearchResult{Items: []models.Product{}}, nil
	}

	if s.Index != nil {
		total, ids, err := s.Index.Search(ctx, q, offset, limit)
		if err == nil {
			items, err := s.Repo.GetProductsByIDs(ctx, ids)
			if err != nil {
				return SearchResult{}, fmt.Errorf("load search hits: %w", err)
			}
			return SearchResult{Total: total, Items: items}, nil
		}
		logging.FromContext(ctx).Warn("search_index_error", "reason", "falling back to database", "error", err)
	}

	total, items, err := s.Repo.SearchProducts(ctx, q, offset, limit)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search products: %w", err)
	}
	return SearchResult{Total: total, Items: items}, nil
}

func (s *CatalogService) reindex(ctx context.Context, p *models.Product) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexProduct(ctx, p); err != nil {
		logging.FromContext(ctx).Warn("search_index_error", "productID", p.ID, "error", err)
	}
}
