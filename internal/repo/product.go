package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	product := models.Product{}
	if err := r.DB.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormRepo) ListProducts(ctx context.Context) ([]models.Product, error) {
	var items []models.Product
	if err := r.DB.WithContext(ctx).Order("created_at DESC, id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Product{}).Count(&n).Error
	return n, err
}

func (r *GormRepo) CreateProduct(ctx context.Context, prod *models.Product) error {
	return r.DB.WithContext(ctx).Create(prod).Error
}

// UpdateProductFields replaces every editable column except image.
func (r *GormRepo) UpdateProductFields(ctx context.Context, id uint, p models.Product) (*models.Product, error) {
	if _, err := r.GetProduct(ctx, id); err != nil {
		return nil, err
	}
	res := r.DB.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).
		Select("name", "description", "price", "stock", "category").
		Updates(models.Product{
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Stock:       p.Stock,
			Category:    p.Category,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	return r.GetProduct(ctx, id)
}

// UpdateProductImage returns the previous image path so the caller can discard it.
func (r *GormRepo) UpdateProductImage(ctx context.Context, id uint, image string) (*string, error) {
	prod, err := r.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.DB.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Update("image", image).Error; err != nil {
		return nil, err
	}
	return prod.Image, nil
}

func (r *GormRepo) DeleteProduct(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SearchProducts is the portable fallback used when no search index is configured.
func (r *GormRepo) SearchProducts(ctx context.Context, q string, offset, limit int) (int64, []models.Product, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
	where := "LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(category) LIKE ?"

	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where(where, pattern, pattern, pattern).
		Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Product, 0, limit)
	if err := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where(where, pattern, pattern, pattern).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// GetProductsByIDs keeps the order of ids; unknown ids are skipped.
func (r *GormRepo) GetProductsByIDs(ctx context.Context, ids []uint) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	var found []models.Product
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
