package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/Nattakit28/shop-system-sub000/internal/models"
	"github.com/Nattakit28/shop-system-sub000/internal/store"
	"github.com/Nattakit28/shop-system-sub000/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService handles the product catalog, for the storefront and the
// admin panel.
type CatalogService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store *store.Store) *CatalogService {
	return &CatalogService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// ProductInput carries admin-supplied product fields
type ProductInput struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	CategoryID    int64           `json:"category_id"`
	ImageURL      string          `json:"image_url"`
	IsActive      *bool           `json:"is_active"`
	IsFeatured    bool            `json:"is_featured"`
}

func (in *ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return validationErr("product name is required")
	}
	if !in.Price.IsPositive() {
		return validationErr("product price must be positive")
	}
	if in.StockQuantity < 0 {
		return validationErr("stock quantity must not be negative")
	}
	if in.CategoryID <= 0 {
		return validationErr("category_id is required")
	}
	return nil
}

// ListProducts retrieves products. Storefront callers see active products
// only; the admin panel passes includeInactive.
func (cs *CatalogService) ListProducts(ctx context.Context, categoryID int64, featuredOnly, includeInactive bool) ([]models.Product, error) {
	products, err := cs.store.ListProducts(ctx, store.ProductFilter{
		CategoryID:      categoryID,
		FeaturedOnly:    featuredOnly,
		IncludeInactive: includeInactive,
	})
	if err != nil {
		return nil, persistenceErr("failed to list products", err)
	}
	return products, nil
}

// GetProduct retrieves one product
func (cs *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	product, err := cs.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, persistenceErr("failed to load product", err)
	}
	if product == nil {
		return nil, notFoundErr("product %d not found", id)
	}
	return product, nil
}

// CreateProduct adds a product to the catalog
func (cs *CatalogService) CreateProduct(ctx context.Context, in *ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	product := &models.Product{
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		Price:         in.Price,
		StockQuantity: in.StockQuantity,
		CategoryID:    in.CategoryID,
		ImageURL:      in.ImageURL,
		IsActive:      active,
		IsFeatured:    in.IsFeatured,
	}

	if err := cs.store.CreateProduct(ctx, product); err != nil {
		return nil, persistenceErr("failed to create product", err)
	}

	cs.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.String("name", product.Name))
	return product, nil
}

// UpdateProduct replaces the mutable fields of a product
func (cs *CatalogService) UpdateProduct(ctx context.Context, id int64, in *ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	product, err := cs.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, persistenceErr("failed to load product", err)
	}
	if product == nil {
		return nil, notFoundErr("product %d not found", id)
	}

	product.Name = strings.TrimSpace(in.Name)
	product.Description = in.Description
	product.Price = in.Price
	product.StockQuantity = in.StockQuantity
	product.CategoryID = in.CategoryID
	product.ImageURL = in.ImageURL
	if in.IsActive != nil {
		product.IsActive = *in.IsActive
	}
	product.IsFeatured = in.IsFeatured

	if err := cs.store.UpdateProduct(ctx, product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundErr("product %d not found", id)
		}
		return nil, persistenceErr("failed to update product", err)
	}
	return product, nil
}

// DeactivateProduct soft-deletes a product so existing order items keep a
// valid reference.
func (cs *CatalogService) DeactivateProduct(ctx context.Context, id int64) error {
	ok, err := cs.store.DeactivateProduct(ctx, id)
	if err != nil {
		return persistenceErr("failed to deactivate product", err)
	}
	if !ok {
		return notFoundErr("product %d not found", id)
	}
	return nil
}

// ListCategories retrieves all categories
func (cs *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := cs.store.ListCategories(ctx)
	if err != nil {
		return nil, persistenceErr("failed to list categories", err)
	}
	return categories, nil
}

// CreateCategory adds a category
func (cs *CatalogService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationErr("category name is required")
	}

	category := &models.Category{Name: name}
	if err := cs.store.CreateCategory(ctx, category); err != nil {
		return nil, persistenceErr("failed to create category", err)
	}
	return category, nil
}

// UpdateCategory renames a category
func (cs *CatalogService) UpdateCategory(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return validationErr("category name is required")
	}

	ok, err := cs.store.UpdateCategory(ctx, id, name)
	if err != nil {
		return persistenceErr("failed to update category", err)
	}
	if !ok {
		return notFoundErr("category %d not found", id)
	}
	return nil
}
