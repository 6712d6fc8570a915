package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/flicky/luxbag-api/internal/apperror"
	"github.com/flicky/luxbag-api/internal/dto"
	"github.com/flicky/luxbag-api/internal/model"
	"github.com/flicky/luxbag-api/internal/repository"
	"github.com/flicky/luxbag-api/internal/storage"
	"github.com/flicky/luxbag-api/internal/telemetry"
)

const (
	defaultPageSize  = 12
	maxPageSize      = 100
	featuredProducts = 8
)

var (
	ErrProductNotFound    = apperror.New(apperror.NotFound, "Product not found")
	ErrInvalidPriceFilter = apperror.New(apperror.InvalidArgument, "Invalid price filter")
	ErrProductNameMissing = apperror.New(apperror.InvalidArgument, "Please add product name")
	ErrProductNameTooLong = apperror.New(apperror.InvalidArgument, "Product name cannot exceed 100 characters")
	ErrDescriptionMissing = apperror.New(apperror.InvalidArgument, "Please add product description")
	ErrDescriptionTooLong = apperror.New(apperror.InvalidArgument, "Description cannot exceed 2000 characters")
	ErrPriceMissing       = apperror.New(apperror.InvalidArgument, "Please add product price")
	ErrNegativePrice      = apperror.New(apperror.InvalidArgument, "Price cannot be negative")
	ErrPriceOutOfRange    = apperror.New(apperror.InvalidArgument, "Price must be below 10000000000 with at most 2 decimal places")
	ErrBrandMissing       = apperror.New(apperror.InvalidArgument, "Please add brand name")
	ErrCategoryMissing    = apperror.New(apperror.InvalidArgument, "Please add category")
	ErrInvalidCategory    = apperror.New(apperror.InvalidArgument, "Invalid category")
	ErrMaterialMissing    = apperror.New(apperror.InvalidArgument, "Please add material")
	ErrInvalidMaterial    = apperror.New(apperror.InvalidArgument, "Invalid material")
	ErrColorMissing       = apperror.New(apperror.InvalidArgument, "Please add color")
	ErrNegativeStock      = apperror.New(apperror.InvalidArgument, "Stock cannot be negative")
	ErrNegativeDimension  = apperror.New(apperror.InvalidArgument, "Dimensions cannot be negative")
)

// ProductPage is one page of a catalog listing.
type ProductPage struct {
	Products   []model.Product
	Total      int64
	TotalPages int
	Page       int
	Limit      int
}

type ProductService struct {
	productRepo repository.ProductRepository
	images      storage.ImageStore
	redisClient *redis.Client
	cacheTTL    time.Duration
	log         *slog.Logger
}

// NewProductService builds the catalog service. redisClient may be nil, which
// disables the read-through cache.
func NewProductService(productRepo repository.ProductRepository, images storage.ImageStore, redisClient *redis.Client, cacheTTL time.Duration, log *slog.Logger) *ProductService {
	return &ProductService{
		productRepo: productRepo,
		images:      images,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
		log:         log,
	}
}

func cacheKey(id uuid.UUID) string { return "product:" + id.String() }

func (s *ProductService) List(ctx context.Context, req dto.ListProductsRequest) (*ProductPage, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	filter := repository.ProductFilter{
		Search:   strings.TrimSpace(req.Search),
		Category: req.Category,
		Brand:    req.Brand,
		Material: req.Material,
		Color:    req.Color,
		Sort:     normalizeSort(req.Sort),
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}
	var err error
	if filter.MinPrice, err = parsePrice(req.MinPrice); err != nil {
		return nil, err
	}
	if filter.MaxPrice, err = parsePrice(req.MaxPrice); err != nil {
		return nil, err
	}

	products, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return &ProductPage{
		Products:   products,
		Total:      total,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
		Page:       page,
		Limit:      limit,
	}, nil
}

func normalizeSort(sort string) string {
	switch sort {
	case repository.SortOldest, repository.SortPriceAsc, repository.SortPriceDesc, repository.SortName:
		return sort
	default:
		return repository.SortNewest
	}
}

func parsePrice(raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, ErrInvalidPriceFilter.Wrap(err)
	}
	if !model.PriceFits(d) {
		return nil, ErrInvalidPriceFilter
	}
	return &d, nil
}

func checkPrice(d decimal.Decimal) error {
	if d.IsNegative() {
		return ErrNegativePrice
	}
	if !model.PriceFits(d) {
		return ErrPriceOutOfRange
	}
	return nil
}

func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey(id)).Bytes(); err == nil {
			var product model.Product
			if json.Unmarshal(cached, &product) == nil {
				telemetry.ProductCacheLookups.WithLabelValues("hit").Inc()
				return &product, nil
			}
		}
		telemetry.ProductCacheLookups.WithLabelValues("miss").Inc()
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if s.redisClient != nil {
		if data, err := json.Marshal(product); err == nil {
			if err := s.redisClient.Set(ctx, cacheKey(id), data, s.cacheTTL).Err(); err != nil {
				s.log.WarnContext(ctx, "cache product", "product_id", id, "error", err)
			}
		}
	}
	return product, nil
}

func (s *ProductService) Featured(ctx context.Context) ([]model.Product, error) {
	products, err := s.productRepo.ListFeatured(ctx, featuredProducts)
	if err != nil {
		return nil, fmt.Errorf("list featured products: %w", err)
	}
	return products, nil
}

func (s *ProductService) Create(ctx context.Context, req dto.ProductRequest, uploads []storage.Upload) (*model.Product, error) {
	if err := storage.Validate(uploads); err != nil {
		return nil, err
	}

	product := &model.Product{Images: []model.Image{}}
	if err := applyRequired(product, req); err != nil {
		return nil, err
	}
	if err := applyOptional(product, req); err != nil {
		return nil, err
	}

	saved, err := s.saveImages(ctx, uploads)
	if err != nil {
		return nil, err
	}
	product.Images = append(product.Images, saved...)

	if err := s.productRepo.Create(ctx, product); err != nil {
		s.removeImages(ctx, saved)
		return nil, fmt.Errorf("create product: %w", err)
	}
	return product, nil
}

// Update applies a partial change. Text fields change only when non-empty;
// price, stock and isFeatured change whenever they are present. Uploaded
// images are appended to the existing ones.
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req dto.ProductRequest, uploads []storage.Upload) (*model.Product, error) {
	if err := storage.Validate(uploads); err != nil {
		return nil, err
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if v := trimmed(req.Name); v != "" {
		if utf8.RuneCountInString(v) > model.MaxProductNameLength {
			return nil, ErrProductNameTooLong
		}
		product.Name = v
	}
	if v := trimmed(req.Description); v != "" {
		if utf8.RuneCountInString(v) > model.MaxProductDescriptionLength {
			return nil, ErrDescriptionTooLong
		}
		product.Description = v
	}
	if v := trimmed(req.Brand); v != "" {
		product.Brand = v
	}
	if v := trimmed(req.Category); v != "" {
		if !model.Category(v).Valid() {
			return nil, ErrInvalidCategory
		}
		product.Category = model.Category(v)
	}
	if v := trimmed(req.Material); v != "" {
		if !model.Material(v).Valid() {
			return nil, ErrInvalidMaterial
		}
		product.Material = model.Material(v)
	}
	if v := trimmed(req.Color); v != "" {
		product.Color = v
	}
	if req.Price != nil {
		if err := checkPrice(*req.Price); err != nil {
			return nil, err
		}
		product.Price = *req.Price
	}
	if err := applyOptional(product, req); err != nil {
		return nil, err
	}

	saved, err := s.saveImages(ctx, uploads)
	if err != nil {
		return nil, err
	}
	product.Images = append(product.Images, saved...)

	if err := s.productRepo.Update(ctx, product); err != nil {
		s.removeImages(ctx, saved)
		return nil, fmt.Errorf("update product: %w", err)
	}
	s.InvalidateCache(ctx, id)
	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return ErrProductNotFound
	}

	s.removeImages(ctx, product.Images)
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.InvalidateCache(ctx, id)
	return nil
}

// InvalidateCache drops the cached entries of the given products.
func (s *ProductService) InvalidateCache(ctx context.Context, ids ...uuid.UUID) {
	if s.redisClient == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, cacheKey(id))
	}
	if err := s.redisClient.Del(ctx, keys...).Err(); err != nil {
		s.log.WarnContext(ctx, "invalidate product cache", "keys", keys, "error", err)
	}
}

func (s *ProductService) saveImages(ctx context.Context, uploads []storage.Upload) ([]model.Image, error) {
	saved := make([]model.Image, 0, len(uploads))
	for _, u := range uploads {
		img, err := s.images.Save(ctx, u)
		if err != nil {
			s.removeImages(ctx, saved)
			return nil, fmt.Errorf("save image %s: %w", u.Filename, err)
		}
		saved = append(saved, img)
	}
	return saved, nil
}

func (s *ProductService) removeImages(ctx context.Context, images []model.Image) {
	for _, img := range images {
		if err := s.images.Delete(ctx, img.PublicID); err != nil {
			s.log.WarnContext(ctx, "delete product image", "public_id", img.PublicID, "error", err)
		}
	}
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func applyRequired(p *model.Product, req dto.ProductRequest) error {
	p.Name = trimmed(req.Name)
	switch {
	case p.Name == "":
		return ErrProductNameMissing
	case utf8.RuneCountInString(p.Name) > model.MaxProductNameLength:
		return ErrProductNameTooLong
	}

	p.Description = trimmed(req.Description)
	switch {
	case p.Description == "":
		return ErrDescriptionMissing
	case utf8.RuneCountInString(p.Description) > model.MaxProductDescriptionLength:
		return ErrDescriptionTooLong
	}

	if req.Price == nil {
		return ErrPriceMissing
	}
	if err := checkPrice(*req.Price); err != nil {
		return err
	}
	p.Price = *req.Price

	if p.Brand = trimmed(req.Brand); p.Brand == "" {
		return ErrBrandMissing
	}

	category := trimmed(req.Category)
	if category == "" {
		return ErrCategoryMissing
	}
	if p.Category = model.Category(category); !p.Category.Valid() {
		return ErrInvalidCategory
	}

	material := trimmed(req.Material)
	if material == "" {
		return ErrMaterialMissing
	}
	if p.Material = model.Material(material); !p.Material.Valid() {
		return ErrInvalidMaterial
	}

	if p.Color = trimmed(req.Color); p.Color == "" {
		return ErrColorMissing
	}
	return nil
}

// applyOptional sets stock, isFeatured and dimensions when present.
func applyOptional(p *model.Product, req dto.ProductRequest) error {
	if req.Stock != nil {
		if *req.Stock < 0 {
			return ErrNegativeStock
		}
		p.Stock = *req.Stock
	}
	if req.IsFeatured != nil {
		p.IsFeatured = *req.IsFeatured
	}
	if d := req.Dimensions; d != nil && (d.Length != 0 || d.Width != 0 || d.Height != 0) {
		if d.Length < 0 || d.Width < 0 || d.Height < 0 {
			return ErrNegativeDimension
		}
		dims := *d
		p.Dimensions = &dims
	}
	return nil
}
