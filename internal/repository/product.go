package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/luxbag-api/internal/model"
)

const productColumns = `id, name, description, price, brand, category, material, color, stock,
	images, rating, num_reviews, is_featured, dimensions, created_at, updated_at`

var pgProductSorts = map[string]string{
	SortNewest:    "created_at DESC",
	SortOldest:    "created_at ASC",
	SortPriceAsc:  "price ASC",
	SortPriceDesc: "price DESC",
	SortName:      "name ASC",
}

type pgProductRepo struct{ pool *pgxpool.Pool }

func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &pgProductRepo{pool: pool}
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	p := &model.Product{}
	var category, material string
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Brand, &category, &material, &p.Color, &p.Stock,
		&p.Images, &p.Rating, &p.NumReviews, &p.IsFeatured, &p.Dimensions, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Category = model.Category(category)
	p.Material = model.Material(material)
	if p.Images == nil {
		p.Images = []model.Image{}
	}
	return p, nil
}

func collectProducts(rows pgx.Rows) ([]model.Product, error) {
	defer rows.Close()
	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (r *pgProductRepo) Create(ctx context.Context, product *model.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if product.Images == nil {
		product.Images = []model.Image{}
	}
	query := `INSERT INTO products (id, name, description, price, brand, category, material, color, stock,
				images, rating, num_reviews, is_featured, dimensions, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
			  RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		product.ID, product.Name, product.Description, product.Price, product.Brand,
		string(product.Category), string(product.Material), product.Color, product.Stock,
		product.Images, product.Rating, product.NumReviews, product.IsFeatured, product.Dimensions,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *pgProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *pgProductRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	return collectProducts(rows)
}

func (r *pgProductRepo) List(ctx context.Context, f ProductFilter) ([]model.Product, int64, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Search != "" {
		add("search @@ plainto_tsquery('english', $%d)", f.Search)
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.Brand != "" {
		add("brand = $%d", f.Brand)
	}
	if f.Material != "" {
		add("material = $%d", f.Material)
	}
	if f.Color != "" {
		add("color ILIKE '%%' || $%d || '%%'", f.Color)
	}
	if f.MinPrice != nil {
		add("price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("price <= $%d", *f.MaxPrice)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	orderBy, ok := pgProductSorts[f.Sort]
	if !ok {
		orderBy = pgProductSorts[SortNewest]
	}
	query := fmt.Sprintf(`SELECT %s FROM products%s ORDER BY %s, id LIMIT $%d OFFSET $%d`,
		productColumns, where, orderBy, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *pgProductRepo) ListFeatured(ctx context.Context, limit int) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE is_featured ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list featured products: %w", err)
	}
	return collectProducts(rows)
}

func (r *pgProductRepo) ListLowStock(ctx context.Context, threshold, limit int) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE stock < $1 ORDER BY stock ASC, name ASC LIMIT $2`,
		threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("list low stock products: %w", err)
	}
	return collectProducts(rows)
}

func (r *pgProductRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func (r *pgProductRepo) Update(ctx context.Context, product *model.Product) error {
	query := `UPDATE products SET name=$2, description=$3, price=$4, brand=$5, category=$6, material=$7,
				color=$8, stock=$9, images=$10, rating=$11, num_reviews=$12, is_featured=$13, dimensions=$14,
				updated_at=NOW()
			  WHERE id=$1 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		product.ID, product.Name, product.Description, product.Price, product.Brand,
		string(product.Category), string(product.Material), product.Color, product.Stock,
		product.Images, product.Rating, product.NumReviews, product.IsFeatured, product.Dimensions,
	).Scan(&product.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (r *pgProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgProductRepo) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1 AND stock >= $2`,
		id, quantity,
	)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (r *pgProductRepo) IncrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`, id, quantity,
	)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
