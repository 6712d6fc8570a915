package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/flicky/luxbag-api/internal/model"
)

type productDoc struct {
	ID          string               `bson:"_id"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Price       primitive.Decimal128 `bson:"price"`
	Brand       string               `bson:"brand"`
	Category    string               `bson:"category"`
	Material    string               `bson:"material"`
	Color       string               `bson:"color"`
	Stock       int                  `bson:"stock"`
	Images      []model.Image        `bson:"images"`
	Rating      float64              `bson:"rating"`
	NumReviews  int                  `bson:"numReviews"`
	IsFeatured  bool                 `bson:"isFeatured"`
	Dimensions  *model.Dimensions    `bson:"dimensions,omitempty"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

func newProductDoc(p *model.Product) (productDoc, error) {
	price, err := toDecimal128(p.Price)
	if err != nil {
		return productDoc{}, err
	}
	images := p.Images
	if images == nil {
		images = []model.Image{}
	}
	return productDoc{
		ID: p.ID.String(), Name: p.Name, Description: p.Description, Price: price,
		Brand: p.Brand, Category: string(p.Category), Material: string(p.Material), Color: p.Color,
		Stock: p.Stock, Images: images, Rating: p.Rating, NumReviews: p.NumReviews,
		IsFeatured: p.IsFeatured, Dimensions: p.Dimensions, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}, nil
}

func (d productDoc) toModel() (model.Product, error) {
	price, err := fromDecimal128(d.Price)
	if err != nil {
		return model.Product{}, fmt.Errorf("product %s: %w", d.ID, err)
	}
	images := d.Images
	if images == nil {
		images = []model.Image{}
	}
	return model.Product{
		ID: parseID(d.ID), Name: d.Name, Description: d.Description, Price: price,
		Brand: d.Brand, Category: model.Category(d.Category), Material: model.Material(d.Material),
		Color: d.Color, Stock: d.Stock, Images: images, Rating: d.Rating, NumReviews: d.NumReviews,
		IsFeatured: d.IsFeatured, Dimensions: d.Dimensions, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}, nil
}

var mongoProductSorts = map[string]bson.D{
	SortNewest:    {{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}},
	SortOldest:    {{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}},
	SortPriceAsc:  {{Key: "price", Value: 1}, {Key: "_id", Value: 1}},
	SortPriceDesc: {{Key: "price", Value: -1}, {Key: "_id", Value: 1}},
	SortName:      {{Key: "name", Value: 1}, {Key: "_id", Value: 1}},
}

type mongoProductRepo struct{ coll *mongo.Collection }

func NewMongoProductRepository(db *mongo.Database) ProductRepository {
	return &mongoProductRepo{coll: db.Collection(productsCollection)}
}

func (r *mongoProductRepo) find(ctx context.Context, filter any, opts ...*options.FindOptions) ([]model.Product, error) {
	cursor, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var docs []productDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	products := make([]model.Product, 0, len(docs))
	for _, d := range docs {
		p, err := d.toModel()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (r *mongoProductRepo) Create(ctx context.Context, product *model.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	now := time.Now().UTC()
	product.CreatedAt, product.UpdatedAt = now, now
	doc, err := newProductDoc(product)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *mongoProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var doc productDoc
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id.String()}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	p, err := doc.toModel()
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

func (r *mongoProductRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}
	products, err := r.find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: idStrings(ids)}}}})
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	return products, nil
}

func productFilterDoc(f ProductFilter) (bson.D, error) {
	filter := bson.D{}
	if f.Search != "" {
		filter = append(filter, bson.E{Key: "$text", Value: bson.D{{Key: "$search", Value: f.Search}}})
	}
	if f.Category != "" {
		filter = append(filter, bson.E{Key: "category", Value: f.Category})
	}
	if f.Brand != "" {
		filter = append(filter, bson.E{Key: "brand", Value: f.Brand})
	}
	if f.Material != "" {
		filter = append(filter, bson.E{Key: "material", Value: f.Material})
	}
	if f.Color != "" {
		filter = append(filter, bson.E{Key: "color", Value: primitive.Regex{Pattern: regexp.QuoteMeta(f.Color), Options: "i"}})
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.D{}
		if f.MinPrice != nil {
			lo, err := toDecimal128(*f.MinPrice)
			if err != nil {
				return nil, err
			}
			price = append(price, bson.E{Key: "$gte", Value: lo})
		}
		if f.MaxPrice != nil {
			hi, err := toDecimal128(*f.MaxPrice)
			if err != nil {
				return nil, err
			}
			price = append(price, bson.E{Key: "$lte", Value: hi})
		}
		filter = append(filter, bson.E{Key: "price", Value: price})
	}
	return filter, nil
}

func (r *mongoProductRepo) List(ctx context.Context, f ProductFilter) ([]model.Product, int64, error) {
	filter, err := productFilterDoc(f)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	sort, ok := mongoProductSorts[f.Sort]
	if !ok {
		sort = mongoProductSorts[SortNewest]
	}
	opts := options.Find().SetSort(sort).SetSkip(int64(f.Offset)).SetLimit(int64(f.Limit))
	products, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

func (r *mongoProductRepo) ListFeatured(ctx context.Context, limit int) ([]model.Product, error) {
	opts := options.Find().SetSort(mongoProductSorts[SortNewest]).SetLimit(int64(limit))
	products, err := r.find(ctx, bson.D{{Key: "isFeatured", Value: true}}, opts)
	if err != nil {
		return nil, fmt.Errorf("list featured products: %w", err)
	}
	return products, nil
}

func (r *mongoProductRepo) ListLowStock(ctx context.Context, threshold, limit int) ([]model.Product, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "stock", Value: 1}, {Key: "name", Value: 1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.D{{Key: "name", Value: 1}, {Key: "brand", Value: 1}, {Key: "stock", Value: 1}})
	products, err := r.find(ctx, bson.D{{Key: "stock", Value: bson.D{{Key: "$lt", Value: threshold}}}}, opts)
	if err != nil {
		return nil, fmt.Errorf("list low stock products: %w", err)
	}
	return products, nil
}

func (r *mongoProductRepo) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func (r *mongoProductRepo) Update(ctx context.Context, product *model.Product) error {
	product.UpdatedAt = time.Now().UTC()
	doc, err := newProductDoc(product)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: doc.Name},
		{Key: "description", Value: doc.Description},
		{Key: "price", Value: doc.Price},
		{Key: "brand", Value: doc.Brand},
		{Key: "category", Value: doc.Category},
		{Key: "material", Value: doc.Material},
		{Key: "color", Value: doc.Color},
		{Key: "stock", Value: doc.Stock},
		{Key: "images", Value: doc.Images},
		{Key: "rating", Value: doc.Rating},
		{Key: "numReviews", Value: doc.NumReviews},
		{Key: "isFeatured", Value: doc.IsFeatured},
		{Key: "dimensions", Value: doc.Dimensions},
		{Key: "updatedAt", Value: doc.UpdatedAt},
	}}}
	result, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: doc.ID}}, update)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoProductRepo) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	filter := bson.D{
		{Key: "_id", Value: id.String()},
		{Key: "stock", Value: bson.D{{Key: "$gte", Value: quantity}}},
	}
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "stock", Value: -quantity}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}},
	}
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (r *mongoProductRepo) IncrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "stock", Value: quantity}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}},
	}
	result, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id.String()}}, update)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
