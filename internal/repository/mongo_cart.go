package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/flicky/luxbag-api/internal/model"
)

type cartItemDoc struct {
	ID        string               `bson:"_id"`
	ProductID string               `bson:"product"`
	Quantity  int                  `bson:"quantity"`
	Price     primitive.Decimal128 `bson:"price"`
}

type cartDoc struct {
	ID         string               `bson:"_id"`
	UserID     string               `bson:"userId"`
	Items      []cartItemDoc        `bson:"items"`
	TotalPrice primitive.Decimal128 `bson:"totalPrice"`
	TotalItems int                  `bson:"totalItems"`
	CreatedAt  time.Time            `bson:"createdAt"`
	UpdatedAt  time.Time            `bson:"updatedAt"`
}

func (d cartDoc) toModel() (*model.Cart, error) {
	total, err := fromDecimal128(d.TotalPrice)
	if err != nil {
		return nil, fmt.Errorf("cart %s: %w", d.ID, err)
	}
	cart := &model.Cart{
		ID: parseID(d.ID), UserID: parseID(d.UserID), Items: make([]model.CartItem, 0, len(d.Items)),
		TotalPrice: total, TotalItems: d.TotalItems, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
	for _, it := range d.Items {
		price, err := fromDecimal128(it.Price)
		if err != nil {
			return nil, fmt.Errorf("cart %s: %w", d.ID, err)
		}
		cart.Items = append(cart.Items, model.CartItem{
			ID: parseID(it.ID), ProductID: parseID(it.ProductID), Quantity: it.Quantity, Price: price,
		})
	}
	return cart, nil
}

type mongoCartRepo struct{ coll *mongo.Collection }

func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepo{coll: db.Collection(cartsCollection)}
}

func (r *mongoCartRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	var doc cartDoc
	err := r.coll.FindOne(ctx, bson.D{{Key: "userId", Value: userID.String()}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return doc.toModel()
}

// GetOrCreate upserts on the unique userId index so concurrent first requests
// converge on a single cart.
func (r *mongoCartRepo) GetOrCreate(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	zero, err := toDecimal128(decimal.Zero)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	update := bson.D{{Key: "$setOnInsert", Value: bson.D{
		{Key: "_id", Value: uuid.NewString()},
		{Key: "items", Value: bson.A{}},
		{Key: "totalPrice", Value: zero},
		{Key: "totalItems", Value: 0},
		{Key: "createdAt", Value: now},
		{Key: "updatedAt", Value: now},
	}}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc cartDoc
	err = r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "userId", Value: userID.String()}}, update, opts).Decode(&doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return r.GetByUserID(ctx, userID)
		}
		return nil, fmt.Errorf("get or create cart: %w", err)
	}
	return doc.toModel()
}

func (r *mongoCartRepo) Save(ctx context.Context, cart *model.Cart) error {
	items := make([]cartItemDoc, 0, len(cart.Items))
	for i := range cart.Items {
		item := &cart.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		price, err := toDecimal128(item.Price)
		if err != nil {
			return fmt.Errorf("save cart: %w", err)
		}
		items = append(items, cartItemDoc{
			ID: item.ID.String(), ProductID: item.ProductID.String(), Quantity: item.Quantity, Price: price,
		})
	}
	total, err := toDecimal128(cart.TotalPrice)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	cart.UpdatedAt = time.Now().UTC()
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "items", Value: items},
		{Key: "totalPrice", Value: total},
		{Key: "totalItems", Value: cart.TotalItems},
		{Key: "updatedAt", Value: cart.UpdatedAt},
	}}}
	result, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: cart.ID.String()}}, update)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
