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

type orderItemDoc struct {
	ProductID string               `bson:"product"`
	Name      string               `bson:"name"`
	Quantity  int                  `bson:"quantity"`
	Price     primitive.Decimal128 `bson:"price"`
	Image     string               `bson:"image"`
}

type orderDoc struct {
	ID              string               `bson:"_id"`
	OrderNumber     string               `bson:"orderNumber"`
	UserID          string               `bson:"user"`
	Items           []orderItemDoc       `bson:"orderItems"`
	ShippingAddress model.Address        `bson:"shippingAddress"`
	PaymentMethod   string               `bson:"paymentMethod"`
	PaymentResult   *model.PaymentResult `bson:"paymentResult,omitempty"`
	ItemsPrice      primitive.Decimal128 `bson:"itemsPrice"`
	ShippingPrice   primitive.Decimal128 `bson:"shippingPrice"`
	TaxPrice        primitive.Decimal128 `bson:"taxPrice"`
	TotalPrice      primitive.Decimal128 `bson:"totalPrice"`
	Status          string               `bson:"orderStatus"`
	PaymentStatus   string               `bson:"paymentStatus"`
	DeliveredAt     *time.Time           `bson:"deliveredAt,omitempty"`
	CreatedAt       time.Time            `bson:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt"`
}

func newOrderDoc(o *model.Order) (orderDoc, error) {
	items := make([]orderItemDoc, 0, len(o.Items))
	for _, it := range o.Items {
		price, err := toDecimal128(it.Price)
		if err != nil {
			return orderDoc{}, err
		}
		items = append(items, orderItemDoc{
			ProductID: it.ProductID.String(), Name: it.Name, Quantity: it.Quantity, Price: price, Image: it.Image,
		})
	}
	var totals [4]primitive.Decimal128
	for i, d := range []decimal.Decimal{o.ItemsPrice, o.ShippingPrice, o.TaxPrice, o.TotalPrice} {
		v, err := toDecimal128(d)
		if err != nil {
			return orderDoc{}, err
		}
		totals[i] = v
	}
	return orderDoc{
		ID: o.ID.String(), OrderNumber: o.OrderNumber, UserID: o.UserID.String(), Items: items,
		ShippingAddress: o.ShippingAddress, PaymentMethod: o.PaymentMethod, PaymentResult: o.PaymentResult,
		ItemsPrice: totals[0], ShippingPrice: totals[1], TaxPrice: totals[2], TotalPrice: totals[3],
		Status: string(o.Status), PaymentStatus: string(o.PaymentStatus), DeliveredAt: o.DeliveredAt,
		CreatedAt: o.CreatedAt, UpdatedAt: o.UpdatedAt,
	}, nil
}

func (d orderDoc) toModel() (model.Order, error) {
	items := make([]model.OrderItem, 0, len(d.Items))
	for _, it := range d.Items {
		price, err := fromDecimal128(it.Price)
		if err != nil {
			return model.Order{}, fmt.Errorf("order %s: %w", d.ID, err)
		}
		items = append(items, model.OrderItem{
			ProductID: parseID(it.ProductID), Name: it.Name, Quantity: it.Quantity, Price: price, Image: it.Image,
		})
	}
	var totals [4]decimal.Decimal
	for i, v := range []primitive.Decimal128{d.ItemsPrice, d.ShippingPrice, d.TaxPrice, d.TotalPrice} {
		dec, err := fromDecimal128(v)
		if err != nil {
			return model.Order{}, fmt.Errorf("order %s: %w", d.ID, err)
		}
		totals[i] = dec
	}
	return model.Order{
		ID: parseID(d.ID), OrderNumber: d.OrderNumber, UserID: parseID(d.UserID), Items: items,
		ShippingAddress: d.ShippingAddress, PaymentMethod: d.PaymentMethod, PaymentResult: d.PaymentResult,
		ItemsPrice: totals[0], ShippingPrice: totals[1], TaxPrice: totals[2], TotalPrice: totals[3],
		Status: model.OrderStatus(d.Status), PaymentStatus: model.PaymentStatus(d.PaymentStatus),
		DeliveredAt: d.DeliveredAt, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}, nil
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}

type mongoOrderRepo struct{ coll *mongo.Collection }

func NewMongoOrderRepository(db *mongo.Database) OrderRepository {
	return &mongoOrderRepo{coll: db.Collection(ordersCollection)}
}

func (r *mongoOrderRepo) Create(ctx context.Context, order *model.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	now := time.Now().UTC()
	order.CreatedAt, order.UpdatedAt = now, now
	doc, err := newOrderDoc(order)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *mongoOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var doc orderDoc
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id.String()}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	o, err := doc.toModel()
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &o, nil
}

func (r *mongoOrderRepo) find(ctx context.Context, filter any, opts *options.FindOptions) ([]model.Order, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	var docs []orderDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	orders := make([]model.Order, 0, len(docs))
	for _, d := range docs {
		o, err := d.toModel()
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (r *mongoOrderRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return r.find(ctx, bson.D{{Key: "user", Value: userID.String()}}, options.Find().SetSort(newestFirst))
}

func (r *mongoOrderRepo) ListAll(ctx context.Context) ([]model.Order, error) {
	return r.find(ctx, bson.D{}, options.Find().SetSort(newestFirst))
}

func (r *mongoOrderRepo) ListRecent(ctx context.Context, limit int) ([]model.Order, error) {
	return r.find(ctx, bson.D{}, options.Find().SetSort(newestFirst).SetLimit(int64(limit)))
}

func (r *mongoOrderRepo) UpdateStatus(ctx context.Context, order *model.Order) error {
	order.UpdatedAt = time.Now().UTC()
	set := bson.D{
		{Key: "orderStatus", Value: string(order.Status)},
		{Key: "paymentStatus", Value: string(order.PaymentStatus)},
		{Key: "updatedAt", Value: order.UpdatedAt},
	}
	if order.DeliveredAt != nil {
		set = append(set, bson.E{Key: "deliveredAt", Value: *order.DeliveredAt})
	}
	result, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: order.ID.String()}}, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoOrderRepo) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

func (r *mongoOrderRepo) CountByStatus(ctx context.Context) ([]model.StatusCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$orderStatus"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("count orders by status: %w", err)
	}
	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode status counts: %w", err)
	}
	counts := make([]model.StatusCount, 0, len(rows))
	for _, row := range rows {
		counts = append(counts, model.StatusCount{Status: model.OrderStatus(row.Status), Count: row.Count})
	}
	return counts, nil
}

func (r *mongoOrderRepo) SumTotalByStatus(ctx context.Context, status model.OrderStatus) (decimal.Decimal, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "orderStatus", Value: string(status)}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$totalPrice"}}},
		}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum order totals: %w", err)
	}
	var rows []struct {
		Total primitive.Decimal128 `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return decimal.Zero, fmt.Errorf("decode order totals: %w", err)
	}
	if len(rows) == 0 {
		return decimal.Zero, nil
	}
	total, err := fromDecimal128(rows[0].Total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum order totals: %w", err)
	}
	return total, nil
}
