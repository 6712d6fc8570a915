package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/flicky/luxbag-api/internal/model"
)

var (
	testPool  *pgxpool.Pool
	testMongo *mongo.Database
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect to test database: %v\n", err)
			os.Exit(1)
		}
		if err := Migrate(ctx, pool); err != nil {
			fmt.Fprintf(os.Stderr, "failed to migrate test database: %v\n", err)
			os.Exit(1)
		}
		testPool = pool
	}

	if uri := os.Getenv("TEST_MONGO_URI"); uri != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect to test mongo: %v\n", err)
			os.Exit(1)
		}
		testMongo = client.Database("luxbag_test")
		if err := EnsureIndexes(ctx, testMongo); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create mongo indexes: %v\n", err)
			os.Exit(1)
		}
	}

	code := m.Run()

	if testPool != nil {
		testPool.Close()
	}
	if testMongo != nil {
		_ = testMongo.Client().Disconnect(ctx)
	}
	os.Exit(code)
}

func cleanupTable(t *testing.T, tables ...string) {
	t.Helper()
	for _, table := range tables {
		_, err := testPool.Exec(context.Background(), fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Fatalf("failed to cleanup table %s: %v", table, err)
		}
	}
}

func cleanupCollections(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		if _, err := testMongo.Collection(name).DeleteMany(context.Background(), bson.D{}); err != nil {
			t.Fatalf("failed to cleanup collection %s: %v", name, err)
		}
	}
}

// storeCase runs the same behavioural checks against every configured store.
type storeCase struct {
	name  string
	repos func(t *testing.T) Repositories
}

func stores() []storeCase {
	return []storeCase{
		{"memory", func(*testing.T) Repositories { return newMemRepos() }},
		{"postgres", func(t *testing.T) Repositories {
			if testPool == nil {
				t.Skip("TEST_DATABASE_URL not set, skipping postgres integration test")
			}
			cleanupTable(t, "order_items", "orders", "cart_items", "carts", "products", "users")
			return NewPostgresRepositories(testPool)
		}},
		{"mongo", func(t *testing.T) Repositories {
			if testMongo == nil {
				t.Skip("TEST_MONGO_URI not set, skipping mongo integration test")
			}
			cleanupCollections(t, ordersCollection, cartsCollection, productsCollection, usersCollection)
			return NewMongoRepositories(testMongo)
		}},
	}
}

func TestProductRepo_CRUD(t *testing.T) {
	for _, sc := range stores() {
		t.Run(sc.name, func(t *testing.T) {
			repos := sc.repos(t)
			ctx := context.Background()

			p := &model.Product{
				Name: "Lady Dior", Description: "Cannage stitched tote", Price: decimal.RequireFromString("5200.50"),
				Brand: "Dior", Category: model.CategoryHandbag, Material: model.MaterialLeather, Color: "Black",
				Stock: 4, Images: []model.Image{{URL: "/uploads/a.jpg", PublicID: "a.jpg"}},
				Dimensions: &model.Dimensions{Length: 24, Width: 11, Height: 20},
			}
			require.NoError(t, repos.Products.Create(ctx, p))
			assert.NotEqual(t, uuid.Nil, p.ID)

			found, err := repos.Products.GetByID(ctx, p.ID)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, "Lady Dior", found.Name)
			assert.True(t, p.Price.Equal(found.Price))
			assert.Equal(t, p.Images, found.Images)
			require.NotNil(t, found.Dimensions)
			assert.Equal(t, 20.0, found.Dimensions.Height)

			found.Stock = 0
			found.IsFeatured = true
			require.NoError(t, repos.Products.Update(ctx, found))
			updated, _ := repos.Products.GetByID(ctx, p.ID)
			assert.Equal(t, 0, updated.Stock)
			assert.True(t, updated.IsFeatured)

			featured, err := repos.Products.ListFeatured(ctx, 8)
			require.NoError(t, err)
			assert.Len(t, featured, 1)

			require.NoError(t, repos.Products.Delete(ctx, p.ID))
			deleted, err := repos.Products.GetByID(ctx, p.ID)
			require.NoError(t, err)
			assert.Nil(t, deleted)
			assert.ErrorIs(t, repos.Products.Delete(ctx, p.ID), ErrNotFound)
		})
	}
}

func TestProductRepo_ConditionalDecrement(t *testing.T) {
	for _, sc := range stores() {
		t.Run(sc.name, func(t *testing.T) {
			repos := sc.repos(t)
			ctx := context.Background()
			p := seedProduct(t, repos.Products, "Jackie", 3100, 2)

			require.NoError(t, repos.Products.DecrementStock(ctx, p.ID, 2))
			assert.ErrorIs(t, repos.Products.DecrementStock(ctx, p.ID, 1), ErrInsufficientStock)
			require.NoError(t, repos.Products.IncrementStock(ctx, p.ID, 1))

			found, _ := repos.Products.GetByID(ctx, p.ID)
			assert.Equal(t, 1, found.Stock)
		})
	}
}

func TestCartRepo_SaveAndReload(t *testing.T) {
	for _, sc := range stores() {
		t.Run(sc.name, func(t *testing.T) {
			repos := sc.repos(t)
			ctx := context.Background()

			user := &model.User{Name: "Cart Owner", Email: "cart@example.com", Password: "h", Role: model.RoleUser}
			require.NoError(t, repos.Users.Create(ctx, user))

			cart, err := repos.Carts.GetOrCreate(ctx, user.ID)
			require.NoError(t, err)
			assert.Empty(t, cart.Items)

			cart.Items = append(cart.Items,
				model.CartItem{ProductID: uuid.New(), Quantity: 2, Price: decimal.NewFromInt(2500)},
				model.CartItem{ProductID: uuid.New(), Quantity: 1, Price: decimal.RequireFromString("10.25")},
			)
			cart.RecalculateTotals()
			require.NoError(t, repos.Carts.Save(ctx, cart))

			reloaded, err := repos.Carts.GetByUserID(ctx, user.ID)
			require.NoError(t, err)
			require.Len(t, reloaded.Items, 2)
			assert.Equal(t, cart.Items[0].ID, reloaded.Items[0].ID)
			assert.True(t, decimal.RequireFromString("5010.25").Equal(reloaded.TotalPrice))
			assert.Equal(t, 3, reloaded.TotalItems)

			reloaded.Clear()
			require.NoError(t, repos.Carts.Save(ctx, reloaded))
			emptied, _ := repos.Carts.GetOrCreate(ctx, user.ID)
			assert.Equal(t, cart.ID, emptied.ID)
			assert.Empty(t, emptied.Items)
		})
	}
}

func TestOrderRepo_CreateAndStatus(t *testing.T) {
	for _, sc := range stores() {
		t.Run(sc.name, func(t *testing.T) {
			repos := sc.repos(t)
			ctx := context.Background()
			userID := uuid.New()

			order := &model.Order{
				OrderNumber: "01HZX0000000000000000000AA", UserID: userID,
				Items: []model.OrderItem{
					{ProductID: uuid.New(), Name: "Kelly", Quantity: 1, Price: decimal.NewFromInt(9000), Image: "/uploads/k.jpg"},
				},
				ShippingAddress: model.Address{Street: "1 Rue", City: "Paris", Country: "FR"},
				PaymentMethod:   model.DefaultPaymentMethod,
				ItemsPrice:      decimal.NewFromInt(9000),
				ShippingPrice:   decimal.Zero,
				TaxPrice:        decimal.NewFromInt(1620),
				TotalPrice:      decimal.NewFromInt(10620),
				Status:          model.OrderStatusProcessing,
				PaymentStatus:   model.PaymentStatusPending,
			}
			require.NoError(t, repos.Orders.Create(ctx, order))

			found, err := repos.Orders.GetByID(ctx, order.ID)
			require.NoError(t, err)
			require.NotNil(t, found)
			require.Len(t, found.Items, 1)
			assert.Equal(t, "Kelly", found.Items[0].Name)
			assert.Equal(t, "Paris", found.ShippingAddress.City)
			assert.Nil(t, found.DeliveredAt)

			delivered := time.Now().UTC().Truncate(time.Millisecond)
			found.Status = model.OrderStatusDelivered
			found.PaymentStatus = model.PaymentStatusPaid
			found.DeliveredAt = &delivered
			require.NoError(t, repos.Orders.UpdateStatus(ctx, found))

			mine, err := repos.Orders.ListByUserID(ctx, userID)
			require.NoError(t, err)
			require.Len(t, mine, 1)
			assert.Equal(t, model.OrderStatusDelivered, mine[0].Status)
			require.NotNil(t, mine[0].DeliveredAt)

			revenue, err := repos.Orders.SumTotalByStatus(ctx, model.OrderStatusDelivered)
			require.NoError(t, err)
			assert.True(t, decimal.NewFromInt(10620).Equal(revenue))

			missing := &model.Order{ID: uuid.New(), Status: model.OrderStatusShipped}
			assert.ErrorIs(t, repos.Orders.UpdateStatus(ctx, missing), ErrNotFound)
		})
	}
}

func TestUserRepo_CreateAndGetByEmail(t *testing.T) {
	for _, sc := range stores() {
		t.Run(sc.name, func(t *testing.T) {
			repos := sc.repos(t)
			ctx := context.Background()

			user := &model.User{
				Name: "Jane", Email: "jane@example.com", Password: "hashed", Role: model.RoleUser,
				Addresses: []model.Address{{Street: "5th Ave", City: "New York", IsDefault: true}},
			}
			require.NoError(t, repos.Users.Create(ctx, user))
			assert.NotEqual(t, uuid.Nil, user.ID)

			found, err := repos.Users.GetByEmail(ctx, "jane@example.com")
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, user.ID, found.ID)
			assert.Equal(t, user.Addresses, found.Addresses)

			dup := &model.User{Name: "Other", Email: "jane@example.com", Password: "x", Role: model.RoleUser}
			assert.ErrorIs(t, repos.Users.Create(ctx, dup), ErrDuplicate)

			none, err := repos.Users.GetByEmail(ctx, "nobody@example.com")
			require.NoError(t, err)
			assert.Nil(t, none)
		})
	}
}
