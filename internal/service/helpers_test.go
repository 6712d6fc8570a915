package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/flicky/luxbag-api/internal/events"
	"github.com/flicky/luxbag-api/internal/model"
	"github.com/flicky/luxbag-api/internal/repository"
	"github.com/flicky/luxbag-api/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRepos() repository.Repositories {
	return repository.NewMemoryRepositories(repository.NewMemoryStore())
}

func seedProduct(t *testing.T, repo repository.ProductRepository, name string, price int64, stock int) *model.Product {
	t.Helper()
	p := &model.Product{
		Name: name, Description: name + " in grained calfskin", Price: decimal.NewFromInt(price),
		Brand: "Maison", Category: model.CategoryHandbag, Material: model.MaterialLeather,
		Color: "Black", Stock: stock,
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func seedUser(t *testing.T, repo repository.UserRepository, email string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{Name: "User " + email, Email: email, Password: "x", Role: role}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeImageStore struct {
	saved   []model.Image
	deleted []string
}

func (f *fakeImageStore) Save(_ context.Context, u storage.Upload) (model.Image, error) {
	img := model.Image{URL: "/uploads/" + u.Filename, PublicID: u.Filename}
	f.saved = append(f.saved, img)
	return img, nil
}

func (f *fakeImageStore) Delete(_ context.Context, publicID string) error {
	f.deleted = append(f.deleted, publicID)
	return nil
}

func jpeg(name string) storage.Upload {
	return storage.Upload{
		Filename:    name,
		ContentType: "image/jpeg",
		Size:        1024,
		Open:        func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("jpeg")), nil },
	}
}
