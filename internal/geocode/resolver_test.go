package geocode

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/movitrak/avl/internal/models"
)

type fakeBackend struct {
	calls   int
	results map[string]*models.Geolocation
	err     error
}

func (f *fakeBackend) ReverseGeocode(ctx context.Context, lat, lon float64) (*models.Geolocation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	key := fmt.Sprintf("%.5f,%.5f", lat, lon)
	if info, ok := f.results[key]; ok {
		return info, nil
	}
	return &models.Geolocation{Address: "Calle 1", City: "Bogota", Department: "Cundinamarca"}, nil
}

func newResolver(t *testing.T, backend Backend, capacity int) *Resolver {
	t.Helper()
	r, err := NewResolver(backend, capacity, zap.NewNop())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r
}

func TestResolveCachesByRoundedCoordinates(t *testing.T) {
	backend := &fakeBackend{}
	r := newResolver(t, backend, 16)

	first := r.Resolve(context.Background(), 4.60971, -74.08175)
	second := r.Resolve(context.Background(), 4.60971, -74.08175)

	if backend.calls != 1 {
		t.Fatalf("backend called %d times, want 1", backend.calls)
	}
	if first != second {
		t.Errorf("cached resolve returned a different value")
	}

	// Within rounding precision the cache entry is shared.
	r.Resolve(context.Background(), 4.609712, -74.081748)
	if backend.calls != 1 {
		t.Errorf("sub-precision variation hit the backend, calls = %d", backend.calls)
	}
}

func TestResolveBackendFailureDegradesToSentinel(t *testing.T) {
	backend := &fakeBackend{err: errors.New("connection refused")}
	r := newResolver(t, backend, 16)

	info := r.Resolve(context.Background(), 4.6, -74.08)
	if info.Address != models.NotAvailable || info.City != models.NotAvailable || info.Department != models.NotAvailable {
		t.Errorf("expected sentinel geolocation, got %+v", info)
	}
	if info.Valid() {
		t.Errorf("sentinel result reported as valid")
	}
}

func TestResolveEmptyResultDegradesToSentinel(t *testing.T) {
	backend := &fakeBackend{results: map[string]*models.Geolocation{
		"4.60000,-74.08000": {Address: "", City: "", Department: ""},
	}}
	r := newResolver(t, backend, 16)

	info := r.Resolve(context.Background(), 4.6, -74.08)
	if info.Address != models.NotAvailable {
		t.Errorf("expected sentinel address, got %q", info.Address)
	}
}

func TestResolveLRUEviction(t *testing.T) {
	backend := &fakeBackend{}
	r := newResolver(t, backend, 2)

	ctx := context.Background()
	r.Resolve(ctx, 1, 1) // A
	r.Resolve(ctx, 2, 2) // B
	r.Resolve(ctx, 1, 1) // touch A, B is now least recently used
	r.Resolve(ctx, 3, 3) // C evicts B

	calls := backend.calls
	r.Resolve(ctx, 1, 1) // still cached
	r.Resolve(ctx, 3, 3) // still cached
	if backend.calls != calls {
		t.Fatalf("expected A and C cached, backend calls went %d -> %d", calls, backend.calls)
	}

	r.Resolve(ctx, 2, 2) // B was evicted, must hit the backend
	if backend.calls != calls+1 {
		t.Errorf("expected evicted entry to hit backend once, calls = %d", backend.calls)
	}
	if r.CacheLen() != 2 {
		t.Errorf("cache len = %d, want 2", r.CacheLen())
	}
}
