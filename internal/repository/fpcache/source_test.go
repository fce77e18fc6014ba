package fpcache

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/patsim/internal/db"
	"github.com/kailas-cloud/patsim/internal/domain"
	"github.com/kailas-cloud/patsim/internal/domain/fingerprint"
)

func TestReference_CacheMiss(t *testing.T) {
	inner := &mockSource{fp: fingerprint.Fingerprint{0.1, 0.2, 0.3}}
	cs, ms := newTestCachedSource(t, inner, time.Hour)
	ctx := context.Background()

	var setKey string
	var setTTL time.Duration
	ms.setWithTTLFn = func(_ context.Context, key string, _ []byte, ttl time.Duration) error {
		setKey, setTTL = key, ttl
		return nil
	}

	fp, err := cs.Reference(ctx, "JP-1-A", "JP")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(fp, inner.fp) {
		t.Fatalf("unexpected fingerprint: %v", fp)
	}
	if setKey != "patsim:fp_cache:JP:JP-1-A" || setTTL != time.Hour {
		t.Errorf("cache put key=%q ttl=%v", setKey, setTTL)
	}
}

func TestReference_CacheHit(t *testing.T) {
	inner := &mockSource{fp: fingerprint.Fingerprint{0.1, 0.2, 0.3}}
	cs, ms := newTestCachedSource(t, inner, time.Hour)

	cached := fingerprint.Fingerprint{0.4, 0.5, 0.6}
	ms.getFn = func(context.Context, string) ([]byte, error) { return cached.Bytes(), nil }

	fp, err := cs.Reference(context.Background(), "JP-1-A", "JP")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(fp, cached) {
		t.Fatalf("expected cached fingerprint, got %v", fp)
	}
	if inner.calls != 0 {
		t.Errorf("inner source called on cache hit")
	}
}

func TestReference_InnerError(t *testing.T) {
	inner := &mockSource{err: domain.ErrReferenceNotFound}
	cs, ms := newTestCachedSource(t, inner, 0)

	ms.setFn = func(context.Context, string, []byte) error {
		t.Fatal("must not cache on error")
		return nil
	}

	_, err := cs.Reference(context.Background(), "JP-1-A", "JP")
	if !errors.Is(err, domain.ErrReferenceNotFound) {
		t.Fatalf("expected ErrReferenceNotFound, got %v", err)
	}
}

func TestReference_CacheFailuresAreNotFatal(t *testing.T) {
	inner := &mockSource{fp: fingerprint.Fingerprint{1, 2}}
	cs, ms := newTestCachedSource(t, inner, 0)

	ms.getFn = func(context.Context, string) ([]byte, error) {
		return nil, &db.Error{Op: db.OpGet, Err: errors.New("connection reset")}
	}
	var setCalled bool
	ms.setFn = func(context.Context, string, []byte) error {
		setCalled = true
		return &db.Error{Op: db.OpSet, Err: errors.New("READONLY")}
	}

	fp, err := cs.Reference(context.Background(), "JP-1-A", "JP")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(fp, inner.fp) || !setCalled {
		t.Errorf("fp=%v setCalled=%v", fp, setCalled)
	}
}

func TestReference_CorruptEntryFallsThrough(t *testing.T) {
	inner := &mockSource{fp: fingerprint.Fingerprint{1, 2}}
	cs, ms := newTestCachedSource(t, inner, 0)
	ms.getFn = func(context.Context, string) ([]byte, error) { return []byte("xyz"), nil }

	if _, err := cs.Reference(context.Background(), "JP-1-A", "JP"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected inner call on corrupt entry, got %d", inner.calls)
	}
}

func TestReference_Metrics(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_fp_cache_total"}, []string{"result"})
	ms := &mockKVStore{}
	cs := New(&mockSource{fp: fingerprint.Fingerprint{1}}, ms, "patsim:", 0, counter, zap.NewNop())

	_, _ = cs.Reference(context.Background(), "JP-1-A", "JP")
	ms.getFn = func(context.Context, string) ([]byte, error) { return fingerprint.Fingerprint{1}.Bytes(), nil }
	_, _ = cs.Reference(context.Background(), "JP-1-A", "JP")

	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("miss = %f", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 1 {
		t.Errorf("hit = %f", got)
	}
}
