package predcache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/nbserve/internal/db"
	"github.com/kailas-cloud/nbserve/internal/domain"
)

func TestKey_Layout(t *testing.T) {
	c, _ := newTestCache(t)

	key := c.Key("great product")
	if !strings.HasPrefix(key, "nbserve:pred:abc123:") {
		t.Fatalf("unexpected key prefix: %q", key)
	}
	if len(key) != len("nbserve:pred:abc123:")+64 {
		t.Fatalf("expected sha256 hex suffix, got %q", key)
	}
	if c.Key("great product") != key {
		t.Fatal("key must be deterministic")
	}
	if c.Key("bad product") == key {
		t.Fatal("different texts must map to different keys")
	}
}

func TestKey_FingerprintNamespaces(t *testing.T) {
	a := New(&mockKVStore{}, Options{Prefix: "x:", Fingerprint: "v1"}, nil, nil)
	b := New(&mockKVStore{}, Options{Prefix: "x:", Fingerprint: "v2"}, nil, nil)
	if a.Key("text") == b.Key("text") {
		t.Fatal("keys must differ across model fingerprints")
	}
}

func TestGet_Miss(t *testing.T) {
	c, _ := newTestCache(t)

	if _, ok := c.Get(context.Background(), "great product"); ok {
		t.Fatal("expected miss")
	}
}

func TestPutThenGet_StringLabel(t *testing.T) {
	c, ms := newTestCache(t)
	ctx := context.Background()

	var stored []byte
	var storedTTL time.Duration
	ms.setFn = func(_ context.Context, _ string, value []byte, ttl time.Duration) error {
		stored, storedTTL = value, ttl
		return nil
	}
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		if stored == nil {
			return nil, db.ErrKeyNotFound
		}
		return stored, nil
	}

	c.Put(ctx, "great product", domain.Prediction{Label: "pos", Class: 1})
	if storedTTL != time.Minute {
		t.Fatalf("expected ttl=1m, got %v", storedTTL)
	}

	got, ok := c.Get(ctx, "great product")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Label != "pos" || got.Class != 1 {
		t.Fatalf("unexpected prediction: %+v", got)
	}
}

func TestGet_NumericLabelKeepsWireForm(t *testing.T) {
	c, ms := newTestCache(t)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return []byte(`{"label":4,"class":2}`), nil
	}

	got, ok := c.Get(context.Background(), "text")
	if !ok {
		t.Fatal("expected hit")
	}
	out, err := json.Marshal(got.Label)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "4" {
		t.Fatalf("expected label to re-encode as 4, got %s", out)
	}
}

func TestGet_CorruptEntryIsMiss(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	ms := &mockKVStore{getFn: func(_ context.Context, _ string) ([]byte, error) {
		return []byte("not json"), nil
	}}
	c := New(ms, Options{}, nil, zap.New(core))

	if _, ok := c.Get(context.Background(), "text"); ok {
		t.Fatal("expected miss on corrupt entry")
	}
	if logs.FilterMessage("Failed to parse cached prediction").Len() != 1 {
		t.Fatalf("expected parse warning, got %v", logs.All())
	}
}

func TestGet_StoreErrorIsMissAndLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	ms := &mockKVStore{getFn: func(_ context.Context, _ string) ([]byte, error) {
		return nil, errors.New("connection refused")
	}}
	c := New(ms, Options{}, nil, zap.New(core))

	if _, ok := c.Get(context.Background(), "text"); ok {
		t.Fatal("expected miss on store error")
	}
	if logs.FilterMessage("Failed to get cached prediction").Len() != 1 {
		t.Fatalf("expected warning, got %v", logs.All())
	}
}

func TestGet_NotFoundNotLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c := New(&mockKVStore{}, Options{}, nil, zap.New(core))

	c.Get(context.Background(), "text")
	if logs.Len() != 0 {
		t.Fatalf("expected no logs for plain miss, got %v", logs.All())
	}
}

func TestPut_StoreErrorSwallowed(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	ms := &mockKVStore{setFn: func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
		return errors.New("READONLY")
	}}
	c := New(ms, Options{}, nil, zap.New(core))

	c.Put(context.Background(), "text", domain.Prediction{Label: "pos"})
	if logs.FilterMessage("Failed to cache prediction").Len() != 1 {
		t.Fatalf("expected warning, got %v", logs.All())
	}
}

func TestCacheCounter(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
	ms := &mockKVStore{}
	c := New(ms, Options{}, counter, nil)
	ctx := context.Background()

	c.Get(ctx, "a")
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return []byte(`{"label":"pos","class":0}`), nil
	}
	c.Get(ctx, "a")
	c.Get(ctx, "b")

	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("miss = %v, want 1", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 2 {
		t.Errorf("hit = %v, want 2", got)
	}
}
