package patent

import (
	"context"

	"github.com/kailas-cloud/patsim/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hgetAllFn      func(ctx context.Context, key string) (map[string]string, error)
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	hsetMultiFn    func(ctx context.Context, items []db.HashSetItem) error
	sunionFn       func(ctx context.Context, keys ...string) ([]string, error)
	saddMultiFn    func(ctx context.Context, items []db.SetAddItem) error
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return make([]map[string]string, len(keys)), nil
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) SUnion(ctx context.Context, keys ...string) ([]string, error) {
	if m.sunionFn != nil {
		return m.sunionFn(ctx, keys...)
	}
	return nil, nil
}

func (m *mockStore) SAddMulti(ctx context.Context, items []db.SetAddItem) error {
	if m.saddMultiFn != nil {
		return m.saddMultiFn(ctx, items)
	}
	return nil
}

// memStore is an in-memory hash+set store for import/query round trips.
type memStore struct {
	mockStore
	hashes map[string]map[string]string
	sets   map[string]map[string]struct{}
}

func newMemStore() *memStore {
	m := &memStore{
		hashes: make(map[string]map[string]string),
		sets:   make(map[string]map[string]struct{}),
	}
	m.hgetAllFn = func(_ context.Context, key string) (map[string]string, error) {
		return copyMap(m.hashes[key]), nil
	}
	m.hgetAllMultiFn = func(_ context.Context, keys []string) ([]map[string]string, error) {
		out := make([]map[string]string, len(keys))
		for i, k := range keys {
			out[i] = copyMap(m.hashes[k])
		}
		return out, nil
	}
	m.hsetMultiFn = func(_ context.Context, items []db.HashSetItem) error {
		for _, it := range items {
			m.hashes[it.Key] = copyMap(it.Fields)
		}
		return nil
	}
	m.sunionFn = func(_ context.Context, keys ...string) ([]string, error) {
		seen := make(map[string]struct{})
		var out []string
		for _, k := range keys {
			for member := range m.sets[k] {
				if _, ok := seen[member]; !ok {
					seen[member] = struct{}{}
					out = append(out, member)
				}
			}
		}
		return out, nil
	}
	m.saddMultiFn = func(_ context.Context, items []db.SetAddItem) error {
		for _, it := range items {
			if m.sets[it.Key] == nil {
				m.sets[it.Key] = make(map[string]struct{})
			}
			for _, member := range it.Members {
				m.sets[it.Key][member] = struct{}{}
			}
		}
		return nil
	}
	return m
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
