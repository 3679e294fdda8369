// Package lookup caches hospital and doctor names for autocomplete. Values are
// loaded from the record store once per type and kept in sync on Add/Remove.
package lookup

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/stokapp/stok/internal/domain/lookups"
	"github.com/stokapp/stok/internal/store"
)

type Cache struct {
	repo store.Lookups

	mu     sync.Mutex
	values map[lookups.Type][]lookups.Value
}

func New(repo store.Lookups) *Cache {
	return &Cache{repo: repo, values: map[lookups.Type][]lookups.Value{}}
}

func (c *Cache) load(ctx context.Context, t lookups.Type) ([]lookups.Value, error) {
	if vals, ok := c.values[t]; ok {
		return vals, nil
	}
	vals, err := c.repo.List(ctx, t)
	if err != nil {
		return nil, err
	}
	c.values[t] = vals
	return vals, nil
}

// GetValues returns distinct values of type t containing filter
// (case-insensitive), alphabetically.
func (c *Cache) GetValues(ctx context.Context, t lookups.Type, filter string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	vals, err := c.load(ctx, t)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(filter))
	seen := map[string]bool{}
	out := []string{}
	for _, v := range vals {
		key := strings.ToLower(v.Value)
		if seen[key] || (needle != "" && !strings.Contains(key, needle)) {
			continue
		}
		seen[key] = true
		out = append(out, v.Value)
	}
	sort.Strings(out)
	return out, nil
}

// Add stores value unless an equal one (case-insensitive) exists. Blank
// values are ignored. Reports whether a new value was stored.
func (c *Cache) Add(ctx context.Context, t lookups.Type, value string) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	vals, err := c.load(ctx, t)
	if err != nil {
		return false, err
	}
	for _, v := range vals {
		if strings.EqualFold(v.Value, value) {
			return false, nil
		}
	}
	v := lookups.Value{ID: uuid.NewString(), Type: t, Value: value}
	if err := c.repo.Insert(ctx, &v); err != nil {
		return false, err
	}
	c.values[t] = append(vals, v)
	return true, nil
}

func (c *Cache) Remove(ctx context.Context, t lookups.Type, value string) error {
	value = strings.TrimSpace(value)
	c.mu.Lock()
	defer c.mu.Unlock()
	vals, err := c.load(ctx, t)
	if err != nil {
		return err
	}
	kept := vals[:0:0]
	for _, v := range vals {
		if strings.EqualFold(v.Value, value) {
			if err := c.repo.Delete(ctx, v.ID); err != nil {
				return err
			}
			continue
		}
		kept = append(kept, v)
	}
	c.values[t] = kept
	return nil
}
