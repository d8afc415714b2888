package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	domainlistings "stayengine/internal/domain/listings"
)

// Catalog is an in-memory property catalog, usually seeded from a fixtures file.
type Catalog struct {
	mu    sync.RWMutex
	items map[domainlistings.PropertyID]domainlistings.Property
}

func NewCatalog() *Catalog {
	return &Catalog{items: make(map[domainlistings.PropertyID]domainlistings.Property)}
}

// Property returns a copy so callers cannot edit the catalog entry.
func (c *Catalog) Property(ctx context.Context, id domainlistings.PropertyID) (*domainlistings.Property, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domainlistings.ErrPropertyNotFound, id)
	}
	return &p, nil
}

func (c *Catalog) Put(p domainlistings.Property) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("property %s: %w", p.ID, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[p.ID] = p
	return nil
}

func (c *Catalog) IDs() []domainlistings.PropertyID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]domainlistings.PropertyID, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// LoadFixtures reads a JSON array of properties. A missing file loads nothing.
func LoadFixtures(path string) ([]domainlistings.Property, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var props []domainlistings.Property
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	return props, nil
}

var _ domainlistings.Catalog = (*Catalog)(nil)
