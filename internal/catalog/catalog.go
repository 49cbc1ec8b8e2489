// Package catalog loads the item reference file that maps Albion item ids to
// display names and narrows it to the tiers being scanned.
package catalog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Catalog is an ordered id → display name mapping. Order is the order in
// which ids first appear in the reference file.
type Catalog struct {
	ids   []string
	names map[string]string
}

// New creates an empty catalog
func New() *Catalog {
	return &Catalog{names: make(map[string]string)}
}

// Load reads a reference file such as items.txt
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open item catalog: %w", err)
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("read item catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse reads "ordinal:identifier:display name" lines. Lines that do not
// split into exactly three fields are skipped.
func Parse(r io.Reader) (*Catalog, error) {
	c := New()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		parts := strings.Split(strings.TrimSpace(scanner.Text()), ":")
		if len(parts) != 3 {
			continue
		}
		c.Add(strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2]))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return c, nil
}

// Add sets the name for id. A repeated id keeps its original position.
func (c *Catalog) Add(id, name string) {
	if _, exists := c.names[id]; !exists {
		c.ids = append(c.ids, id)
	}
	c.names[id] = name
}

// Name returns the display name for a base item id
func (c *Catalog) Name(id string) (string, bool) {
	name, ok := c.names[id]
	return name, ok
}

// IDs returns the item ids in catalog order
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// Len returns the number of items
func (c *Catalog) Len() int {
	return len(c.ids)
}

// FilterByTiers returns the items whose id starts with any of the tier
// prefixes, e.g. "T6", "T7", "T8".
func (c *Catalog) FilterByTiers(tiers []string) *Catalog {
	out := New()
	for _, id := range c.ids {
		for _, tier := range tiers {
			if strings.HasPrefix(id, tier) {
				out.Add(id, c.names[id])
				break
			}
		}
	}
	return out
}
