package inventory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Medicine is one row of the inventory file.
type Medicine struct {
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"countInStock"`
	Shelf        string          `json:"shelfLocation"`
	Manufacturer string          `json:"manufacturer"`
	Use          string          `json:"use"`
}

const unknownShelf = "N/A"

var columns = map[string]string{
	"name":          "name",
	"price":         "price",
	"countinstock":  "stock",
	"shelf/rack no": "shelf",
	"manufacture":   "manufacturer",
	"use":           "use",
}

// Catalog is an in-memory view of the inventory file.
type Catalog struct {
	mu      sync.RWMutex
	path    string
	items   []Medicine
	byName  map[string]int
	skipped int
}

// LoadCSV reads the inventory file at path.
func LoadCSV(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Parse builds a catalog from CSV content with a header row.
func Parse(r io.Reader) (*Catalog, error) {
	c := &Catalog{}
	if err := c.load(r); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the file the catalog was loaded from.
func (c *Catalog) Reload() error {
	if c.path == "" {
		return errors.New("inventory: catalog has no source file")
	}
	f, err := os.Open(c.path)
	if err != nil {
		return fmt.Errorf("inventory: open %s: %w", c.path, err)
	}
	defer f.Close()
	return c.load(f)
}

func (c *Catalog) load(r io.Reader) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("inventory: read header: %w", err)
	}
	pos := map[string]int{}
	for i, h := range header {
		if field, ok := columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))]; ok {
			pos[field] = i
		}
	}
	if _, ok := pos["name"]; !ok {
		return errors.New("inventory: header has no name column")
	}

	var items []Medicine
	byName := map[string]int{}
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("inventory: read row: %w", err)
		}
		m, ok := toMedicine(record, pos)
		if !ok {
			skipped++
			continue
		}
		if _, dup := byName[m.Name]; dup {
			continue
		}
		byName[m.Name] = len(items)
		items = append(items, m)
	}

	c.mu.Lock()
	c.items, c.byName, c.skipped = items, byName, skipped
	c.mu.Unlock()
	return nil
}

func toMedicine(record []string, pos map[string]int) (Medicine, bool) {
	get := func(field string) string {
		i, ok := pos[field]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	m := Medicine{
		Name:         get("name"),
		Shelf:        get("shelf"),
		Manufacturer: get("manufacturer"),
		Use:          get("use"),
	}
	if m.Name == "" {
		return Medicine{}, false
	}
	price, err := decimal.NewFromString(get("price"))
	if err != nil || price.IsNegative() {
		return Medicine{}, false
	}
	m.Price = price
	if raw := get("stock"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			m.Stock = n
		}
	}
	if m.Shelf == "" {
		m.Shelf = unknownShelf
	}
	return m, true
}

// FindByName returns the medicine with exactly this name.
func (c *Catalog) FindByName(_ context.Context, name string) (Medicine, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byName[name]
	if !ok {
		return Medicine{}, false, nil
	}
	return c.items[i], true, nil
}

// Search returns medicines whose name contains any of the terms, case-insensitively.
// Terms may be separated by commas or newlines.
func (c *Catalog) Search(_ context.Context, query string) []Medicine {
	terms := SplitTerms(query)
	if len(terms) == 0 {
		return []Medicine{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []Medicine{}
	for _, m := range c.items {
		name := strings.ToLower(m.Name)
		for _, term := range terms {
			if strings.Contains(name, term) {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// All returns every loaded medicine in file order.
func (c *Catalog) All(_ context.Context) []Medicine {
	return c.filter(func(Medicine) bool { return true })
}

// ByManufacturer returns medicines from one manufacturer.
func (c *Catalog) ByManufacturer(_ context.Context, manufacturer string) []Medicine {
	return c.filter(func(m Medicine) bool { return strings.EqualFold(m.Manufacturer, strings.TrimSpace(manufacturer)) })
}

// ByUse returns medicines in one usage category.
func (c *Catalog) ByUse(_ context.Context, use string) []Medicine {
	return c.filter(func(m Medicine) bool { return strings.EqualFold(m.Use, strings.TrimSpace(use)) })
}

func (c *Catalog) filter(keep func(Medicine) bool) []Medicine {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []Medicine{}
	for _, m := range c.items {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

// Len reports loaded medicines and rows skipped for a missing name or bad price.
func (c *Catalog) Len() (loaded, skipped int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items), c.skipped
}

// SplitTerms lowercases a search query and splits it on commas and newlines.
func SplitTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool { return r == ',' || r == '\n' })
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := strings.TrimSpace(f); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}
