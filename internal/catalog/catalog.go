package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed products.yaml
var defaultProducts []byte

// ErrProductNotFound is returned when an id does not match any catalog product.
var ErrProductNotFound = errors.New("product not found")

const (
	// PageSize is the number of products per listing page.
	PageSize = 12

	// CategoryAll disables category filtering.
	CategoryAll = "all"

	// DefaultMaxPrice is the upper bound of the search price filter when none is given.
	DefaultMaxPrice int64 = 10000

	relatedLimit = 4
)

// Sort orders accepted by List and Search.
const (
	SortRelevance = "relevance"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
	SortNewest    = "newest"
	SortDiscount  = "discount"
	SortName      = "name"
)

// Product is a catalog entry. Prices are whole rupees.
type Product struct {
	ID            string   `yaml:"id" json:"id"`
	Name          string   `yaml:"name" json:"name"`
	Brand         string   `yaml:"brand" json:"brand"`
	Price         int64    `yaml:"price" json:"price"`
	OriginalPrice int64    `yaml:"originalPrice" json:"originalPrice"`
	Discount      int      `yaml:"discount" json:"discount"`
	Image         string   `yaml:"image" json:"image"`
	Category      string   `yaml:"category" json:"category"`
	Description   string   `yaml:"description" json:"description"`
	Sizes         []string `yaml:"sizes" json:"sizes"`
	Colors        []string `yaml:"colors" json:"colors"`
	Features      []string `yaml:"features" json:"features"`
}

type document struct {
	Products []Product `yaml:"products"`
}

// ListInput filters and pages the product listing.
type ListInput struct {
	Category string
	Sort     string
	Page     int
}

// ListResult is one page of the product listing.
type ListResult struct {
	Products   []Product `json:"products"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	Total      int       `json:"total"`
	TotalPages int       `json:"totalPages"`
}

// SearchInput describes a free text product search. Nil price bounds use the defaults.
type SearchInput struct {
	Query    string
	Category string
	MinPrice *int64
	MaxPrice *int64
	Sort     string
}

// Catalog is an immutable, in-memory product table.
type Catalog struct {
	products   []Product
	byID       map[string]int
	categories []string
}

// Default loads the catalog bundled with the binary.
func Default() (*Catalog, error) {
	return Load(defaultProducts)
}

// Load parses a YAML product document.
func Load(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := &Catalog{byID: make(map[string]int, len(doc.Products))}
	seen := map[string]bool{}
	for i, p := range doc.Products {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, fmt.Errorf("catalog product %d: id is required", i)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("catalog product %s: duplicate id", p.ID)
		}
		if p.Price <= 0 {
			return nil, fmt.Errorf("catalog product %s: price must be positive", p.ID)
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
		if !seen[p.Category] {
			seen[p.Category] = true
			c.categories = append(c.categories, p.Category)
		}
	}
	return c, nil
}

// Categories returns the distinct product categories in catalog order.
func (c *Catalog) Categories() []string {
	out := make([]string, len(c.categories))
	copy(out, c.categories)
	return out
}

// Get returns a product by id.
func (c *Catalog) Get(id string) (*Product, error) {
	idx, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return nil, ErrProductNotFound
	}
	p := c.products[idx]
	return &p, nil
}

// Related returns up to four other products from the same category.
func (c *Catalog) Related(id string) ([]Product, error) {
	product, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	related := make([]Product, 0, relatedLimit)
	for _, p := range c.products {
		if p.ID == product.ID || p.Category != product.Category {
			continue
		}
		related = append(related, p)
		if len(related) == relatedLimit {
			break
		}
	}
	return related, nil
}

// List returns one page of products in the given category and order.
func (c *Catalog) List(input ListInput) ListResult {
	filtered := c.filter(func(p Product) bool {
		return matchesCategory(p, input.Category)
	})
	sortProducts(filtered, input.Sort)

	page := input.Page
	if page < 1 {
		page = 1
	}
	total := len(filtered)
	totalPages := (total + PageSize - 1) / PageSize
	start := (page - 1) * PageSize
	if start > total {
		start = total
	}
	end := start + PageSize
	if end > total {
		end = total
	}
	return ListResult{
		Products:   filtered[start:end],
		Page:       page,
		PageSize:   PageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}

// Search matches the query against name, description and category, case-insensitively.
// An empty query yields no results.
func (c *Catalog) Search(input SearchInput) []Product {
	query := strings.ToLower(strings.TrimSpace(input.Query))
	if query == "" {
		return []Product{}
	}
	minPrice := int64(0)
	if input.MinPrice != nil {
		minPrice = *input.MinPrice
	}
	maxPrice := DefaultMaxPrice
	if input.MaxPrice != nil {
		maxPrice = *input.MaxPrice
	}

	results := c.filter(func(p Product) bool {
		if !matchesCategory(p, input.Category) {
			return false
		}
		if p.Price < minPrice || p.Price > maxPrice {
			return false
		}
		return strings.Contains(strings.ToLower(p.Name), query) ||
			strings.Contains(strings.ToLower(p.Description), query) ||
			strings.Contains(strings.ToLower(p.Category), query)
	})
	sortProducts(results, input.Sort)
	return results
}

func (c *Catalog) filter(keep func(Product) bool) []Product {
	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func matchesCategory(p Product, category string) bool {
	category = strings.TrimSpace(category)
	return category == "" || strings.EqualFold(category, CategoryAll) || p.Category == category
}

// sortProducts orders in place; unknown orders and relevance keep catalog order.
func sortProducts(products []Product, order string) {
	switch order {
	case SortPriceLow:
		sort.SliceStable(products, func(i, j int) bool { return products[i].Price < products[j].Price })
	case SortPriceHigh:
		sort.SliceStable(products, func(i, j int) bool { return products[i].Price > products[j].Price })
	case SortDiscount:
		sort.SliceStable(products, func(i, j int) bool { return products[i].Discount > products[j].Discount })
	case SortName:
		sort.SliceStable(products, func(i, j int) bool {
			return strings.ToLower(products[i].Name) < strings.ToLower(products[j].Name)
		})
	case SortNewest:
		sort.SliceStable(products, func(i, j int) bool { return newerID(products[i].ID, products[j].ID) })
	}
}

func newerID(a, b string) bool {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	if aErr == nil && bErr == nil {
		return ai > bi
	}
	return a > b
}
