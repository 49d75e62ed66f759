package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"gorm.io/gorm"

	"inmuebles_backend/internal/model"
	"inmuebles_backend/internal/store"
	"inmuebles_backend/pkg/cache"
)

const (
	optionsCacheKey  = "property_filter_options"
	resultsIndexKey  = "property_filter_cache_keys"
	maxOptionAddress = 10
)

// FilterEngine serves the catalog from the local database.
type FilterEngine struct {
	db         *gorm.DB
	locations  *store.LocationStore
	cache      cache.Store
	resultTTL  time.Duration
	optionsTTL time.Duration
	now        func() time.Time
}

func NewFilterEngine(db *gorm.DB, locations *store.LocationStore, c cache.Store, resultTTL, optionsTTL time.Duration) *FilterEngine {
	return &FilterEngine{
		db:         db,
		locations:  locations,
		cache:      c,
		resultTTL:  resultTTL,
		optionsTTL: optionsTTL,
		now:        time.Now,
	}
}

// ApplyFilters returns one page of public properties matching c. The page is
// cached for the result TTL with no write invalidation; filter options are
// cached separately.
func (e *FilterEngine) ApplyFilters(ctx context.Context, c Criteria) (*Listing, error) {
	key := c.CacheKey()
	pg, err := cache.Remember(ctx, e.cache, key, e.resultTTL, func() (page, error) {
		return e.query(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	if err := e.cache.AddToIndex(ctx, resultsIndexKey, key, e.resultTTL); err != nil {
		log.Printf("cache: index %s: %v", key, err)
	}

	opts, err := e.FilterOptions(ctx)
	if err != nil {
		return nil, err
	}

	return &Listing{
		Items:         pg.Items,
		Pagination:    pg.Pagination,
		FilterOptions: opts,
		Filters:       c.Applied,
	}, nil
}

func (e *FilterEngine) Search(ctx context.Context, c Criteria) (*Listing, error) {
	return e.ApplyFilters(ctx, c)
}

func (e *FilterEngine) query(ctx context.Context, c Criteria) (page, error) {
	q, err := e.scope(ctx, c)
	if err != nil {
		return page{}, err
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return page{}, fmt.Errorf("counting properties: %w", err)
	}

	pagination := NewPagination(total, c.Page, c.PerPage)
	items := []Item{}
	if pagination.From == nil {
		return page{Items: items, Pagination: pagination}, nil
	}

	var props []model.Property
	err = withRelations(q).
		Order(orderClause(c.Sort)).
		Offset(c.offset()).
		Limit(c.PerPage).
		Find(&props).Error
	if err != nil {
		return page{}, fmt.Errorf("loading properties: %w", err)
	}

	now := e.now()
	for i := range props {
		items = append(items, itemFromProperty(&props[i], now))
	}
	return page{Items: items, Pagination: pagination}, nil
}

// scope builds the reusable WHERE part of a search.
func (e *FilterEngine) scope(ctx context.Context, c Criteria) (*gorm.DB, error) {
	q := e.db.WithContext(ctx).Model(&model.Property{}).Where("properties.is_public = ?", true)

	if len(c.Categories) > 0 {
		// non-numeric tokens are dropped; none left means nothing matches
		ids := make([]uint64, 0, len(c.Categories))
		for _, token := range c.Categories {
			if id, err := strconv.ParseUint(token, 10, 64); err == nil {
				ids = append(ids, id)
			}
		}
		q = q.Where("properties.category_id IN ?", ids)
	}
	if len(c.Operations) > 0 {
		q = q.Where("properties.operation IN ?", c.Operations)
	}

	lower, upper := c.PriceBounds()
	for _, l := range lower {
		q = q.Where("properties.price >= ?", l)
	}
	for _, u := range upper {
		q = q.Where("properties.price <= ?", u)
	}

	for column, value := range map[string]*int{
		"rooms":     c.Rooms,
		"bedrooms":  c.Bedrooms,
		"bathrooms": c.Bathrooms,
		"garages":   c.Garages,
	} {
		if value != nil {
			q = q.Where("properties."+column+" = ?", *value)
		}
	}

	if c.BuiltMin != nil {
		q = q.Where("properties.built_area >= ?", *c.BuiltMin)
	}
	if c.BuiltMax != nil {
		q = q.Where("properties.built_area <= ?", *c.BuiltMax)
	}
	if c.UsableMin != nil {
		q = q.Where("properties.usable_area >= ?", *c.UsableMin)
	}
	if c.UsableMax != nil {
		q = q.Where("properties.usable_area <= ?", *c.UsableMax)
	}

	if c.Code != "" {
		pattern := store.ContainsPattern(c.Code)
		q = q.Where("(LOWER(properties.code) LIKE ? "+store.LikeEscape+" OR LOWER(properties.sku) LIKE ? "+store.LikeEscape+")", pattern, pattern)
	}

	if c.Address != "" {
		ids, err := e.locations.PropertyIDsByAddress(ctx, c.Address)
		if err != nil {
			return nil, err
		}
		q = q.Where("properties.id IN ?", ids)
	}

	if c.HasProximity() {
		near, err := e.locations.Nearby(ctx, *c.Latitude, *c.Longitude, *c.RadiusKm, true)
		if err != nil {
			return nil, err
		}
		ids := make([]uint, 0, len(near))
		for _, n := range near {
			ids = append(ids, n.Location.PropertyID)
		}
		q = q.Where("properties.id IN ?", ids)
	}

	return q.Session(&gorm.Session{}), nil
}

func withRelations(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Category").
		Preload("Location").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, id ASC")
		})
}

func orderClause(sort string) string {
	switch sort {
	case SortCreatedAsc:
		return "properties.created_at ASC, properties.id ASC"
	case SortPriceAsc:
		return "properties.price ASC, properties.id ASC"
	case SortPriceDesc:
		return "properties.price DESC, properties.id DESC"
	case SortNameAsc:
		return "properties.name ASC, properties.id ASC"
	case SortNameDesc:
		return "properties.name DESC, properties.id DESC"
	default:
		return "properties.created_at DESC, properties.id DESC"
	}
}

// FilterOptions returns the option lists shown next to the results.
func (e *FilterEngine) FilterOptions(ctx context.Context) (*FilterOptions, error) {
	opts, err := cache.Remember(ctx, e.cache, optionsCacheKey, e.optionsTTL, func() (FilterOptions, error) {
		var categories []model.Category
		if err := e.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
			return FilterOptions{}, fmt.Errorf("loading categories: %w", err)
		}

		addresses, err := e.locations.DistinctAddresses(ctx, maxOptionAddress)
		if err != nil {
			return FilterOptions{}, err
		}

		opts := fixedOptions()
		opts.Categories = make([]Option, 0, len(categories))
		for _, cat := range categories {
			opts.Categories = append(opts.Categories, Option{Value: strconv.FormatUint(uint64(cat.ID), 10), Label: cat.Name})
		}
		opts.Addresses = addresses
		return opts, nil
	})
	if err != nil {
		return nil, err
	}
	return &opts, nil
}

// ClearOptionsCache drops the cached option lists. Result pages expire on
// their own.
func (e *FilterEngine) ClearOptionsCache(ctx context.Context) error {
	return e.cache.Delete(ctx, optionsCacheKey)
}

// ClearCache drops every cached result page and the option lists.
func (e *FilterEngine) ClearCache(ctx context.Context) error {
	keys, err := e.cache.IndexMembers(ctx, resultsIndexKey)
	if err != nil {
		return fmt.Errorf("reading cache index: %w", err)
	}
	if err := e.cache.Delete(ctx, append(keys, resultsIndexKey)...); err != nil {
		return fmt.Errorf("clearing cached results: %w", err)
	}
	return e.ClearOptionsCache(ctx)
}

// Get returns a public property with every relation, or nil.
func (e *FilterEngine) Get(ctx context.Context, id uint) (*Item, error) {
	var p model.Property
	err := withRelations(e.db.WithContext(ctx)).
		Preload("Features", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, id ASC")
		}).
		Where("id = ? AND is_public = ?", id, true).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading property %d: %w", id, err)
	}

	item := itemFromProperty(&p, e.now())
	return &item, nil
}

// Related returns other public properties of the same category, newest
// first, with at most two images each.
func (e *FilterEngine) Related(ctx context.Context, item *Item, limit int) ([]Item, error) {
	q := e.db.WithContext(ctx).
		Where("is_public = ? AND id <> ?", true, item.ID)
	if item.CategoryID != nil {
		q = q.Where("category_id = ?", *item.CategoryID)
	}

	var props []model.Property
	err := withRelations(q).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&props).Error
	if err != nil {
		return nil, fmt.Errorf("loading related properties: %w", err)
	}

	now := e.now()
	related := make([]Item, 0, len(props))
	for i := range props {
		related = append(related, RelatedView(itemFromProperty(&props[i], now)))
	}
	return related, nil
}

// MapItems returns public properties that have an active location.
func (e *FilterEngine) MapItems(ctx context.Context) ([]Item, error) {
	var props []model.Property
	err := e.db.WithContext(ctx).
		Joins("JOIN property_locations ON property_locations.property_id = properties.id AND property_locations.is_active = ?", true).
		Where("properties.is_public = ?", true).
		Preload("Category").
		Preload("Location").
		Preload("Images", "is_primary = ?", true).
		Order("properties.created_at DESC, properties.id DESC").
		Find(&props).Error
	if err != nil {
		return nil, fmt.Errorf("loading map properties: %w", err)
	}

	now := e.now()
	items := make([]Item, 0, len(props))
	for i := range props {
		items = append(items, mapView(itemFromProperty(&props[i], now)))
	}
	return items, nil
}

func fixedOptions() FilterOptions {
	opts := FilterOptions{
		Operations:  make([]Option, 0, len(model.Operations)),
		PriceRanges: make([]Option, 0, len(priceBrackets)),
		SortOptions: append([]Option(nil), sortOptions...),
		Addresses:   []string{},
		Categories:  []Option{},
	}
	for _, op := range model.Operations {
		opts.Operations = append(opts.Operations, Option{Value: string(op), Label: op.Label()})
	}
	for _, b := range priceBrackets {
		opts.PriceRanges = append(opts.PriceRanges, Option{Value: b.value, Label: b.label})
	}
	return opts
}
