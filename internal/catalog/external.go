package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"inmuebles_backend/internal/model"
	"inmuebles_backend/pkg/cache"
	"inmuebles_backend/pkg/errs"
)

const (
	externalIndexKey   = "external_api_cache_keys"
	externalAllKey     = "external_products_all"
	externalOptionsKey = "external_filter_options"

	maxUpstreamPerPage = 100
	relatedLimit       = 6
)

// errMissing marks a product the remote API does not have. It keeps misses
// out of the cache.
var errMissing = errors.New("product missing upstream")

// PageHint asks the remote API for one page instead of the whole catalog.
type PageHint struct {
	Page    int
	PerPage int
}

// Page is one fetch of the remote catalog.
type Page struct {
	Items []Item                 `json:"items"`
	Meta  map[string]interface{} `json:"meta,omitempty"`
}

// ExternalCatalog serves the catalog from a remote products API. Filtering,
// sorting and paging happen in memory over the full fetched catalog.
type ExternalCatalog struct {
	baseURL    string
	client     *http.Client
	cache      cache.Store
	ttl        time.Duration
	optionsTTL time.Duration
	now        func() time.Time
}

func NewExternalCatalog(baseURL string, timeout time.Duration, c cache.Store, ttl, optionsTTL time.Duration) *ExternalCatalog {
	return &ExternalCatalog{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: timeout},
		cache:      c,
		ttl:        ttl,
		optionsTTL: optionsTTL,
		now:        time.Now,
	}
}

// GetAll fetches the catalog, or a single page of it when hint is set.
func (e *ExternalCatalog) GetAll(ctx context.Context, hint *PageHint) (*Page, error) {
	key := externalAllKey
	params := url.Values{}
	if hint != nil {
		perPage := hint.PerPage
		if perPage > maxUpstreamPerPage {
			perPage = maxUpstreamPerPage
		}
		params.Set("page", strconv.Itoa(hint.Page))
		params.Set("per_page", strconv.Itoa(perPage))
		key = fmt.Sprintf("external_products_p%d_pp%d", hint.Page, perPage)
	}

	pg, err := cache.Remember(ctx, e.cache, key, e.ttl, func() (Page, error) {
		env, status, err := e.fetch(ctx, "/products", params)
		if err != nil {
			return Page{}, &errs.UpstreamError{Op: "list products", Status: status, Err: err}
		}
		if status < 200 || status > 299 {
			return Page{}, &errs.UpstreamError{Op: "list products", Status: status}
		}
		if !env.Success {
			return Page{}, &errs.UpstreamError{Op: "list products", Status: status, Err: errors.New(orUnknown(env.Message))}
		}

		var products []upstreamProduct
		if err := json.Unmarshal(env.Data, &products); err != nil {
			return Page{}, &errs.UpstreamError{Op: "list products", Status: status, Err: fmt.Errorf("decoding products: %w", err)}
		}

		now := e.now()
		items := make([]Item, 0, len(products))
		for _, p := range products {
			items = append(items, p.toItem(now))
		}
		return Page{Items: items, Meta: env.Meta}, nil
	})
	if err != nil {
		return nil, err
	}
	e.track(ctx, key, e.ttl)

	now := e.now()
	for i := range pg.Items {
		refreshAge(&pg.Items[i], now)
	}
	return &pg, nil
}

// GetByID fetches one product. It returns nil, nil when the remote API
// answers with a non-2xx status or success:false.
func (e *ExternalCatalog) GetByID(ctx context.Context, id uint) (*Item, error) {
	key := fmt.Sprintf("external_product_%d", id)

	item, err := cache.Remember(ctx, e.cache, key, e.ttl, func() (Item, error) {
		env, status, err := e.fetch(ctx, fmt.Sprintf("/products/%d", id), nil)
		if err != nil {
			return Item{}, &errs.UpstreamError{Op: "get product", Status: status, Err: err}
		}
		if status < 200 || status > 299 || !env.Success {
			return Item{}, errMissing
		}

		var product upstreamProduct
		if err := json.Unmarshal(env.Data, &product); err != nil {
			return Item{}, &errs.UpstreamError{Op: "get product", Status: status, Err: fmt.Errorf("decoding product: %w", err)}
		}
		return product.toItem(e.now()), nil
	})
	if errors.Is(err, errMissing) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.track(ctx, key, e.ttl)

	refreshAge(&item, e.now())
	return &item, nil
}

// Filter applies c to the whole remote catalog. Without an explicit sort the
// remote order is kept.
func (e *ExternalCatalog) Filter(ctx context.Context, c Criteria) ([]Item, Pagination, error) {
	all, err := e.GetAll(ctx, nil)
	if err != nil {
		return nil, Pagination{}, err
	}

	filtered := filterItems(all.Items, c)
	sortItems(filtered, c.Sort)
	items, pagination := paginate(filtered, c.Page, c.PerPage)
	return items, pagination, nil
}

// GetFilterOptions derives category, operation and address options from the
// fetched catalog.
func (e *ExternalCatalog) GetFilterOptions(ctx context.Context) (*FilterOptions, error) {
	opts, err := cache.Remember(ctx, e.cache, externalOptionsKey, e.optionsTTL, func() (FilterOptions, error) {
		all, err := e.GetAll(ctx, nil)
		if err != nil {
			return FilterOptions{}, err
		}

		categories := map[string]bool{}
		operations := map[string]bool{}
		addresses := map[string]bool{}
		for _, it := range all.Items {
			if it.Category != nil && *it.Category != "" {
				categories[*it.Category] = true
			}
			if it.Operation != "" {
				operations[it.Operation] = true
			}
			if it.Address != nil && *it.Address != "" {
				addresses[*it.Address] = true
			}
		}

		opts := fixedOptions()
		opts.Categories = []Option{}
		for _, name := range sortedKeys(categories) {
			opts.Categories = append(opts.Categories, Option{Value: name, Label: name})
		}
		opts.Operations = []Option{}
		for _, op := range sortedKeys(operations) {
			opts.Operations = append(opts.Operations, Option{Value: op, Label: model.Operation(op).Label()})
		}
		opts.Addresses = sortedKeys(addresses)
		if len(opts.Addresses) > maxOptionAddress {
			opts.Addresses = opts.Addresses[:maxOptionAddress]
		}
		return opts, nil
	})
	if err != nil {
		return nil, err
	}
	e.track(ctx, externalOptionsKey, e.optionsTTL)
	return &opts, nil
}

func (e *ExternalCatalog) Search(ctx context.Context, c Criteria) (*Listing, error) {
	items, pagination, err := e.Filter(ctx, c)
	if err != nil {
		return nil, err
	}
	opts, err := e.GetFilterOptions(ctx)
	if err != nil {
		return nil, err
	}
	return &Listing{
		Items:         items,
		Pagination:    pagination,
		FilterOptions: opts,
		Filters:       c.Applied,
	}, nil
}

func (e *ExternalCatalog) Get(ctx context.Context, id uint) (*Item, error) {
	return e.GetByID(ctx, id)
}

// Related picks other products of the same category, in remote order.
func (e *ExternalCatalog) Related(ctx context.Context, item *Item, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = relatedLimit
	}
	all, err := e.GetAll(ctx, nil)
	if err != nil {
		return nil, err
	}

	related := make([]Item, 0, limit)
	for _, it := range all.Items {
		if len(related) == limit {
			break
		}
		if it.ID == item.ID {
			continue
		}
		if item.CategoryID != nil && (it.CategoryID == nil || *it.CategoryID != *item.CategoryID) {
			continue
		}
		related = append(related, RelatedView(it))
	}
	return related, nil
}

// MapItems returns the products that carry a location.
func (e *ExternalCatalog) MapItems(ctx context.Context) ([]Item, error) {
	all, err := e.GetAll(ctx, nil)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0)
	for _, it := range all.Items {
		if it.Location != nil && it.Location.IsActive {
			items = append(items, mapView(it))
		}
	}
	return items, nil
}

// ClearCache drops every key the adapter wrote, then the index itself and
// the options entry.
func (e *ExternalCatalog) ClearCache(ctx context.Context) error {
	keys, err := e.cache.IndexMembers(ctx, externalIndexKey)
	if err != nil {
		return fmt.Errorf("reading cache index: %w", err)
	}
	if err := e.cache.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("clearing cached products: %w", err)
	}
	if err := e.cache.Delete(ctx, externalIndexKey); err != nil {
		return fmt.Errorf("clearing cache index: %w", err)
	}
	return e.cache.Delete(ctx, externalOptionsKey)
}

func (e *ExternalCatalog) fetch(ctx context.Context, path string, params url.Values) (*envelope, int, error) {
	target := e.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &envelope{}, resp.StatusCode, nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decoding response: %w", err)
	}
	return &env, resp.StatusCode, nil
}

func (e *ExternalCatalog) track(ctx context.Context, key string, ttl time.Duration) {
	if err := e.cache.AddToIndex(ctx, externalIndexKey, key, ttl); err != nil {
		log.Printf("cache: index %s: %v", key, err)
	}
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func orUnknown(msg string) string {
	if msg == "" {
		return "unknown error"
	}
	return msg
}

var _ Source = (*ExternalCatalog)(nil)
var _ Source = (*FilterEngine)(nil)
