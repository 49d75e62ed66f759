package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inmuebles_backend/pkg/cache"
	"inmuebles_backend/pkg/errs"
)

const productsJSON = `{
  "success": true,
  "data": [
    {
      "id": 1,
      "nombre": "Casa en Achumani",
      "codigo_inmueble": "EXT-001",
      "precio": "150000.00",
      "operacion": "venta",
      "caracteristicas": {"habitaciones": "3", "ano_construccion": 2010, "superficie_construida": 180},
      "categoria": {"id": 4, "nombre": "Casa"},
      "imagenes": [
        {"id": 10, "url": "https://cdn.example.com/1a.jpg", "filename": "1a.jpg", "es_portada": true, "size": 2048},
        {"id": 11, "url": "https://cdn.example.com/1b.jpg", "filename": "1b.jpg"},
        {"id": 12, "url": "https://cdn.example.com/1c.jpg", "filename": "1c.jpg"}
      ],
      "ubicacion": {"latitud": "-16.5400", "longitud": "-68.0800", "direccion": "Achumani, calle 12"}
    },
    {
      "id": "2",
      "nombre": "Depto en Sopocachi",
      "codigo_inmueble": null,
      "precio": 95000,
      "operacion": "alquiler",
      "caracteristicas": {"habitaciones": 2, "ambientes": ""},
      "categoria": {"id": "7", "nombre": "Departamento"},
      "imagenes": []
    },
    {
      "id": 3,
      "nombre": "Casa en Irpavi",
      "codigo_inmueble": "EXT-003",
      "precio": 210000,
      "operacion": "venta",
      "caracteristicas": {},
      "categoria": {"id": 4, "nombre": "Casa"},
      "imagenes": []
    }
  ],
  "meta": {"total": 3}
}`

type upstream struct {
	calls  atomic.Int32
	status int
	body   string
	byID   map[string]string
}

func newUpstream(t *testing.T, u *upstream) *ExternalCatalog {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if body, ok := u.byID[r.URL.Path]; ok {
			w.Write([]byte(body))
			return
		}
		if r.URL.Path != "/products" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"success":false,"message":"not found"}`))
			return
		}
		if u.status != 0 {
			w.WriteHeader(u.status)
		}
		w.Write([]byte(u.body))
	}))
	t.Cleanup(srv.Close)

	e := NewExternalCatalog(srv.URL+"/", 2*time.Second, cache.NewMemory(), 5*time.Minute, time.Hour)
	e.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	return e
}

func TestExternalGetAllMapsProducts(t *testing.T) {
	u := &upstream{body: productsJSON}
	e := newUpstream(t, u)

	pg, err := e.GetAll(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, pg.Items, 3)

	first := pg.Items[0]
	assert.Equal(t, "Casa en Achumani", first.Name)
	assert.Equal(t, "150000", first.Price.String())
	assert.Equal(t, 3, *first.Bedrooms)
	assert.Equal(t, 15, *first.Age)
	assert.Equal(t, "Casa", *first.Category)
	assert.Equal(t, uint(4), *first.CategoryID)
	assert.True(t, first.IsPublic)
	require.Len(t, first.Images, 3)
	assert.Equal(t, "https://cdn.example.com/1a.jpg", first.Images[0].URL)
	assert.Equal(t, int64(2048), first.Images[0].Size)
	require.NotNil(t, first.Location)
	assert.InDelta(t, -16.54, first.Location.Latitude, 1e-9)

	second := pg.Items[1]
	assert.Equal(t, uint(2), second.ID)
	assert.Equal(t, "N/A", second.Code)
	assert.Nil(t, second.Rooms)
	assert.Nil(t, second.Age)
	assert.Equal(t, uint(7), *second.CategoryID)
}

func TestExternalGetAllCachesAndIndexes(t *testing.T) {
	ctx := context.Background()
	u := &upstream{body: productsJSON}
	e := newUpstream(t, u)

	_, err := e.GetAll(ctx, nil)
	require.NoError(t, err)
	_, err = e.GetAll(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), u.calls.Load())

	_, err = e.GetAll(ctx, &PageHint{Page: 2, PerPage: 500})
	require.NoError(t, err)
	assert.Equal(t, int32(2), u.calls.Load())

	keys, err := e.cache.IndexMembers(ctx, externalIndexKey)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{externalAllKey, "external_products_p2_pp100"}, keys)

	require.NoError(t, e.ClearCache(ctx))
	keys, err = e.cache.IndexMembers(ctx, externalIndexKey)
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, err = e.GetAll(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), u.calls.Load())
}

func TestExternalGetAllFailures(t *testing.T) {
	for name, u := range map[string]*upstream{
		"server error":  {status: http.StatusInternalServerError, body: `{}`},
		"success false": {body: `{"success":false,"message":"mantenimiento"}`},
		"bad body":      {body: `<html>`},
	} {
		t.Run(name, func(t *testing.T) {
			e := newUpstream(t, u)
			_, err := e.GetAll(context.Background(), nil)
			_, ok := errs.AsUpstream(err)
			assert.True(t, ok, "got %v", err)

			// failures are never cached
			_, err = e.GetAll(context.Background(), nil)
			assert.Error(t, err)
			assert.Equal(t, int32(2), u.calls.Load())
		})
	}
}

func TestExternalGetAllTransportError(t *testing.T) {
	e := NewExternalCatalog("http://127.0.0.1:1", time.Second, cache.NewMemory(), time.Minute, time.Minute)
	_, err := e.GetAll(context.Background(), nil)
	_, ok := errs.AsUpstream(err)
	assert.True(t, ok)
}

func TestExternalGetByID(t *testing.T) {
	ctx := context.Background()
	u := &upstream{byID: map[string]string{
		"/products/5": `{"success":true,"data":{"id":5,"nombre":"Terreno en Mallasa","precio":"40000","operacion":"venta","imagenes":[]}}`,
		"/products/6": `{"success":false,"message":"oculto"}`,
	}}
	e := newUpstream(t, u)

	item, err := e.GetByID(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "Terreno en Mallasa", item.Name)

	_, err = e.GetByID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(1), u.calls.Load())

	missing, err := e.GetByID(ctx, 6)
	require.NoError(t, err)
	assert.Nil(t, missing)

	missing, err = e.GetByID(ctx, 404)
	require.NoError(t, err)
	assert.Nil(t, missing)

	// misses are fetched again every time
	_, err = e.GetByID(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, int32(4), u.calls.Load())
}

func TestExternalSearch(t *testing.T) {
	ctx := context.Background()
	e := newUpstream(t, &upstream{body: productsJSON})

	listing, err := e.Search(ctx, mustCriteria(t, map[string]string{"categoria": "casa"}))
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 3}, ids(listing.Items))
	assert.Equal(t, "casa", listing.Filters["categoria"])

	listing, err = e.Search(ctx, mustCriteria(t, map[string]string{"orden": SortPriceAsc}))
	require.NoError(t, err)
	assert.Equal(t, []uint{2, 1, 3}, ids(listing.Items))

	listing, err = e.Search(ctx, mustCriteria(t, map[string]string{"codigo": "ext-00", "precio_max": "200000"}))
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, ids(listing.Items))

	listing, err = e.Search(ctx, mustCriteria(t, map[string]string{"lat": "-16.5400", "lng": "-68.0800", "radio": "1"}))
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, ids(listing.Items))

	listing, err = e.Search(ctx, mustCriteria(t, map[string]string{"per_page": "2", "page": "3"}))
	require.NoError(t, err)
	assert.Empty(t, listing.Items)
	assert.Equal(t, 2, listing.Pagination.LastPage)
	assert.Nil(t, listing.Pagination.From)

	require.NotNil(t, listing.FilterOptions)
	assert.Equal(t, []Option{{"Casa", "Casa"}, {"Departamento", "Departamento"}}, listing.FilterOptions.Categories)
	assert.Equal(t, []Option{{"alquiler", "Alquiler"}, {"venta", "Venta"}}, listing.FilterOptions.Operations)
	assert.Equal(t, []string{"Achumani, calle 12"}, listing.FilterOptions.Addresses)
}

func TestExternalRelatedAndMap(t *testing.T) {
	ctx := context.Background()
	e := newUpstream(t, &upstream{body: productsJSON})

	all, err := e.GetAll(ctx, nil)
	require.NoError(t, err)

	related, err := e.Related(ctx, &all.Items[2], relatedLimit)
	require.NoError(t, err)
	require.Equal(t, []uint{1}, ids(related))
	assert.Len(t, related[0].Images, 2)

	mapped, err := e.MapItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, ids(mapped))
}
