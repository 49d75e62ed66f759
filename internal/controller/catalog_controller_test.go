package controller

import (
	"context"
	"errors"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inmuebles_backend/internal/catalog"
	"inmuebles_backend/internal/model"
	"inmuebles_backend/internal/service"
	"inmuebles_backend/internal/testutil"
	"inmuebles_backend/pkg/errs"
)

type fakeSource struct {
	items     []catalog.Item
	searchErr error
	related   []catalog.Item
	cleared   int
}

func (f *fakeSource) Search(_ context.Context, c catalog.Criteria) (*catalog.Listing, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return &catalog.Listing{
		Items:      f.items,
		Pagination: catalog.NewPagination(int64(len(f.items)), c.Page, c.PerPage),
		Filters:    c.Applied,
	}, nil
}

func (f *fakeSource) Get(_ context.Context, id uint) (*catalog.Item, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			return &f.items[i], nil
		}
	}
	return nil, nil
}

func (f *fakeSource) Related(context.Context, *catalog.Item, int) ([]catalog.Item, error) {
	return f.related, nil
}

func (f *fakeSource) MapItems(context.Context) ([]catalog.Item, error) {
	return f.items, nil
}

func (f *fakeSource) ClearCache(context.Context) error {
	f.cleared++
	return nil
}

func newCatalogApp(t *testing.T, src catalog.Source) *fiber.App {
	t.Helper()
	db := testutil.NewDB(t)
	h := NewCatalogController(src, service.NewLeadService(db, nil, ""))

	app := fiber.New()
	app.Get("/propiedades", h.ListProperties)
	app.Get("/propiedades/mapa", h.Map)
	app.Get("/propiedad/:id", h.GetProperty)
	app.Post("/contacto", h.Contact)
	return app
}

func sampleItems() []catalog.Item {
	addr := "Av. Banzer 4to anillo"
	return []catalog.Item{
		{
			ID:        1,
			Name:      "Casa Equipetrol",
			Code:      "INM-0001",
			Price:     decimal.NewFromInt(185000),
			Operation: string(model.OperationSale),
			IsPublic:  true,
			Location:  &catalog.Location{ID: 10, Latitude: -17.7615, Longitude: -63.1964, Address: &addr, IsActive: true},
		},
		{
			ID:        2,
			Name:      "Departamento Centro",
			Code:      "INM-0002",
			Price:     decimal.NewFromInt(650),
			Operation: string(model.OperationRental),
			IsPublic:  true,
		},
	}
}

func TestListPropertiesEchoesFilters(t *testing.T) {
	app := newCatalogApp(t, &fakeSource{items: sampleItems()})

	status, body := do(t, app, "GET", "/propiedades?operacion=venta&page=1", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["propiedades"], 2)
	assert.Equal(t, map[string]interface{}{"operacion": "venta"}, body["filtros"])
}

func TestListPropertiesRejectsBadQuery(t *testing.T) {
	app := newCatalogApp(t, &fakeSource{})

	status, body := do(t, app, "GET", "/propiedades?operacion=permuta&radio=500&lat=-17.7", nil)
	require.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Len(t, body["errors"], 3)
}

func TestListPropertiesDegradesOnUpstreamFailure(t *testing.T) {
	src := &fakeSource{searchErr: &errs.UpstreamError{Op: "list products", Status: 503}}
	app := newCatalogApp(t, src)

	status, body := do(t, app, "GET", "/propiedades?categoria=casa&page=2", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, body["propiedades"])
	assert.NotEmpty(t, body["error"])
	assert.Equal(t, map[string]interface{}{"categoria": "casa"}, body["filtros"])

	pagination := body["pagination"].(map[string]interface{})
	assert.Equal(t, float64(0), pagination["total"])
	assert.Equal(t, float64(2), pagination["current_page"])
}

func TestListPropertiesOtherErrorsAre500(t *testing.T) {
	app := newCatalogApp(t, &fakeSource{searchErr: errors.New("disk full")})

	status, _ := do(t, app, "GET", "/propiedades", nil)
	assert.Equal(t, fiber.StatusInternalServerError, status)
}

func TestGetProperty(t *testing.T) {
	items := sampleItems()
	app := newCatalogApp(t, &fakeSource{items: items, related: items[1:]})

	status, body := do(t, app, "GET", "/propiedad/1", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "INM-0001", body["propiedad"].(map[string]interface{})["codigo_inmueble"])
	assert.Len(t, body["relacionadas"], 1)

	status, _ = do(t, app, "GET", "/propiedad/99", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = do(t, app, "GET", "/propiedad/abc", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestMapSkipsItemsWithoutLocation(t *testing.T) {
	app := newCatalogApp(t, &fakeSource{items: sampleItems()})

	status, body := do(t, app, "GET", "/propiedades/mapa", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["propiedades"], 2)

	geo := body["geojson"].(map[string]interface{})
	assert.Equal(t, "FeatureCollection", geo["type"])
	features := geo["features"].([]interface{})
	require.Len(t, features, 1)

	coords := features[0].(map[string]interface{})["geometry"].(map[string]interface{})["coordinates"].([]interface{})
	assert.Equal(t, []interface{}{-63.1964, -17.7615}, coords)
}

func TestContact(t *testing.T) {
	app := newCatalogApp(t, &fakeSource{})

	status, body := do(t, app, "POST", "/contacto", map[string]interface{}{
		"nombre":   "Luis",
		"apellido": "Rojas",
		"carnet":   "7845123 SC",
		"email":    "luis@correo.bo",
		"telefono": "+591 70000000",
		"mensaje":  "Quisiera agendar una visita.",
	})
	require.Equal(t, fiber.StatusCreated, status)
	assert.NotZero(t, body["lead_id"])

	status, body = do(t, app, "POST", "/contacto", map[string]interface{}{"nombre": "Luis"})
	require.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.NotEmpty(t, body["errors"])
}

func TestClearCatalogCache(t *testing.T) {
	src := &fakeSource{}
	db := testutil.NewDB(t)
	h := NewSettingsController(service.NewCategoryService(db, noopOptions{}), src)
	app := fiber.New()
	app.Post("/catalog/cache/clear", h.ClearCatalogCache)

	status, _ := do(t, app, "POST", "/catalog/cache/clear", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 1, src.cleared)
}
