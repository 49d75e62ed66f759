package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"inmuebles_backend/internal/catalog"
	"inmuebles_backend/internal/service"
	"inmuebles_backend/pkg/errs"
	"inmuebles_backend/pkg/utils/location"
	"inmuebles_backend/pkg/utils/response"
)

const relatedLimit = 6

// CatalogController serves the public property browser from whichever
// catalog source is configured.
type CatalogController struct {
	source catalog.Source
	leads  *service.LeadService
}

func NewCatalogController(source catalog.Source, leads *service.LeadService) *CatalogController {
	return &CatalogController{source: source, leads: leads}
}

// ListProperties answers GET /propiedades. When the remote catalog fails the
// page degrades to an empty listing that still echoes the filters.
func (h *CatalogController) ListProperties(c *fiber.Ctx) error {
	criteria, err := catalog.ParseCriteria(func(key string) string { return c.Query(key) })
	if err != nil {
		return response.Error(c, err)
	}

	listing, err := h.source.Search(c.UserContext(), criteria)
	if err != nil {
		if _, ok := errs.AsUpstream(err); ok {
			log.Printf("Catalog listing degraded: %v", err)
			return c.JSON(catalog.Listing{
				Items:      []catalog.Item{},
				Pagination: catalog.NewPagination(0, criteria.Page, criteria.PerPage),
				Filters:    criteria.Applied,
				Error:      "El catálogo no está disponible en este momento. Intente nuevamente más tarde.",
			})
		}
		return response.Error(c, err)
	}
	return c.JSON(listing)
}

// GetProperty answers GET /propiedad/:id with the property and up to six
// related ones.
func (h *CatalogController) GetProperty(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.NotFound(c, "Property not found")
	}

	item, err := h.source.Get(c.UserContext(), id)
	if err != nil {
		return response.Error(c, err)
	}
	if item == nil {
		return response.NotFound(c, "Property not found")
	}

	related, err := h.source.Related(c.UserContext(), item, relatedLimit)
	if err != nil {
		return response.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"propiedad":    item,
		"relacionadas": related,
	})
}

// Map answers GET /propiedades/mapa.
func (h *CatalogController) Map(c *fiber.Ctx) error {
	items, err := h.source.MapItems(c.UserContext())
	if err != nil {
		return response.Error(c, err)
	}

	features := make([]location.Feature, 0, len(items))
	for _, it := range items {
		if it.Location == nil {
			continue
		}
		features = append(features, location.NewPointFeature(
			it.Location.ID, it.ID, it.Location.Latitude, it.Location.Longitude, it.Location.Address, it.Location.IsActive,
		))
	}

	return c.JSON(fiber.Map{
		"propiedades": items,
		"geojson":     location.NewFeatureCollection(features),
	})
}

// Contact stores a lead from the public contact form.
func (h *CatalogController) Contact(c *fiber.Ctx) error {
	input := new(service.ContactInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}

	lead, err := h.leads.Create(c.UserContext(), *input)
	if err != nil {
		return response.Error(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Su consulta fue enviada. Un agente se comunicará con usted pronto.",
		"lead_id": lead.ID,
	})
}
