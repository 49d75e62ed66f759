package controller

import (
	"github.com/gofiber/fiber/v2"

	"inmuebles_backend/internal/catalog"
	"inmuebles_backend/internal/middleware"
	"inmuebles_backend/internal/model"
	"inmuebles_backend/internal/service"
	"inmuebles_backend/internal/store"
	"inmuebles_backend/pkg/errs"
	"inmuebles_backend/pkg/utils/location"
	"inmuebles_backend/pkg/utils/response"
)

type LocationController struct {
	locations *service.LocationService
}

func NewLocationController(locations *service.LocationService) *LocationController {
	return &LocationController{locations: locations}
}

type locationProduct struct {
	ID        uint    `json:"id"`
	Name      string  `json:"name"`
	Code      string  `json:"codigo_inmueble"`
	Price     string  `json:"price"`
	Operation string  `json:"operacion"`
	Category  *string `json:"category"`
}

type locationView struct {
	ID         uint             `json:"id"`
	PropertyID uint             `json:"product_id"`
	Product    *locationProduct `json:"product,omitempty"`
	Latitude   float64          `json:"latitude"`
	Longitude  float64          `json:"longitude"`
	Address    *string          `json:"address"`
	IsActive   bool             `json:"is_active"`
	Distance   *float64         `json:"distance,omitempty"`
	GeoJSON    location.Feature `json:"geojson"`
}

func toLocationView(loc *model.PropertyLocation) locationView {
	view := locationView{
		ID:         loc.ID,
		PropertyID: loc.PropertyID,
		Latitude:   loc.Latitude,
		Longitude:  loc.Longitude,
		Address:    loc.Address,
		IsActive:   loc.IsActive,
		GeoJSON:    store.ToGeoJSON(loc),
	}
	if p := loc.Property; p != nil {
		view.Product = &locationProduct{
			ID:        p.ID,
			Name:      p.Name,
			Code:      p.Code,
			Price:     p.Price.StringFixed(2),
			Operation: string(p.Operation),
		}
		if p.Category != nil {
			view.Product.Category = &p.Category.Name
		}
	}
	return view
}

func (h *LocationController) List(c *fiber.Ctx) error {
	locs, err := h.locations.List(c.UserContext(), middleware.TenantID(c), c.QueryBool("only_active"))
	if err != nil {
		return response.Error(c, err)
	}

	data := make([]locationView, 0, len(locs))
	for i := range locs {
		data = append(data, toLocationView(&locs[i]))
	}
	return c.JSON(fiber.Map{
		"data":  data,
		"total": len(data),
	})
}

func (h *LocationController) Get(c *fiber.Ctx) error {
	propertyID, err := paramID(c, "property_id")
	if err != nil {
		return response.BadRequest(c, "Invalid property ID")
	}

	loc, err := h.locations.Get(c.UserContext(), middleware.TenantID(c), propertyID)
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(fiber.Map{"data": toLocationView(loc)})
}

func (h *LocationController) Upsert(c *fiber.Ctx) error {
	propertyID, err := paramID(c, "property_id")
	if err != nil {
		return response.BadRequest(c, "Invalid property ID")
	}

	input := new(service.LocationInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}

	loc, err := h.locations.Upsert(c.UserContext(), middleware.TenantID(c), propertyID, *input)
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Location saved successfully",
		"data":    toLocationView(loc),
	})
}

func (h *LocationController) Toggle(c *fiber.Ctx) error {
	propertyID, err := paramID(c, "property_id")
	if err != nil {
		return response.BadRequest(c, "Invalid property ID")
	}

	loc, err := h.locations.Toggle(c.UserContext(), middleware.TenantID(c), propertyID)
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(fiber.Map{"data": toLocationView(loc)})
}

func (h *LocationController) Delete(c *fiber.Ctx) error {
	propertyID, err := paramID(c, "property_id")
	if err != nil {
		return response.BadRequest(c, "Invalid property ID")
	}

	if err := h.locations.Delete(c.UserContext(), middleware.TenantID(c), propertyID); err != nil {
		return response.Error(c, err)
	}
	return response.Message(c, "Location deleted successfully")
}

type nearbyInput struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Radius    *float64 `json:"radius"`
}

// Nearby lists active locations around a point. radius is in km, 5 when
// omitted, and must lie between 0.1 and 100.
func (h *LocationController) Nearby(c *fiber.Ctx) error {
	input := new(nearbyInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}

	v := &errs.ValidationError{}
	if input.Latitude == nil {
		v.Add("latitude", "is required")
	}
	if input.Longitude == nil {
		v.Add("longitude", "is required")
	}
	if input.Latitude != nil && input.Longitude != nil {
		v.Fields = append(v.Fields, location.ValidateCoordinates(*input.Latitude, *input.Longitude).Fields...)
	}
	radius := catalog.DefaultRadiusKm
	if input.Radius != nil {
		radius = *input.Radius
		if radius < catalog.MinRadiusKm || radius > catalog.MaxRadiusKm {
			v.Add("radius", "must be between 0.1 and 100 km")
		}
	}
	if err := v.OrNil(); err != nil {
		return response.Error(c, err)
	}

	results, err := h.locations.Nearby(c.UserContext(), middleware.TenantID(c), *input.Latitude, *input.Longitude, radius)
	if err != nil {
		return response.Error(c, err)
	}

	data := make([]locationView, 0, len(results))
	for i := range results {
		view := toLocationView(&results[i].Location)
		d := location.RoundKm(results[i].DistanceKm)
		view.Distance = &d
		data = append(data, view)
	}
	return c.JSON(fiber.Map{
		"data":  data,
		"total": len(data),
		"search": fiber.Map{
			"latitude":  *input.Latitude,
			"longitude": *input.Longitude,
			"radius":    radius,
		},
	})
}

// GeoJSON exports the tenant's active locations as a FeatureCollection.
func (h *LocationController) GeoJSON(c *fiber.Ctx) error {
	locs, err := h.locations.List(c.UserContext(), middleware.TenantID(c), true)
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(store.ToFeatureCollection(locs))
}
