package controller

import (
	"github.com/gofiber/fiber/v2"

	"inmuebles_backend/internal/middleware"
	"inmuebles_backend/internal/service"
	"inmuebles_backend/pkg/utils/response"
)

type ImageController struct {
	images *service.ImageService
}

func NewImageController(images *service.ImageService) *ImageController {
	return &ImageController{images: images}
}

// Upload accepts up to ten files in the "images" multipart field.
func (h *ImageController) Upload(c *fiber.Ctx) error {
	propertyID, err := paramID(c, "property_id")
	if err != nil {
		return response.BadRequest(c, "Invalid property ID")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return response.BadRequest(c, "No file uploaded")
	}

	images, err := h.images.Upload(c.UserContext(), middleware.TenantID(c), propertyID, form.File["images"])
	if err != nil {
		return response.Error(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Images uploaded successfully",
		"images":  images,
	})
}

func (h *ImageController) SetPrimary(c *fiber.Ctx) error {
	imageID, err := paramID(c, "image_id")
	if err != nil {
		return response.BadRequest(c, "Invalid image ID")
	}

	image, err := h.images.SetPrimary(c.UserContext(), middleware.TenantID(c), imageID)
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(image)
}

func (h *ImageController) Delete(c *fiber.Ctx) error {
	imageID, err := paramID(c, "image_id")
	if err != nil {
		return response.BadRequest(c, "Invalid image ID")
	}

	if err := h.images.Delete(c.UserContext(), middleware.TenantID(c), imageID); err != nil {
		return response.Error(c, err)
	}
	return response.Message(c, "Image deleted successfully")
}

type reorderInput struct {
	ImageIDs []uint `json:"image_ids"`
}

func (h *ImageController) Reorder(c *fiber.Ctx) error {
	propertyID, err := paramID(c, "property_id")
	if err != nil {
		return response.BadRequest(c, "Invalid property ID")
	}

	input := new(reorderInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}

	images, err := h.images.Reorder(c.UserContext(), middleware.TenantID(c), propertyID, input.ImageIDs)
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(fiber.Map{"images": images})
}
