package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"inmuebles_backend/internal/middleware"
	"inmuebles_backend/internal/service"
	"inmuebles_backend/pkg/utils/jwt"
	"inmuebles_backend/pkg/utils/response"
)

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthController struct {
	users *service.UserService
}

func NewAuthController(users *service.UserService) *AuthController {
	return &AuthController{users: users}
}

// Login exchanges credentials for a token carrying the user's company and
// effective role.
func (h *AuthController) Login(c *fiber.Ctx) error {
	input := new(LoginInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}

	user, role, err := h.users.Authenticate(c.UserContext(), input.Email, input.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}
	if err != nil {
		return response.Error(c, err)
	}

	token, err := jwt.GenerateToken(user.ID, user.Email, user.CompanyID, role)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not generate token",
		})
	}

	profile := user.GetPublicProfile()
	profile["role"] = role
	return c.JSON(fiber.Map{
		"token": token,
		"user":  profile,
	})
}

// GetMe echoes the authenticated caller.
func (h *AuthController) GetMe(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	return c.JSON(fiber.Map{
		"id":         claims.UserID,
		"email":      claims.Email,
		"company_id": claims.CompanyID,
		"role":       claims.Role,
	})
}
