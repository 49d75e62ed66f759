package controller

import (
	"github.com/gofiber/fiber/v2"

	"inmuebles_backend/internal/middleware"
	"inmuebles_backend/internal/service"
	"inmuebles_backend/pkg/utils/response"
)

// UserController manages the tenant's users and roles. Routes are mounted
// behind RequireRole("admin").
type UserController struct {
	users *service.UserService
	roles *service.RoleService
}

func NewUserController(users *service.UserService, roles *service.RoleService) *UserController {
	return &UserController{users: users, roles: roles}
}

func (h *UserController) ListUsers(c *fiber.Ctx) error {
	users, err := h.users.List(c.UserContext(), middleware.TenantID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(fiber.Map{"data": users})
}

func (h *UserController) CreateUser(c *fiber.Ctx) error {
	input := new(service.UserInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}

	user, err := h.users.Create(c.UserContext(), middleware.TenantID(c), *input)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, user.GetPublicProfile())
}

type assignRolesInput struct {
	RoleIDs       []uint `json:"role_ids"`
	PrimaryRoleID uint   `json:"primary_role_id"`
}

func (h *UserController) AssignRoles(c *fiber.Ctx) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	input := new(assignRolesInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}

	links, err := h.users.AssignRoles(c.UserContext(), middleware.TenantID(c), userID, input.RoleIDs, input.PrimaryRoleID)
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(fiber.Map{"roles": links})
}

func (h *UserController) EffectiveRole(c *fiber.Ctx) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	role, err := h.users.EffectiveRole(c.UserContext(), middleware.TenantID(c), userID)
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(fiber.Map{"role": role})
}

func (h *UserController) ListRoles(c *fiber.Ctx) error {
	roles, err := h.roles.List(c.UserContext(), middleware.TenantID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(fiber.Map{"data": roles})
}

func (h *UserController) CreateRole(c *fiber.Ctx) error {
	input := new(service.RoleInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}

	role, err := h.roles.Create(c.UserContext(), middleware.TenantID(c), *input)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, role)
}

func (h *UserController) UpdateRole(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid role ID")
	}

	input := new(service.RoleInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}

	role, err := h.roles.Update(c.UserContext(), middleware.TenantID(c), id, *input)
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(role)
}

type roleStatusInput struct {
	IsActive bool `json:"is_active"`
}

func (h *UserController) SetRoleActive(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid role ID")
	}

	input := new(roleStatusInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}

	role, err := h.roles.SetActive(c.UserContext(), middleware.TenantID(c), id, input.IsActive)
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(role)
}

func (h *UserController) DeleteRole(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid role ID")
	}

	if err := h.roles.Delete(c.UserContext(), middleware.TenantID(c), id); err != nil {
		return response.Error(c, err)
	}
	return response.Message(c, "Role deleted successfully")
}
