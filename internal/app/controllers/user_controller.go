package controllers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/app/services"
	"github.com/yigit/schoolportal/internal/middleware"
)

// UserController handles admin user management
type UserController struct {
	userService services.UserService
}

// NewUserController creates a new user controller
func NewUserController(userService services.UserService) *UserController {
	return &UserController{userService: userService}
}

// ListUsers lists accounts
// @Summary List users
// @Tags admin-users
// @Produce json
// @Security BearerAuth
// @Param role query string false "ADMIN, TEACHER or STUDENT"
// @Param active query bool false "Filter by active flag"
// @Param search query string false "Name or email"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Router /admin/users [get]
func (c *UserController) ListUsers(ctx *gin.Context) {
	filter := models.UserFilter{
		IsActive: queryBool(ctx, "active"),
		Search:   strings.TrimSpace(ctx.Query("search")),
	}
	if role := models.RoleType(strings.ToUpper(ctx.Query("role"))); role.IsValid() {
		filter.RoleType = &role
	}

	users, err := c.userService.ListUsers(ctx.Request.Context(), filter, pageFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, users, "")
}

// GetUser returns one account
// @Summary Get user by ID
// @Tags admin-users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse}
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /admin/users/{id} [get]
func (c *UserController) GetUser(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	user, err := c.userService.GetUser(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, user, "")
}

// CreateUser creates an account; without a password a temporary one is e-mailed
// @Summary Create user
// @Tags admin-users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateUserRequest true "New account"
// @Success 201 {object} dto.APIResponse{data=dto.UserResponse}
// @Failure 409 {object} dto.ErrorResponse "Email already exists"
// @Router /admin/users [post]
func (c *UserController) CreateUser(ctx *gin.Context) {
	var req dto.CreateUserRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	user, err := c.userService.CreateUser(ctx.Request.Context(), actorFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	created(ctx, user, "User created")
}

// UpdateUser edits names and email
// @Summary Update user
// @Tags admin-users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body dto.UpdateUserRequest true "Profile"
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse}
// @Router /admin/users/{id} [put]
func (c *UserController) UpdateUser(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	var req dto.UpdateUserRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	user, err := c.userService.UpdateUser(ctx.Request.Context(), actorFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, user, "User updated")
}

// SetActive activates or deactivates an account
// @Summary Toggle account
// @Tags admin-users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body dto.SetActiveRequest true "Active flag"
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse}
// @Failure 403 {object} dto.ErrorResponse "Own account"
// @Router /admin/users/{id}/active [patch]
func (c *UserController) SetActive(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	var req dto.SetActiveRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	user, err := c.userService.SetActive(ctx.Request.Context(), actorFrom(ctx), id, *req.IsActive)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, user, "")
}

// ResetPassword e-mails a temporary password
// @Summary Reset a user's password
// @Tags admin-users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} dto.APIResponse
// @Router /admin/users/{id}/reset-password [post]
func (c *UserController) ResetPassword(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	if err := c.userService.ResetPassword(ctx.Request.Context(), actorFrom(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, nil, "A temporary password has been e-mailed")
}
