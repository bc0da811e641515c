package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/myunity/auth-service/internal/core/domain"
	"github.com/myunity/auth-service/internal/core/ports"
)

type UserHandler struct {
	users ports.UserDirectory
}

func NewUserHandler(users ports.UserDirectory) *UserHandler {
	return &UserHandler{users: users}
}

type userResponse struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// Me returns the authenticated principal's profile.
//
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userResponse
// @Failure      401  {object}  messageResponse
// @Router       /api/users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{
		ID:       p.ID,
		Username: p.Username,
		Email:    p.Email,
		Roles:    p.AuthorityNames(),
	})
}

// List returns every account ordered by id.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   userResponse
// @Failure      401  {object}  messageResponse
// @Failure      403  {object}  messageResponse
// @Router       /api/admin/users [get]
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.users.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return c.JSON(http.StatusOK, out)
}

func toUserResponse(u *domain.User) userResponse {
	names := u.RoleNames()
	roles := make([]string, 0, len(names))
	for _, n := range names {
		roles = append(roles, n.String())
	}
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, Roles: roles}
}
