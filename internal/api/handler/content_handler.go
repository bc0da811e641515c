package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ContentHandler serves the role gated boards used by the web client.
type ContentHandler struct{}

func NewContentHandler() *ContentHandler {
	return &ContentHandler{}
}

// UserBoard
//
// @Summary      User board
// @Tags         content
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  messageResponse
// @Failure      403  {object}  messageResponse
// @Router       /api/test/user [get]
func (h *ContentHandler) UserBoard(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "User Content."})
}

// ModeratorBoard
//
// @Summary      Moderator board
// @Tags         content
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  messageResponse
// @Failure      403  {object}  messageResponse
// @Router       /api/test/mod [get]
func (h *ContentHandler) ModeratorBoard(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "Moderator Board."})
}

// AdminBoard
//
// @Summary      Admin board
// @Tags         content
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  messageResponse
// @Failure      403  {object}  messageResponse
// @Router       /api/test/admin [get]
func (h *ContentHandler) AdminBoard(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "Admin Board."})
}
