package handler

import (
	"net/http"
	"stillwave-marketplace/internal/middleware"
	"stillwave-marketplace/internal/service"

	"github.com/labstack/echo/v4"
)

type LibraryHandler struct {
	libraryService service.LibraryService
}

func NewLibraryHandler(libraryService service.LibraryService) *LibraryHandler {
	return &LibraryHandler{
		libraryService: libraryService,
	}
}

// Library lists the caller's unrevoked access grants. Guests identify
// themselves with the guest_cart_id returned at checkout time.
func (h *LibraryHandler) Library(c echo.Context) error {
	ctx := c.Request().Context()

	userID := middleware.UserIDFromContext(c)
	guestCartID := c.QueryParam("guest_cart_id")

	items, err := h.libraryService.ListAccess(ctx, userID, guestCartID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, items)
}

func (h *LibraryHandler) ListTracks(c echo.Context) error {
	ctx := c.Request().Context()

	tracks, err := h.libraryService.ListTracks(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tracks)
}
