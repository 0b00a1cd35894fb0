package handler

import (
	"errors"
	"net/http"
	"stillwave-marketplace/internal/dto"
	"stillwave-marketplace/internal/middleware"
	"stillwave-marketplace/internal/service"

	"github.com/labstack/echo/v4"
)

type CheckoutHandler struct {
	checkoutService service.CheckoutService
}

func NewCheckoutHandler(checkoutService service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
	}
}

func (h *CheckoutHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	userID := middleware.UserIDFromContext(c)

	result, err := h.checkoutService.CreateSession(ctx, userID, &req)
	if err != nil {
		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": validationErr.Msg,
			})
		}
		return err
	}

	return c.JSON(http.StatusOK, result)
}
