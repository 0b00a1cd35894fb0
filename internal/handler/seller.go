package handler

import (
	"net/http"
	"stillwave-marketplace/internal/dto"
	"stillwave-marketplace/internal/service"

	"github.com/labstack/echo/v4"
)

type SellerHandler struct {
	sellerService service.SellerService
}

func NewSellerHandler(sellerService service.SellerService) *SellerHandler {
	return &SellerHandler{
		sellerService: sellerService,
	}
}

func (h *SellerHandler) CreateSeller(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateSellerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	seller, err := h.sellerService.CreateSeller(ctx, req.DisplayName)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{
		"id": seller.ID,
	})
}

func (h *SellerHandler) OnboardSeller(c echo.Context) error {
	ctx := c.Request().Context()

	sellerID := c.Param("id")

	url, err := h.sellerService.OnboardSeller(ctx, sellerID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, &dto.OnboardSellerResponse{
		OnboardingURL: url,
	})
}

func (h *SellerHandler) SellerStatus(c echo.Context) error {
	ctx := c.Request().Context()

	sellerID := c.Param("id")

	status, err := h.sellerService.SellerStatus(ctx, sellerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}

	return c.JSON(http.StatusOK, status)
}
