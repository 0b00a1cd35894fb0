package handler

import (
	"errors"
	"io"
	"net/http"
	"stillwave-marketplace/internal/service"

	"github.com/labstack/echo/v4"
)

type WebhookHandler struct {
	webhookService service.WebhookService
}

func NewWebhookHandler(webhookService service.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
	}
}

// StripeWebhook accepts raw-body deliveries from the processor. 200 means
// handled (including duplicate no-ops); 401 rejects a bad signature; any
// other failure answers 500 so the processor retries on its own schedule.
func (h *WebhookHandler) StripeWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	err = h.webhookService.HandleDelivery(ctx, body, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			return c.NoContent(http.StatusUnauthorized)
		}
		return err
	}

	return c.NoContent(http.StatusOK)
}
