package server

import (
	"net/http"
	"stillwave-marketplace/internal/handler"
	custommw "stillwave-marketplace/internal/middleware"
	"stillwave-marketplace/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Server struct {
	echo            *echo.Echo
	checkoutHandler *handler.CheckoutHandler
	webhookHandler  *handler.WebhookHandler
	sellerHandler   *handler.SellerHandler
	libraryHandler  *handler.LibraryHandler
	authTokenSecret string
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func NewServer(
	checkoutService service.CheckoutService,
	webhookService service.WebhookService,
	sellerService service.SellerService,
	libraryService service.LibraryService,
	authTokenSecret string,
) *Server {
	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Validator = &requestValidator{validate: validator.New()}

	s := &Server{
		echo:            e,
		checkoutHandler: handler.NewCheckoutHandler(checkoutService),
		webhookHandler:  handler.NewWebhookHandler(webhookService),
		sellerHandler:   handler.NewSellerHandler(sellerService),
		libraryHandler:  handler.NewLibraryHandler(libraryService),
		authTokenSecret: authTokenSecret,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	auth := custommw.OptionalAuth(s.authTokenSecret)

	api.GET("/tracks", s.libraryHandler.ListTracks)
	api.GET("/library", s.libraryHandler.Library, auth)
	api.POST("/checkout", s.checkoutHandler.Checkout, auth)

	// -------- sellers --------
	sellers := api.Group("/sellers")
	sellers.POST("", s.sellerHandler.CreateSeller)
	sellers.POST("/:id/onboard", s.sellerHandler.OnboardSeller)
	sellers.GET("/:id/status", s.sellerHandler.SellerStatus)

	// -------- processor webhooks --------
	stripe := api.Group("/stripe")
	stripe.POST("/webhook", s.webhookHandler.StripeWebhook)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}
