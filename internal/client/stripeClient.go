package client

import (
	"context"

	"github.com/stripe/stripe-go/v81"
	stripeclient "github.com/stripe/stripe-go/v81/client"
)

// StripeClient is the processor surface the services depend on. Tests
// substitute a fake; production uses the SDK-backed implementation below.
type StripeClient interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	CreateConnectAccount(ctx context.Context) (*stripe.Account, error)
	CreateAccountLink(ctx context.Context, accountID, returnURL, refreshURL string) (*stripe.AccountLink, error)
	GetAccount(ctx context.Context, accountID string) (*stripe.Account, error)
}

type stripeClientImpl struct {
	api *stripeclient.API
}

func NewStripeClient(secretKey string) StripeClient {
	api := &stripeclient.API{}
	api.Init(secretKey, nil)

	return &stripeClientImpl{api: api}
}

func (c *stripeClientImpl) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	params.Context = ctx
	return c.api.CheckoutSessions.New(params)
}

func (c *stripeClientImpl) CreateConnectAccount(ctx context.Context) (*stripe.Account, error) {
	params := &stripe.AccountParams{
		Type: stripe.String(string(stripe.AccountTypeExpress)),
	}
	params.Context = ctx

	return c.api.Accounts.New(params)
}

func (c *stripeClientImpl) CreateAccountLink(ctx context.Context, accountID, returnURL, refreshURL string) (*stripe.AccountLink, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		ReturnURL:  stripe.String(returnURL),
		RefreshURL: stripe.String(refreshURL),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx

	return c.api.AccountLinks.New(params)
}

func (c *stripeClientImpl) GetAccount(ctx context.Context, accountID string) (*stripe.Account, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx

	return c.api.Accounts.GetByID(accountID, params)
}
