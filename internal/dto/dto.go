package dto

// CartItem is the client-submitted view of a line item. Price and seller
// are revalidated against the track record before any money moves.
type CartItem struct {
	TrackID    string `json:"track_id" validate:"required"`
	Price      int64  `json:"price" validate:"gt=0"` // minor units
	SellerID   string `json:"seller_id" validate:"required"`
	Title      string `json:"title"`
	ArtistName string `json:"artist_name"`
}

type CheckoutRequest struct {
	Items       []*CartItem `json:"items" validate:"required,min=1,dive"`
	GuestCartID string      `json:"guest_cart_id"`
}

type CheckoutResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
	GuestCartID string `json:"guest_cart_id,omitempty"`
}

type CreateSellerRequest struct {
	DisplayName string `json:"display_name" validate:"required"`
}

type OnboardSellerResponse struct {
	OnboardingURL string `json:"onboarding_url"`
}

type SellerStatusResponse struct {
	SellerID       string `json:"seller_id"`
	Connected      bool   `json:"connected"`
	ChargesEnabled bool   `json:"charges_enabled"`
}

type LibraryItem struct {
	TrackID    string `json:"track_id"`
	PurchaseID string `json:"purchase_id"`
	GrantedAt  string `json:"granted_at"`
}
