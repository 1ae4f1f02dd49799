package domain

// OrderStatusProcessing is the WooCommerce status of a paid order awaiting fulfilment.
const (
	OrderStatusProcessing = "processing"
	OrderStatusFailed     = "failed"
)

// Address is a WooCommerce billing or shipping block.
type Address struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Company   string `json:"company,omitempty"`
	Address1  string `json:"address_1,omitempty"`
	Address2  string `json:"address_2,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Postcode  string `json:"postcode,omitempty"`
	Country   string `json:"country,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// LineItem is one product in an order placement request.
type LineItem struct {
	ProductID   int64 `json:"productId"`
	VariationID int64 `json:"variationId,omitempty"`
	Quantity    int   `json:"quantity"`
}

// NewOrder is an order placement request from the checkout page.
type NewOrder struct {
	Billing       Address
	Shipping      Address
	LineItems     []LineItem
	DesignURL     string
	PaymentMethod string
	SetPaid       bool
}
