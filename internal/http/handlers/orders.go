package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/providers/woocommerce"
)

func (a *App) orderError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if errors.Is(err, domain.ErrNotConfigured) {
		a.error(w, http.StatusInternalServerError, "order service is not configured")
		return
	}
	a.log(r).Warn().Err(err).Str("service", "woocommerce").Msg(fallback)
	a.error(w, statusFor(err, true), publicMessage(err, fallback))
}

// GetOrder returns one order unless its payment failed.
func (a *App) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	start := time.Now()
	order, err := a.Orders.GetOrder(r.Context(), id)
	metrics.ObserveUpstream("woocommerce", start, err)
	if err != nil {
		a.orderError(w, r, err, "failed to fetch order")
		return
	}
	if woocommerce.Status(order) == domain.OrderStatusFailed {
		a.error(w, http.StatusPaymentRequired, domain.ErrPaymentFailed.Error())
		return
	}
	a.raw(w, http.StatusOK, order)
}

// OrdersByEmail lists the processing orders billed to an email address.
func (a *App) OrdersByEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		a.error(w, http.StatusBadRequest, "email is required")
		return
	}
	if err := a.validate.Var(email, "email"); err != nil {
		a.error(w, http.StatusBadRequest, "email must be a valid email")
		return
	}

	start := time.Now()
	orders, err := a.Orders.SearchOrders(r.Context(), email)
	metrics.ObserveUpstream("woocommerce", start, err)
	if err != nil {
		a.orderError(w, r, err, "failed to search orders")
		return
	}
	orders = woocommerce.FilterByBillingEmail(orders, email)
	a.json(w, http.StatusOK, woocommerce.FilterByStatus(orders, domain.OrderStatusProcessing))
}

type lineItemRequest struct {
	ProductID   int64 `json:"productId" validate:"required,gt=0"`
	VariationID int64 `json:"variationId"`
	Quantity    int   `json:"quantity" validate:"omitempty,gt=0"`
}

type createOrderRequest struct {
	Billing       domain.Address    `json:"billing"`
	Shipping      domain.Address    `json:"shipping"`
	LineItems     []lineItemRequest `json:"lineItems" validate:"required,min=1,dive"`
	DesignURL     string            `json:"designUrl" validate:"omitempty,http_url"`
	PaymentMethod string            `json:"paymentMethod"`
}

// CreateOrder places an order for the first line item with the design attached.
func (a *App) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if msg, ok := a.decode(w, r, &req); !ok {
		a.error(w, http.StatusBadRequest, msg)
		return
	}
	if strings.TrimSpace(req.Billing.Email) == "" {
		a.error(w, http.StatusBadRequest, "billing email is required")
		return
	}
	if err := a.validate.Var(req.Billing.Email, "email"); err != nil {
		a.error(w, http.StatusBadRequest, "billing email must be a valid email")
		return
	}

	order := domain.NewOrder{
		Billing:       req.Billing,
		Shipping:      req.Shipping,
		DesignURL:     req.DesignURL,
		PaymentMethod: req.PaymentMethod,
	}
	for _, item := range req.LineItems {
		qty := item.Quantity
		if qty == 0 {
			qty = 1
		}
		order.LineItems = append(order.LineItems, domain.LineItem{
			ProductID:   item.ProductID,
			VariationID: item.VariationID,
			Quantity:    qty,
		})
	}

	start := time.Now()
	created, err := a.Orders.CreateOrder(r.Context(), order)
	metrics.ObserveUpstream("woocommerce", start, err)
	if err != nil {
		a.orderError(w, r, err, "failed to create order")
		return
	}
	a.raw(w, http.StatusCreated, created)
}
