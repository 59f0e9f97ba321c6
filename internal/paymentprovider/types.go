// Package paymentprovider — клиент платёжного шлюза Stripe.
// Наружу отдаются собственные типы пакета, чтобы сервисы не зависели от stripe-go.
package paymentprovider

import (
	"errors"
	"time"
)

// ErrInvalidSignature — подпись вебхука не прошла проверку.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Типы событий, которые обрабатывает сервис.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Значения полей сессии оплаты.
const (
	ModeSubscription  = "subscription"
	PaymentStatusPaid = "paid"
	StatusActive      = "active"
)

// CheckoutRequest — параметры создания сессии оплаты.
type CheckoutRequest struct {
	PriceID        string
	CustomerEmail  string
	SuccessURL     string
	CancelURL      string
	Metadata       map[string]string
	IdempotencyKey string
}

// CheckoutSession — сессия оплаты на стороне шлюза.
type CheckoutSession struct {
	ID             string
	URL            string
	PaymentStatus  string
	Mode           string
	SubscriptionID string
	CustomerID     string
	Metadata       map[string]string
}

// Subscription — подписка на стороне шлюза.
type Subscription struct {
	ID                 string
	Status             string
	CustomerID         string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
}

// Event — проверенное событие вебхука. Session заполнен только для событий сессии оплаты.
type Event struct {
	ID      string
	Type    string
	Session *CheckoutSession
}
