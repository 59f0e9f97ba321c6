package models

import "time"

// Тарифные планы.
const (
	PlanMonthly = "monthly"
	PlanYearly  = "yearly"
)

// SubscriptionState — вычисляемое состояние подписки пользователя.
type SubscriptionState string

// Возможные состояния подписки.
const (
	StateNone            SubscriptionState = "NONE"
	StatePending         SubscriptionState = "PENDING"
	StateActive          SubscriptionState = "ACTIVE"
	StateLapsed          SubscriptionState = "LAPSED"
	StateCancelScheduled SubscriptionState = "CANCEL_SCHEDULED"
)

// Subscription представляет подписку пользователя на премиум-доступ.
// У пользователя не более одной записи (уникальность по UserUID).
type Subscription struct {
	ID                   int       `json:"id"`
	UserUID              string    `json:"userId"`
	Plan                 string    `json:"plan"`
	StartDate            time.Time `json:"startDate"`
	EndDate              time.Time `json:"endDate"`
	IsActive             bool      `json:"isActive"`
	StripeSubscriptionID string    `json:"stripeSubscriptionId,omitempty"`
	StripeCustomerID     string    `json:"stripeCustomerId,omitempty"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// IsEffectivelyActive возвращает true, если подписка активна и не истекла на момент now.
func (s *Subscription) IsEffectivelyActive(now time.Time) bool {
	return s != nil && s.IsActive && s.EndDate.After(now)
}

// State восстанавливает состояние подписки из сохранённой записи. checkoutPending
// означает, что пользователь начал оплату, а вебхук о ней ещё не обработан.
// Для nil без незавершённой оплаты возвращается StateNone.
func (s *Subscription) State(now time.Time, checkoutPending bool) SubscriptionState {
	switch {
	case s.IsEffectivelyActive(now):
		return StateActive
	case s != nil && !s.IsActive && s.EndDate.After(now):
		return StateCancelScheduled
	case checkoutPending:
		return StatePending
	case s == nil:
		return StateNone
	default:
		return StateLapsed
	}
}

// SubscriptionStatus — ответ на запрос статуса подписки.
type SubscriptionStatus struct {
	HasSubscription bool              `json:"hasSubscription"`
	State           SubscriptionState `json:"state"`
	Subscription    *Subscription     `json:"subscription"`
}

// CheckoutSession — результат создания сессии оплаты.
type CheckoutSession struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// DummyCheckout используется для приёма тарифа из JSON-запроса.
type DummyCheckout struct {
	PlanType string `json:"planType" validate:"required"`
}

// Plan описывает тарифный план в каталоге.
type Plan struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	Interval string   `json:"interval"`
	Features []string `json:"features"`
}
