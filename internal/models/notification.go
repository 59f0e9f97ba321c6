package models

import "time"

// Типы уведомлений.
const (
	NotificationTypeAffirmation  = "affirmation"
	NotificationTypeSubscription = "subscription"
)

// Notification — запись о попытке доставки push-уведомления.
// После создания изменяется только флаг IsRead.
type Notification struct {
	ID        int               `json:"id"`
	UserUID   string            `json:"userId"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Type      string            `json:"type"`
	IsRead    bool              `json:"isRead"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// NotificationDraft — содержимое уведомления до отправки.
type NotificationDraft struct {
	Title string
	Body  string
	Type  string
	Data  map[string]string
}

// Pagination описывает страницу списка.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

// NotificationPage — страница уведомлений пользователя.
type NotificationPage struct {
	Notifications []*Notification `json:"notifications"`
	Pagination    Pagination      `json:"pagination"`
}

// DummyDeviceToken используется для приёма токена устройства из JSON-запроса.
type DummyDeviceToken struct {
	Token string `json:"token" validate:"required"`
}

// SubscriptionEvent — сообщение о смене состояния подписки, публикуемое в брокер.
type SubscriptionEvent struct {
	UserUID   string    `json:"user_uid"`
	Plan      string    `json:"plan"`
	EndDate   time.Time `json:"end_date"`
	EventType string    `json:"event_type"`
}
