// Package models содержит доменные структуры сервиса: пользователей,
// подписки, уведомления и аффирмации.
// Структуры используются в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// Роли пользователей.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User представляет зарегистрированного пользователя системы.
type User struct {
	UUID         string    `json:"uid"`      // Уникальный идентификатор пользователя
	Email        string    `json:"email"`    // Электронная почта
	Username     string    `json:"username"` // Имя пользователя (уникальное)
	PasswordHash string    `json:"-"`        // Хэш пароля пользователя
	Role         string    `json:"role"`     // Роль пользователя, admin или user
	FCMToken     *string   `json:"-"`        // Токен устройства для push-уведомлений
	CreatedAt    time.Time `json:"createdAt"`
}

// HasDeviceToken сообщает, можно ли отправлять пользователю push-уведомления.
func (u *User) HasDeviceToken() bool {
	return u.FCMToken != nil && *u.FCMToken != ""
}

// DummyUser используется для приёма данных регистрации из JSON-запроса.
type DummyUser struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest используется для приёма данных входа.
// Identifier может быть как email, так и username.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}
