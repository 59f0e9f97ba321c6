package models

import "time"

// Affirmation — авторский контент. Премиальная аффирмация видна только её автору.
type Affirmation struct {
	ID        int       `json:"id"`
	Content   string    `json:"content"`
	AudioURL  string    `json:"audioUrl,omitempty"`
	Category  string    `json:"category,omitempty"`
	CreatedBy string    `json:"createdBy"`
	IsPremium bool      `json:"isPremium"`
	CreatedAt time.Time `json:"createdAt"`
}

// VisibleTo сообщает, может ли пользователь видеть аффирмацию.
func (a *Affirmation) VisibleTo(userUID string) bool {
	return !a.IsPremium || a.CreatedBy == userUID
}

// AffirmationHistory — факт просмотра аффирмации пользователем.
type AffirmationHistory struct {
	ID            int       `json:"id"`
	UserUID       string    `json:"userId"`
	AffirmationID int       `json:"affirmationId"`
	SeenAt        time.Time `json:"seenAt"`
	IsCompleted   bool      `json:"isCompleted"`
}

// DummyAffirmation используется для приёма аффирмации из JSON-запроса.
type DummyAffirmation struct {
	Content   string `json:"content" validate:"required,max=1000"`
	AudioURL  string `json:"audioUrl" validate:"omitempty,url"`
	Category  string `json:"category" validate:"omitempty,max=100"`
	IsPremium bool   `json:"isPremium"`
}
