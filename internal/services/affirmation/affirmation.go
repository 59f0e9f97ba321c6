// Package services содержит работу с аффирмациями и историей их просмотра.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/affirmation-service/internal/models"
	"github.com/magabrotheeeer/affirmation-service/internal/storage/repository"
)

var (
	ErrAffirmationNotFound = errors.New("affirmation not found")
	ErrHistoryNotFound     = errors.New("history entry not found")
	ErrForbidden           = errors.New("access to the resource is forbidden")
)

// Repository определяет методы хранилища для аффирмаций.
type Repository interface {
	CreateAffirmation(ctx context.Context, a models.Affirmation) (*models.Affirmation, error)
	GetAffirmation(ctx context.Context, id int) (*models.Affirmation, error)
	ListVisibleAffirmations(ctx context.Context, userUID string) ([]*models.Affirmation, error)
	CreateHistory(ctx context.Context, userUID string, affirmationID int) (*models.AffirmationHistory, error)
	GetHistory(ctx context.Context, id int) (*models.AffirmationHistory, error)
	ListHistory(ctx context.Context, userUID string) ([]*models.AffirmationHistory, error)
	CompleteHistory(ctx context.Context, id int) error
}

// AffirmationService реализует операции над аффирмациями.
type AffirmationService struct {
	repo Repository
}

// NewAffirmationService создает новый экземпляр AffirmationService.
func NewAffirmationService(repo Repository) *AffirmationService {
	return &AffirmationService{repo: repo}
}

// Create сохраняет аффирмацию от имени пользователя.
func (s *AffirmationService) Create(ctx context.Context, userUID string, in models.DummyAffirmation) (*models.Affirmation, error) {
	const op = "services.CreateAffirmation"
	a, err := s.repo.CreateAffirmation(ctx, models.Affirmation{
		Content:   in.Content,
		AudioURL:  in.AudioURL,
		Category:  in.Category,
		CreatedBy: userUID,
		IsPremium: in.IsPremium,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// ListVisible возвращает аффирмации, которые видит пользователь:
// все общедоступные и собственные премиальные.
func (s *AffirmationService) ListVisible(ctx context.Context, userUID string) ([]*models.Affirmation, error) {
	const op = "services.ListVisible"
	list, err := s.repo.ListVisibleAffirmations(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// RecordHistory отмечает, что пользователь увидел аффирмацию.
// Чужая премиальная аффирмация считается несуществующей.
func (s *AffirmationService) RecordHistory(ctx context.Context, userUID string, affirmationID int) (*models.AffirmationHistory, error) {
	const op = "services.RecordHistory"
	a, err := s.repo.GetAffirmation(ctx, affirmationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAffirmationNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !a.VisibleTo(userUID) {
		return nil, ErrAffirmationNotFound
	}

	h, err := s.repo.CreateHistory(ctx, userUID, affirmationID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return h, nil
}

// ListHistory возвращает историю просмотров пользователя.
func (s *AffirmationService) ListHistory(ctx context.Context, userUID string) ([]*models.AffirmationHistory, error) {
	const op = "services.ListHistory"
	list, err := s.repo.ListHistory(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// CompleteHistory помечает запись истории выполненной. Отметить можно только свою запись.
func (s *AffirmationService) CompleteHistory(ctx context.Context, userUID string, historyID int) (*models.AffirmationHistory, error) {
	const op = "services.CompleteHistory"
	h, err := s.repo.GetHistory(ctx, historyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrHistoryNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if h.UserUID != userUID {
		return nil, ErrForbidden
	}

	if err := s.repo.CompleteHistory(ctx, historyID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrHistoryNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	h.IsCompleted = true
	return h, nil
}
