package ratings

import (
	"context"
	"errors"
	"fmt"

	"recipebox/internal/domain"
)

const (
	MinRating = 1
	MaxRating = 5
)

// ErrOwnRecipe запрещает оценивать собственный рецепт.
var ErrOwnRecipe = fmt.Errorf("нельзя оценить собственный рецепт: %w", domain.ErrForbidden)

// Invalidator сбрасывает закэшированную ленту.
type Invalidator interface {
	InvalidateAll(ctx context.Context)
}

// Result возвращается после выставления оценки.
type Result struct {
	Rating        domain.Rating
	AverageRating float64
}

// Service управляет оценками рецептов.
type Service struct {
	ratings domain.RatingRepo
	recipes domain.RecipeRepo
	cache   Invalidator
}

// NewService создаёт сервис оценок.
func NewService(ratings domain.RatingRepo, recipes domain.RecipeRepo, cache Invalidator) *Service {
	return &Service{ratings: ratings, recipes: recipes, cache: cache}
}

// Rate выставляет или перезаписывает оценку пользователя.
func (s *Service) Rate(ctx context.Context, recipeID, userID int64, value int) (Result, error) {
	if value < MinRating || value > MaxRating {
		return Result{}, domain.NewValidationError("rating", fmt.Sprintf("оценка должна быть от %d до %d", MinRating, MaxRating))
	}
	recipe, err := s.recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		return Result{}, fmt.Errorf("получение рецепта: %w", err)
	}
	if recipe.UserID == userID {
		return Result{}, ErrOwnRecipe
	}
	rating, err := s.ratings.UpsertRating(ctx, recipeID, userID, value)
	if err != nil {
		return Result{}, fmt.Errorf("сохранение оценки: %w", err)
	}
	avg, err := s.ratings.AverageRating(ctx, recipeID)
	if err != nil {
		return Result{}, fmt.Errorf("средняя оценка: %w", err)
	}
	if s.cache != nil {
		s.cache.InvalidateAll(ctx)
	}
	return Result{Rating: rating, AverageRating: avg}, nil
}

// Get возвращает оценку пользователя или nil, если он ещё не оценивал рецепт.
func (s *Service) Get(ctx context.Context, recipeID, userID int64) (*domain.Rating, error) {
	if _, err := s.recipes.GetRecipe(ctx, recipeID); err != nil {
		return nil, fmt.Errorf("получение рецепта: %w", err)
	}
	rating, err := s.ratings.GetRating(ctx, recipeID, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("получение оценки: %w", err)
	}
	return &rating, nil
}
