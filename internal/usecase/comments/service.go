package comments

import (
	"context"
	"fmt"
	"strings"

	"recipebox/internal/domain"
)

// Invalidator сбрасывает закэшированную ленту.
type Invalidator interface {
	InvalidateAll(ctx context.Context)
}

// Service управляет комментариями к рецептам.
type Service struct {
	comments domain.CommentRepo
	recipes  domain.RecipeRepo
	cache    Invalidator
}

// NewService создаёт сервис комментариев.
func NewService(comments domain.CommentRepo, recipes domain.RecipeRepo, cache Invalidator) *Service {
	return &Service{comments: comments, recipes: recipes, cache: cache}
}

// Create добавляет комментарий к существующему рецепту.
func (s *Service) Create(ctx context.Context, recipeID, userID int64, text string) (domain.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Comment{}, domain.NewValidationError("comment", "комментарий обязателен")
	}
	if _, err := s.recipes.GetRecipe(ctx, recipeID); err != nil {
		return domain.Comment{}, fmt.Errorf("получение рецепта: %w", err)
	}
	comment, err := s.comments.CreateComment(ctx, recipeID, userID, text)
	if err != nil {
		return domain.Comment{}, fmt.Errorf("сохранение комментария: %w", err)
	}
	s.invalidate(ctx)
	return comment, nil
}

// Delete удаляет комментарий. Удалять может автор комментария или владелец рецепта.
func (s *Service) Delete(ctx context.Context, recipeID, commentID, userID int64) error {
	recipe, err := s.recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		return fmt.Errorf("получение рецепта: %w", err)
	}
	comment, err := s.comments.GetComment(ctx, recipeID, commentID)
	if err != nil {
		return fmt.Errorf("получение комментария: %w", err)
	}
	if comment.UserID != userID && recipe.UserID != userID {
		return domain.ErrForbidden
	}
	if err := s.comments.DeleteComment(ctx, commentID); err != nil {
		return fmt.Errorf("удаление комментария: %w", err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidateAll(ctx)
	}
}
