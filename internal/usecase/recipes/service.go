package recipes

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"recipebox/internal/domain"
)

// Upload описывает загруженный файл изображения.
type Upload struct {
	Data []byte
	Ext  string
}

// Service управляет рецептами и лентой.
type Service struct {
	recipes        domain.RecipeRepo
	categories     domain.CategoryRepo
	comments       domain.CommentRepo
	images         domain.ImageStore
	cache          *PageCache
	defaultPerPage int
	log            zerolog.Logger
}

// NewService создаёт сервис рецептов.
func NewService(recipes domain.RecipeRepo, categories domain.CategoryRepo, comments domain.CommentRepo,
	images domain.ImageStore, cache *PageCache, defaultPerPage int, logger zerolog.Logger) *Service {
	return &Service{
		recipes:        recipes,
		categories:     categories,
		comments:       comments,
		images:         images,
		cache:          cache,
		defaultPerPage: defaultPerPage,
		log:            logger,
	}
}

// Categories возвращает справочник категорий.
func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("список категорий: %w", err)
	}
	return categories, nil
}

// List возвращает страницу ленты, по возможности из кэша.
func (s *Service) List(ctx context.Context, q domain.ListQuery) (domain.CachedPage, error) {
	q = q.Normalize(s.defaultPerPage)
	if page, ok := s.cache.Get(ctx, q); ok {
		return page, nil
	}
	items, total, err := s.recipes.ListRecipes(ctx, q)
	if err != nil {
		return domain.CachedPage{}, fmt.Errorf("лента рецептов: %w", err)
	}
	for i := range items {
		s.present(&items[i])
	}
	page := domain.CachedPage{Items: items, Total: total, PerPage: q.PerPage, CurrentPage: q.Page}
	s.cache.Put(ctx, q, page)
	return page, nil
}

// GetPublic возвращает рецепт с комментариями любому посетителю.
func (s *Service) GetPublic(ctx context.Context, id int64) (domain.RecipeDetail, error) {
	summary, err := s.recipes.GetRecipeSummary(ctx, id)
	if err != nil {
		return domain.RecipeDetail{}, fmt.Errorf("получение рецепта: %w", err)
	}
	comments, err := s.comments.ListComments(ctx, id)
	if err != nil {
		return domain.RecipeDetail{}, fmt.Errorf("комментарии рецепта: %w", err)
	}
	s.present(&summary)
	return domain.RecipeDetail{RecipeSummary: summary, Comments: comments}, nil
}

// GetOwned возвращает рецепт владельца. Чужой рецепт неотличим от отсутствующего.
func (s *Service) GetOwned(ctx context.Context, id, userID int64) (domain.RecipeSummary, error) {
	summary, err := s.recipes.GetRecipeSummary(ctx, id)
	if err != nil {
		return domain.RecipeSummary{}, fmt.Errorf("получение рецепта: %w", err)
	}
	if summary.UserID != userID {
		return domain.RecipeSummary{}, domain.ErrNotFound
	}
	s.present(&summary)
	return summary, nil
}

// Create сохраняет рецепт пользователя.
func (s *Service) Create(ctx context.Context, userID int64, in domain.RecipeInput, img *Upload) (domain.RecipeSummary, error) {
	if in.Instructions == nil || strings.TrimSpace(*in.Instructions) == "" {
		return domain.RecipeSummary{}, domain.NewValidationError("instructions", "инструкции обязательны")
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return domain.RecipeSummary{}, err
	}
	stored, err := s.storeImage(ctx, &in, img)
	if err != nil {
		return domain.RecipeSummary{}, err
	}
	recipe, err := s.recipes.CreateRecipe(ctx, userID, in)
	if err != nil {
		s.dropImage(ctx, stored)
		return domain.RecipeSummary{}, fmt.Errorf("создание рецепта: %w", err)
	}
	s.cache.InvalidateAll(ctx)
	return s.summary(ctx, recipe.ID)
}

// Update меняет переданные поля рецепта владельца.
func (s *Service) Update(ctx context.Context, id, userID int64, in domain.RecipeInput, img *Upload) (domain.RecipeSummary, error) {
	current, err := s.owned(ctx, id, userID)
	if err != nil {
		return domain.RecipeSummary{}, err
	}
	if in.Instructions != nil && strings.TrimSpace(*in.Instructions) == "" {
		return domain.RecipeSummary{}, domain.NewValidationError("instructions", "инструкции не могут быть пустыми")
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return domain.RecipeSummary{}, err
	}
	stored, err := s.storeImage(ctx, &in, img)
	if err != nil {
		return domain.RecipeSummary{}, err
	}
	if _, err := s.recipes.UpdateRecipe(ctx, id, in); err != nil {
		s.dropImage(ctx, stored)
		return domain.RecipeSummary{}, fmt.Errorf("обновление рецепта: %w", err)
	}
	if in.Image != nil && current.Image != nil && *current.Image != *in.Image {
		s.dropImage(ctx, *current.Image)
	}
	s.cache.InvalidateAll(ctx)
	return s.summary(ctx, id)
}

// Delete удаляет рецепт владельца вместе с комментариями, оценками и файлом изображения.
func (s *Service) Delete(ctx context.Context, id, userID int64) error {
	current, err := s.owned(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.recipes.DeleteRecipe(ctx, id); err != nil {
		return fmt.Errorf("удаление рецепта: %w", err)
	}
	if current.Image != nil {
		s.dropImage(ctx, *current.Image)
	}
	s.cache.InvalidateAll(ctx)
	return nil
}

func (s *Service) owned(ctx context.Context, id, userID int64) (domain.Recipe, error) {
	recipe, err := s.recipes.GetRecipe(ctx, id)
	if err != nil {
		return domain.Recipe{}, fmt.Errorf("получение рецепта: %w", err)
	}
	if recipe.UserID != userID {
		return domain.Recipe{}, domain.ErrNotFound
	}
	return recipe, nil
}

func (s *Service) summary(ctx context.Context, id int64) (domain.RecipeSummary, error) {
	summary, err := s.recipes.GetRecipeSummary(ctx, id)
	if err != nil {
		return domain.RecipeSummary{}, fmt.Errorf("получение рецепта: %w", err)
	}
	s.present(&summary)
	return summary, nil
}

func (s *Service) checkCategory(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	ok, err := s.categories.CategoryExists(ctx, *id)
	if err != nil {
		return fmt.Errorf("проверка категории: %w", err)
	}
	if !ok {
		return domain.NewValidationError("category_id", "выбранная категория не существует")
	}
	return nil
}

// storeImage сохраняет загруженный файл и подставляет его путь в in.Image.
func (s *Service) storeImage(ctx context.Context, in *domain.RecipeInput, img *Upload) (string, error) {
	if img == nil || len(img.Data) == 0 || s.images == nil {
		return "", nil
	}
	rel, err := s.images.Save(ctx, img.Data, img.Ext)
	if err != nil {
		return "", fmt.Errorf("сохранение изображения: %w", err)
	}
	in.Image = &rel
	return rel, nil
}

func (s *Service) dropImage(ctx context.Context, ref string) {
	if ref == "" || s.images == nil {
		return
	}
	if err := s.images.Delete(ctx, ref); err != nil {
		s.log.Warn().Err(err).Str("image", ref).Msg("recipes: failed to delete image")
	}
}

func (s *Service) present(summary *domain.RecipeSummary) {
	if summary.Image == nil || s.images == nil {
		return
	}
	url := s.images.URL(*summary.Image)
	summary.Image = &url
}
