package domain

import (
	"context"
	"time"
)

// UserRepo управляет пользователями.
type UserRepo interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id int64) (User, error)
	BumpTokenVersion(ctx context.Context, userID int64) error
}

// CategoryRepo отдаёт справочник категорий.
type CategoryRepo interface {
	ListCategories(ctx context.Context) ([]Category, error)
	CategoryExists(ctx context.Context, id int64) (bool, error)
}

// RecipeRepo хранит рецепты и выполняет запросы ленты.
type RecipeRepo interface {
	ListRecipes(ctx context.Context, q ListQuery) ([]RecipeSummary, int, error)
	GetRecipe(ctx context.Context, id int64) (Recipe, error)
	GetRecipeSummary(ctx context.Context, id int64) (RecipeSummary, error)
	CreateRecipe(ctx context.Context, userID int64, in RecipeInput) (Recipe, error)
	UpdateRecipe(ctx context.Context, id int64, in RecipeInput) (Recipe, error)
	DeleteRecipe(ctx context.Context, id int64) error
}

// CommentRepo управляет комментариями.
type CommentRepo interface {
	CreateComment(ctx context.Context, recipeID, userID int64, text string) (Comment, error)
	GetComment(ctx context.Context, recipeID, commentID int64) (Comment, error)
	ListComments(ctx context.Context, recipeID int64) ([]Comment, error)
	DeleteComment(ctx context.Context, commentID int64) error
}

// RatingRepo управляет оценками.
type RatingRepo interface {
	UpsertRating(ctx context.Context, recipeID, userID int64, value int) (Rating, error)
	GetRating(ctx context.Context, recipeID, userID int64) (Rating, error)
	AverageRating(ctx context.Context, recipeID int64) (float64, error)
}

// Cache описывает внешнее k/v-хранилище с TTL. Get возвращает ErrCacheMiss при отсутствии ключа.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// Fetcher скачивает HTML страницы.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Extractor разбирает HTML страницы рецепта.
type Extractor interface {
	Extract(html string) (RecipeDraft, error)
}

// Scraper импортирует рецепт по URL и никогда не возвращает ошибку наружу.
type Scraper interface {
	Scrape(ctx context.Context, url string) ScrapeResult
}

// ImageStore сохраняет загруженные изображения.
type ImageStore interface {
	Save(ctx context.Context, data []byte, ext string) (string, error)
	Delete(ctx context.Context, path string) error
	URL(path string) string
}
