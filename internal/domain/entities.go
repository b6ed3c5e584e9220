package domain

import "time"

// User описывает зарегистрированного пользователя.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	TokenVersion int       `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserRef содержит краткую ссылку на автора рецепта или комментария.
type UserRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Category описывает категорию рецептов.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Recipe хранит рецепт пользователя в том виде, в каком он лежит в БД.
type Recipe struct {
	ID              int64
	UserID          int64
	CategoryID      *int64
	Name            *string
	PrepTimeMinutes *int
	Servings        *int
	Image           *string
	Instructions    string
	Ingredients     *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RecipeSummary описывает элемент публичной ленты вместе с агрегатами.
type RecipeSummary struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	User            *UserRef  `json:"user,omitempty"`
	CategoryID      *int64    `json:"category_id"`
	Category        *Category `json:"category"`
	Name            *string   `json:"name"`
	PrepTimeMinutes *int      `json:"prep_time_minutes"`
	Servings        *int      `json:"servings"`
	Image           *string   `json:"image"`
	Instructions    string    `json:"instructions"`
	Ingredients     *string   `json:"ingredients"`
	AverageRating   float64   `json:"average_rating"`
	RatingsCount    int       `json:"ratings_count"`
	CommentsCount   int       `json:"comments_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// RecipeDetail содержит рецепт с комментариями для страницы рецепта.
type RecipeDetail struct {
	RecipeSummary
	Comments []Comment `json:"comments"`
}

// Comment описывает комментарий к рецепту.
type Comment struct {
	ID        int64     `json:"id"`
	RecipeID  int64     `json:"recipe_id"`
	UserID    int64     `json:"user_id"`
	Comment   string    `json:"comment"`
	User      *UserRef  `json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Rating хранит оценку пользователя. На пару (рецепт, пользователь) приходится одна запись.
type Rating struct {
	ID        int64     `json:"id"`
	RecipeID  int64     `json:"recipe_id"`
	UserID    int64     `json:"user_id"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecipeInput содержит поля для создания и обновления рецепта.
// nil означает «поле не передано».
type RecipeInput struct {
	CategoryID      *int64
	Name            *string
	PrepTimeMinutes *int
	Servings        *int
	Image           *string
	Instructions    *string
	Ingredients     *string
}

// RecipeDraft содержит результат импорта рецепта со стороннего сайта. В БД не сохраняется.
type RecipeDraft struct {
	Name            string  `json:"name"`
	CategoryName    *string `json:"category_name"`
	Servings        *int    `json:"servings"`
	PrepTimeMinutes *int    `json:"prep_time_minutes"`
	Ingredients     string  `json:"ingredients"`
	Instructions    string  `json:"instructions"`
	ImageURL        *string `json:"image_url"`
}

// ScrapeResult оборачивает результат импорта.
type ScrapeResult struct {
	Success bool         `json:"success"`
	Data    *RecipeDraft `json:"data,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// CachedPage описывает страницу ленты, которая кладётся в кэш.
type CachedPage struct {
	Items       []RecipeSummary `json:"items"`
	Total       int             `json:"total"`
	PerPage     int             `json:"per_page"`
	CurrentPage int             `json:"current_page"`
}

// LastPage возвращает номер последней страницы (минимум 1).
func (p CachedPage) LastPage() int {
	if p.PerPage <= 0 || p.Total == 0 {
		return 1
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}
