package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"recipebox/internal/domain"
	"recipebox/internal/infra/metrics"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.UserRepo     = (*Postgres)(nil)
	_ domain.CategoryRepo = (*Postgres)(nil)
	_ domain.RecipeRepo   = (*Postgres)(nil)
	_ domain.CommentRepo  = (*Postgres)(nil)
	_ domain.RatingRepo   = (*Postgres)(nil)
)

const uniqueViolation = "23505"

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtxWithParent(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// Ping проверяет доступность БД.
func (p *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	return p.pool.Ping(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

// CreateUser реализует domain.UserRepo.
func (p *Postgres) CreateUser(ctx context.Context, name, email, passwordHash string) (domain.User, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	var u domain.User
	err := p.pool.QueryRow(ctx, `
INSERT INTO users (name, email, password_hash)
VALUES ($1, $2, $3)
RETURNING id, name, email, password_hash, token_version, created_at, updated_at
`, name, strings.ToLower(email), passwordHash).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.TokenVersion, &u.CreatedAt, &u.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "users_insert", "users", start, err)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, err
	}
	return u, nil
}

func (p *Postgres) getUser(ctx context.Context, operation, where string, arg any) (domain.User, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	var u domain.User
	err := p.pool.QueryRow(ctx, `
SELECT id, name, email, password_hash, token_version, created_at, updated_at
FROM users
WHERE `+where, arg).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.TokenVersion, &u.CreatedAt, &u.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", operation, "users", start, ignoreNoRows(err))
	if err != nil {
		return domain.User{}, notFound(err)
	}
	return u, nil
}

// GetUserByEmail ищет пользователя без учёта регистра email.
func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return p.getUser(ctx, "users_get_by_email", "email = $1", strings.ToLower(strings.TrimSpace(email)))
}

// GetUserByID реализует domain.UserRepo.
func (p *Postgres) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	return p.getUser(ctx, "users_get_by_id", "id = $1", id)
}

// BumpTokenVersion отзывает все выданные пользователю токены.
func (p *Postgres) BumpTokenVersion(ctx context.Context, userID int64) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `UPDATE users SET token_version = token_version + 1, updated_at = now() WHERE id = $1`, userID)
	metrics.ObserveNetworkRequest("postgres", "users_bump_token_version", "users", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListCategories возвращает категории по алфавиту.
func (p *Postgres) ListCategories(ctx context.Context) ([]domain.Category, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	metrics.ObserveNetworkRequest("postgres", "categories_list", "categories", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 16)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CategoryExists реализует domain.CategoryRepo.
func (p *Postgres) CategoryExists(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	var exists bool
	err := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, id).Scan(&exists)
	metrics.ObserveNetworkRequest("postgres", "categories_exists", "categories", start, err)
	return exists, err
}

func scanSummary(row scanner) (domain.RecipeSummary, error) {
	var (
		s            domain.RecipeSummary
		userName     string
		categoryName *string
	)
	err := row.Scan(
		&s.ID, &s.UserID, &userName, &s.CategoryID, &categoryName,
		&s.Name, &s.PrepTimeMinutes, &s.Servings, &s.Image, &s.Instructions, &s.Ingredients,
		&s.AverageRating, &s.RatingsCount, &s.CommentsCount,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return domain.RecipeSummary{}, err
	}
	s.User = &domain.UserRef{ID: s.UserID, Name: userName}
	if s.CategoryID != nil && categoryName != nil {
		s.Category = &domain.Category{ID: *s.CategoryID, Name: *categoryName}
	}
	return s, nil
}

// ListRecipes возвращает страницу ленты и общее количество подходящих рецептов.
func (p *Postgres) ListRecipes(ctx context.Context, q domain.ListQuery) ([]domain.RecipeSummary, int, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	listSQL, countSQL, args := BuildListQuery(q)

	start := time.Now()
	var total int
	err := p.pool.QueryRow(ctx, countSQL, args...).Scan(&total)
	metrics.ObserveNetworkRequest("postgres", "recipes_count", "recipes", start, err)
	if err != nil {
		return nil, 0, fmt.Errorf("count recipes: %w", err)
	}

	items := make([]domain.RecipeSummary, 0, q.PerPage)
	if total == 0 || q.Offset() >= total {
		return items, total, nil
	}

	start = time.Now()
	rows, err := p.pool.Query(ctx, listSQL, args...)
	metrics.ObserveNetworkRequest("postgres", "recipes_list", "recipes", start, err)
	if err != nil {
		return nil, 0, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// GetRecipeSummary возвращает рецепт с агрегатами.
func (p *Postgres) GetRecipeSummary(ctx context.Context, id int64) (domain.RecipeSummary, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	s, err := scanSummary(p.pool.QueryRow(ctx, "SELECT "+summaryColumns+summaryFrom+"\nWHERE r.id = $1\n"+summaryGroupBy, id))
	metrics.ObserveNetworkRequest("postgres", "recipes_get_summary", "recipes", start, ignoreNoRows(err))
	if err != nil {
		return domain.RecipeSummary{}, notFound(err)
	}
	return s, nil
}

const recipeColumns = `id, user_id, category_id, name, prep_time_minutes, servings, image, instructions, ingredients, created_at, updated_at`

func scanRecipe(row scanner) (domain.Recipe, error) {
	var r domain.Recipe
	err := row.Scan(&r.ID, &r.UserID, &r.CategoryID, &r.Name, &r.PrepTimeMinutes, &r.Servings,
		&r.Image, &r.Instructions, &r.Ingredients, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// GetRecipe реализует domain.RecipeRepo.
func (p *Postgres) GetRecipe(ctx context.Context, id int64) (domain.Recipe, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	r, err := scanRecipe(p.pool.QueryRow(ctx, `SELECT `+recipeColumns+` FROM recipes WHERE id = $1`, id))
	metrics.ObserveNetworkRequest("postgres", "recipes_get", "recipes", start, ignoreNoRows(err))
	if err != nil {
		return domain.Recipe{}, notFound(err)
	}
	return r, nil
}

// CreateRecipe реализует domain.RecipeRepo.
func (p *Postgres) CreateRecipe(ctx context.Context, userID int64, in domain.RecipeInput) (domain.Recipe, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	instructions := ""
	if in.Instructions != nil {
		instructions = *in.Instructions
	}

	start := time.Now()
	r, err := scanRecipe(p.pool.QueryRow(ctx, `
INSERT INTO recipes (user_id, category_id, name, prep_time_minutes, servings, image, instructions, ingredients)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+recipeColumns,
		userID, in.CategoryID, in.Name, in.PrepTimeMinutes, in.Servings, in.Image, instructions, in.Ingredients))
	metrics.ObserveNetworkRequest("postgres", "recipes_insert", "recipes", start, err)
	return r, err
}

// UpdateRecipe обновляет только переданные поля.
func (p *Postgres) UpdateRecipe(ctx context.Context, id int64, in domain.RecipeInput) (domain.Recipe, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	r, err := scanRecipe(p.pool.QueryRow(ctx, `
UPDATE recipes SET
    category_id       = COALESCE($2, category_id),
    name              = COALESCE($3, name),
    prep_time_minutes = COALESCE($4, prep_time_minutes),
    servings          = COALESCE($5, servings),
    image             = COALESCE($6, image),
    instructions      = COALESCE($7, instructions),
    ingredients       = COALESCE($8, ingredients),
    updated_at        = now()
WHERE id = $1
RETURNING `+recipeColumns,
		id, in.CategoryID, in.Name, in.PrepTimeMinutes, in.Servings, in.Image, in.Instructions, in.Ingredients))
	metrics.ObserveNetworkRequest("postgres", "recipes_update", "recipes", start, ignoreNoRows(err))
	if err != nil {
		return domain.Recipe{}, notFound(err)
	}
	return r, nil
}

// DeleteRecipe удаляет рецепт вместе с комментариями и оценками.
func (p *Postgres) DeleteRecipe(ctx context.Context, id int64) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `DELETE FROM recipes WHERE id = $1`, id)
	metrics.ObserveNetworkRequest("postgres", "recipes_delete", "recipes", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const commentSelect = `
SELECT c.id, c.recipe_id, c.user_id, c.comment, c.created_at, c.updated_at, u.name
FROM recipe_comments c
JOIN users u ON u.id = c.user_id`

func scanComment(row scanner) (domain.Comment, error) {
	var (
		c    domain.Comment
		name string
	)
	if err := row.Scan(&c.ID, &c.RecipeID, &c.UserID, &c.Comment, &c.CreatedAt, &c.UpdatedAt, &name); err != nil {
		return domain.Comment{}, err
	}
	c.User = &domain.UserRef{ID: c.UserID, Name: name}
	return c, nil
}

// CreateComment сохраняет комментарий и возвращает его вместе с автором.
func (p *Postgres) CreateComment(ctx context.Context, recipeID, userID int64, text string) (domain.Comment, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	c, err := scanComment(p.pool.QueryRow(ctx, `
WITH c AS (
    INSERT INTO recipe_comments (recipe_id, user_id, comment)
    VALUES ($1, $2, $3)
    RETURNING id, recipe_id, user_id, comment, created_at, updated_at
)
SELECT c.id, c.recipe_id, c.user_id, c.comment, c.created_at, c.updated_at, u.name
FROM c
JOIN users u ON u.id = c.user_id
`, recipeID, userID, text))
	metrics.ObserveNetworkRequest("postgres", "comments_insert", "recipe_comments", start, err)
	return c, err
}

// GetComment ищет комментарий в пределах рецепта.
func (p *Postgres) GetComment(ctx context.Context, recipeID, commentID int64) (domain.Comment, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	c, err := scanComment(p.pool.QueryRow(ctx, commentSelect+"\nWHERE c.id = $1 AND c.recipe_id = $2", commentID, recipeID))
	metrics.ObserveNetworkRequest("postgres", "comments_get", "recipe_comments", start, ignoreNoRows(err))
	if err != nil {
		return domain.Comment{}, notFound(err)
	}
	return c, nil
}

// ListComments возвращает комментарии рецепта, новые первыми.
func (p *Postgres) ListComments(ctx context.Context, recipeID int64) ([]domain.Comment, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, commentSelect+"\nWHERE c.recipe_id = $1\nORDER BY c.created_at DESC, c.id DESC", recipeID)
	metrics.ObserveNetworkRequest("postgres", "comments_list", "recipe_comments", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]domain.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// DeleteComment реализует domain.CommentRepo.
func (p *Postgres) DeleteComment(ctx context.Context, commentID int64) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `DELETE FROM recipe_comments WHERE id = $1`, commentID)
	metrics.ObserveNetworkRequest("postgres", "comments_delete", "recipe_comments", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const ratingColumns = `id, recipe_id, user_id, rating, created_at, updated_at`

func scanRating(row scanner) (domain.Rating, error) {
	var r domain.Rating
	err := row.Scan(&r.ID, &r.RecipeID, &r.UserID, &r.Rating, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// UpsertRating создаёт оценку или перезаписывает прежнюю оценку пользователя.
func (p *Postgres) UpsertRating(ctx context.Context, recipeID, userID int64, value int) (domain.Rating, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	r, err := scanRating(p.pool.QueryRow(ctx, `
INSERT INTO recipe_ratings (recipe_id, user_id, rating)
VALUES ($1, $2, $3)
ON CONFLICT (recipe_id, user_id)
DO UPDATE SET rating = EXCLUDED.rating, updated_at = now()
RETURNING `+ratingColumns, recipeID, userID, value))
	metrics.ObserveNetworkRequest("postgres", "ratings_upsert", "recipe_ratings", start, err)
	return r, err
}

// GetRating реализует domain.RatingRepo.
func (p *Postgres) GetRating(ctx context.Context, recipeID, userID int64) (domain.Rating, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	r, err := scanRating(p.pool.QueryRow(ctx, `SELECT `+ratingColumns+` FROM recipe_ratings WHERE recipe_id = $1 AND user_id = $2`, recipeID, userID))
	metrics.ObserveNetworkRequest("postgres", "ratings_get", "recipe_ratings", start, ignoreNoRows(err))
	if err != nil {
		return domain.Rating{}, notFound(err)
	}
	return r, nil
}

// AverageRating возвращает среднюю оценку, округлённую до двух знаков, или 0.
func (p *Postgres) AverageRating(ctx context.Context, recipeID int64) (float64, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	var avg float64
	err := p.pool.QueryRow(ctx, `SELECT ROUND(COALESCE(AVG(rating), 0)::numeric, 2)::float8 FROM recipe_ratings WHERE recipe_id = $1`, recipeID).Scan(&avg)
	metrics.ObserveNetworkRequest("postgres", "ratings_average", "recipe_ratings", start, err)
	return avg, err
}

func ignoreNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return err
}
