package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"recipebox/internal/domain"
	"recipebox/internal/usecase/ratings"
	"recipebox/internal/usecase/recipes"
)

// AuthService регистрирует пользователей и проверяет токены.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (domain.User, string, error)
	Login(ctx context.Context, email, password string) (domain.User, string, error)
	Logout(ctx context.Context, userID int64) error
	Authenticate(ctx context.Context, token string) (domain.User, error)
}

// RecipeService управляет рецептами и лентой.
type RecipeService interface {
	Categories(ctx context.Context) ([]domain.Category, error)
	List(ctx context.Context, q domain.ListQuery) (domain.CachedPage, error)
	GetPublic(ctx context.Context, id int64) (domain.RecipeDetail, error)
	GetOwned(ctx context.Context, id, userID int64) (domain.RecipeSummary, error)
	Create(ctx context.Context, userID int64, in domain.RecipeInput, img *recipes.Upload) (domain.RecipeSummary, error)
	Update(ctx context.Context, id, userID int64, in domain.RecipeInput, img *recipes.Upload) (domain.RecipeSummary, error)
	Delete(ctx context.Context, id, userID int64) error
}

// CommentService управляет комментариями.
type CommentService interface {
	Create(ctx context.Context, recipeID, userID int64, text string) (domain.Comment, error)
	Delete(ctx context.Context, recipeID, commentID, userID int64) error
}

// RatingService управляет оценками.
type RatingService interface {
	Rate(ctx context.Context, recipeID, userID int64, value int) (ratings.Result, error)
	Get(ctx context.Context, recipeID, userID int64) (*domain.Rating, error)
}

// ScrapeService импортирует рецепты с поддерживаемого сайта.
type ScrapeService interface {
	domain.Scraper
	AllowedHost() string
}

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps собирает зависимости обработчиков.
type Deps struct {
	Auth           AuthService
	Recipes        RecipeService
	Comments       CommentService
	Ratings        RatingService
	Scraper        ScrapeService
	Health         Pinger
	StorageDir     string
	DefaultPerPage int
	Debug          bool
	Logger         zerolog.Logger
}

// Handler обслуживает REST API.
type Handler struct {
	auth           AuthService
	recipes        RecipeService
	comments       CommentService
	ratings        RatingService
	scraper        ScrapeService
	health         Pinger
	storageDir     string
	defaultPerPage int
	debug          bool
	log            zerolog.Logger
}

// New создаёт обработчики API.
func New(d Deps) *Handler {
	return &Handler{
		auth:           d.Auth,
		recipes:        d.Recipes,
		comments:       d.Comments,
		ratings:        d.Ratings,
		scraper:        d.Scraper,
		health:         d.Health,
		storageDir:     d.StorageDir,
		defaultPerPage: d.DefaultPerPage,
		debug:          d.Debug,
		log:            d.Logger,
	}
}

// Mount регистрирует маршруты API, health и раздачу изображений.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/health", h.healthcheck)
	if h.storageDir != "" {
		r.Handle("/storage/*", http.StripPrefix("/storage/", http.FileServer(http.Dir(h.storageDir))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Get("/categories", h.listCategories)

		r.With(h.optionalAuth).Get("/public/recipes", h.listPublicRecipes)
		r.Get("/public/recipes/{id}", h.showPublicRecipe)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Get("/user", h.currentUser)
			r.Post("/logout", h.logout)

			r.Get("/recipes", h.listRecipes)
			r.Post("/recipes", h.createRecipe)
			r.Post("/recipes/scrape", h.scrapeRecipe)
			r.Get("/recipes/{id}", h.showRecipe)
			r.Put("/recipes/{id}", h.updateRecipe)
			r.Delete("/recipes/{id}", h.deleteRecipe)

			r.Post("/public/recipes/{id}/comments", h.createComment)
			r.Delete("/public/recipes/{id}/comments/{commentId}", h.deleteComment)
			r.Post("/public/recipes/{id}/ratings", h.rateRecipe)
			r.Get("/public/recipes/{id}/ratings", h.showRating)
		})
	})
}

func (h *Handler) healthcheck(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health.Ping(ctx); err != nil {
			h.log.Warn().Err(err).Msg("http: healthcheck failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// pathID читает числовой параметр маршрута. Некорректный id трактуется как отсутствующий ресурс.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrNotFound
	}
	return id, nil
}
