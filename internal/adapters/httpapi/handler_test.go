package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"recipebox/internal/domain"
	"recipebox/internal/usecase/ratings"
	"recipebox/internal/usecase/recipes"
)

const validToken = "good-token"

type authStub struct {
	loggedOut int64
}

func (a *authStub) Register(ctx context.Context, name, email, password string) (domain.User, string, error) {
	if email == "taken@example.com" {
		return domain.User{}, "", domain.NewValidationError("email", domain.ErrEmailTaken.Error())
	}
	return domain.User{ID: 1, Name: name, Email: email}, validToken, nil
}

func (a *authStub) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	if password != "segredo123" {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}
	return domain.User{ID: 1, Email: email}, validToken, nil
}

func (a *authStub) Logout(ctx context.Context, userID int64) error {
	a.loggedOut = userID
	return nil
}

func (a *authStub) Authenticate(ctx context.Context, token string) (domain.User, error) {
	if token != validToken {
		return domain.User{}, domain.ErrUnauthorized
	}
	return domain.User{ID: 1, Name: "Ana", Email: "ana@example.com"}, nil
}

type recipeSvcStub struct {
	lastQuery  domain.ListQuery
	lastInput  domain.RecipeInput
	lastUpload *recipes.Upload
	listErr    error
}

func (s *recipeSvcStub) Categories(ctx context.Context) ([]domain.Category, error) {
	return []domain.Category{{ID: 1, Name: "Bolos e tortas doces"}}, nil
}

func (s *recipeSvcStub) List(ctx context.Context, q domain.ListQuery) (domain.CachedPage, error) {
	s.lastQuery = q
	if s.listErr != nil {
		return domain.CachedPage{}, s.listErr
	}
	return domain.CachedPage{Items: nil, Total: 31, PerPage: 15, CurrentPage: 2}, nil
}

func (s *recipeSvcStub) GetPublic(ctx context.Context, id int64) (domain.RecipeDetail, error) {
	if id != 7 {
		return domain.RecipeDetail{}, domain.ErrNotFound
	}
	return domain.RecipeDetail{RecipeSummary: domain.RecipeSummary{ID: 7, Instructions: "misture"}}, nil
}

func (s *recipeSvcStub) GetOwned(ctx context.Context, id, userID int64) (domain.RecipeSummary, error) {
	return domain.RecipeSummary{}, domain.ErrNotFound
}

func (s *recipeSvcStub) Create(ctx context.Context, userID int64, in domain.RecipeInput, img *recipes.Upload) (domain.RecipeSummary, error) {
	s.lastInput, s.lastUpload = in, img
	return domain.RecipeSummary{ID: 10, UserID: userID, Name: in.Name}, nil
}

func (s *recipeSvcStub) Update(ctx context.Context, id, userID int64, in domain.RecipeInput, img *recipes.Upload) (domain.RecipeSummary, error) {
	s.lastInput, s.lastUpload = in, img
	return domain.RecipeSummary{ID: id, UserID: userID}, nil
}

func (s *recipeSvcStub) Delete(ctx context.Context, id, userID int64) error {
	return nil
}

type commentSvcStub struct{}

func (commentSvcStub) Create(ctx context.Context, recipeID, userID int64, text string) (domain.Comment, error) {
	return domain.Comment{ID: 3, RecipeID: recipeID, UserID: userID, Comment: text}, nil
}

func (commentSvcStub) Delete(ctx context.Context, recipeID, commentID, userID int64) error {
	return domain.ErrForbidden
}

type ratingSvcStub struct{}

func (ratingSvcStub) Rate(ctx context.Context, recipeID, userID int64, value int) (ratings.Result, error) {
	if recipeID == 99 {
		return ratings.Result{}, ratings.ErrOwnRecipe
	}
	return ratings.Result{Rating: domain.Rating{ID: 4, Rating: value}, AverageRating: 4.5}, nil
}

func (ratingSvcStub) Get(ctx context.Context, recipeID, userID int64) (*domain.Rating, error) {
	return nil, nil
}

type scrapeSvcStub struct {
	calls  int
	result domain.ScrapeResult
}

func (s *scrapeSvcStub) Scrape(ctx context.Context, url string) domain.ScrapeResult {
	s.calls++
	return s.result
}

func (s *scrapeSvcStub) AllowedHost() string { return "tudogostoso.com.br" }

type pingStub struct{ err error }

func (p pingStub) Ping(ctx context.Context) error { return p.err }

type fixture struct {
	router  chi.Router
	auth    *authStub
	recipes *recipeSvcStub
	scraper *scrapeSvcStub
}

func newFixture(debug bool) *fixture {
	f := &fixture{
		auth:    &authStub{},
		recipes: &recipeSvcStub{},
		scraper: &scrapeSvcStub{},
	}
	h := New(Deps{
		Auth:           f.auth,
		Recipes:        f.recipes,
		Comments:       commentSvcStub{},
		Ratings:        ratingSvcStub{},
		Scraper:        f.scraper,
		Health:         pingStub{},
		DefaultPerPage: 15,
		Debug:          debug,
		Logger:         zerolog.Nop(),
	})
	r := chi.NewRouter()
	h.Mount(r)
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, method, target, body string, auth bool) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.Header.Set("Authorization", "Bearer "+validToken)
	}
	return f.serve(t, req)
}

func (f *fixture) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func TestRegisterAndValidation(t *testing.T) {
	f := newFixture(false)

	rec, body := f.do(t, http.MethodPost, "/api/register",
		`{"name":"Ana","email":"ana@example.com","password":"segredo123","password_confirmation":"segredo123"}`, false)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, validToken, body["token"])
	require.NotEmpty(t, body["message"])

	rec, body = f.do(t, http.MethodPost, "/api/register",
		`{"name":"","email":"nope","password":"short","password_confirmation":"other"}`, false)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errs := body["errors"].(map[string]any)
	for _, field := range []string{"name", "email", "password", "password_confirmation"} {
		require.Contains(t, errs, field)
	}

	rec, body = f.do(t, http.MethodPost, "/api/register",
		`{"name":"Ana","email":"taken@example.com","password":"segredo123","password_confirmation":"segredo123"}`, false)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, body["errors"], "email")

	rec, _ = f.do(t, http.MethodPost, "/api/register", `{"name":`, false)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginLogoutAndCurrentUser(t *testing.T) {
	f := newFixture(false)

	rec, body := f.do(t, http.MethodPost, "/api/login", `{"email":"ana@example.com","password":"errado"}`, false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, domain.ErrInvalidCredentials.Error(), body["message"])

	rec, body = f.do(t, http.MethodPost, "/api/login", `{"email":"ana@example.com","password":"segredo123"}`, false)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, validToken, body["token"])

	rec, _ = f.do(t, http.MethodGet, "/api/user", "", false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body = f.do(t, http.MethodGet, "/api/user", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Ana", body["user"].(map[string]any)["name"])

	rec, _ = f.do(t, http.MethodPost, "/api/logout", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1, f.auth.loggedOut)
}

func TestPublicListUsesOptionalAuth(t *testing.T) {
	f := newFixture(false)

	rec, body := f.do(t, http.MethodGet, "/api/public/recipes?page=2&my_recipes=true&servings_operator=above&servings_value=4", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []any{}, body["data"])
	meta := body["meta"].(map[string]any)
	require.EqualValues(t, 2, meta["current_page"])
	require.EqualValues(t, 3, meta["last_page"])
	require.EqualValues(t, 31, meta["total"])
	_, restricted := f.recipes.lastQuery.OwnerRestriction()
	require.False(t, restricted, "без токена my_recipes игнорируется")
	require.NotNil(t, f.recipes.lastQuery.Filter.Servings)

	rec, _ = f.do(t, http.MethodGet, "/api/public/recipes?my_recipes=true", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	owner, restricted := f.recipes.lastQuery.OwnerRestriction()
	require.True(t, restricted)
	require.EqualValues(t, 1, owner)

	req := httptest.NewRequest(http.MethodGet, "/api/public/recipes", nil)
	req.Header.Set("Authorization", "Bearer expired")
	rec, _ = f.serve(t, req)
	require.Equal(t, http.StatusOK, rec.Code, "недействительный токен не ломает публичную ленту")

	rec, _ = f.do(t, http.MethodGet, "/api/recipes", "", false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestShowPublicRecipe(t *testing.T) {
	f := newFixture(false)

	rec, body := f.do(t, http.MethodGet, "/api/public/recipes/7", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]any)
	require.EqualValues(t, 7, data["id"])
	require.Equal(t, []any{}, data["comments"])

	rec, _ = f.do(t, http.MethodGet, "/api/public/recipes/8", "", false)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = f.do(t, http.MethodGet, "/api/public/recipes/abc", "", false)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateRecipeJSON(t *testing.T) {
	f := newFixture(false)

	rec, body := f.do(t, http.MethodPost, "/api/recipes",
		`{"name":"Bolo","servings":8,"prep_time_minutes":0,"instructions":"misture","image_url":"https://img.example.com/bolo.jpg"}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.EqualValues(t, 10, body["data"].(map[string]any)["id"])
	require.Equal(t, 8, *f.recipes.lastInput.Servings)
	require.Equal(t, 0, *f.recipes.lastInput.PrepTimeMinutes)
	require.Equal(t, "https://img.example.com/bolo.jpg", *f.recipes.lastInput.Image)
	require.Nil(t, f.recipes.lastUpload)

	rec, body = f.do(t, http.MethodPost, "/api/recipes",
		`{"name":"`+strings.Repeat("a", 46)+`","servings":0,"prep_time_minutes":-1,"instructions":"x"}`, true)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errs := body["errors"].(map[string]any)
	require.Contains(t, errs, "name")
	require.Contains(t, errs, "servings")
	require.Contains(t, errs, "prep_time_minutes")
}

func multipartRecipe(t *testing.T, filename string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG fake image"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/recipes", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+validToken)
	return req
}

func TestCreateRecipeMultipart(t *testing.T) {
	f := newFixture(false)

	rec, _ := f.serve(t, multipartRecipe(t, "bolo.PNG", map[string]string{
		"name":         "Bolo",
		"servings":     "6",
		"category_id":  "1",
		"instructions": "asse",
		"ingredients":  "",
	}))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, f.recipes.lastUpload)
	require.Equal(t, ".png", f.recipes.lastUpload.Ext)
	require.Equal(t, 6, *f.recipes.lastInput.Servings)
	require.EqualValues(t, 1, *f.recipes.lastInput.CategoryID)
	require.Nil(t, f.recipes.lastInput.Ingredients, "пустое поле формы считается непереданным")

	rec, body := f.serve(t, multipartRecipe(t, "doc.pdf", map[string]string{
		"instructions": "asse",
		"servings":     "muitas",
	}))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errs := body["errors"].(map[string]any)
	require.Contains(t, errs, "image")
	require.Contains(t, errs, "servings")
}

func TestScrapeRecipe(t *testing.T) {
	f := newFixture(false)

	rec, body := f.do(t, http.MethodPost, "/api/recipes/scrape", `{"url":"https://example.com/receita"}`, true)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, body["errors"], "url")
	require.Zero(t, f.scraper.calls)

	f.scraper.result = domain.ScrapeResult{Success: false, Error: "не удалось загрузить страницу"}
	rec, body = f.do(t, http.MethodPost, "/api/recipes/scrape", `{"url":"https://www.tudogostoso.com.br/receita/1"}`, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, false, body["success"])
	require.Equal(t, "не удалось загрузить страницу", body["error"])

	f.scraper.result = domain.ScrapeResult{Success: true, Data: &domain.RecipeDraft{Name: "Bolo de cenoura"}}
	rec, body = f.do(t, http.MethodPost, "/api/recipes/scrape", `{"url":"https://www.tudogostoso.com.br/receita/1"}`, true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["success"])
	require.Equal(t, "Bolo de cenoura", body["data"].(map[string]any)["name"])
}

func TestCommentsAndRatings(t *testing.T) {
	f := newFixture(false)

	rec, _ := f.do(t, http.MethodPost, "/api/public/recipes/7/comments", `{"comment":""}`, true)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, body := f.do(t, http.MethodPost, "/api/public/recipes/7/comments", `{"comment":"delicioso"}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "delicioso", body["data"].(map[string]any)["comment"])

	rec, _ = f.do(t, http.MethodDelete, "/api/public/recipes/7/comments/3", "", true)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/public/recipes/7/ratings", `{"rating":6}`, true)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, body = f.do(t, http.MethodPost, "/api/public/recipes/7/ratings", `{"rating":5}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	data := body["data"].(map[string]any)
	require.EqualValues(t, 5, data["rating"])
	require.EqualValues(t, 4.5, data["average_rating"])

	rec, body = f.do(t, http.MethodPost, "/api/public/recipes/99/ratings", `{"rating":5}`, true)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, ratings.ErrOwnRecipe.Error(), body["message"])

	rec, body = f.do(t, http.MethodGet, "/api/public/recipes/7/ratings", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, body, "data")
	require.Nil(t, body["data"])
}

func TestInternalErrorsHiddenUnlessDebug(t *testing.T) {
	f := newFixture(false)
	f.recipes.listErr = errors.New("pg: connection refused")
	rec, body := f.do(t, http.MethodGet, "/api/public/recipes", "", false)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, body, "error")

	f = newFixture(true)
	f.recipes.listErr = errors.New("pg: connection refused")
	rec, body = f.do(t, http.MethodGet, "/api/public/recipes", "", false)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "pg: connection refused", body["error"])
}

func TestHealthAndCategories(t *testing.T) {
	f := newFixture(false)
	rec, body := f.do(t, http.MethodGet, "/health", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", body["status"])

	rec, body = f.do(t, http.MethodGet, "/api/categories", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body["data"], 1)
}
