package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"recipebox/internal/domain"
	"recipebox/internal/infra/storage"
	"recipebox/internal/usecase/recipes"
)

const (
	maxImageSize     = 2 << 20
	maxMultipartBody = maxImageSize + 1<<20
)

type recipeRequest struct {
	CategoryID      *int64  `json:"category_id" validate:"omitnil,min=1"`
	Name            *string `json:"name" validate:"omitnil,max=45"`
	PrepTimeMinutes *int    `json:"prep_time_minutes" validate:"omitnil,min=0"`
	Servings        *int    `json:"servings" validate:"omitnil,min=1"`
	Instructions    *string `json:"instructions"`
	Ingredients     *string `json:"ingredients"`
	ImageURL        *string `json:"image_url" validate:"omitnil,url,max=2048"`
}

func (req recipeRequest) input() domain.RecipeInput {
	return domain.RecipeInput{
		CategoryID:      req.CategoryID,
		Name:            req.Name,
		PrepTimeMinutes: req.PrepTimeMinutes,
		Servings:        req.Servings,
		Image:           req.ImageURL,
		Instructions:    req.Instructions,
		Ingredients:     req.Ingredients,
	}
}

type listMeta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

type listResponse struct {
	Data []domain.RecipeSummary `json:"data"`
	Meta listMeta               `json:"meta"`
}

type dataResponse struct {
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.recipes.Categories(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: categories})
}

func (h *Handler) listPublicRecipes(w http.ResponseWriter, r *http.Request) {
	h.list(w, r)
}

func (h *Handler) listRecipes(w http.ResponseWriter, r *http.Request) {
	h.list(w, r)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var requester *int64
	if user, ok := userFrom(r.Context()); ok {
		requester = &user.ID
	}
	q := domain.ParseListQuery(r.URL.Query(), requester, h.defaultPerPage)
	page, err := h.recipes.List(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items := page.Items
	if items == nil {
		items = []domain.RecipeSummary{}
	}
	writeJSON(w, http.StatusOK, listResponse{
		Data: items,
		Meta: listMeta{
			CurrentPage: page.CurrentPage,
			LastPage:    page.LastPage(),
			PerPage:     page.PerPage,
			Total:       page.Total,
		},
	})
}

func (h *Handler) showPublicRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	detail, err := h.recipes.GetPublic(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if detail.Comments == nil {
		detail.Comments = []domain.Comment{}
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: detail})
}

func (h *Handler) showRecipe(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	recipe, err := h.recipes.GetOwned(r.Context(), id, user.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: recipe})
}

func (h *Handler) createRecipe(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	in, img, err := bindRecipe(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	recipe, err := h.recipes.Create(r.Context(), user.ID, in, img)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dataResponse{Message: "рецепт создан", Data: recipe})
}

func (h *Handler) updateRecipe(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	in, img, err := bindRecipe(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	recipe, err := h.recipes.Update(r.Context(), id, user.ID, in, img)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Message: "рецепт обновлён", Data: recipe})
}

func (h *Handler) deleteRecipe(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.recipes.Delete(r.Context(), id, user.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	message(w, http.StatusOK, "рецепт удалён")
}

// bindRecipe принимает JSON или multipart/form-data с файлом в поле image.
func bindRecipe(w http.ResponseWriter, r *http.Request) (domain.RecipeInput, *recipes.Upload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var req recipeRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return domain.RecipeInput{}, nil, err
		}
		return req.input(), nil, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
	if err := r.ParseMultipartForm(maxMultipartBody); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.RecipeInput{}, nil, domain.NewValidationError("image", "размер изображения не должен превышать 2 МБ")
		}
		return domain.RecipeInput{}, nil, errBadRequest
	}
	req, verr := recipeForm(r)
	if err := validateStruct(&req); err != nil {
		var fieldErr *domain.ValidationError
		if !errors.As(err, &fieldErr) {
			return domain.RecipeInput{}, nil, err
		}
		for field, msgs := range fieldErr.Fields {
			for _, msg := range msgs {
				verr.Add(field, msg)
			}
		}
	}
	img, err := readImage(r)
	if err != nil {
		var fieldErr *domain.ValidationError
		if !errors.As(err, &fieldErr) {
			return domain.RecipeInput{}, nil, err
		}
		verr.Add("image", fieldErr.Fields["image"][0])
	}
	if len(verr.Fields) > 0 {
		return domain.RecipeInput{}, nil, verr
	}
	return req.input(), img, nil
}

// recipeForm читает поля формы. Пустые значения считаются непереданными.
func recipeForm(r *http.Request) (recipeRequest, *domain.ValidationError) {
	verr := &domain.ValidationError{}
	text := func(name string) *string {
		values, ok := r.MultipartForm.Value[name]
		if !ok || len(values) == 0 || values[0] == "" {
			return nil
		}
		v := values[0]
		return &v
	}
	integer := func(name string) *int {
		raw := text(name)
		if raw == nil {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(*raw))
		if err != nil {
			verr.Add(name, fmt.Sprintf("%s должен быть целым числом", name))
			return nil
		}
		return &n
	}

	req := recipeRequest{
		Name:         text("name"),
		Instructions: text("instructions"),
		Ingredients:  text("ingredients"),
		ImageURL:     text("image_url"),
	}
	req.PrepTimeMinutes = integer("prep_time_minutes")
	req.Servings = integer("servings")
	if raw := text("category_id"); raw != nil {
		id, err := strconv.ParseInt(strings.TrimSpace(*raw), 10, 64)
		if err != nil {
			verr.Add("category_id", "category_id должен быть целым числом")
		} else {
			req.CategoryID = &id
		}
	}
	return req, verr
}

func readImage(r *http.Request) (*recipes.Upload, error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, errBadRequest
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !storage.Supported(ext) {
		return nil, domain.NewValidationError("image", "изображение должно быть в формате jpeg, png, jpg, gif или webp")
	}
	data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("чтение изображения: %w", err)
	}
	if len(data) > maxImageSize {
		return nil, domain.NewValidationError("image", "размер изображения не должен превышать 2 МБ")
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &recipes.Upload{Data: data, Ext: ext}, nil
}
