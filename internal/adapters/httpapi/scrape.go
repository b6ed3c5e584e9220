package httpapi

import (
	"net/http"

	"recipebox/internal/domain"
	"recipebox/internal/usecase/scrape"
)

type scrapeRequest struct {
	URL string `json:"url"`
}

type scrapeResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    *domain.RecipeDraft `json:"data,omitempty"`
	Error   string              `json:"error,omitempty"`
}

func (h *Handler) scrapeRecipe(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := scrape.ValidateSourceURL(req.URL, h.scraper.AllowedHost()); err != nil {
		h.fail(w, r, err)
		return
	}
	res := h.scraper.Scrape(r.Context(), req.URL)
	if !res.Success {
		writeJSON(w, http.StatusBadRequest, scrapeResponse{
			Success: false,
			Message: "не удалось импортировать рецепт",
			Error:   res.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, scrapeResponse{
		Success: true,
		Message: "рецепт импортирован",
		Data:    res.Data,
	})
}
