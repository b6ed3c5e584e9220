package httpapi

import (
	"net/http"
)

type commentRequest struct {
	Comment string `json:"comment" validate:"required,max=1000"`
}

type ratingRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"`
}

type ratingResponse struct {
	ID            int64   `json:"id"`
	Rating        int     `json:"rating"`
	AverageRating float64 `json:"average_rating"`
}

func (h *Handler) createComment(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	recipeID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	comment, err := h.comments.Create(r.Context(), recipeID, user.ID, req.Comment)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dataResponse{Message: "комментарий добавлен", Data: comment})
}

func (h *Handler) deleteComment(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	recipeID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	commentID, err := pathID(r, "commentId")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.comments.Delete(r.Context(), recipeID, commentID, user.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	message(w, http.StatusOK, "комментарий удалён")
}

func (h *Handler) rateRecipe(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	recipeID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req ratingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.ratings.Rate(r.Context(), recipeID, user.ID, req.Rating)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dataResponse{
		Message: "оценка сохранена",
		Data: ratingResponse{
			ID:            res.Rating.ID,
			Rating:        res.Rating.Rating,
			AverageRating: res.AverageRating,
		},
	})
}

func (h *Handler) showRating(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	recipeID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rating, err := h.ratings.Get(r.Context(), recipeID, user.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: rating})
}
