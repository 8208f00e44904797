package handlers

import (
	"issuehub/middleware"
	"issuehub/models"
	"issuehub/services"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type CommentHandler struct {
	comments *services.Comments
	validate *validator.Validate
	log      zerolog.Logger
}

func NewCommentHandler(comments *services.Comments, log zerolog.Logger) *CommentHandler {
	return &CommentHandler{
		comments: comments,
		validate: newValidator(),
		log:      log,
	}
}

type createCommentRequest struct {
	Body string `json:"body" validate:"required,max=5000"`
}

func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	issueID, err := idParam(r, "issueID")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	var req createCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := validate(h.validate, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	comment, err := h.comments.Add(r.Context(), issueID, user.ID, req.Body)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	issueID, err := idParam(r, "issueID")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	comments, err := h.comments.List(r.Context(), issueID, user.ID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}
