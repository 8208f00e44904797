package handlers

import (
	"issuehub/apperr"
	"issuehub/middleware"
	"issuehub/models"
	"issuehub/services"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type IssueHandler struct {
	issues   *services.Issues
	validate *validator.Validate
	log      zerolog.Logger
}

func NewIssueHandler(issues *services.Issues, log zerolog.Logger) *IssueHandler {
	return &IssueHandler{
		issues:   issues,
		validate: newValidator(),
		log:      log,
	}
}

type createIssueRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	AssigneeID  *uint  `json:"assignee_id"`
}

func (h *IssueHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	projectID, err := idParam(r, "projectID")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	var req createIssueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := validate(h.validate, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	issue, err := h.issues.Create(r.Context(), projectID, user.ID, services.CreateIssueInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    models.IssuePriority(req.Priority),
		AssigneeID:  req.AssigneeID,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

// List serves GET /projects/{projectID}/issues. The assignee filter is
// accepted as either "assignee" or "assignee_id".
func (h *IssueHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	projectID, err := idParam(r, "projectID")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	filter, err := parseIssueFilter(r.URL.Query())
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	page, err := h.issues.List(r.Context(), projectID, user.ID, filter)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func parseIssueFilter(q url.Values) (models.IssueFilter, error) {
	filter := models.IssueFilter{
		Page:     1,
		PageSize: services.DefaultPageSize,
		Query:    q.Get("q"),
		Sort:     q.Get("sort"),
	}

	var details []apperr.FieldError
	intParam := func(name string, dst *int) {
		raw := q.Get(name)
		if raw == "" {
			return
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			details = append(details, apperr.FieldError{Field: name, Message: name + " must be an integer"})
			return
		}
		*dst = n
	}
	intParam("page", &filter.Page)
	intParam("page_size", &filter.PageSize)

	if s := q.Get("status"); s != "" {
		status := models.IssueStatus(s)
		filter.Status = &status
	}
	if p := q.Get("priority"); p != "" {
		priority := models.IssuePriority(p)
		filter.Priority = &priority
	}

	name, raw := "assignee", q.Get("assignee")
	if raw == "" {
		name, raw = "assignee_id", q.Get("assignee_id")
	}
	if raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			details = append(details, apperr.FieldError{Field: name, Message: name + " must be a user id"})
		} else {
			assignee := uint(id)
			filter.AssigneeID = &assignee
		}
	}

	if len(details) > 0 {
		return filter, apperr.Validation(details...)
	}
	return filter, nil
}

func (h *IssueHandler) Detail(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	issueID, err := idParam(r, "issueID")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	view, err := h.issues.Detail(r.Context(), issueID, user.ID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Update applies a partial update. A field omitted from the body is left
// alone; "assignee_id": null unassigns the issue.
func (h *IssueHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	issueID, err := idParam(r, "issueID")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	var patch models.IssuePatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, h.log, err)
		return
	}

	issue, err := h.issues.Update(r.Context(), issueID, user.ID, patch)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (h *IssueHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	issueID, err := idParam(r, "issueID")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.issues.Delete(r.Context(), issueID, user.ID); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Issue deleted successfully"})
}
