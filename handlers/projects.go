package handlers

import (
	"issuehub/apperr"
	"issuehub/middleware"
	"issuehub/models"
	"issuehub/services"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// dateLayout is the wire format of project start dates.
const dateLayout = "2006-01-02"

type ProjectHandler struct {
	projects *services.Projects
	validate *validator.Validate
	log      zerolog.Logger
}

func NewProjectHandler(projects *services.Projects, log zerolog.Logger) *ProjectHandler {
	return &ProjectHandler{
		projects: projects,
		validate: newValidator(),
		log:      log,
	}
}

type createProjectRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Key         string  `json:"key" validate:"required,max=50"`
	Description string  `json:"description" validate:"max=2000"`
	StartDate   *string `json:"start_date"`
}

type addMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=maintainer member"`
}

type projectResponse struct {
	ID          uint        `json:"id"`
	Name        string      `json:"name"`
	Key         string      `json:"key"`
	Description string      `json:"description"`
	StartDate   *string     `json:"start_date"`
	CreatedAt   time.Time   `json:"created_at"`
	MyRole      models.Role `json:"my_role,omitempty"`
}

func newProjectResponse(p *models.Project, role models.Role) projectResponse {
	resp := projectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Key:         p.Key,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		MyRole:      role,
	}
	if p.StartDate != nil {
		s := p.StartDate.Format(dateLayout)
		resp.StartDate = &s
	}
	return resp
}

type addMemberResponse struct {
	Message string      `json:"message"`
	UserID  uint        `json:"user_id"`
	Email   string      `json:"email"`
	Role    models.Role `json:"role"`
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := validate(h.validate, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	in := services.CreateProjectInput{Name: req.Name, Key: req.Key, Description: req.Description}
	if req.StartDate != nil && strings.TrimSpace(*req.StartDate) != "" {
		start, err := time.Parse(dateLayout, strings.TrimSpace(*req.StartDate))
		if err != nil {
			writeError(w, h.log, apperr.Validation(apperr.FieldError{Field: "start_date", Message: "start_date must be a date in YYYY-MM-DD format"}))
			return
		}
		in.StartDate = &start
	}

	project, err := h.projects.Create(r.Context(), user.ID, in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newProjectResponse(project, ""))
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	summaries, err := h.projects.ListForUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	out := make([]projectResponse, 0, len(summaries))
	for i := range summaries {
		out = append(out, newProjectResponse(&summaries[i].Project, summaries[i].MyRole))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ProjectHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	projectID, err := idParam(r, "projectID")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	var req addMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := validate(h.validate, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	member, err := h.projects.AddMember(r.Context(), projectID, user.ID, req.Email, models.Role(req.Role))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, addMemberResponse{
		Message: "Member added successfully",
		UserID:  member.UserID,
		Email:   member.Email,
		Role:    member.Role,
	})
}

func (h *ProjectHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	projectID, err := idParam(r, "projectID")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	members, err := h.projects.ListMembers(r.Context(), projectID, user.ID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	projectID, err := idParam(r, "projectID")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.projects.Delete(r.Context(), projectID, user.ID); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Project deleted successfully"})
}
