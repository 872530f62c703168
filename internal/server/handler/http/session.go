package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/atinyakov/HostsBox/internal/models"
	"github.com/atinyakov/HostsBox/internal/session"
	"github.com/go-chi/chi/v5"
)

// SessionService is the session controller as used by the handlers.
type SessionService interface {
	Entries() []models.Entry
	Selected() []string
	View() session.View
	Preview() string

	CreateEntry(ctx context.Context, name string) (models.Entry, error)
	ToggleEntryActive(ctx context.Context, id string, active bool) error
	SelectEntry(id string) error
	SetBuffer(content string) error
	SaveCurrentEntry(ctx context.Context) error
	DeleteEntry(ctx context.Context, id string) error

	SelectSystem()
	SelectDefault()
	EditDefault() error
	SaveDefault(ctx context.Context) error
	SaveDefaultAndApply(ctx context.Context) error

	Select(id string) error
	Unselect(id string)
	ClearSelection()
	DeleteConfirmation() (string, error)
	DeleteSelectedEntries(ctx context.Context, confirm func(msg string) bool) error
	ActivateSelectedEntries(ctx context.Context) error
	DeactivateSelectedEntries(ctx context.Context) error

	OpenHostsDir() error
}

// SessionHandler serves the session API.
type SessionHandler struct {
	Session SessionService
}

// EntriesResponse is the reply of the entry and selection routes.
type EntriesResponse struct {
	Entries  []models.Entry `json:"entries"`
	Selected []string       `json:"selected"`
}

func decode(r *http.Request, v any) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}

func queryFlag(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

func (h *SessionHandler) entries(w http.ResponseWriter, status int) {
	resp := EntriesResponse{Entries: h.Session.Entries(), Selected: h.Session.Selected()}
	if resp.Entries == nil {
		resp.Entries = []models.Entry{}
	}
	if resp.Selected == nil {
		resp.Selected = []string{}
	}
	writeJSON(w, status, resp)
}

func (h *SessionHandler) view(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, h.Session.View())
}

// ListEntries handles GET /api/entries.
func (h *SessionHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	h.entries(w, http.StatusOK)
}

// CreateEntry handles POST /api/entries with body {"name": "..."}.
func (h *SessionHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decode(r, &req) {
		badRequest(w, "invalid body")
		return
	}
	e, err := h.Session.CreateEntry(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// SetActive handles PUT /api/entries/{id}/active with body {"active": bool}.
func (h *SessionHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active *bool `json:"active"`
	}
	if !decode(r, &req) || req.Active == nil {
		badRequest(w, "invalid body")
		return
	}
	if err := h.Session.ToggleEntryActive(r.Context(), chi.URLParam(r, "id"), *req.Active); err != nil {
		writeError(w, err)
		return
	}
	h.entries(w, http.StatusOK)
}

// SaveContent handles PUT /api/entries/{id}/content: it opens the entry,
// replaces its buffer and saves it.
func (h *SessionHandler) SaveContent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if !decode(r, &req) {
		badRequest(w, "invalid body")
		return
	}
	if err := h.Session.SelectEntry(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	if err := h.Session.SetBuffer(req.Content); err != nil {
		writeError(w, err)
		return
	}
	if err := h.Session.SaveCurrentEntry(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	h.view(w)
}

// DeleteEntry handles DELETE /api/entries/{id}.
func (h *SessionHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.DeleteEntry(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetView handles GET /api/view.
func (h *SessionHandler) GetView(w http.ResponseWriter, r *http.Request) {
	h.view(w)
}

// ViewSystem handles POST /api/view/system.
func (h *SessionHandler) ViewSystem(w http.ResponseWriter, r *http.Request) {
	h.Session.SelectSystem()
	h.view(w)
}

// ViewDefault handles POST /api/view/default.
func (h *SessionHandler) ViewDefault(w http.ResponseWriter, r *http.Request) {
	h.Session.SelectDefault()
	h.view(w)
}

// ViewEntry handles POST /api/view/entries/{id}.
func (h *SessionHandler) ViewEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.SelectEntry(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	h.view(w)
}

// EditDefault handles POST /api/default/edit.
func (h *SessionHandler) EditDefault(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.EditDefault(); err != nil {
		writeError(w, err)
		return
	}
	h.view(w)
}

// SetBuffer handles PUT /api/default/buffer with body {"content": "..."}.
func (h *SessionHandler) SetBuffer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if !decode(r, &req) {
		badRequest(w, "invalid body")
		return
	}
	if err := h.Session.SetBuffer(req.Content); err != nil {
		writeError(w, err)
		return
	}
	h.view(w)
}

// SaveDefault handles POST /api/default/save; with apply=true the result is
// also written to the system hosts file.
func (h *SessionHandler) SaveDefault(w http.ResponseWriter, r *http.Request) {
	save := h.Session.SaveDefault
	if queryFlag(r, "apply") {
		save = h.Session.SaveDefaultAndApply
	}
	if err := save(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	h.view(w)
}

// Select handles PUT /api/selection/{id}.
func (h *SessionHandler) Select(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.Select(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	h.entries(w, http.StatusOK)
}

// Unselect handles DELETE /api/selection/{id}.
func (h *SessionHandler) Unselect(w http.ResponseWriter, r *http.Request) {
	h.Session.Unselect(chi.URLParam(r, "id"))
	h.entries(w, http.StatusOK)
}

// ClearSelection handles DELETE /api/selection.
func (h *SessionHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	h.Session.ClearSelection()
	h.entries(w, http.StatusOK)
}

// DeleteSelected handles POST /api/selection/delete. Without confirm=true it
// answers 428 with the question the client must put to the user.
func (h *SessionHandler) DeleteSelected(w http.ResponseWriter, r *http.Request) {
	if !queryFlag(r, "confirm") {
		msg, err := h.Session.DeleteConfirmation()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusPreconditionRequired, ErrorResponse{
			Error:   models.ErrNotConfirmed.Error(),
			Code:    models.ErrorCode(models.ErrNotConfirmed),
			Message: msg,
		})
		return
	}
	err := h.Session.DeleteSelectedEntries(r.Context(), func(string) bool { return true })
	if err != nil {
		writeError(w, err)
		return
	}
	h.entries(w, http.StatusOK)
}

// ActivateSelected handles POST /api/selection/activate.
func (h *SessionHandler) ActivateSelected(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.ActivateSelectedEntries(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	h.entries(w, http.StatusOK)
}

// DeactivateSelected handles POST /api/selection/deactivate.
func (h *SessionHandler) DeactivateSelected(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.DeactivateSelectedEntries(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	h.entries(w, http.StatusOK)
}

// Preview handles GET /api/preview.
func (h *SessionHandler) Preview(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"content": h.Session.Preview()})
}

// OpenDir handles POST /api/open-dir.
func (h *SessionHandler) OpenDir(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.OpenHostsDir(); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
