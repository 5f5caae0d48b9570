package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"kindergarten/internal/models"
	"kindergarten/internal/service"
	"kindergarten/internal/session"
	"kindergarten/internal/validation"
)

// GroupFormHandler serves the group form. Membership edits are buffered in
// the session's draft until the form is saved.
type GroupFormHandler struct {
	groupService *service.GroupService
	views        *ViewStore
	render       *Renderer
}

// NewGroupFormHandler creates a new group form handler
func NewGroupFormHandler(groupService *service.GroupService, views *ViewStore, render *Renderer) *GroupFormHandler {
	return &GroupFormHandler{
		groupService: groupService,
		views:        views,
		render:       render,
	}
}

// Show renders the form. Mounting it (no query string) starts a new draft
// from the stored group; otherwise the current draft is kept.
func (h *GroupFormHandler) Show(w http.ResponseWriter, r *http.Request) {
	var id int64
	if chi.URLParam(r, "id") != "" {
		var ok bool
		if id, ok = parseID(w, r, "id"); !ok {
			return
		}
	}

	gate := session.FromContext(r.Context())
	view := h.views.Get(gate.ID())

	draft := view.Draft()
	if isMount(r) || draft == nil || draft.ID != id {
		loaded, err := h.groupService.LoadDraft(r.Context(), gate.Token(), id)
		if errors.Is(err, service.ErrGroupNotFound) {
			http.Error(w, ErrGroupNotFound, http.StatusNotFound)
			return
		}
		if err != nil {
			slog.Error("failed to load group form", "group_id", id, "error", err)
			view.Flash(alertMessage("Failed to load group", err))
			http.Redirect(w, r, searchURL("/groups", ""), http.StatusSeeOther)
			return
		}
		view.SetDraft(loaded)
		draft = view.Draft()
	}

	h.renderForm(w, r, view, draft, r.URL.Query().Get("q"), "", http.StatusOK)
}

// Add puts an unassigned child into the draft
func (h *GroupFormHandler) Add(w http.ResponseWriter, r *http.Request) {
	h.editDraft(w, r, func(view *ViewState, childID int64) error {
		gate := session.FromContext(r.Context())
		child, err := h.groupService.FindCandidate(r.Context(), gate.Token(), view.Draft(), childID)
		if err != nil {
			return err
		}
		view.EditDraft(func(d *service.GroupDraft) { d.Add(*child) })
		return nil
	})
}

// Remove takes a child out of the draft
func (h *GroupFormHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.editDraft(w, r, func(view *ViewState, childID int64) error {
		view.EditDraft(func(d *service.GroupDraft) { d.Remove(childID) })
		return nil
	})
}

// Search keeps the typed name in the draft and shows the candidates matching q
func (h *GroupFormHandler) Search(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	view := h.views.Get(session.FromContext(r.Context()).ID())
	name := r.FormValue("name")
	if !view.EditDraft(func(d *service.GroupDraft) { d.Name = name }) {
		http.Redirect(w, r, "/group-form", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, formURL(view.Draft(), r.FormValue("q")), http.StatusSeeOther)
}

func (h *GroupFormHandler) editDraft(w http.ResponseWriter, r *http.Request, edit func(view *ViewState, childID int64) error) {
	childID, ok := parseID(w, r, "childId")
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	gate := session.FromContext(r.Context())
	view := h.views.Get(gate.ID())
	name := r.FormValue("name")

	if !view.EditDraft(func(d *service.GroupDraft) { d.Name = name }) {
		http.Redirect(w, r, "/group-form", http.StatusSeeOther)
		return
	}

	if err := edit(view, childID); err != nil {
		slog.Error("failed to edit group form", "child_id", childID, "error", err)
		view.Flash(alertMessage("Failed to update group", err))
	}

	http.Redirect(w, r, formURL(view.Draft(), r.FormValue("q")), http.StatusSeeOther)
}

// Save persists the draft
func (h *GroupFormHandler) Save(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	gate := session.FromContext(r.Context())
	view := h.views.Get(gate.ID())
	query := r.FormValue("q")

	name := r.FormValue("name")
	if !view.EditDraft(func(d *service.GroupDraft) { d.Name = name }) {
		http.Redirect(w, r, "/group-form", http.StatusSeeOther)
		return
	}
	draft := view.Draft()

	saved, err := h.groupService.Save(r.Context(), gate.Token(), draft)
	if err != nil {
		var verr validation.ValidationError
		if errors.As(err, &verr) {
			h.renderForm(w, r, view, draft, query, verr.Message, http.StatusUnprocessableEntity)
			return
		}
		slog.Error("failed to save group", "group_id", draft.ID, "error", err)
		view.Flash(alertMessage("Failed to save group", err))
		http.Redirect(w, r, formURL(draft, query), http.StatusSeeOther)
		return
	}

	if len(saved.Children) == 0 {
		saved.Children = draft.Children
	}
	view.Groups.Upsert(func(g models.GroupRow) bool { return g.ID == saved.ID }, service.GroupRowOf(*saved))
	view.SetGroupName(saved.ID, saved.Name)
	view.DropDetail(saved.ID)
	view.Children.Invalidate()
	view.SetDraft(nil)
	view.Flash(MsgGroupSaved)

	slog.Info("group saved", "group_id", saved.ID, "children", len(saved.Children), "by", gate.Identity())
	http.Redirect(w, r, searchURL("/groups", view.Groups.View().Term), http.StatusSeeOther)
}

func (h *GroupFormHandler) renderForm(w http.ResponseWriter, r *http.Request, view *ViewState, draft *service.GroupDraft, query, nameError string, status int) {
	gate := session.FromContext(r.Context())

	candidates, err := h.groupService.Candidates(r.Context(), gate.Token(), draft, query)
	if err != nil {
		slog.Error("failed to load unassigned children", "error", err)
		view.Flash(alertMessage("Failed to load children", err))
	}

	title := "New group"
	if !draft.IsNew() {
		title = "Edit group"
	}
	data := GroupFormViewData{
		Layout:     h.render.Layout(r, title, "groups"),
		GroupID:    draft.ID,
		IsNew:      draft.IsNew(),
		Name:       draft.Name,
		NameError:  nameError,
		Query:      query,
		Children:   h.groupService.DraftRows(draft),
		Candidates: candidates,
	}
	h.render.Render(w, status, "group_form.tmpl", data)
}

func formPath(d *service.GroupDraft) string {
	if d == nil || d.IsNew() {
		return "/group-form"
	}
	return "/group-form/" + strconv.FormatInt(d.ID, 10)
}

// formURL is the form URL that keeps the draft
func formURL(d *service.GroupDraft, query string) string {
	return searchURL(formPath(d), strings.TrimSpace(query))
}

