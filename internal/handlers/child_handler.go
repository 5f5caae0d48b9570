package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"kindergarten/internal/models"
	"kindergarten/internal/service"
	"kindergarten/internal/session"
	"kindergarten/internal/validation"
)

// ChildHandler serves the child list, child pages and the child form
type ChildHandler struct {
	childService *service.ChildService
	views        *ViewStore
	render       *Renderer
}

// NewChildHandler creates a new child handler
func NewChildHandler(childService *service.ChildService, views *ViewStore, render *Renderer) *ChildHandler {
	return &ChildHandler{
		childService: childService,
		views:        views,
		render:       render,
	}
}

func childByID(id int64) func(models.ChildRow) bool {
	return func(c models.ChildRow) bool { return c.ID == id }
}

// List renders the paged, searchable child list
func (h *ChildHandler) List(w http.ResponseWriter, r *http.Request) {
	gate := session.FromContext(r.Context())
	view := h.views.Get(gate.ID())

	if isMount(r) || !view.Children.Loaded() {
		var groups []models.Group
		applied, err := view.Children.Load(r.Context(), func(ctx context.Context) ([]models.ChildRow, error) {
			rows, gs, err := h.childService.Rows(ctx, gate.Token())
			groups = gs
			return rows, err
		})
		if err != nil {
			slog.Error("failed to load children", "session_id", gate.ID(), "error", err)
			view.Flash(alertMessage("Failed to load children", err))
		}
		if applied {
			view.SetGroups(groups)
		}
	}
	applyListQuery(r, view.Children)

	page := view.Children.View()
	data := ChildrenViewData{
		Layout:   h.render.Layout(r, "Children", "children"),
		Children: page.Items,
		Pager:    newPager("/children", page),
	}
	h.render.Render(w, http.StatusOK, "children.tmpl", data)
}

// Detail renders one child with a group picker
func (h *ChildHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	gate := session.FromContext(r.Context())
	view := h.views.Get(gate.ID())

	row, groups, err := h.childService.Get(r.Context(), gate.Token(), id)
	if errors.Is(err, service.ErrChildNotFound) {
		view.Children.Remove(childByID(id))
		http.Error(w, ErrChildNotFound, http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("failed to load child", "child_id", id, "error", err)
		view.Flash(alertMessage("Failed to load child", err))
		http.Redirect(w, r, searchURL("/children", view.Children.View().Term), http.StatusSeeOther)
		return
	}
	view.SetGroups(groups)

	data := ChildViewData{
		Layout: h.render.Layout(r, row.FullName(), "children"),
		Child:  *row,
		Groups: groups,
	}
	h.render.Render(w, http.StatusOK, "child.tmpl", data)
}

// Delete removes a child
func (h *ChildHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	gate := session.FromContext(r.Context())
	view := h.views.Get(gate.ID())
	back := searchURL("/children", view.Children.View().Term)

	if err := h.childService.Delete(r.Context(), gate.Token(), id); err != nil {
		slog.Error("failed to delete child", "child_id", id, "error", err)
		view.Flash(alertMessage("Failed to delete child", err))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	if row, found := view.Children.Find(childByID(id)); found {
		view.MoveChild(row, row.GroupID, true)
	} else {
		view.Groups.Invalidate()
	}
	view.Children.Remove(childByID(id))
	view.Flash(MsgChildDeleted)

	slog.Info("child deleted", "child_id", id, "by", gate.Identity())
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// AssignGroup moves a child into the selected group, or out of any group
func (h *ChildHandler) AssignGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	var groupID *int64
	if v := r.FormValue("group_id"); v != "" {
		gid, err := strconv.ParseInt(v, 10, 64)
		if err != nil || gid <= 0 {
			http.Error(w, ErrInvalidID, http.StatusBadRequest)
			return
		}
		groupID = &gid
	}

	gate := session.FromContext(r.Context())
	view := h.views.Get(gate.ID())
	back := fmt.Sprintf("/children/%d", id)

	saved, previous, err := h.childService.AssignGroup(r.Context(), gate.Token(), id, groupID)
	if err != nil {
		slog.Error("failed to assign group", "child_id", id, "error", err)
		view.Flash(alertMessage("Failed to assign group", err))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	h.applySaved(view, *saved, previous)
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// ShowForm renders the child form, empty or filled from the stored child
func (h *ChildHandler) ShowForm(w http.ResponseWriter, r *http.Request) {
	id, ok := formID(w, r)
	if !ok {
		return
	}

	gate := session.FromContext(r.Context())
	view := h.views.Get(gate.ID())

	var in service.ChildInput
	if id != 0 {
		row, _, err := h.childService.Get(r.Context(), gate.Token(), id)
		if errors.Is(err, service.ErrChildNotFound) {
			http.Error(w, ErrChildNotFound, http.StatusNotFound)
			return
		}
		if err != nil {
			slog.Error("failed to load child form", "child_id", id, "error", err)
			view.Flash(alertMessage("Failed to load child", err))
			http.Redirect(w, r, searchURL("/children", view.Children.View().Term), http.StatusSeeOther)
			return
		}
		in = service.ChildInput{Name: row.Name, Surname: row.Surname, DateOfBirth: row.DateOfBirth.String()}
	}

	h.renderForm(w, r, id, in, nil, http.StatusOK)
}

// SaveForm validates and saves the child form
func (h *ChildHandler) SaveForm(w http.ResponseWriter, r *http.Request) {
	id, ok := formID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	gate := session.FromContext(r.Context())
	view := h.views.Get(gate.ID())
	in := service.ChildInput{
		Name:        r.FormValue("name"),
		Surname:     r.FormValue("surname"),
		DateOfBirth: r.FormValue("date_of_birth"),
	}

	saved, err := h.childService.Save(r.Context(), gate.Token(), id, in)
	if err != nil {
		var fieldErrs validation.FieldErrors
		switch {
		case errors.As(err, &fieldErrs):
			h.renderForm(w, r, id, in, fieldErrs, http.StatusUnprocessableEntity)
		case errors.Is(err, service.ErrChildNotFound):
			http.Error(w, ErrChildNotFound, http.StatusNotFound)
		default:
			slog.Error("failed to save child", "child_id", id, "error", err)
			view.Flash(MsgChildSaveFail)
			h.renderForm(w, r, id, in, nil, http.StatusBadGateway)
		}
		return
	}

	h.applySaved(view, *saved, saved.GroupID)
	if id == 0 {
		view.Flash(MsgChildCreated)
	} else {
		view.Flash(MsgChildUpdated)
	}

	slog.Info("child saved", "child_id", saved.ID, "by", gate.Identity())
	http.Redirect(w, r, "/children?page=1", http.StatusSeeOther)
}

// applySaved writes a saved child through to the cached lists
func (h *ChildHandler) applySaved(view *ViewState, saved models.Child, previous *int64) {
	names := view.GroupNames()
	if saved.GroupID != nil {
		if _, known := names[*saved.GroupID]; !known {
			view.Children.Invalidate()
			view.Groups.Invalidate()
			return
		}
	}

	row := h.childService.RowOf(saved, names)
	view.Children.Upsert(childByID(row.ID), row)
	view.MoveChild(row, previous, false)
}

func (h *ChildHandler) renderForm(w http.ResponseWriter, r *http.Request, id int64, in service.ChildInput, errs validation.FieldErrors, status int) {
	title := "New child"
	if id != 0 {
		title = "Edit child"
	}
	data := ChildFormViewData{
		Layout:      h.render.Layout(r, title, "children"),
		ChildID:     id,
		IsNew:       id == 0,
		Name:        in.Name,
		Surname:     in.Surname,
		DateOfBirth: in.DateOfBirth,
		Errors:      errs,
	}
	h.render.Render(w, status, "child_form.tmpl", data)
}

// formID is the id of the child being edited, 0 for a new child
func formID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	if chi.URLParam(r, "id") == "" {
		return 0, true
	}
	return parseID(w, r, "id")
}
