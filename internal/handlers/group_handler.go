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
)

// GroupHandler serves the group list and group pages
type GroupHandler struct {
	groupService *service.GroupService
	childService *service.ChildService
	views        *ViewStore
	render       *Renderer
}

// NewGroupHandler creates a new group handler
func NewGroupHandler(groupService *service.GroupService, childService *service.ChildService, views *ViewStore, render *Renderer) *GroupHandler {
	return &GroupHandler{
		groupService: groupService,
		childService: childService,
		views:        views,
		render:       render,
	}
}

// List renders the paged, searchable group list. A request without a query
// string mounts the view and refetches the groups.
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	gate := session.FromContext(r.Context())
	view := h.views.Get(gate.ID())

	if isMount(r) || !view.Groups.Loaded() {
		applied, err := view.Groups.Load(r.Context(), func(ctx context.Context) ([]models.GroupRow, error) {
			return h.groupService.Rows(ctx, gate.Token())
		})
		if err != nil {
			slog.Error("failed to load groups", "session_id", gate.ID(), "error", err)
			view.Flash(alertMessage("Failed to load groups", err))
		}
		if applied {
			rememberGroups(view, view.Groups.Items())
		}
	}
	applyListQuery(r, view.Groups)

	page := view.Groups.View()
	data := GroupsViewData{
		Layout: h.render.Layout(r, "Groups", "groups"),
		Groups: page.Items,
		Pager:  newPager("/groups", page),
	}
	h.render.Render(w, http.StatusOK, "groups.tmpl", data)
}

// Detail renders the children of one group
func (h *GroupHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	gate := session.FromContext(r.Context())
	view := h.views.Get(gate.ID())
	detail := view.Detail(id)

	if isMount(r) || !detail.members.Loaded() {
		var group *models.Group
		applied, err := detail.members.Load(r.Context(), func(ctx context.Context) ([]models.ChildRow, error) {
			g, rows, err := h.groupService.Detail(ctx, gate.Token(), id)
			group = g
			return rows, err
		})
		if errors.Is(err, service.ErrGroupNotFound) {
			view.DropDetail(id)
			http.Error(w, ErrGroupNotFound, http.StatusNotFound)
			return
		}
		if err != nil {
			slog.Error("failed to load group", "group_id", id, "error", err)
			view.Flash(alertMessage("Failed to load group", err))
		}
		if applied {
			detail.setGroup(*group)
			view.SetGroupName(group.ID, group.Name)
		}
	}
	applyListQuery(r, detail.members)

	page := detail.members.View()
	group := detail.Group()
	data := GroupViewData{
		Layout:   h.render.Layout(r, group.Name, "groups"),
		Group:    group,
		Children: page.Items,
		Pager:    newPager(fmt.Sprintf("/groups/%d", id), page),
	}
	h.render.Render(w, http.StatusOK, "group.tmpl", data)
}

// Delete removes a group. Its children become unassigned.
func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	gate := session.FromContext(r.Context())
	view := h.views.Get(gate.ID())

	if err := h.groupService.Delete(r.Context(), gate.Token(), id); err != nil {
		slog.Error("failed to delete group", "group_id", id, "error", err)
		view.Flash(alertMessage("Failed to delete group", err))
		http.Redirect(w, r, searchURL("/groups", view.Groups.View().Term), http.StatusSeeOther)
		return
	}

	view.Groups.Remove(func(g models.GroupRow) bool { return g.ID == id })
	view.DropDetail(id)
	view.Children.Invalidate()
	view.Flash(MsgGroupDeleted)

	slog.Info("group deleted", "group_id", id, "by", gate.Identity())
	http.Redirect(w, r, searchURL("/groups", view.Groups.View().Term), http.StatusSeeOther)
}

// RemoveChild takes a child out of the group shown on the group page
func (h *GroupHandler) RemoveChild(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	childID, ok := parseID(w, r, "childId")
	if !ok {
		return
	}

	gate := session.FromContext(r.Context())
	view := h.views.Get(gate.ID())
	back := searchURL(fmt.Sprintf("/groups/%d", id), view.Detail(id).members.View().Term)

	saved, previous, err := h.childService.AssignGroup(r.Context(), gate.Token(), childID, nil)
	if err != nil {
		slog.Error("failed to remove child from group", "group_id", id, "child_id", childID, "error", err)
		view.Flash(alertMessage("Failed to remove child", err))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	row := h.childService.RowOf(*saved, view.GroupNames())
	view.MoveChild(row, previous, false)
	view.Children.Upsert(func(c models.ChildRow) bool { return c.ID == row.ID }, row)

	http.Redirect(w, r, back, http.StatusSeeOther)
}

// rememberGroups records group names from freshly loaded group rows
func rememberGroups(view *ViewState, rows []models.GroupRow) {
	groups := make([]models.Group, len(rows))
	for i, row := range rows {
		groups[i] = row.Group
	}
	view.SetGroups(groups)
}

// isMount reports whether the request mounts a view: a plain GET without a query string
func isMount(r *http.Request) bool {
	return r.Method == http.MethodGet && r.URL.RawQuery == ""
}

// pager is the part of a listing engine driven by the q and page parameters
type pager interface {
	Search(term string)
	SetPage(n int)
}

func applyListQuery(r *http.Request, e pager) {
	q := r.URL.Query()
	e.Search(q.Get("q"))
	if n, err := strconv.Atoi(q.Get("page")); err == nil {
		e.SetPage(n)
	}
}

func parseID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, ErrInvalidID, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
