package handlers

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/text/language"

	"kindergarten/internal/listing"
	"kindergarten/internal/models"
	"kindergarten/internal/service"
)

// groupDetail is the mounted state of one group page
type groupDetail struct {
	mu      sync.Mutex
	group   models.Group
	members *listing.Engine[models.ChildRow]
}

func (d *groupDetail) Group() models.Group {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.group
}

func (d *groupDetail) setGroup(g models.Group) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.group = g
}

// ViewState is the list state of one browser session: the mounted
// collections, the group form draft and a pending alert.
type ViewState struct {
	mu       sync.Mutex
	pageSize int
	locale   language.Tag
	lastSeen time.Time

	Groups   *listing.Engine[models.GroupRow]
	Children *listing.Engine[models.ChildRow]

	groupNames map[int64]string
	groupList  []models.Group
	details    map[int64]*groupDetail
	draft      *service.GroupDraft
	alert      string
}

func newViewState(pageSize int, locale language.Tag) *ViewState {
	return &ViewState{
		pageSize: pageSize,
		locale:   locale,
		Groups: listing.New(listing.Config[models.GroupRow]{
			Name:     service.GroupName,
			Fields:   service.GroupFields,
			PageSize: pageSize,
			Locale:   locale,
		}),
		Children:   newChildEngine(pageSize, locale),
		groupNames: make(map[int64]string),
		details:    make(map[int64]*groupDetail),
	}
}

func newChildEngine(pageSize int, locale language.Tag) *listing.Engine[models.ChildRow] {
	return listing.New(listing.Config[models.ChildRow]{
		Name:     service.ChildName,
		Fields:   service.ChildFields,
		PageSize: pageSize,
		Locale:   locale,
	})
}

// Flash stores an alert shown by the next rendered page
func (v *ViewState) Flash(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.alert = msg
}

// TakeAlert returns and clears the pending alert
func (v *ViewState) TakeAlert() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	msg := v.alert
	v.alert = ""
	return msg
}

// SetGroups remembers the groups last fetched, for group names and pickers
func (v *ViewState) SetGroups(groups []models.Group) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.groupList = groups
	v.groupNames = service.GroupNames(groups)
}

// SetGroupName records a single group's name
func (v *ViewState) SetGroupName(id int64, name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.groupNames[id] = name
}

// GroupNames returns a copy of the known group names
func (v *ViewState) GroupNames() map[int64]string {
	v.mu.Lock()
	defer v.mu.Unlock()
	names := make(map[int64]string, len(v.groupNames))
	for id, name := range v.groupNames {
		names[id] = name
	}
	return names
}

// GroupList returns the groups last fetched
func (v *ViewState) GroupList() []models.Group {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.groupList
}

// Detail returns the state of a group page, creating it on first use
func (v *ViewState) Detail(groupID int64) *groupDetail {
	v.mu.Lock()
	defer v.mu.Unlock()
	d, ok := v.details[groupID]
	if !ok {
		d = &groupDetail{members: newChildEngine(v.pageSize, v.locale)}
		v.details[groupID] = d
	}
	return d
}

// loadedDetail returns the state of a group page only when it exists
func (v *ViewState) loadedDetail(groupID int64) (*groupDetail, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	d, ok := v.details[groupID]
	return d, ok
}

// DropDetail forgets a group page
func (v *ViewState) DropDetail(groupID int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.details, groupID)
}

// Draft returns a copy of the group form draft, or nil
func (v *ViewState) Draft() *service.GroupDraft {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.draft == nil {
		return nil
	}
	d := *v.draft
	d.Children = slices.Clone(v.draft.Children)
	return &d
}

// EditDraft applies fn to the group form draft. It reports false when there is no draft.
func (v *ViewState) EditDraft(fn func(d *service.GroupDraft)) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.draft == nil {
		return false
	}
	fn(v.draft)
	return true
}

// SetDraft replaces the group form draft
func (v *ViewState) SetDraft(d *service.GroupDraft) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.draft = d
}

// MoveChild updates the cached group rows and group pages after a child's
// group changed from `from` to row.GroupID, or after it was deleted (deleted true).
func (v *ViewState) MoveChild(row models.ChildRow, from *int64, deleted bool) {
	byID := func(id int64) func(models.GroupRow) bool {
		return func(g models.GroupRow) bool { return g.ID == id }
	}
	isChild := func(c models.ChildRow) bool { return c.ID == row.ID }

	if from != nil && (deleted || !row.InGroup(*from)) {
		if g, ok := v.Groups.Find(byID(*from)); ok {
			g.Children = withoutChild(g.Children, row.ID)
			v.Groups.Upsert(byID(*from), service.GroupRowOf(g.Group))
		}
		if d, ok := v.loadedDetail(*from); ok {
			d.members.Remove(isChild)
		}
	}
	if deleted || row.GroupID == nil {
		return
	}

	to := *row.GroupID
	if g, ok := v.Groups.Find(byID(to)); ok {
		g.Children = append(withoutChild(g.Children, row.ID), row.Child)
		v.Groups.Upsert(byID(to), service.GroupRowOf(g.Group))
	}
	if d, ok := v.loadedDetail(to); ok {
		d.members.Upsert(isChild, row)
	}
}

func withoutChild(children []models.Child, id int64) []models.Child {
	out := make([]models.Child, 0, len(children))
	for _, c := range children {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

func (v *ViewState) touch(now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lastSeen = now
}

func (v *ViewState) idleSince(cutoff time.Time) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastSeen.Before(cutoff)
}

// ViewStore holds the ViewState of every session
type ViewStore struct {
	mu       sync.Mutex
	states   map[string]*ViewState
	pageSize int
	locale   language.Tag
}

// NewViewStore creates an empty store
func NewViewStore(pageSize int, locale language.Tag) *ViewStore {
	return &ViewStore{
		states:   make(map[string]*ViewState),
		pageSize: pageSize,
		locale:   locale,
	}
}

// Get returns the state of a session, creating it on first use
func (s *ViewStore) Get(sessionID string) *ViewState {
	s.mu.Lock()
	v, ok := s.states[sessionID]
	if !ok {
		v = newViewState(s.pageSize, s.locale)
		s.states[sessionID] = v
	}
	s.mu.Unlock()

	v.touch(time.Now())
	return v
}

// Drop forgets a session's state
func (s *ViewStore) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, sessionID)
}

// Len returns the number of sessions with state
func (s *ViewStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// Evict drops every state not used since cutoff and returns how many were dropped
func (s *ViewStore) Evict(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, v := range s.states {
		if v.idleSince(cutoff) {
			delete(s.states, id)
			n++
		}
	}
	return n
}

// Run evicts states idle for longer than idle, checking every interval, until ctx is done
func (s *ViewStore) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.Evict(now.Add(-idle)); n > 0 {
				slog.Debug("evicted idle view state", "count", n)
			}
		}
	}
}
