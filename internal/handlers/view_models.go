package handlers

import (
	"fmt"
	"net/url"

	"kindergarten/internal/listing"
	"kindergarten/internal/models"
	"kindergarten/internal/service"
)

// Layout is the data every page shares with base.tmpl
type Layout struct {
	Title         string
	Active        string
	Identity      string
	Authenticated bool
	CSRFToken     string
	Alert         string
}

type LoginViewData struct {
	Layout
	Email   string
	Error   string
	Success string
}

type RegisterViewData struct {
	Layout
	Email string
	Error string
}

// Pager links the pages of a list view, keeping the search term
type Pager struct {
	Page       int
	TotalPages int
	Total      int
	Offset     int
	Term       string
	PrevURL    string
	NextURL    string
}

func newPager[T any](path string, p listing.Page[T]) Pager {
	pager := Pager{
		Page:       p.Page,
		TotalPages: p.TotalPages,
		Total:      p.Total,
		Offset:     p.Offset,
		Term:       p.Term,
	}
	if p.HasPrev {
		pager.PrevURL = pageURL(path, p.Term, p.Page-1)
	}
	if p.HasNext {
		pager.NextURL = pageURL(path, p.Term, p.Page+1)
	}
	return pager
}

func pageURL(path, term string, page int) string {
	q := url.Values{}
	q.Set("q", term)
	q.Set("page", fmt.Sprint(page))
	return path + "?" + q.Encode()
}

// searchURL is a list URL that keeps the mounted collection
func searchURL(path, term string) string {
	return path + "?" + url.Values{"q": {term}}.Encode()
}

type GroupsViewData struct {
	Layout
	Groups []models.GroupRow
	Pager  Pager
}

type GroupViewData struct {
	Layout
	Group    models.Group
	Children []models.ChildRow
	Pager    Pager
}

type GroupFormViewData struct {
	Layout
	GroupID    int64
	IsNew      bool
	Name       string
	NameError  string
	Query      string
	Children   []models.ChildRow
	Candidates []service.Candidate
}

type ChildrenViewData struct {
	Layout
	Children []models.ChildRow
	Pager    Pager
}

type ChildViewData struct {
	Layout
	Child  models.ChildRow
	Groups []models.Group
}

type ChildFormViewData struct {
	Layout
	ChildID     int64
	IsNew       bool
	Name        string
	Surname     string
	DateOfBirth string
	Errors      map[string]string
}
