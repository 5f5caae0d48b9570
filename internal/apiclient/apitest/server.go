// Package apitest provides an in-memory kindergarten API for tests.
package apitest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"sync"

	"kindergarten/internal/models"
)

// Token is the bearer token handed out by a successful login
const Token = "test-token"

type failure struct {
	status  int
	message string
}

// Server is a fake API backed by maps
type Server struct {
	*httptest.Server

	// EmbedChildren makes group responses carry their children.
	// When false, clients must join children on groupId.
	EmbedChildren bool

	mu       sync.Mutex
	users    map[string]string
	groups   map[int64]string
	children map[int64]models.Child
	nextID   int64
	failures map[string]failure
	calls    map[string]int
}

// NewServer starts a fake API. It is closed when the test ends.
func NewServer(t interface{ Cleanup(func()) }) *Server {
	s := &Server{
		EmbedChildren: true,
		users:         make(map[string]string),
		groups:        make(map[int64]string),
		children:      make(map[int64]models.Child),
		failures:      make(map[string]failure),
		calls:         make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", s.register)
	mux.HandleFunc("POST /auth/login", s.login)
	mux.HandleFunc("GET /groups", s.authed(s.listGroups))
	mux.HandleFunc("POST /groups", s.authed(s.saveGroup))
	mux.HandleFunc("GET /groups/{id}", s.authed(s.getGroup))
	mux.HandleFunc("PUT /groups/{id}", s.authed(s.saveGroup))
	mux.HandleFunc("DELETE /groups/{id}", s.authed(s.deleteGroup))
	mux.HandleFunc("GET /children", s.authed(s.listChildren))
	mux.HandleFunc("POST /children", s.authed(s.saveChild))
	mux.HandleFunc("GET /children/{id}", s.authed(s.getChild))
	mux.HandleFunc("PUT /children/{id}", s.authed(s.saveChild))
	mux.HandleFunc("DELETE /children/{id}", s.authed(s.deleteChild))

	s.Server = httptest.NewServer(s.intercept(mux))
	t.Cleanup(s.Close)
	return s
}

// AddUser registers a staff account
func (s *Server) AddUser(email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = password
}

// AddGroup stores a group and returns its id
func (s *Server) AddGroup(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.groups[s.nextID] = name
	return s.nextID
}

// AddChild stores a child and returns its id
func (s *Server) AddChild(name, surname, dateOfBirth string, groupID *int64) int64 {
	dob, err := models.ParseDate(dateOfBirth)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.children[s.nextID] = models.Child{ID: s.nextID, Name: name, Surname: surname, DateOfBirth: dob, GroupID: groupID}
	return s.nextID
}

// Child returns a stored child
func (s *Server) Child(id int64) (models.Child, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.children[id]
	return c, ok
}

// GroupName returns the name of a stored group
func (s *Server) GroupName(id int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.groups[id]
	return name, ok
}

// Fail makes every request to "METHOD /path" answer with status and message
func (s *Server) Fail(route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, message: message}
}

// Calls returns how many requests reached "METHOD /path"
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path
		s.mu.Lock()
		s.calls[route]++
		f, failing := s.failures[route]
		s.mu.Unlock()

		if failing {
			writeJSON(w, f.status, map[string]string{"message": f.message})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		next(w, r)
	}
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var reg models.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Malformed request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[reg.Email]; exists {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "Email already registered"})
		return
	}
	s.users[reg.Email] = reg.Password
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "Malformed request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	password, ok := s.users[creds.Email]
	s.mu.Unlock()

	if !ok || password != creds.Password {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, "Invalid email or password")
		return
	}
	io.WriteString(w, "Bearer "+Token)
}

// group builds the response for a group. s.mu must be held.
func (s *Server) group(id int64) models.Group {
	g := models.Group{ID: id, Name: s.groups[id], Children: []models.Child{}}
	if !s.EmbedChildren {
		return g
	}
	for _, c := range s.children {
		if c.InGroup(id) {
			g.Children = append(g.Children, c)
		}
	}
	slices.SortFunc(g.Children, func(a, b models.Child) int { return int(a.ID - b.ID) })
	return g
}

func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	groups := make([]models.Group, 0, len(s.groups))
	for id := range s.groups {
		groups = append(groups, s.group(id))
	}
	slices.SortFunc(groups, func(a, b models.Group) int { return int(a.ID - b.ID) })
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) getGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.groups[id]; !exists {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Group not found"})
		return
	}
	writeJSON(w, http.StatusOK, s.group(id))
}

func (s *Server) saveGroup(w http.ResponseWriter, r *http.Request) {
	var in models.Group
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Group name is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	if r.Method == http.MethodPost {
		s.nextID++
		id = s.nextID
	} else {
		var ok bool
		if id, ok = pathID(w, r); !ok {
			return
		}
		if _, exists := s.groups[id]; !exists {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Group not found"})
			return
		}
	}
	s.groups[id] = in.Name

	members := make(map[int64]bool, len(in.Children))
	for _, c := range in.Children {
		members[c.ID] = true
	}
	for cid, c := range s.children {
		switch {
		case members[cid]:
			gid := id
			c.GroupID = &gid
		case c.InGroup(id):
			c.GroupID = nil
		}
		s.children[cid] = c
	}

	status := http.StatusOK
	if r.Method == http.MethodPost {
		status = http.StatusCreated
	}
	writeJSON(w, status, s.group(id))
}

func (s *Server) deleteGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.groups[id]; !exists {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Group not found"})
		return
	}
	delete(s.groups, id)
	for cid, c := range s.children {
		if c.InGroup(id) {
			c.GroupID = nil
			s.children[cid] = c
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listChildren(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	children := make([]models.Child, 0, len(s.children))
	for _, c := range s.children {
		children = append(children, c)
	}
	slices.SortFunc(children, func(a, b models.Child) int { return int(a.ID - b.ID) })
	writeJSON(w, http.StatusOK, children)
}

func (s *Server) getChild(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, exists := s.children[id]
	if !exists {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Child not found"})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) saveChild(w http.ResponseWriter, r *http.Request) {
	var in models.Child
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if in.GroupID != nil {
		if _, exists := s.groups[*in.GroupID]; !exists {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Group does not exist"})
			return
		}
	}

	status := http.StatusOK
	if r.Method == http.MethodPost {
		s.nextID++
		in.ID = s.nextID
		status = http.StatusCreated
	} else {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if _, exists := s.children[id]; !exists {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Child not found"})
			return
		}
		in.ID = id
	}
	s.children[in.ID] = in
	writeJSON(w, status, in)
}

func (s *Server) deleteChild(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.children[id]; !exists {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Child not found"})
		return
	}
	delete(s.children, id)
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid id"})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
