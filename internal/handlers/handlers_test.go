package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"kindergarten/internal/apiclient"
	"kindergarten/internal/apiclient/apitest"
	"kindergarten/internal/models"
	"kindergarten/internal/security"
	"kindergarten/internal/service"
	"kindergarten/web"
)

const (
	staffEmail    = "staff@silelis.lt"
	staffPassword = "correct horse"
)

type sessionStore struct {
	mu   sync.Mutex
	rows map[string]models.Session
}

func (s *sessionStore) Load(_ context.Context, id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (s *sessionStore) Save(_ context.Context, row *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[row.ID] = *row
	return nil
}

// testApp drives the router like a browser that keeps the session cookie
type testApp struct {
	t       *testing.T
	api     *apitest.Server
	handler http.Handler
	cookies *security.CookieCodec
	csrf    *security.CSRFSigner
	cookie  *http.Cookie
}

func newTestApp(t *testing.T, limiter *security.RateLimiter) *testApp {
	t.Helper()

	api := apitest.NewServer(t)
	api.AddUser(staffEmail, staffPassword)

	client, err := apiclient.New(api.URL, 5*time.Second)
	require.NoError(t, err)

	keys, err := security.DeriveKeys("handler-test-secret")
	require.NoError(t, err)

	tmpl, err := web.LoadTemplates()
	require.NoError(t, err)

	if limiter == nil {
		limiter = security.NewRateLimiter(1000, 1000)
	}

	cookies := security.NewCookieCodec(keys.Cookie, time.Hour)
	csrf := security.NewCSRFSigner(keys.CSRF)
	views := NewViewStore(10, language.Lithuanian)
	render := NewRenderer(tmpl, csrf, views)

	childService := service.NewChildService(client)
	groupService := service.NewGroupService(client, language.Lithuanian)

	h := Handlers{
		Auth:      NewAuthHandler(service.NewAuthService(client, nil), cookies, views, render),
		Groups:    NewGroupHandler(groupService, childService, views, render),
		GroupForm: NewGroupFormHandler(groupService, views, render),
		Children:  NewChildHandler(childService, views, render),
	}
	mw := NewMiddleware(&sessionStore{rows: make(map[string]models.Session)}, cookies, csrf, limiter)

	return &testApp{
		t:       t,
		api:     api,
		handler: NewRouter(h, mw, web.Static()),
		cookies: cookies,
		csrf:    csrf,
	}
}

func (a *testApp) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	a.t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if a.cookie != nil {
		req.AddCookie(a.cookie)
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name != security.SessionCookieName {
			continue
		}
		if c.MaxAge < 0 {
			a.cookie = nil
		} else {
			a.cookie = c
		}
	}
	return rec
}

func (a *testApp) get(target string) *httptest.ResponseRecorder {
	return a.do(http.MethodGet, target, nil)
}

// post submits a form with the session's CSRF token
func (a *testApp) post(target string, form url.Values) *httptest.ResponseRecorder {
	a.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if a.cookie != nil {
		id, err := a.cookies.Decode(a.cookie.Value)
		require.NoError(a.t, err)
		token, err := a.csrf.Token(id)
		require.NoError(a.t, err)
		form.Set("csrf_token", token)
	}
	return a.do(http.MethodPost, target, form)
}

func (a *testApp) login() {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/login", url.Values{"email": {staffEmail}, "password": {staffPassword}})
	require.Equal(a.t, http.StatusSeeOther, rec.Code)
	require.Equal(a.t, "/groups", rec.Header().Get("Location"))
	require.NotNil(a.t, a.cookie)
}

func TestProtectedRoutesRedirectToLogin(t *testing.T) {
	app := newTestApp(t, nil)

	for _, target := range []string{"/groups", "/groups/1", "/children", "/children/1", "/group-form", "/child-form"} {
		t.Run(target, func(t *testing.T) {
			rec := app.get(target)
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/login", rec.Header().Get("Location"))
		})
	}
}

func TestHomeRedirects(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.get("/")
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	app.login()
	rec = app.get("/")
	assert.Equal(t, "/groups", rec.Header().Get("Location"))
}

func TestLoginLogoutFlow(t *testing.T) {
	app := newTestApp(t, nil)
	app.api.AddGroup("Drugeliai")

	app.login()
	rec := app.get("/groups")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Drugeliai")
	assert.Contains(t, rec.Body.String(), staffEmail)

	signedIn := app.cookie
	rec = app.post("/logout", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Nil(t, app.cookie)

	rec = app.get("/groups")
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	// the stored session is signed out even if the old cookie is replayed
	app.cookie = signedIn
	rec = app.get("/groups")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestLoginDoesNotReviveReplayedCookie(t *testing.T) {
	app := newTestApp(t, nil)

	app.login()
	kept := app.cookie
	rec := app.post("/logout", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	// sign in again through the signed-out cookie
	app.cookie = kept
	app.login()
	require.NotEqual(t, kept.Value, app.cookie.Value)

	rec = app.get("/groups")
	assert.Equal(t, http.StatusOK, rec.Code)

	app.cookie = kept
	rec = app.get("/groups")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestLoginFailureShowsServerMessage(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(http.MethodPost, "/login", url.Values{"email": {staffEmail}, "password": {"wrong"}})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Login failed: Invalid email or password")
	assert.Nil(t, app.cookie)
}

func TestLoginPageRedirectsWhenSignedIn(t *testing.T) {
	app := newTestApp(t, nil)
	app.login()

	rec := app.get("/login")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/groups", rec.Header().Get("Location"))
}

func TestRegister(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(http.MethodPost, "/register", url.Values{
		"email":            {"new@silelis.lt"},
		"password":         {"secret"},
		"confirm_password": {"other"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Passwords do not match")

	rec = app.do(http.MethodPost, "/register", url.Values{
		"email":            {staffEmail},
		"password":         {"secret"},
		"confirm_password": {"secret"},
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Registration failed: Email already registered")

	rec = app.do(http.MethodPost, "/register", url.Values{
		"email":            {"new@silelis.lt"},
		"password":         {"secret"},
		"confirm_password": {"secret"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?registered=1", rec.Header().Get("Location"))

	rec = app.get("/login?registered=1")
	assert.Contains(t, rec.Body.String(), MsgRegistered)
}

func TestLoginRateLimited(t *testing.T) {
	app := newTestApp(t, security.NewRateLimiter(0.001, 1))
	form := url.Values{"email": {staffEmail}, "password": {"wrong"}}

	rec := app.do(http.MethodPost, "/login", form)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(http.MethodPost, "/login", form)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestCSRFTokenRequired(t *testing.T) {
	app := newTestApp(t, nil)
	id := app.api.AddChild("Ana", "Ana", "2020-01-01", nil)
	app.login()

	rec := app.do(http.MethodPost, fmt.Sprintf("/children/%d/delete", id), url.Values{})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	_, stored := app.api.Child(id)
	assert.True(t, stored)
}

func TestCreateChildThenList(t *testing.T) {
	app := newTestApp(t, nil)
	app.login()

	rec := app.post("/child-form", url.Values{
		"name":          {"Ana"},
		"surname":       {"Ana"},
		"date_of_birth": {"2020-01-01"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/children?page=1", rec.Header().Get("Location"))

	rec = app.get("/children?page=1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	age := models.AgeOn(models.NewDate(2020, time.January, 1), time.Now())
	assert.Contains(t, body, MsgChildCreated)
	assert.Contains(t, body, "2020-01-01")
	assert.Contains(t, body, fmt.Sprintf("%d years", age))
	assert.Equal(t, 1, strings.Count(body, `href="/child-form/`))
}

func TestChildFormValidation(t *testing.T) {
	app := newTestApp(t, nil)
	app.login()

	rec := app.post("/child-form", url.Values{
		"name":          {"Ana"},
		"surname":       {"Ana"},
		"date_of_birth": {""},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Date of birth is required.")
	assert.Equal(t, 0, app.api.Calls("POST /children"))
}

func TestEditChildKeepsGroup(t *testing.T) {
	app := newTestApp(t, nil)
	gid := app.api.AddGroup("Bitutės")
	id := app.api.AddChild("Ona", "Onaitė", "2021-03-04", &gid)
	app.login()

	rec := app.get(fmt.Sprintf("/child-form/%d", id))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "2021-03-04")

	rec = app.post(fmt.Sprintf("/child-form/%d", id), url.Values{
		"name":          {"Ona"},
		"surname":       {"Petraitė"},
		"date_of_birth": {"2021-03-04"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	child, ok := app.api.Child(id)
	require.True(t, ok)
	assert.Equal(t, "Petraitė", child.Surname)
	assert.True(t, child.InGroup(gid))

	rec = app.get("/children?page=1")
	assert.Contains(t, rec.Body.String(), MsgChildUpdated)
	assert.Contains(t, rec.Body.String(), "Bitutės")
}

func TestChildSaveFailureShowsAlert(t *testing.T) {
	app := newTestApp(t, nil)
	app.login()
	app.api.Fail("POST /children", http.StatusInternalServerError, "database down")

	rec := app.post("/child-form", url.Values{
		"name":          {"Ana"},
		"surname":       {"Ana"},
		"date_of_birth": {"2020-01-01"},
	})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), MsgChildSaveFail)
	assert.Contains(t, rec.Body.String(), `value="Ana"`)
}

func TestChildrenSearchAndPaging(t *testing.T) {
	app := newTestApp(t, nil)
	for _, name := range []string{"Zigmas", "Agnė", "Benas", "Dovydas", "Emilija", "Gabija",
		"Herkus", "Ieva", "Jonas", "Kotryna", "Lukas", "Mantas"} {
		app.api.AddChild(name, "Kazlauskas", "2020-05-05", nil)
	}
	app.login()

	rec := app.get("/children")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page 1 of 2 (12)")
	assert.Contains(t, rec.Body.String(), "Agnė")
	assert.NotContains(t, rec.Body.String(), "Zigmas")

	rec = app.get("/children?q=&page=2")
	assert.Contains(t, rec.Body.String(), "Page 2 of 2 (12)")
	assert.Contains(t, rec.Body.String(), "Zigmas")
	assert.NotContains(t, rec.Body.String(), "Agnė")

	rec = app.get("/children?page=9")
	assert.Contains(t, rec.Body.String(), "Page 2 of 2 (12)")

	rec = app.get("/children?q=ZIG&page=2")
	assert.Contains(t, rec.Body.String(), "Page 1 of 1 (1)")
	assert.Contains(t, rec.Body.String(), "Zigmas")

	rec = app.get("/children?q=kazlausk")
	assert.Contains(t, rec.Body.String(), "Page 1 of 2 (12)")

	assert.Equal(t, 1, app.api.Calls("GET /children"))

	app.get("/children")
	assert.Equal(t, 2, app.api.Calls("GET /children"))
}

func TestListLoadFailureShowsAlert(t *testing.T) {
	app := newTestApp(t, nil)
	app.login()
	app.api.Fail("GET /groups", http.StatusServiceUnavailable, "maintenance")

	rec := app.get("/groups")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<dialog open")
	assert.Contains(t, rec.Body.String(), "Failed to load groups: maintenance")
}

func TestGroupListShowsChildCount(t *testing.T) {
	app := newTestApp(t, nil)
	full := app.api.AddGroup("Bitutės")
	app.api.AddGroup("Drugeliai")
	app.api.AddChild("Ona", "Onaitė", "2021-03-04", &full)
	app.api.AddChild("Jonas", "Jonaitis", "2021-04-04", &full)
	app.login()

	rec := app.get("/groups")
	body := rec.Body.String()

	assert.Contains(t, body, fmt.Sprintf(`<a href="/groups/%d">Bitutės</a>`, full))
	assert.Contains(t, body, `<td class="count">2</td>`)
	assert.Contains(t, body, `<span class="disabled">Drugeliai</span>`)
	assert.Contains(t, body, `<td class="count">-</td>`)
}

func TestGroupFormAddAndSave(t *testing.T) {
	app := newTestApp(t, nil)
	ana := app.api.AddChild("Ana", "Ana", "2020-01-01", nil)
	app.login()

	rec := app.get("/group-form")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), fmt.Sprintf(`formaction="/group-form/draft/add/%d"`, ana))

	rec = app.post(fmt.Sprintf("/group-form/draft/add/%d", ana), url.Values{"name": {"Drugeliai"}, "q": {""}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/group-form?q=", rec.Header().Get("Location"))

	rec = app.get("/group-form?q=")
	assert.Contains(t, rec.Body.String(), `value="Drugeliai"`)
	assert.Contains(t, rec.Body.String(), fmt.Sprintf(`formaction="/group-form/draft/remove/%d"`, ana))
	assert.Contains(t, rec.Body.String(), "Added")

	child, _ := app.api.Child(ana)
	assert.Nil(t, child.GroupID, "draft edits are not saved before submit")

	rec = app.post("/group-form/draft/save", url.Values{"name": {"Drugeliai"}, "q": {""}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/groups?q=", rec.Header().Get("Location"))

	child, _ = app.api.Child(ana)
	require.NotNil(t, child.GroupID)
	name, _ := app.api.GroupName(*child.GroupID)
	assert.Equal(t, "Drugeliai", name)

	rec = app.get("/groups?q=")
	assert.Contains(t, rec.Body.String(), MsgGroupSaved)
	assert.Contains(t, rec.Body.String(), "Drugeliai")
}

func TestGroupFormRejectsChildOfAnotherGroup(t *testing.T) {
	app := newTestApp(t, nil)
	drugeliai := app.api.AddGroup("Drugeliai")
	ana := app.api.AddChild("Ana", "Petraitė", "2020-01-01", &drugeliai)
	app.login()

	rec := app.get("/group-form")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), fmt.Sprintf(`formaction="/group-form/draft/add/%d"`, ana))

	rec = app.post(fmt.Sprintf("/group-form/draft/add/%d", ana), url.Values{"name": {"Bitutės"}, "q": {""}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = app.get("/group-form?q=")
	body := rec.Body.String()
	assert.Contains(t, body, "Failed to update group: child already belongs to a group")
	assert.NotContains(t, body, fmt.Sprintf(`formaction="/group-form/draft/remove/%d"`, ana))

	rec = app.post("/group-form/draft/save", url.Values{"name": {"Bitutės"}, "q": {""}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	child, _ := app.api.Child(ana)
	require.NotNil(t, child.GroupID)
	assert.Equal(t, drugeliai, *child.GroupID)
}

func TestGroupFormSearchKeepsTypedName(t *testing.T) {
	app := newTestApp(t, nil)
	app.api.AddChild("Ana", "Petraitė", "2020-01-01", nil)
	app.api.AddChild("Jonas", "Jonaitis", "2020-02-02", nil)
	app.login()
	app.get("/group-form")

	rec := app.post("/group-form/draft/search", url.Values{"name": {"Bitutės"}, "q": {"jon"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/group-form?q=jon", rec.Header().Get("Location"))

	rec = app.get("/group-form?q=jon")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `value="Bitutės"`)
	assert.Contains(t, body, "Jonas Jonaitis")
	assert.NotContains(t, body, "Ana Petraitė")
}

func TestGroupFormRequiresName(t *testing.T) {
	app := newTestApp(t, nil)
	app.login()
	app.get("/group-form")

	rec := app.post("/group-form/draft/save", url.Values{"name": {"  "}})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Group name is required")
	assert.Equal(t, 0, app.api.Calls("POST /groups"))
}

func TestGroupFormEditsExistingGroup(t *testing.T) {
	app := newTestApp(t, nil)
	gid := app.api.AddGroup("Bitutės")
	ona := app.api.AddChild("Ona", "Onaitė", "2021-03-04", &gid)
	app.login()

	path := fmt.Sprintf("/group-form/%d", gid)
	rec := app.get(path)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="Bitutės"`)

	rec = app.post(fmt.Sprintf("/group-form/draft/remove/%d", ona), url.Values{"name": {"Bitutės"}, "q": {"o"}})
	assert.Equal(t, path+"?q=o", rec.Header().Get("Location"))

	rec = app.post("/group-form/draft/save", url.Values{"name": {"Bitutės"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	child, _ := app.api.Child(ona)
	assert.Nil(t, child.GroupID)
}

func TestRemoveChildFromGroupPage(t *testing.T) {
	app := newTestApp(t, nil)
	gid := app.api.AddGroup("Bitutės")
	ona := app.api.AddChild("Ona", "Onaitė", "2021-03-04", &gid)
	app.login()

	page := fmt.Sprintf("/groups/%d", gid)
	rec := app.get(page)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Onaitė")

	rec = app.post(fmt.Sprintf("/groups/%d/children/%d/remove", gid, ona), nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, page+"?q=", rec.Header().Get("Location"))

	child, _ := app.api.Child(ona)
	assert.Nil(t, child.GroupID)

	rec = app.get(page + "?q=")
	assert.NotContains(t, rec.Body.String(), "Onaitė")
	assert.Contains(t, rec.Body.String(), "No children in this group.")
}

func TestGroupNotFound(t *testing.T) {
	app := newTestApp(t, nil)
	app.login()

	rec := app.get("/groups/404")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.get("/groups/abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssignGroupFromChildPage(t *testing.T) {
	app := newTestApp(t, nil)
	gid := app.api.AddGroup("Bitutės")
	ona := app.api.AddChild("Ona", "Onaitė", "2021-03-04", nil)
	app.login()

	rec := app.get(fmt.Sprintf("/children/%d", ona))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), fmt.Sprintf(`<option value="%d">Bitutės</option>`, gid))

	rec = app.post(fmt.Sprintf("/children/%d/group", ona), url.Values{"group_id": {fmt.Sprint(gid)}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	child, _ := app.api.Child(ona)
	assert.True(t, child.InGroup(gid))

	rec = app.get(fmt.Sprintf("/children/%d", ona))
	assert.Contains(t, rec.Body.String(), fmt.Sprintf(`<option value="%d" selected>Bitutės</option>`, gid))
}

func TestDeleteChild(t *testing.T) {
	app := newTestApp(t, nil)
	ona := app.api.AddChild("Ona", "Onaitė", "2021-03-04", nil)
	app.login()
	app.get("/children")

	rec := app.post(fmt.Sprintf("/children/%d/delete", ona), nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	_, stored := app.api.Child(ona)
	assert.False(t, stored)

	rec = app.get(rec.Header().Get("Location"))
	assert.Contains(t, rec.Body.String(), MsgChildDeleted)
	assert.NotContains(t, rec.Body.String(), "Onaitė")
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
