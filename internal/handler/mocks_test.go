package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"travelcms/internal/metrics"
	"travelcms/internal/middleware"
	"travelcms/internal/model"
	"travelcms/internal/rbac"
	"travelcms/internal/repository"
	"travelcms/internal/service"
	"travelcms/internal/web"
	"travelcms/pkg/pagination"
)

// One signed-in account per role, keyed by user id
var testActors = map[uint]rbac.Actor{
	1: {UserID: 1, Username: "root", Role: model.RoleSuperadmin},
	2: {UserID: 2, Username: "editor", Role: model.RoleContentAdmin},
	3: {UserID: 3, Username: "keeper", Role: model.RoleUserAdmin},
	4: {UserID: 4, Username: "watcher", Role: model.RoleAuditor},
	5: {UserID: 5, Username: "walker", Role: model.RoleUser},
}

func actorFor(role model.RoleKind) rbac.Actor {
	for _, a := range testActors {
		if a.Role == role {
			return a
		}
	}
	panic("no test actor for " + string(role))
}

type mockUserService struct {
	authErr     error
	registerErr error
	changeErr   error

	registered []service.RegisterRequest
	changed    [][2]uint
	logouts    []uint
}

func (m *mockUserService) Register(_ context.Context, req service.RegisterRequest) (*model.User, error) {
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	m.registered = append(m.registered, req)
	return &model.User{ID: 10, Username: req.Username, RoleID: req.RoleID}, nil
}

func (m *mockUserService) Authenticate(_ context.Context, username, password string) (rbac.Actor, error) {
	if m.authErr != nil {
		return rbac.Actor{}, m.authErr
	}
	for _, a := range testActors {
		if a.Username == username && password == "secret1" {
			return a, nil
		}
	}
	return rbac.Actor{}, service.ErrInvalidCredentials
}

func (m *mockUserService) Logout(_ context.Context, actor rbac.Actor) error {
	m.logouts = append(m.logouts, actor.UserID)
	return nil
}

func (m *mockUserService) GetActor(_ context.Context, userID uint) (rbac.Actor, error) {
	a, ok := testActors[userID]
	if !ok {
		return rbac.Actor{}, service.ErrNotFound
	}
	return a, nil
}

func (m *mockUserService) ListUsers(context.Context) ([]model.User, error) {
	return []model.User{
		{ID: 3, Username: "keeper", RoleID: 3, Role: &model.Role{ID: 3, Name: "user_admin"}},
		{ID: 5, Username: "walker", RoleID: 5, Role: &model.Role{ID: 5, Name: "user"}},
	}, nil
}

func (m *mockUserService) ChangeRole(_ context.Context, _ rbac.Actor, userID, roleID uint) (*model.User, error) {
	if m.changeErr != nil {
		return nil, m.changeErr
	}
	m.changed = append(m.changed, [2]uint{userID, roleID})
	return &model.User{ID: userID, Username: "walker", RoleID: roleID, Role: &model.Role{ID: roleID, Name: "auditor"}}, nil
}

func (m *mockUserService) EnsureSuperadmin(context.Context, string, string) error {
	return nil
}

type mockRoleService struct{}

func (mockRoleService) ListRoles(context.Context) ([]model.Role, error) {
	roles := make([]model.Role, len(model.AllRoleKinds))
	for i, k := range model.AllRoleKinds {
		roles[i] = model.Role{ID: uint(i + 1), Name: string(k)}
	}
	return roles, nil
}

func (mockRoleService) SeedDefaultRoles(context.Context) error {
	return nil
}

type mockContentService struct {
	createErr error
	routeErr  error

	places   []service.CreatePlaceRequest
	routes   []service.CreateRouteRequest
	comments []string
}

func (m *mockContentService) ListPlaces(context.Context) ([]model.Place, error) {
	return []model.Place{{ID: 1, Name: "Lake Ritsa"}}, nil
}

func (m *mockContentService) CreatePlace(_ context.Context, _ rbac.Actor, req service.CreatePlaceRequest) (*model.Place, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.places = append(m.places, req)
	return &model.Place{ID: 2, Name: req.Name}, nil
}

func (m *mockContentService) ListRoutes(context.Context) ([]model.Route, error) {
	return []model.Route{{ID: 2, Name: "Ridge walk", DurationSeconds: 5400, Difficulty: 3}}, nil
}

func (m *mockContentService) CreateRoute(_ context.Context, _ rbac.Actor, req service.CreateRouteRequest) (*model.Route, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.routes = append(m.routes, req)
	return &model.Route{ID: 3, Name: req.Name}, nil
}

func (m *mockContentService) GetRoute(_ context.Context, id uint) (*model.Route, error) {
	if m.routeErr != nil {
		return nil, m.routeErr
	}
	if id != 2 {
		return nil, service.ErrNotFound
	}
	return &model.Route{ID: 2, Name: "Ridge walk", DurationSeconds: 5400, Difficulty: 3, CreatedAt: time.Now()}, nil
}

func (m *mockContentService) AddComment(_ context.Context, _ rbac.Actor, routeID uint, message string) (*model.Comment, error) {
	if routeID != 2 {
		return nil, service.ErrNotFound
	}
	m.comments = append(m.comments, message)
	return &model.Comment{ID: 1, Message: message, RouteID: &routeID}, nil
}

type mockAuditService struct {
	pages     []*pagination.Params
	filters   []repository.LogFilter
	filterErr error
}

func (m *mockAuditService) Record(context.Context, service.AuditEntry) (service.LogEvent, error) {
	return service.LogEvent{}, nil
}

func (m *mockAuditService) Announce(service.LogEvent) {}

func (m *mockAuditService) ListLogs(_ context.Context, page *pagination.Params) ([]model.Log, int64, error) {
	m.pages = append(m.pages, page)
	return []model.Log{{ID: 1, UserID: 1, Category: model.CategorySecurity, Action: model.ActionLogin, Timestamp: time.Now()}}, 25, nil
}

func (m *mockAuditService) FilterLogs(_ context.Context, filter repository.LogFilter) ([]model.Log, error) {
	m.filters = append(m.filters, filter)
	if m.filterErr != nil {
		return nil, m.filterErr
	}
	return []model.Log{}, nil
}

func (m *mockAuditService) RecentLogs(context.Context, int) ([]model.Log, error) {
	return nil, nil
}

type mockDashboardService struct{}

func (mockDashboardService) Summary(_ context.Context, actor rbac.Actor) (*service.DashboardSummary, error) {
	return &service.DashboardSummary{Kind: actor.Role}, nil
}

type mockStream struct {
	served int
}

func (m *mockStream) ServeWs(c *gin.Context) {
	m.served++
	c.String(http.StatusOK, "stream")
}

type testServer struct {
	router   *gin.Engine
	sessions *middleware.SessionManager
	users    *mockUserService
	content  *mockContentService
	audit    *mockAuditService
	stream   *mockStream
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tmpl, err := web.LoadTemplates()
	require.NoError(t, err)

	s := &testServer{
		sessions: middleware.NewSessionManager("test-secret", time.Hour, false),
		users:    &mockUserService{},
		content:  &mockContentService{},
		audit:    &mockAuditService{},
		stream:   &mockStream{},
	}
	log := zap.NewNop()
	gate := middleware.NewGate(metrics.New(), log)

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(middleware.Authenticate(s.sessions, s.users, log), middleware.CSRF(false, log))

	pages := NewPageHandler(mockDashboardService{}, gate, log)
	root := r.Group("")
	pages.RegisterRoutes(root)
	NewAuthHandler(s.users, mockRoleService{}, s.sessions, gate, log).RegisterRoutes(root)
	NewAuditHandler(s.audit, s.stream, gate, log).RegisterRoutes(root)
	NewUserHandler(s.users, mockRoleService{}, gate, log).RegisterRoutes(root)
	NewContentHandler(s.content, gate, log).RegisterRoutes(root)
	NewRoleHandler(mockRoleService{}, gate, log).RegisterRoutes(root)
	r.NoRoute(pages.NotFound)

	s.router = r
	return s
}

type request struct {
	method string
	target string
	form   url.Values
	userID uint
	json   bool

	// noToken leaves out the CSRF cookie and field a browser form would carry
	noToken bool
}

const testCSRFToken = "test-csrf-token"

func (s *testServer) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()
	if req.method == "" {
		req.method = http.MethodGet
	}

	var r *http.Request
	if req.form != nil {
		form := url.Values{}
		for k, v := range req.form {
			form[k] = v
		}
		if !req.noToken {
			form.Set(middleware.CSRFField, testCSRFToken)
		}
		r = httptest.NewRequest(req.method, req.target, strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		r = httptest.NewRequest(req.method, req.target, nil)
	}
	if req.json {
		r.Header.Set("Accept", "application/json")
	}
	if !req.noToken {
		r.AddCookie(&http.Cookie{Name: middleware.CSRFCookie, Value: testCSRFToken})
	}
	if req.userID != 0 {
		token, err := s.sessions.Issue(req.userID)
		require.NoError(t, err)
		r.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	return w
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	var found *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			found = c
		}
	}
	return found
}
