package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"travelcms/internal/metrics"
	"travelcms/internal/model"
	"travelcms/internal/repository"
)

type txMarker struct{}

// mockTxManager marks the context handed to fn so repositories can tell they ran inside it
type mockTxManager struct {
	calls int
}

func (m *mockTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	m.calls++
	return fn(context.WithValue(ctx, txMarker{}, true))
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txMarker{}).(bool)
	return v
}

// mockUserRepository keeps users in memory and enforces username uniqueness like the index does
type mockUserRepository struct {
	mu      sync.Mutex
	users   map[uint]*model.User
	roles   *mockRoleRepository
	nextID  uint
	err     error
	created int
}

func newMockUserRepository(roles *mockRoleRepository) *mockUserRepository {
	return &mockUserRepository{users: map[uint]*model.User{}, roles: roles, nextID: 1}
}

func (m *mockUserRepository) add(t *testing.T, username, password string, kind model.RoleKind) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	role := m.roles.byName(string(kind))
	require.NotNil(t, role)

	u := &model.User{ID: m.nextID, Username: username, PasswordHash: string(hash), RoleID: role.ID}
	m.users[u.ID] = u
	m.nextID++
	return u
}

func (m *mockUserRepository) withRole(u model.User) *model.User {
	if role := m.roles.byID(u.RoleID); role != nil {
		r := *role
		u.Role = &r
	}
	return &u
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, u := range m.users {
		if u.Username == user.Username {
			return fmt.Errorf("%w: users_username_key", repository.ErrDuplicateKey)
		}
	}
	if m.roles.byID(user.RoleID) == nil {
		return fmt.Errorf("%w: fk_users_role", repository.ErrForeignKey)
	}
	user.ID = m.nextID
	m.nextID++
	stored := *user
	m.users[user.ID] = &stored
	m.created++
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.withRole(*u), nil
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Username == username {
			return m.withRole(*u), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepository) List(ctx context.Context) ([]model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *m.withRole(*u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockUserRepository) UpdateRole(ctx context.Context, userID, roleID uint) error {
	u, ok := m.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.RoleID = roleID
	return nil
}

type mockRoleRepository struct {
	roles []model.Role
	err   error
}

// newMockRoleRepository holds the default roles with ids 1..5 in seeding order
func newMockRoleRepository() *mockRoleRepository {
	m := &mockRoleRepository{}
	for i, kind := range model.AllRoleKinds {
		m.roles = append(m.roles, model.Role{ID: uint(i + 1), Name: string(kind)})
	}
	return m
}

func (m *mockRoleRepository) byID(id uint) *model.Role {
	for i := range m.roles {
		if m.roles[i].ID == id {
			return &m.roles[i]
		}
	}
	return nil
}

func (m *mockRoleRepository) byName(name string) *model.Role {
	for i := range m.roles {
		if m.roles[i].Name == name {
			return &m.roles[i]
		}
	}
	return nil
}

func (m *mockRoleRepository) FindByID(ctx context.Context, id uint) (*model.Role, error) {
	if m.err != nil {
		return nil, m.err
	}
	if r := m.byID(id); r != nil {
		role := *r
		return &role, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRoleRepository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	if m.err != nil {
		return nil, m.err
	}
	if r := m.byName(name); r != nil {
		role := *r
		return &role, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRoleRepository) ListAll(ctx context.Context) ([]model.Role, error) {
	return m.roles, m.err
}

func (m *mockRoleRepository) FindOrCreate(ctx context.Context, role *model.Role) error {
	if m.err != nil {
		return m.err
	}
	if r := m.byName(role.Name); r != nil {
		*role = *r
		return nil
	}
	role.ID = uint(len(m.roles) + 1)
	m.roles = append(m.roles, *role)
	return nil
}

// mockLogRepository stores entries and remembers whether each write ran inside a transaction
type mockLogRepository struct {
	entries   []model.Log
	inTx      []bool
	err       error
	lastLimit int
	lastQuery repository.LogFilter
}

func (m *mockLogRepository) Create(ctx context.Context, entry *model.Log) error {
	if m.err != nil {
		return m.err
	}
	entry.ID = uint(len(m.entries) + 1)
	entry.Timestamp = time.Now()
	m.entries = append(m.entries, *entry)
	m.inTx = append(m.inTx, inTx(ctx))
	return nil
}

func (m *mockLogRepository) List(ctx context.Context, offset, limit int) ([]model.Log, int64, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.entries, int64(len(m.entries)), nil
}

func (m *mockLogRepository) Filter(ctx context.Context, filter repository.LogFilter) ([]model.Log, error) {
	m.lastQuery = filter
	if m.err != nil {
		return nil, m.err
	}
	var out []model.Log
	for _, e := range m.entries {
		if filter.UserID != nil && e.UserID != *filter.UserID {
			continue
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *mockLogRepository) Recent(ctx context.Context, limit int) ([]model.Log, error) {
	m.lastLimit = limit
	return m.entries, m.err
}

func (m *mockLogRepository) actions() []string {
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Action
	}
	return out
}

type mockPlaceRepository struct {
	places map[uint]*model.Place
	err    error
}

func (m *mockPlaceRepository) Create(ctx context.Context, place *model.Place) error {
	if m.err != nil {
		return m.err
	}
	if m.places == nil {
		m.places = map[uint]*model.Place{}
	}
	place.ID = uint(len(m.places) + 1)
	stored := *place
	m.places[place.ID] = &stored
	return nil
}

func (m *mockPlaceRepository) FindByID(ctx context.Context, id uint) (*model.Place, error) {
	if p, ok := m.places[id]; ok {
		place := *p
		return &place, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPlaceRepository) List(ctx context.Context) ([]model.Place, error) {
	var out []model.Place
	for _, p := range m.places {
		out = append(out, *p)
	}
	return out, m.err
}

type mockRouteRepository struct {
	routes map[uint]*model.Route
	err    error
}

func (m *mockRouteRepository) Create(ctx context.Context, route *model.Route) error {
	if m.err != nil {
		return m.err
	}
	if m.routes == nil {
		m.routes = map[uint]*model.Route{}
	}
	route.ID = uint(len(m.routes) + 1)
	stored := *route
	m.routes[route.ID] = &stored
	return nil
}

func (m *mockRouteRepository) FindByID(ctx context.Context, id uint) (*model.Route, error) {
	if r, ok := m.routes[id]; ok {
		route := *r
		return &route, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRouteRepository) FindWithComments(ctx context.Context, id uint) (*model.Route, error) {
	return m.FindByID(ctx, id)
}

func (m *mockRouteRepository) List(ctx context.Context) ([]model.Route, error) {
	var out []model.Route
	for _, r := range m.routes {
		out = append(out, *r)
	}
	return out, m.err
}

func (m *mockRouteRepository) Latest(ctx context.Context, limit int) ([]model.Route, error) {
	return m.List(ctx)
}

type mockCommentRepository struct {
	comments []model.Comment
	err      error
}

func (m *mockCommentRepository) Create(ctx context.Context, comment *model.Comment) error {
	if m.err != nil {
		return m.err
	}
	comment.ID = uint(len(m.comments) + 1)
	m.comments = append(m.comments, *comment)
	return nil
}

type mockStatisticsRepository struct {
	totals     model.CatalogTotals
	byRole     []model.RoleCount
	byCategory []model.CategoryCount
	err        error
}

func (m *mockStatisticsRepository) CatalogTotals(ctx context.Context) (model.CatalogTotals, error) {
	return m.totals, m.err
}

func (m *mockStatisticsRepository) UsersByRole(ctx context.Context) ([]model.RoleCount, error) {
	return m.byRole, m.err
}

func (m *mockStatisticsRepository) LogsByCategory(ctx context.Context) ([]model.CategoryCount, error) {
	return m.byCategory, m.err
}

// recordingPublisher captures events pushed to the live feed and the users
// whose feed connections were dropped
type recordingPublisher struct {
	events       []LogEvent
	disconnected []uint
}

func (p *recordingPublisher) Publish(v interface{}) {
	p.events = append(p.events, v.(LogEvent))
}

func (p *recordingPublisher) Disconnect(userID uint) {
	p.disconnected = append(p.disconnected, userID)
}

// fixture wires the real services over the in-memory repositories
type fixture struct {
	tx        *mockTxManager
	roles     *mockRoleRepository
	users     *mockUserRepository
	logs      *mockLogRepository
	places    *mockPlaceRepository
	routes    *mockRouteRepository
	comments  *mockCommentRepository
	stats     *mockStatisticsRepository
	publisher *recordingPublisher
	metrics   *metrics.Metrics

	audit     AuditService
	userSvc   UserService
	content   ContentService
	dashboard DashboardService
}

func newFixture() *fixture {
	f := &fixture{
		tx:        &mockTxManager{},
		roles:     newMockRoleRepository(),
		logs:      &mockLogRepository{},
		places:    &mockPlaceRepository{},
		routes:    &mockRouteRepository{},
		comments:  &mockCommentRepository{},
		stats:     &mockStatisticsRepository{},
		publisher: &recordingPublisher{},
		metrics:   metrics.New(),
	}
	f.users = newMockUserRepository(f.roles)
	log := zap.NewNop()
	f.audit = NewAuditService(f.logs, f.publisher, f.metrics, log)
	f.userSvc = NewUserService(f.tx, f.users, f.roles, f.audit, f.publisher, f.metrics, log, bcrypt.MinCost)
	f.content = NewContentService(f.tx, f.places, f.routes, f.comments, f.audit)
	f.dashboard = NewDashboardService(f.stats, f.routes, f.audit)
	return f
}
