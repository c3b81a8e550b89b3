package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarian/internal/audit"
	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database"
	dbaudit "github.com/mrlokans/librarian/internal/database/audit"
	"github.com/mrlokans/librarian/internal/database/catalog"
	"github.com/mrlokans/librarian/internal/database/loans"
	"github.com/mrlokans/librarian/internal/database/reviews"
	"github.com/mrlokans/librarian/internal/database/users"
	"github.com/mrlokans/librarian/internal/demo"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/media"
	"github.com/mrlokans/librarian/internal/services"
)

const testPassword = "correct-horse-battery"

// fixedNow is the loan service clock in router tests.
var fixedNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

type enqueuedTask struct {
	id   string
	task backlite.Task
}

// fakeQueue records enqueued tasks instead of running them.
type fakeQueue struct {
	mu    sync.Mutex
	tasks []enqueuedTask
	err   error
}

func (q *fakeQueue) Enqueue(_ context.Context, task backlite.Task) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	id := "task-" + string(rune('a'+len(q.tasks)))
	q.tasks = append(q.tasks, enqueuedTask{id: id, task: task})
	return id, nil
}

func (q *fakeQueue) Status(_ context.Context, taskID string) (backlite.TaskStatus, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.tasks {
		if t.id == taskID {
			return backlite.TaskStatusPending, nil
		}
	}
	return backlite.TaskStatusNotFound, nil
}

func (q *fakeQueue) enqueued() []enqueuedTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]enqueuedTask(nil), q.tasks...)
}

// routerEnv is a fully wired router on a throwaway SQLite database.
type routerEnv struct {
	t         *testing.T
	router    *gin.Engine
	db        *database.Database
	authSvc   *auth.Service
	catalog   *catalog.Repository
	loans     *loans.Repository
	users     *users.Repository
	auditor   *audit.Service
	media     *media.Storage
	queue     *fakeQueue
	reader    *entities.User
	other     *entities.User
	librarian *entities.User
	war       entities.Genre
	poetry    entities.Genre
	tolstoy   entities.Author
	warPeace  entities.Book
	odes      entities.Book
	letters   entities.Book
}

// setupRouterEnv wires the router. opts adjust the router config before it
// is built.
func setupRouterEnv(t *testing.T, opts ...func(*RouterConfig)) *routerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	db, err := database.NewDatabase(filepath.Join(dir, "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)

	authCfg := config.Auth{
		SessionLifetime:  24 * time.Hour,
		BcryptCost:       4,
		MaxLoginAttempts: 5,
	}
	authSvc := auth.NewService(db.DB, authCfg)
	sessions, err := auth.NewSessionManager(sqlDB, authCfg)
	require.NoError(t, err)

	storage, err := media.NewStorage(filepath.Join(dir, "media"), 1<<20)
	require.NoError(t, err)

	env := &routerEnv{
		t:       t,
		db:      db,
		authSvc: authSvc,
		catalog: catalog.NewRepository(db.DB),
		loans:   loans.NewRepository(db.DB),
		users:   users.NewRepository(db.DB),
		auditor: audit.NewService(dbaudit.NewRepository(db.DB)),
		media:   storage,
		queue:   &fakeQueue{},
	}
	t.Cleanup(env.auditor.Wait)

	clock := func() time.Time { return fixedNow }
	loanService := services.NewLoanService(env.loans, env.catalog,
		services.WithLoanAudit(env.auditor), services.WithLoanClock(clock))
	reviewService := services.NewReviewService(reviews.NewRepository(db.DB), env.catalog,
		services.WithReviewAudit(env.auditor), services.WithReviewClock(clock))
	listing := services.NewListingService(env.catalog, env.loans, services.PageSizes{Books: 2, Authors: 2, Loans: 10})

	cfg := RouterConfig{
		Database:           db,
		Auditor:            env.auditor,
		Listing:            listing,
		Loans:              loanService,
		Reviews:            reviewService,
		Profiles:           env.users,
		Catalog:            env.catalog,
		Media:              storage,
		AuthService:        authSvc,
		SessionManager:     sessions,
		AuthConfig:         authCfg,
		TaskQueue:          env.queue,
		AuditRetentionDays: 30,
		Version:            "test",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	router, stop, err := NewRouter(cfg)
	require.NoError(t, err)
	t.Cleanup(stop)
	env.router = router

	env.reader = env.createUser("reader", entities.UserRoleReader)
	env.other = env.createUser("other", entities.UserRoleReader)
	env.librarian = env.createUser("librarian", entities.UserRoleLibrarian)
	env.seedCatalog()
	return env
}

func (e *routerEnv) createUser(username string, role entities.UserRole) *entities.User {
	e.t.Helper()
	user, err := e.authSvc.CreateUser(auth.NewUser{
		Username: username,
		Email:    username + "@library.test",
		Password: testPassword,
		Role:     role,
	})
	require.NoError(e.t, err)
	return user
}

func (e *routerEnv) seedCatalog() {
	e.t.Helper()
	ctx := context.Background()

	e.war = entities.Genre{Name: "War"}
	e.poetry = entities.Genre{Name: "Poetry"}
	require.NoError(e.t, e.catalog.CreateGenre(ctx, &e.war))
	require.NoError(e.t, e.catalog.CreateGenre(ctx, &e.poetry))

	e.tolstoy = entities.Author{FirstName: "Leo", LastName: "Tolstoy"}
	require.NoError(e.t, e.catalog.CreateAuthor(ctx, &e.tolstoy))

	e.warPeace = entities.Book{Title: "War and Peace", Summary: "Napoleon invades Russia", AuthorID: &e.tolstoy.ID}
	e.odes = entities.Book{Title: "Odes", Summary: "Quiet verses"}
	e.letters = entities.Book{Title: "Letters", Summary: "Notes from the wartime front"}
	require.NoError(e.t, e.catalog.CreateBook(ctx, &e.warPeace, []uint{e.war.ID}))
	require.NoError(e.t, e.catalog.CreateBook(ctx, &e.odes, []uint{e.poetry.ID}))
	require.NoError(e.t, e.catalog.CreateBook(ctx, &e.letters, []uint{e.poetry.ID}))
}

// holdCopy creates a copy of book held by reader.
func (e *routerEnv) holdCopy(book entities.Book, reader *entities.User, status entities.LoanStatus, dueBack *time.Time) *entities.BookInstance {
	e.t.Helper()
	instance := &entities.BookInstance{BookID: book.ID, ReaderID: &reader.ID, Status: status, DueBack: dueBack}
	require.NoError(e.t, e.loans.CreateInstance(context.Background(), instance))
	return instance
}

func (e *routerEnv) token(user *entities.User) string {
	e.t.Helper()
	token, err := e.authSvc.GenerateToken(user.ID)
	require.NoError(e.t, err)
	return token
}

// browser carries session cookies between requests.
type browser struct {
	env     *routerEnv
	cookies map[string]*http.Cookie
}

func (e *routerEnv) browser() *browser {
	return &browser{env: e, cookies: map[string]*http.Cookie{}}
}

// loggedIn returns a browser with a session for user.
func (e *routerEnv) loggedIn(user *entities.User) *browser {
	e.t.Helper()
	b := e.browser()
	w := b.postForm("/login", url.Values{"username": {user.Username}, "password": {testPassword}})
	require.Equal(e.t, http.StatusFound, w.Code, w.Body.String())
	return b
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.env.router.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

// apiRequest sends a JSON request, authenticated when token is not empty.
func (e *routerEnv) apiRequest(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = strings.NewReader(string(payload))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func auditFilter(eventType entities.AuditEventType) dbaudit.Filter {
	return dbaudit.Filter{EventType: eventType}
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRouter_HealthAndPing(t *testing.T) {
	env := setupRouterEnv(t)

	w := env.browser().get("/health")
	assert.Equal(t, http.StatusOK, w.Code)
	health := decodeJSON[HealthResponse](t, w)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "ok", health.Checks["database"])
	assert.Equal(t, "ok", health.Checks["media"])
	assert.Equal(t, "test", health.Version)

	w = env.browser().get("/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")
}

func TestRouter_LoginPageRendersTemplate(t *testing.T) {
	env := setupRouterEnv(t)

	w := env.browser().get("/login?next=/mybooks/")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="next" value="/mybooks/"`)
}

func TestRouter_LoginShowsUserInHeader(t *testing.T) {
	env := setupRouterEnv(t)
	b := env.loggedIn(env.reader)

	w := b.get("/")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `href="/profile/">reader</a>`)
	assert.Contains(t, w.Body.String(), "My books")
}

func TestRouter_SecurityHeaders(t *testing.T) {
	env := setupRouterEnv(t)

	w := env.browser().get("/books/")

	assert.NotEmpty(t, w.Header().Get("X-Content-Type-Options"))
}

func TestRouter_DemoModeIsReadOnly(t *testing.T) {
	env := setupRouterEnv(t, func(cfg *RouterConfig) {
		cfg.DemoMiddleware = demo.NewMiddleware(true)
	})
	b := env.loggedIn(env.reader)

	w := b.get("/books/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "changes are disabled")

	w = b.postForm("/mybooks/new/", url.Values{"book": {"1"}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.apiRequest(http.MethodPost, "/api/mybooks", env.token(env.reader), jsonBody{"book_id": env.odes.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"demo_mode":true`)

	page, err := env.loans.ListForReader(context.Background(), env.reader.ID, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}
