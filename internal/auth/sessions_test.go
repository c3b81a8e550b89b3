package auth

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/entities"
)

func setupSessionManager(t *testing.T, secure bool) *SessionManager {
	t.Helper()

	sqlDB, err := setupTestDB(t).DB()
	if err != nil {
		t.Fatalf("failed to get SQL DB: %v", err)
	}

	sm, err := NewSessionManager(sqlDB, config.Auth{
		SessionLifetime: 24 * time.Hour,
		SecureCookies:   secure,
	})
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

// serveWithCookies runs one request through the router, replaying cookies
// from earlier responses, and returns the recorder.
func serveWithCookies(router http.Handler, req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestNewSessionManager_CookieConfig(t *testing.T) {
	sm := setupSessionManager(t, false)

	if sm.Cookie.Name != "sessionid" {
		t.Errorf("Expected cookie name 'sessionid', got '%s'", sm.Cookie.Name)
	}
	if !sm.Cookie.HttpOnly {
		t.Error("Cookie should be HttpOnly")
	}
	if sm.Cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("Expected SameSiteLaxMode, got %v", sm.Cookie.SameSite)
	}
	if sm.Cookie.Secure {
		t.Error("Cookie.Secure should follow SecureCookies=false")
	}

	if !setupSessionManager(t, true).Cookie.Secure {
		t.Error("Cookie.Secure should be true when SecureCookies is enabled")
	}
}

func TestSessionManager_CreateAndDestroy(t *testing.T) {
	sm := setupSessionManager(t, false)
	user := &entities.User{ID: 123, Username: "reader", Role: entities.UserRoleLibrarian}

	router := gin.New()
	router.Use(sm.SessionLoadSave())
	router.GET("/", func(c *gin.Context) {
		r := c.Request
		if sm.IsAuthenticated(r) || sm.GetSessionData(r) != nil {
			t.Error("Should not be authenticated before login")
		}
		if role := sm.GetUserRole(r); role != "" {
			t.Errorf("Expected empty role, got '%s'", role)
		}

		if err := sm.CreateSession(r, user); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		data := sm.GetSessionData(r)
		if data == nil {
			t.Fatal("GetSessionData should not return nil after login")
		}
		if data.UserID != user.ID || data.Username != user.Username || data.Role != user.Role {
			t.Errorf("unexpected session data %+v", data)
		}
		if data.LoginAt.IsZero() {
			t.Error("LoginAt should not be zero")
		}

		if err := sm.DestroySession(r); err != nil {
			t.Fatalf("failed to destroy session: %v", err)
		}
		if sm.IsAuthenticated(r) {
			t.Error("Should not be authenticated after session destroy")
		}
		c.Status(http.StatusOK)
	})

	rr := serveWithCookies(router, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
}

func TestSessionManager_NextVisitCountsAcrossRequests(t *testing.T) {
	sm := setupSessionManager(t, false)

	router := gin.New()
	router.Use(sm.SessionLoadSave())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, strconv.Itoa(sm.NextVisit(c.Request.Context())))
	})

	first := serveWithCookies(router, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	if first.Body.String() != "1" {
		t.Fatalf("first visit = %s, want 1", first.Body.String())
	}
	cookies := first.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie after the first visit")
	}

	second := serveWithCookies(router, httptest.NewRequest(http.MethodGet, "/", nil), cookies)
	if second.Body.String() != "2" {
		t.Errorf("second visit = %s, want 2", second.Body.String())
	}

	fresh := serveWithCookies(router, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	if fresh.Body.String() != "1" {
		t.Errorf("visit without cookie = %s, want 1", fresh.Body.String())
	}
}

func TestSessionManager_FlashSurvivesRedirect(t *testing.T) {
	sm := setupSessionManager(t, false)

	router := gin.New()
	router.Use(sm.SessionLoadSave())
	router.POST("/act", func(c *gin.Context) {
		sm.AddFlash(c.Request.Context(), FlashSuccess, "Book reserved")
		sm.AddFlash(c.Request.Context(), FlashWarning, "Due soon")
		c.Redirect(http.StatusFound, "/show")
	})
	router.GET("/show", func(c *gin.Context) {
		messages := sm.PopFlashes(c.Request.Context())
		texts := make([]string, 0, len(messages))
		for _, m := range messages {
			texts = append(texts, string(m.Level)+":"+m.Text)
		}
		c.JSON(http.StatusOK, texts)
	})

	post := serveWithCookies(router, httptest.NewRequest(http.MethodPost, "/act", nil), nil)
	if post.Code != http.StatusFound {
		t.Fatalf("POST /act status = %d", post.Code)
	}
	cookies := post.Result().Cookies()

	show := serveWithCookies(router, httptest.NewRequest(http.MethodGet, "/show", nil), cookies)
	if got := show.Body.String(); got != `["success:Book reserved","warning:Due soon"]` {
		t.Errorf("flashes = %s", got)
	}

	again := serveWithCookies(router, httptest.NewRequest(http.MethodGet, "/show", nil), cookies)
	if got := again.Body.String(); got != `[]` {
		t.Errorf("flashes should be consumed, got %s", got)
	}
}
