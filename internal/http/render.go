package http

import (
	"embed"
	"html/template"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/demo"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/media"
	"github.com/mrlokans/librarian/internal/pagination"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

// Renderer renders page templates with the context every page shares: the
// current user, the CSRF field and pending flash messages.
type Renderer struct {
	sessions *auth.SessionManager
}

// NewRenderer creates a Renderer. sessions may be nil, in which case pages
// render without flash messages.
func NewRenderer(sessions *auth.SessionManager) *Renderer {
	return &Renderer{sessions: sessions}
}

// HTML renders the named template. Flash messages are consumed, so a message
// is shown exactly once.
func (r *Renderer) HTML(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["user"] = auth.GetUser(c)
	data["csrf_field"] = auth.CSRFTokenField(c)
	data["path"] = c.Request.URL.Path
	data["demo_mode"] = c.GetBool(demo.ContextKeyDemoMode)
	if r.sessions != nil {
		data["messages"] = r.sessions.PopFlashes(c.Request.Context())
	}
	c.HTML(status, name, data)
}

// flash queues a message for the next rendered page.
func (r *Renderer) flash(c *gin.Context, level auth.FlashLevel, text string) {
	if r.sessions != nil {
		r.sessions.AddFlash(c.Request.Context(), level, text)
	}
}

// templateFuncs are available in every template. isOverdue is bound to the
// loan service clock by the router.
func templateFuncs(isOverdue func(entities.BookInstance) bool) template.FuncMap {
	if isOverdue == nil {
		isOverdue = func(bi entities.BookInstance) bool { return bi.IsOverdue(time.Now()) }
	}
	return template.FuncMap{
		"mediaURL":  media.URL,
		"isOverdue": isOverdue,
		"date":      formatDate,
		"selected": func(a, b uint) template.HTMLAttr {
			if a == b && a != 0 {
				return "selected"
			}
			return ""
		},
	}
}

// formatDate renders an optional date-only value.
func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(entities.DateLayout)
}

// pager is the navigation block of a paginated listing.
type pager struct {
	Number             int
	NumPages           int
	HasPrevious        bool
	HasNext            bool
	PreviousPageNumber int
	NextPageNumber     int
	Search             string
	GenreID            uint
}

func newPager[T any](page pagination.Page[T], search string, genreID uint) pager {
	return pager{
		Number:             page.Number,
		NumPages:           page.NumPages,
		HasPrevious:        page.HasPrevious(),
		HasNext:            page.HasNext(),
		PreviousPageNumber: page.PreviousPageNumber(),
		NextPageNumber:     page.NextPageNumber(),
		Search:             search,
		GenreID:            genreID,
	}
}

// URL links to another page with the same filters.
func (p pager) URL(page int) string {
	return pageURL(page, p.Search, p.GenreID)
}

// pageURL builds a listing link that keeps the active filters.
func pageURL(page int, search string, genreID uint) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	if search != "" {
		q.Set("search", search)
	}
	if genreID != 0 {
		q.Set("genre_id", strconv.FormatUint(uint64(genreID), 10))
	}
	return "?" + q.Encode()
}

// loadTemplates parses the embedded templates, or the *.html files in dir
// when one is configured.
func loadTemplates(dir string, funcs template.FuncMap) (*template.Template, error) {
	var fsys fs.FS
	pattern := "*.html"
	if dir != "" {
		fsys = os.DirFS(dir)
	} else {
		fsys = embeddedTemplates
		pattern = "templates/*.html"
	}
	return template.New("").Funcs(funcs).ParseFS(fsys, pattern)
}
