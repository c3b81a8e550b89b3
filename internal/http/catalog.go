package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/pagination"
	"github.com/mrlokans/librarian/internal/services"
)

// CatalogController serves the public catalog pages and review submission.
type CatalogController struct {
	listing  *services.ListingService
	reviews  *services.ReviewService
	sessions *auth.SessionManager
	render   *Renderer
}

// NewCatalogController creates a new CatalogController.
func NewCatalogController(listing *services.ListingService, reviews *services.ReviewService, sessions *auth.SessionManager, render *Renderer) *CatalogController {
	return &CatalogController{
		listing:  listing,
		reviews:  reviews,
		sessions: sessions,
		render:   render,
	}
}

// Index handles GET /
func (cc *CatalogController) Index(c *gin.Context) {
	stats, err := cc.listing.Stats(c.Request.Context())
	if err != nil {
		cc.render.handleServiceError(c, err, "Catalog")
		return
	}

	visits := 0
	if cc.sessions != nil {
		visits = cc.sessions.NextVisit(c.Request.Context())
	}

	cc.render.HTML(c, http.StatusOK, "index.html", gin.H{
		"Title":                         "Library",
		"book_count":                    stats.Books,
		"book_instance_count":           stats.Instances,
		"book_instance_available_count": stats.AvailableInstances,
		"author_count":                  stats.Authors,
		"genre_count":                   stats.Genres,
		"visits_count":                  visits,
	})
}

// Authors handles GET /authors/
func (cc *CatalogController) Authors(c *gin.Context) {
	page, err := cc.listing.ListAuthors(c.Request.Context(), pagination.ParsePage(c.Query("page")))
	if err != nil {
		cc.render.handleServiceError(c, err, "Authors")
		return
	}

	cc.render.HTML(c, http.StatusOK, "authors.html", gin.H{
		"Title":   "Authors",
		"authors": page,
		"pager":   newPager(page, "", 0),
	})
}

// Author handles GET /author/:id/
func (cc *CatalogController) Author(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		cc.render.handleServiceError(c, services.ErrNotFound, "Author")
		return
	}

	author, err := cc.listing.GetAuthor(c.Request.Context(), id)
	if err != nil {
		cc.render.handleServiceError(c, err, "Author")
		return
	}

	cc.render.HTML(c, http.StatusOK, "author.html", gin.H{
		"Title":  author.String(),
		"author": author,
	})
}

// Books handles GET /books/?search=&genre_id=&page=
func (cc *CatalogController) Books(c *gin.Context) {
	listing, err := cc.listing.ListBooks(c.Request.Context(), services.BookQuery{
		Search:  c.Query("search"),
		GenreID: parseOptionalQueryID(c, "genre_id"),
		Page:    pagination.ParsePage(c.Query("page")),
	})
	if err != nil {
		cc.render.handleServiceError(c, err, "Books")
		return
	}

	var genreID uint
	if listing.Genre != nil {
		genreID = listing.Genre.ID
	}

	cc.render.HTML(c, http.StatusOK, "books.html", gin.H{
		"Title":       "Books",
		"books":       listing.Books,
		"book_list":   listing.Books.Items,
		"books_count": listing.BooksCount,
		"genres":      listing.Genres,
		"genre":       listing.Genre,
		"genre_id":    genreID,
		"search":      listing.Search,
		"pager":       newPager(listing.Books, listing.Search, genreID),
	})
}

// Book handles GET /books/:id/
func (cc *CatalogController) Book(c *gin.Context) {
	cc.renderBook(c, http.StatusOK, reviewForm{})
}

// reviewForm is the state of the review form on the book page.
type reviewForm struct {
	Content string
	Errors  map[string]string
}

// PostReview handles POST /books/:id/
func (cc *CatalogController) PostReview(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		cc.render.handleServiceError(c, services.ErrNotFound, "Book")
		return
	}

	content := c.PostForm("content")
	_, err = cc.reviews.SubmitReview(c.Request.Context(), id, auth.GetUserID(c), content)

	var verr *services.ValidationError
	switch {
	case err == nil:
		cc.render.flash(c, auth.FlashSuccess, services.NoticeReviewPosted)
		c.Redirect(http.StatusFound, "/books/"+strconv.FormatUint(uint64(id), 10)+"/")
	case errors.As(err, &verr):
		cc.render.flash(c, auth.FlashError, services.WarningPostingTooMuch)
		cc.renderBook(c, http.StatusBadRequest, reviewForm{Content: content, Errors: verr.Messages()})
	case errors.Is(err, services.ErrTooManyReviews):
		cc.render.flash(c, auth.FlashError, services.WarningPostingTooMuch)
		cc.renderBook(c, http.StatusTooManyRequests, reviewForm{Content: content})
	default:
		cc.render.handleServiceError(c, err, "Book")
	}
}

func (cc *CatalogController) renderBook(c *gin.Context, status int, form reviewForm) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		cc.render.handleServiceError(c, services.ErrNotFound, "Book")
		return
	}

	book, err := cc.listing.GetBook(c.Request.Context(), id)
	if err != nil {
		cc.render.handleServiceError(c, err, "Book")
		return
	}

	cc.render.HTML(c, status, "book.html", gin.H{
		"Title":   book.Title,
		"book":    book,
		"reviews": book.Reviews,
		"form":    form,
	})
}
