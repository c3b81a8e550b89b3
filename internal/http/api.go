package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/pagination"
	"github.com/mrlokans/librarian/internal/services"
)

// APIController exposes the catalog and loan operations as JSON.
type APIController struct {
	listing *services.ListingService
	loans   *services.LoanService
	reviews *services.ReviewService
}

// NewAPIController creates a new APIController.
func NewAPIController(listing *services.ListingService, loans *services.LoanService, reviews *services.ReviewService) *APIController {
	return &APIController{listing: listing, loans: loans, reviews: reviews}
}

// BookListResponse is the JSON form of the book list page.
type BookListResponse struct {
	pagination.Page[entities.Book]
	BooksCount int64            `json:"books_count"`
	Genres     []entities.Genre `json:"genres"`
	Genre      *entities.Genre  `json:"genre,omitempty"`
	Search     string           `json:"search,omitempty"`
}

// LoanResponse is a copy with its derived loan fields.
type LoanResponse struct {
	*entities.BookInstance
	StatusLabel string `json:"status_label"`
	IsOverdue   bool   `json:"is_overdue"`
}

// ReviewerResponse is the public face of a review's author.
type ReviewerResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// ReviewResponse is a review without the reader's account details.
type ReviewResponse struct {
	ID        uint             `json:"id"`
	BookID    uint             `json:"book_id"`
	Reader    ReviewerResponse `json:"reader"`
	Content   string           `json:"content"`
	CreatedAt time.Time        `json:"created_at"`
}

// BookDetailResponse is a book with its reviews reduced to ReviewResponse.
type BookDetailResponse struct {
	*entities.Book
	Reviews []ReviewResponse `json:"reviews"`
}

func newReviewResponse(review *entities.BookReview) ReviewResponse {
	return ReviewResponse{
		ID:     review.ID,
		BookID: review.BookID,
		Reader: ReviewerResponse{
			ID:       review.ReaderID,
			Username: review.Reader.Username,
			FullName: review.Reader.FullName(),
		},
		Content:   review.Content,
		CreatedAt: review.CreatedAt,
	}
}

func newBookDetailResponse(book *entities.Book) BookDetailResponse {
	reviews := make([]ReviewResponse, 0, len(book.Reviews))
	for i := range book.Reviews {
		reviews = append(reviews, newReviewResponse(&book.Reviews[i]))
	}
	return BookDetailResponse{Book: book, Reviews: reviews}
}

// TakeResponse reports which transition a take request performed.
type TakeResponse struct {
	Instance LoanResponse `json:"instance"`
	Action   string       `json:"action"`
	Message  string       `json:"message"`
}

type reserveJSON struct {
	BookID  uint   `json:"book_id" binding:"required"`
	DueBack string `json:"due_back" binding:"omitempty,datetime=2006-01-02"`
}

type takeJSON struct {
	DueBack string `json:"due_back" binding:"omitempty,datetime=2006-01-02"`
}

type reviewJSON struct {
	Content string `json:"content" binding:"required"`
}

type statusJSON struct {
	Status string `json:"status" binding:"required"`
}

// ListBooks handles GET /api/books?search=&genre_id=&page=
func (ac *APIController) ListBooks(c *gin.Context) {
	listing, err := ac.listing.ListBooks(c.Request.Context(), services.BookQuery{
		Search:  c.Query("search"),
		GenreID: parseOptionalQueryID(c, "genre_id"),
		Page:    pagination.ParsePage(c.Query("page")),
	})
	if err != nil {
		respondServiceError(c, err, "books")
		return
	}

	c.JSON(http.StatusOK, BookListResponse{
		Page:       listing.Books,
		BooksCount: listing.BooksCount,
		Genres:     listing.Genres,
		Genre:      listing.Genre,
		Search:     listing.Search,
	})
}

// GetBook handles GET /api/books/:id
func (ac *APIController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := ac.listing.GetBook(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "book")
		return
	}
	c.JSON(http.StatusOK, newBookDetailResponse(book))
}

// ListAuthors handles GET /api/authors?page=
func (ac *APIController) ListAuthors(c *gin.Context) {
	page, err := ac.listing.ListAuthors(c.Request.Context(), pagination.ParsePage(c.Query("page")))
	if err != nil {
		respondServiceError(c, err, "authors")
		return
	}
	c.JSON(http.StatusOK, page)
}

// Stats handles GET /api/stats
func (ac *APIController) Stats(c *gin.Context) {
	stats, err := ac.listing.Stats(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "stats")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"book_count":                    stats.Books,
		"book_instance_count":           stats.Instances,
		"book_instance_available_count": stats.AvailableInstances,
		"author_count":                  stats.Authors,
		"genre_count":                   stats.Genres,
	})
}

// MyBooks handles GET /api/mybooks?page=
func (ac *APIController) MyBooks(c *gin.Context) {
	page, err := ac.listing.ListUserLoans(c.Request.Context(), auth.GetUserID(c), pagination.ParsePage(c.Query("page")))
	if err != nil {
		respondServiceError(c, err, "loans")
		return
	}

	items := make([]LoanResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, ac.loanResponse(&page.Items[i]))
	}
	c.JSON(http.StatusOK, pagination.Page[LoanResponse]{
		Items:    items,
		Number:   page.Number,
		Size:     page.Size,
		Total:    page.Total,
		NumPages: page.NumPages,
	})
}

// Reserve handles POST /api/mybooks
func (ac *APIController) Reserve(c *gin.Context) {
	var req reserveJSON
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, bindingError(err))
		return
	}

	instance, err := ac.loans.Reserve(c.Request.Context(), auth.GetUserID(c), services.ReserveInput{
		BookID:  req.BookID,
		DueBack: req.DueBack,
	})
	if err != nil {
		respondServiceError(c, err, "book")
		return
	}
	respondCreated(c, ac.loanResponse(instance))
}

// Take handles POST /api/mybooks/:id/take
func (ac *APIController) Take(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	// The body is optional; an empty one clears the due date.
	var req takeJSON
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respondValidationError(c, bindingError(err))
			return
		}
	}

	result, err := ac.loans.TakeOrExtend(c.Request.Context(), id, auth.GetUserID(c), services.TakeInput{DueBack: req.DueBack})
	if err != nil {
		respondServiceError(c, err, "book instance")
		return
	}
	c.JSON(http.StatusOK, TakeResponse{
		Instance: ac.loanResponse(result.Instance),
		Action:   string(result.Action),
		Message:  result.Notice(),
	})
}

// Return handles DELETE /api/mybooks/:id
func (ac *APIController) Return(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ac.loans.Return(c.Request.Context(), id, auth.GetUserID(c)); err != nil {
		respondServiceError(c, err, "book instance")
		return
	}
	respondSuccess(c, services.NoticeReturned)
}

// SubmitReview handles POST /api/books/:id/reviews
func (ac *APIController) SubmitReview(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req reviewJSON
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, bindingError(err))
		return
	}

	review, err := ac.reviews.SubmitReview(c.Request.Context(), id, auth.GetUserID(c), req.Content)
	if err != nil {
		respondServiceError(c, err, "book")
		return
	}
	if user := auth.GetUser(c); user != nil {
		review.Reader = *user
	}
	respondCreated(c, newReviewResponse(review))
}

// SetStatus handles PATCH /api/instances/:id/status (librarians only). The
// status may be given as a code ("a") or a label ("available").
func (ac *APIController) SetStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req statusJSON
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, bindingError(err))
		return
	}

	status, valid := entities.ParseLoanStatus(req.Status)
	if !valid {
		status = entities.LoanStatus(req.Status)
	}
	instance, err := ac.loans.SetStatus(c.Request.Context(), auth.GetUserID(c), id, status)
	if err != nil {
		respondServiceError(c, err, "book instance")
		return
	}
	c.JSON(http.StatusOK, ac.loanResponse(instance))
}

func (ac *APIController) loanResponse(instance *entities.BookInstance) LoanResponse {
	return LoanResponse{
		BookInstance: instance,
		StatusLabel:  instance.Status.Label(),
		IsOverdue:    ac.loans.IsOverdue(*instance),
	}
}
