package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/pagination"
	"github.com/mrlokans/librarian/internal/services"
)

const contextKeyInstance = "loan_instance"

// LoansController serves the reader's own loans: listing, reserving, taking
// or extending, and returning copies.
type LoansController struct {
	loans   *services.LoanService
	listing *services.ListingService
	render  *Renderer
}

// NewLoansController creates a new LoansController.
func NewLoansController(loans *services.LoanService, listing *services.ListingService, render *Renderer) *LoansController {
	return &LoansController{loans: loans, listing: listing, render: render}
}

// loanForm holds submitted values and field errors for the loan pages.
type loanForm struct {
	Book    uint
	DueBack string
	Errors  map[string]string
}

type reserveRequest struct {
	Book    uint   `form:"book" binding:"required"`
	DueBack string `form:"due_back" binding:"omitempty,datetime=2006-01-02"`
}

type takeRequest struct {
	DueBack string `form:"due_back" binding:"omitempty,datetime=2006-01-02"`
}

// requireOwner loads the :id copy and aborts unless the requester holds it.
func (lc *LoansController) requireOwner(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		lc.render.handleServiceError(c, services.ErrNotFound, "Book instance")
		c.Abort()
		return
	}

	instance, err := lc.loans.GetForReader(c.Request.Context(), id, auth.GetUserID(c))
	if err != nil {
		lc.render.handleServiceError(c, err, "Book instance")
		c.Abort()
		return
	}

	c.Set(contextKeyInstance, instance)
	c.Next()
}

func ownedInstance(c *gin.Context) *entities.BookInstance {
	if v, ok := c.Get(contextKeyInstance); ok {
		if instance, ok := v.(*entities.BookInstance); ok {
			return instance
		}
	}
	return nil
}

// MyBooks handles GET /mybooks/
func (lc *LoansController) MyBooks(c *gin.Context) {
	page, err := lc.listing.ListUserLoans(c.Request.Context(), auth.GetUserID(c), pagination.ParsePage(c.Query("page")))
	if err != nil {
		lc.render.handleServiceError(c, err, "Loans")
		return
	}

	lc.render.HTML(c, http.StatusOK, "mybooks.html", gin.H{
		"Title":             "My books",
		"bookinstance_list": page.Items,
		"page_obj":          page,
		"pager":             newPager(page, "", 0),
	})
}

// NewLoanPage handles GET /mybooks/new/. ?book= preselects a book.
func (lc *LoansController) NewLoanPage(c *gin.Context) {
	lc.renderReserveForm(c, http.StatusOK, loanForm{Book: parseOptionalQueryID(c, "book")})
}

// CreateLoan handles POST /mybooks/new/
func (lc *LoansController) CreateLoan(c *gin.Context) {
	var req reserveRequest
	if err := c.ShouldBind(&req); err != nil {
		verr := bindingError(err)
		if _, ok := verr.Messages()["__all__"]; ok {
			verr = services.NewValidationError("book", "Select a valid choice. That choice is not one of the available choices.")
		}
		lc.renderReserveForm(c, http.StatusBadRequest, loanForm{
			Book:    parseOptionalFormID(c, "book"),
			DueBack: c.PostForm("due_back"),
			Errors:  verr.Messages(),
		})
		return
	}

	_, err := lc.loans.Reserve(c.Request.Context(), auth.GetUserID(c), services.ReserveInput{
		BookID:  req.Book,
		DueBack: req.DueBack,
	})
	var verr *services.ValidationError
	switch {
	case err == nil:
		lc.render.flash(c, auth.FlashSuccess, services.NoticeReserved)
		c.Redirect(http.StatusFound, "/mybooks/")
	case errors.As(err, &verr):
		lc.renderReserveForm(c, http.StatusBadRequest, loanForm{Book: req.Book, DueBack: req.DueBack, Errors: verr.Messages()})
	default:
		lc.render.handleServiceError(c, err, "Book")
	}
}

func (lc *LoansController) renderReserveForm(c *gin.Context, status int, form loanForm) {
	books, err := lc.listing.BookChoices(c.Request.Context())
	if err != nil {
		lc.render.handleServiceError(c, err, "Books")
		return
	}

	lc.render.HTML(c, status, "bookinstance_form.html", gin.H{
		"Title":        "Reserve a book",
		"book_choices": books,
		"form":         form,
	})
}

// TakePage handles GET /mybooks/:id/take/
func (lc *LoansController) TakePage(c *gin.Context) {
	instance := ownedInstance(c)
	lc.renderTakeForm(c, http.StatusOK, instance, loanForm{DueBack: formatDate(instance.DueBack)})
}

// Take handles POST /mybooks/:id/take/. Taking an already taken copy
// extends the loan.
func (lc *LoansController) Take(c *gin.Context) {
	instance := ownedInstance(c)

	var req takeRequest
	if err := c.ShouldBind(&req); err != nil {
		lc.renderTakeForm(c, http.StatusBadRequest, instance, loanForm{DueBack: c.PostForm("due_back"), Errors: bindingError(err).Messages()})
		return
	}

	result, err := lc.loans.TakeOrExtend(c.Request.Context(), instance.ID, auth.GetUserID(c), services.TakeInput{DueBack: req.DueBack})
	var verr *services.ValidationError
	switch {
	case err == nil:
		lc.render.flash(c, auth.FlashSuccess, result.Notice())
		c.Redirect(http.StatusFound, "/mybooks/")
	case errors.As(err, &verr):
		lc.renderTakeForm(c, http.StatusBadRequest, instance, loanForm{DueBack: req.DueBack, Errors: verr.Messages()})
	default:
		lc.render.handleServiceError(c, err, "Book instance")
	}
}

func (lc *LoansController) renderTakeForm(c *gin.Context, status int, instance *entities.BookInstance, form loanForm) {
	action := services.LoanActionTake
	if instance.Status == entities.LoanStatusTaken {
		action = services.LoanActionExtend
	}
	lc.render.HTML(c, status, "take.html", gin.H{
		"Title":        string(action) + " " + instance.Book.Title,
		"bookinstance": instance,
		"action":       action,
		"form":         form,
	})
}

// ReturnPage handles GET /mybooks/:id/return/
func (lc *LoansController) ReturnPage(c *gin.Context) {
	lc.render.HTML(c, http.StatusOK, "return.html", gin.H{
		"Title":        "Return " + ownedInstance(c).Book.Title,
		"bookinstance": ownedInstance(c),
	})
}

// Return handles POST /mybooks/:id/return/
func (lc *LoansController) Return(c *gin.Context) {
	instance := ownedInstance(c)
	if err := lc.loans.Return(c.Request.Context(), instance.ID, auth.GetUserID(c)); err != nil {
		lc.render.handleServiceError(c, err, "Book instance")
		return
	}

	lc.render.flash(c, auth.FlashSuccess, services.NoticeReturned)
	c.Redirect(http.StatusFound, "/mybooks/")
}

func parseOptionalFormID(c *gin.Context, name string) uint {
	id, err := parseID(c.PostForm(name))
	if err != nil {
		return 0
	}
	return id
}
