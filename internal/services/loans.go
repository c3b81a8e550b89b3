package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mrlokans/librarian/internal/entities"
)

// LoanAction tells the caller which transition TakeOrExtend performed.
type LoanAction string

const (
	LoanActionTake   LoanAction = "Take"
	LoanActionExtend LoanAction = "Extend"
)

const (
	NoticeReserved = "Book reserved"
	NoticeTaken    = "Book taken"
	NoticeExtended = "Loan extended"
	NoticeReturned = "Book returned"
)

// ReserveInput is the reader-submitted reservation form.
type ReserveInput struct {
	BookID  uint
	DueBack string // YYYY-MM-DD, optional
}

// TakeInput is the reader-submitted take/extend form.
type TakeInput struct {
	DueBack string // YYYY-MM-DD, optional
}

// TakeResult is the updated copy plus the transition that was applied.
type TakeResult struct {
	Instance *entities.BookInstance
	Action   LoanAction
}

// Notice is the success message shown to the reader.
func (r TakeResult) Notice() string {
	if r.Action == LoanActionExtend {
		return NoticeExtended
	}
	return NoticeTaken
}

// LoanService drives the reader-facing loan lifecycle of book instances:
// managed -> reserved -> taken (-> taken on extend) -> removed on return.
// Authorization is identity equality between the requester and the
// instance's reader; there is no role hierarchy here.
type LoanService struct {
	loans   LoanStore
	catalog CatalogReader
	audit   AuditLogger
	now     func() time.Time
}

// LoanServiceOption configures a LoanService.
type LoanServiceOption func(*LoanService)

// WithLoanAudit records every transition through logger.
func WithLoanAudit(logger AuditLogger) LoanServiceOption {
	return func(s *LoanService) {
		if logger != nil {
			s.audit = logger
		}
	}
}

// WithLoanClock replaces time.Now, for tests.
func WithLoanClock(now func() time.Time) LoanServiceOption {
	return func(s *LoanService) { s.now = now }
}

func NewLoanService(loans LoanStore, catalog CatalogReader, opts ...LoanServiceOption) *LoanService {
	s := &LoanService{
		loans:   loans,
		catalog: catalog,
		audit:   noopAudit{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reserve creates a new copy of a book held by the requester in the
// reserved state. Reserving several copies of one book is allowed.
func (s *LoanService) Reserve(ctx context.Context, requester uint, input ReserveInput) (*entities.BookInstance, error) {
	if requester == 0 {
		return nil, ErrUnauthenticated
	}

	verr := &ValidationError{}
	if input.BookID == 0 {
		verr.Add("book", "This field is required.")
	} else {
		exists, err := s.catalog.BookExists(ctx, input.BookID)
		if err != nil {
			return nil, translate(err, "look up book")
		}
		if !exists {
			verr.Add("book", "Select a valid choice. That choice is not one of the available choices.")
		}
	}
	dueBack, err := entities.ParseDate(input.DueBack)
	if err != nil {
		verr.Add("due_back", "Enter a valid date.")
	}
	if err := verr.OrNil(); err != nil {
		s.audit.LogLoan(requester, "reserve", 0, "Reservation rejected", err)
		return nil, err
	}

	instance := &entities.BookInstance{
		BookID:   input.BookID,
		ReaderID: &requester,
		Status:   entities.LoanStatusReserved,
		DueBack:  normalizeDate(dueBack),
	}
	if err := s.loans.CreateInstance(ctx, instance); err != nil {
		return nil, translate(err, "reserve book")
	}

	s.audit.LogLoan(requester, "reserve", instance.ID, fmt.Sprintf("Reserved book %d", input.BookID), nil)
	return instance, nil
}

// GetForReader loads a copy the requester holds.
func (s *LoanService) GetForReader(ctx context.Context, instanceID, requester uint) (*entities.BookInstance, error) {
	if requester == 0 {
		return nil, ErrUnauthenticated
	}
	instance, err := s.loans.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, translate(err, "load book instance")
	}
	if err := authorize(instance, requester); err != nil {
		return nil, err
	}
	return instance, nil
}

// TakeOrExtend marks a copy the requester holds as taken with the submitted
// due date. It is an extension when the copy was already taken.
func (s *LoanService) TakeOrExtend(ctx context.Context, instanceID, requester uint, input TakeInput) (*TakeResult, error) {
	if requester == 0 {
		return nil, ErrUnauthenticated
	}
	dueBack, err := entities.ParseDate(input.DueBack)
	if err != nil {
		return nil, NewValidationError("due_back", "Enter a valid date.")
	}

	action := LoanActionTake
	updated, err := s.loans.UpdateLoan(ctx, instanceID, func(current *entities.BookInstance) error {
		if err := authorize(current, requester); err != nil {
			return err
		}
		if current.Status == entities.LoanStatusTaken {
			action = LoanActionExtend
		}
		return nil
	}, &requester, entities.LoanStatusTaken, normalizeDate(dueBack))
	if err != nil {
		err = translate(err, "take book")
		s.audit.LogLoan(requester, "take", instanceID, "Take refused", err)
		return nil, err
	}

	result := &TakeResult{Instance: updated, Action: action}
	s.audit.LogLoan(requester, actionName(action), updated.ID, result.Notice()+": "+updated.String(), nil)
	return result, nil
}

// Return removes a copy the requester holds. Returning twice yields
// ErrNotFound.
func (s *LoanService) Return(ctx context.Context, instanceID, requester uint) error {
	if requester == 0 {
		return ErrUnauthenticated
	}
	var description string
	err := s.loans.DeleteInstance(ctx, instanceID, func(current *entities.BookInstance) error {
		if err := authorize(current, requester); err != nil {
			return err
		}
		description = fmt.Sprintf("Returned copy %s", current.UniqueID)
		return nil
	})
	if err != nil {
		err = translate(err, "return book")
		s.audit.LogLoan(requester, "return", instanceID, "Return refused", err)
		return err
	}
	s.audit.LogLoan(requester, "return", instanceID, description, nil)
	return nil
}

// IsOverdue reports whether the copy's due date is strictly before today.
func (s *LoanService) IsOverdue(instance entities.BookInstance) bool {
	return instance.IsOverdue(s.now())
}

// SetStatus is the administrative path that can move a copy to any status,
// including available. The reader and due date are untouched.
func (s *LoanService) SetStatus(ctx context.Context, actor, instanceID uint, status entities.LoanStatus) (*entities.BookInstance, error) {
	if !status.Valid() {
		return nil, NewValidationError("status", fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", status))
	}
	instance, err := s.loans.UpdateStatus(ctx, instanceID, status)
	if err != nil {
		return nil, translate(err, "update status")
	}
	s.audit.LogLoan(actor, "status_"+status.Label(), instance.ID, instance.String(), nil)
	return instance, nil
}

// ListOverdue returns every held copy whose due date is before today.
func (s *LoanService) ListOverdue(ctx context.Context) ([]entities.BookInstance, error) {
	instances, err := s.loans.ListOverdue(ctx, entities.DateOf(s.now()))
	if err != nil {
		return nil, translate(err, "list overdue loans")
	}
	return instances, nil
}

func authorize(instance *entities.BookInstance, requester uint) error {
	if !instance.IsReservedBy(requester) {
		return ErrPermissionDenied
	}
	return nil
}

func actionName(action LoanAction) string {
	if action == LoanActionExtend {
		return "extend"
	}
	return "take"
}

func normalizeDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := entities.DateOf(*t)
	return &d
}
