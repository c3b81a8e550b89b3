package http

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarian/internal/entities"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestLoansController_RequiresLogin(t *testing.T) {
	env := setupRouterEnv(t)

	for _, path := range []string{"/mybooks/", "/mybooks/new/", "/mybooks/1/take/", "/mybooks/1/return/"} {
		w := env.browser().get(path)
		assert.Equal(t, http.StatusFound, w.Code, path)
		assert.Equal(t, "/login?next="+url.QueryEscape(path), w.Header().Get("Location"), path)
	}
}

func TestLoansController_MyBooks(t *testing.T) {
	env := setupRouterEnv(t)
	env.holdCopy(env.warPeace, env.reader, entities.LoanStatusTaken, date(2024, time.June, 1))
	env.holdCopy(env.odes, env.reader, entities.LoanStatusReserved, date(2024, time.June, 15))
	env.holdCopy(env.letters, env.other, entities.LoanStatusTaken, nil)

	w := env.loggedIn(env.reader).get("/mybooks/")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "War and Peace")
	assert.Contains(t, body, "Odes")
	assert.NotContains(t, body, "Letters")
	assert.Contains(t, body, "2024-06-01 <strong>overdue</strong>")
	// Due today is not overdue
	assert.NotContains(t, body, "2024-06-15 <strong>overdue</strong>")
	assert.Contains(t, body, ">Extend</a>")
	assert.Contains(t, body, ">Take</a>")
}

func TestLoansController_Reserve(t *testing.T) {
	t.Run("form preselects the book", func(t *testing.T) {
		env := setupRouterEnv(t)

		w := env.loggedIn(env.reader).get(fmt.Sprintf("/mybooks/new/?book=%d", env.odes.ID))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), fmt.Sprintf(`<option value="%d" selected>None - Odes</option>`, env.odes.ID))
		assert.Contains(t, w.Body.String(), "Leo Tolstoy - War and Peace")
	})

	t.Run("creates a reserved copy", func(t *testing.T) {
		env := setupRouterEnv(t)
		b := env.loggedIn(env.reader)

		w := b.postForm("/mybooks/new/", url.Values{
			"book":     {fmt.Sprint(env.odes.ID)},
			"due_back": {"2024-07-01"},
		})
		require.Equal(t, http.StatusFound, w.Code, w.Body.String())
		assert.Equal(t, "/mybooks/", w.Header().Get("Location"))

		page, err := env.loans.ListForReader(context.Background(), env.reader.ID, 1, 10)
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		instance := page.Items[0]
		assert.Equal(t, entities.LoanStatusReserved, instance.Status)
		assert.Equal(t, env.odes.ID, instance.BookID)
		require.NotNil(t, instance.DueBack)
		assert.Equal(t, "2024-07-01", instance.DueBack.Format(entities.DateLayout))

		w = b.get("/mybooks/")
		assert.Contains(t, w.Body.String(), "Book reserved")
		assert.Contains(t, w.Body.String(), "reserved")
	})

	t.Run("reserving twice creates two copies", func(t *testing.T) {
		env := setupRouterEnv(t)
		b := env.loggedIn(env.reader)

		for i := 0; i < 2; i++ {
			w := b.postForm("/mybooks/new/", url.Values{"book": {fmt.Sprint(env.odes.ID)}})
			require.Equal(t, http.StatusFound, w.Code)
		}

		page, err := env.loans.ListForReader(context.Background(), env.reader.ID, 1, 10)
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
	})

	t.Run("unknown book is a field error", func(t *testing.T) {
		env := setupRouterEnv(t)

		w := env.loggedIn(env.reader).postForm("/mybooks/new/", url.Values{"book": {"999"}})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Select a valid choice.")
	})

	t.Run("missing book and bad date are field errors", func(t *testing.T) {
		env := setupRouterEnv(t)

		w := env.loggedIn(env.reader).postForm("/mybooks/new/", url.Values{"due_back": {"soon"}})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "This field is required.")
		assert.Contains(t, w.Body.String(), "Enter a valid date.")
	})

	t.Run("non numeric book is a field error", func(t *testing.T) {
		env := setupRouterEnv(t)

		w := env.loggedIn(env.reader).postForm("/mybooks/new/", url.Values{"book": {"odes"}})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Select a valid choice.")
	})
}

func TestLoansController_TakeAndExtend(t *testing.T) {
	env := setupRouterEnv(t)
	instance := env.holdCopy(env.odes, env.reader, entities.LoanStatusReserved, nil)
	b := env.loggedIn(env.reader)
	path := fmt.Sprintf("/mybooks/%d/take/", instance.ID)

	w := b.get(path)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Take: Odes")

	w = b.postForm(path, url.Values{"due_back": {"2024-07-01"}})
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Contains(t, b.get("/mybooks/").Body.String(), "Book taken")

	w = b.get(path)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Extend: Odes")
	assert.Contains(t, w.Body.String(), `value="2024-07-01"`)

	w = b.postForm(path, url.Values{"due_back": {"2024-07-15"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, b.get("/mybooks/").Body.String(), "Loan extended")

	updated, err := env.loans.GetInstance(context.Background(), instance.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.LoanStatusTaken, updated.Status)
	assert.Equal(t, "2024-07-15", updated.DueBack.Format(entities.DateLayout))
}

func TestLoansController_TakeInvalidDate(t *testing.T) {
	env := setupRouterEnv(t)
	instance := env.holdCopy(env.odes, env.reader, entities.LoanStatusReserved, nil)

	w := env.loggedIn(env.reader).postForm(fmt.Sprintf("/mybooks/%d/take/", instance.ID), url.Values{"due_back": {"31/12/2024"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Enter a valid date.")
}

func TestLoansController_OwnerGuard(t *testing.T) {
	env := setupRouterEnv(t)
	instance := env.holdCopy(env.odes, env.other, entities.LoanStatusTaken, nil)
	b := env.loggedIn(env.reader)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"take page of another reader", http.MethodGet, fmt.Sprintf("/mybooks/%d/take/", instance.ID), http.StatusForbidden},
		{"take of another reader", http.MethodPost, fmt.Sprintf("/mybooks/%d/take/", instance.ID), http.StatusForbidden},
		{"return of another reader", http.MethodPost, fmt.Sprintf("/mybooks/%d/return/", instance.ID), http.StatusForbidden},
		{"missing copy", http.MethodGet, "/mybooks/999/take/", http.StatusNotFound},
		{"malformed id", http.MethodGet, "/mybooks/abc/return/", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var status int
			if tt.method == http.MethodGet {
				status = b.get(tt.path).Code
			} else {
				status = b.postForm(tt.path, url.Values{}).Code
			}
			assert.Equal(t, tt.want, status)
		})
	}

	// The copy is untouched
	current, err := env.loans.GetInstance(context.Background(), instance.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.LoanStatusTaken, current.Status)
	assert.Equal(t, env.other.ID, *current.ReaderID)
}

func TestLoansController_Return(t *testing.T) {
	env := setupRouterEnv(t)
	instance := env.holdCopy(env.odes, env.reader, entities.LoanStatusTaken, nil)
	b := env.loggedIn(env.reader)
	path := fmt.Sprintf("/mybooks/%d/return/", instance.ID)

	w := b.get(path)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Return Odes")

	w = b.postForm(path, url.Values{})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/mybooks/", w.Header().Get("Location"))
	assert.Contains(t, b.get("/mybooks/").Body.String(), "Book returned")

	_, err := env.loans.GetInstance(context.Background(), instance.ID)
	assert.Error(t, err)

	// Returning again finds nothing
	assert.Equal(t, http.StatusNotFound, b.postForm(path, url.Values{}).Code)
}

func TestLoansController_LoanActionsAreAudited(t *testing.T) {
	env := setupRouterEnv(t)
	b := env.loggedIn(env.reader)

	w := b.postForm("/mybooks/new/", url.Values{"book": {fmt.Sprint(env.odes.ID)}})
	require.Equal(t, http.StatusFound, w.Code)
	env.auditor.Wait()

	events, total, err := env.auditor.GetEvents(context.Background(), auditFilter(entities.AuditEventLoan), 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, "reserve", events[0].Action)
	assert.Equal(t, env.reader.ID, events[0].UserID)
}
