package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/database/catalog"
	"github.com/mrlokans/librarian/internal/database/loans"
	"github.com/mrlokans/librarian/internal/database/reviews"
	"github.com/mrlokans/librarian/internal/entities"
)

// testEnv wires the services to a throwaway SQLite database.
type testEnv struct {
	db       *gorm.DB
	catalog  *catalog.Repository
	loans    *loans.Repository
	reviews  *reviews.Repository
	alice    entities.User
	bob      entities.User
	war      entities.Genre
	poetry   entities.Genre
	tolstoy  entities.Author
	warPeace entities.Book
	wartime  entities.Book
	odes     entities.Book
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		db:      db.DB,
		catalog: catalog.NewRepository(db.DB),
		loans:   loans.NewRepository(db.DB),
		reviews: reviews.NewRepository(db.DB),
	}
	ctx := context.Background()

	env.alice = entities.User{Username: "alice", Email: "alice@example.com"}
	env.bob = entities.User{Username: "bob", Email: "bob@example.com"}
	require.NoError(t, env.db.Create(&env.alice).Error)
	require.NoError(t, env.db.Create(&env.bob).Error)

	env.war = entities.Genre{Name: "War"}
	env.poetry = entities.Genre{Name: "Poetry"}
	require.NoError(t, env.catalog.CreateGenre(ctx, &env.war))
	require.NoError(t, env.catalog.CreateGenre(ctx, &env.poetry))

	env.tolstoy = entities.Author{FirstName: "Leo", LastName: "Tolstoy"}
	require.NoError(t, env.catalog.CreateAuthor(ctx, &env.tolstoy))

	env.warPeace = entities.Book{Title: "WAR and Peace", Summary: "Napoleon invades", AuthorID: &env.tolstoy.ID}
	env.wartime = entities.Book{Title: "Letters", Summary: "Notes from the wartime front"}
	env.odes = entities.Book{Title: "Odes", Summary: "Quiet verses"}
	require.NoError(t, env.catalog.CreateBook(ctx, &env.warPeace, []uint{env.war.ID}))
	require.NoError(t, env.catalog.CreateBook(ctx, &env.wartime, []uint{env.poetry.ID}))
	require.NoError(t, env.catalog.CreateBook(ctx, &env.odes, []uint{env.poetry.ID}))

	return env
}

func (e *testEnv) loanService(opts ...LoanServiceOption) *LoanService {
	return NewLoanService(e.loans, e.catalog, opts...)
}

func (e *testEnv) listingService() *ListingService {
	return NewListingService(e.catalog, e.loans, PageSizes{Books: 3, Authors: 5, Loans: 10})
}

func (e *testEnv) reviewService(opts ...ReviewServiceOption) *ReviewService {
	return NewReviewService(e.reviews, e.catalog, opts...)
}

func fixedClock(y int, m time.Month, d int) func() time.Time {
	return func() time.Time { return time.Date(y, m, d, 15, 30, 0, 0, time.UTC) }
}

// recordingAudit captures audit calls synchronously.
type recordingAudit struct {
	loans   []string
	reviews []error
}

func (r *recordingAudit) LogLoan(_ uint, action string, _ uint, _ string, err error) {
	if err != nil {
		action += ":failed"
	}
	r.loans = append(r.loans, action)
}

func (r *recordingAudit) LogReview(_, _ uint, _ int, err error) {
	r.reviews = append(r.reviews, err)
}
