package loans

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "loans.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.DB), db.DB
}

func seedBookAndReader(t *testing.T, db *gorm.DB) (entities.Book, entities.User) {
	t.Helper()
	book := entities.Book{Title: "Dune", Summary: "Spice"}
	require.NoError(t, db.Omit("Author", "Genres").Create(&book).Error)
	reader := entities.User{Username: "alice", Email: "alice@example.com"}
	require.NoError(t, db.Create(&reader).Error)
	return book, reader
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestRepository_CreateInstance(t *testing.T) {
	repo, db := setupTestDB(t)
	book, _ := seedBookAndReader(t, db)
	ctx := context.Background()

	first := entities.BookInstance{BookID: book.ID}
	second := entities.BookInstance{BookID: book.ID}
	require.NoError(t, repo.CreateInstance(ctx, &first))
	require.NoError(t, repo.CreateInstance(ctx, &second))

	assert.NotEqual(t, uuid.Nil, first.UniqueID)
	assert.NotEqual(t, first.UniqueID, second.UniqueID)
	assert.Equal(t, uuid.Version(4), first.UniqueID.Version())
	assert.Equal(t, entities.LoanStatusManaged, first.Status)

	loaded, err := repo.GetInstance(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.UniqueID, loaded.UniqueID)
	assert.Equal(t, first.UniqueID.String()+": Dune", loaded.String())
}

func TestRepository_UniqueIDIsImmutable(t *testing.T) {
	repo, db := setupTestDB(t)
	book, _ := seedBookAndReader(t, db)
	ctx := context.Background()

	instance := entities.BookInstance{BookID: book.ID}
	require.NoError(t, repo.CreateInstance(ctx, &instance))
	original := instance.UniqueID

	instance.UniqueID = uuid.New()
	require.NoError(t, db.Omit("Book", "Reader").Save(&instance).Error)

	loaded, err := repo.GetInstance(ctx, instance.ID)
	require.NoError(t, err)
	assert.Equal(t, original, loaded.UniqueID)
}

func TestRepository_UpdateLoan(t *testing.T) {
	repo, db := setupTestDB(t)
	book, reader := seedBookAndReader(t, db)
	ctx := context.Background()

	instance := entities.BookInstance{BookID: book.ID, ReaderID: &reader.ID, Status: entities.LoanStatusReserved}
	require.NoError(t, repo.CreateInstance(ctx, &instance))

	t.Run("applies changes and passes the previous row to check", func(t *testing.T) {
		var seen entities.LoanStatus
		updated, err := repo.UpdateLoan(ctx, instance.ID, func(current *entities.BookInstance) error {
			seen = current.Status
			return nil
		}, &reader.ID, entities.LoanStatusTaken, date(2030, 1, 2))
		require.NoError(t, err)
		assert.Equal(t, entities.LoanStatusReserved, seen)
		assert.Equal(t, entities.LoanStatusTaken, updated.Status)
		require.NotNil(t, updated.DueBack)
		assert.Equal(t, "2030-01-02", updated.DueBack.Format(entities.DateLayout))
		assert.Equal(t, "Dune", updated.Book.Title)
	})

	t.Run("check can veto", func(t *testing.T) {
		veto := errors.New("nope")
		_, err := repo.UpdateLoan(ctx, instance.ID, func(*entities.BookInstance) error { return veto }, nil, entities.LoanStatusManaged, nil)
		assert.ErrorIs(t, err, veto)

		loaded, err := repo.GetInstance(ctx, instance.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.LoanStatusTaken, loaded.Status)
	})

	t.Run("missing row", func(t *testing.T) {
		_, err := repo.UpdateLoan(ctx, 9999, nil, nil, entities.LoanStatusTaken, nil)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestRepository_UpdateStatus(t *testing.T) {
	repo, db := setupTestDB(t)
	book, reader := seedBookAndReader(t, db)
	ctx := context.Background()

	instance := entities.BookInstance{BookID: book.ID, ReaderID: &reader.ID, Status: entities.LoanStatusTaken, DueBack: date(2030, 1, 2)}
	require.NoError(t, repo.CreateInstance(ctx, &instance))

	updated, err := repo.UpdateStatus(ctx, instance.ID, entities.LoanStatusAvailable)
	require.NoError(t, err)
	assert.Equal(t, entities.LoanStatusAvailable, updated.Status)
	assert.True(t, updated.IsReservedBy(reader.ID))
	assert.NotNil(t, updated.DueBack)

	_, err = repo.UpdateStatus(ctx, 9999, entities.LoanStatusAvailable)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_DeleteInstance(t *testing.T) {
	repo, db := setupTestDB(t)
	book, _ := seedBookAndReader(t, db)
	ctx := context.Background()

	instance := entities.BookInstance{BookID: book.ID}
	require.NoError(t, repo.CreateInstance(ctx, &instance))

	require.NoError(t, repo.DeleteInstance(ctx, instance.ID, nil))
	err := repo.DeleteInstance(ctx, instance.ID, nil)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_ListForReader(t *testing.T) {
	repo, db := setupTestDB(t)
	book, reader := seedBookAndReader(t, db)
	other := entities.User{Username: "bob", Email: "bob@example.com"}
	require.NoError(t, db.Create(&other).Error)
	ctx := context.Background()

	later := entities.BookInstance{BookID: book.ID, ReaderID: &reader.ID, DueBack: date(2030, 5, 1)}
	sooner := entities.BookInstance{BookID: book.ID, ReaderID: &reader.ID, DueBack: date(2030, 1, 1)}
	undated := entities.BookInstance{BookID: book.ID, ReaderID: &reader.ID}
	foreign := entities.BookInstance{BookID: book.ID, ReaderID: &other.ID, DueBack: date(2029, 1, 1)}
	for _, i := range []*entities.BookInstance{&later, &sooner, &undated, &foreign} {
		require.NoError(t, repo.CreateInstance(ctx, i))
	}

	page, err := repo.ListForReader(ctx, reader.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	ids := []uint{}
	for _, i := range page.Items {
		ids = append(ids, i.ID)
	}
	assert.Equal(t, []uint{undated.ID, sooner.ID, later.ID}, ids)
	assert.Equal(t, "Dune", page.Items[0].Book.Title)

	empty, err := repo.ListForReader(ctx, 9999, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, empty.Number)
	assert.Empty(t, empty.Items)
}

func TestRepository_ListOverdue(t *testing.T) {
	repo, db := setupTestDB(t)
	book, reader := seedBookAndReader(t, db)
	ctx := context.Background()

	overdue := entities.BookInstance{BookID: book.ID, ReaderID: &reader.ID, Status: entities.LoanStatusTaken, DueBack: date(2030, 1, 9)}
	dueToday := entities.BookInstance{BookID: book.ID, ReaderID: &reader.ID, Status: entities.LoanStatusTaken, DueBack: date(2030, 1, 10)}
	noReader := entities.BookInstance{BookID: book.ID, DueBack: date(2020, 1, 1)}
	for _, i := range []*entities.BookInstance{&overdue, &dueToday, &noReader} {
		require.NoError(t, repo.CreateInstance(ctx, i))
	}

	list, err := repo.ListOverdue(ctx, *date(2030, 1, 10))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, overdue.ID, list[0].ID)
	require.NotNil(t, list[0].Reader)
	assert.Equal(t, "alice", list[0].Reader.Username)
}

func TestReaderDeleteNullsInstanceReader(t *testing.T) {
	repo, db := setupTestDB(t)
	book, reader := seedBookAndReader(t, db)
	ctx := context.Background()

	instance := entities.BookInstance{BookID: book.ID, ReaderID: &reader.ID, Status: entities.LoanStatusTaken}
	require.NoError(t, repo.CreateInstance(ctx, &instance))

	// Relies on the ON DELETE SET NULL constraint alone.
	require.NoError(t, db.Delete(&entities.User{}, reader.ID).Error)

	loaded, err := repo.GetInstance(ctx, instance.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded.ReaderID)
	assert.Equal(t, entities.LoanStatusTaken, loaded.Status)
}

func TestRepository_UpdateLoanWithConcurrentWriters(t *testing.T) {
	repo, db := setupTestDB(t)
	book, reader := seedBookAndReader(t, db)
	ctx := context.Background()

	instances := make([]entities.BookInstance, 5)
	for i := range instances {
		instances[i] = entities.BookInstance{BookID: book.ID, ReaderID: &reader.ID, Status: entities.LoanStatusReserved}
		require.NoError(t, repo.CreateInstance(ctx, &instances[i]))
	}

	// Audit events land on the same file while loans are being taken.
	var wg sync.WaitGroup
	auditErrs := make(chan error, 200)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				auditErrs <- db.Create(&entities.AuditEvent{
					UserID:     reader.ID,
					EventType:  entities.AuditEventLoan,
					Action:     "take",
					EntityType: "book_instance",
					Status:     entities.AuditStatusSuccess,
				}).Error
			}
		}()
	}

	loanErrs := make(chan error, len(instances)*4)
	for round := 0; round < 4; round++ {
		for _, instance := range instances {
			wg.Add(1)
			go func(id uint) {
				defer wg.Done()
				_, err := repo.UpdateLoan(ctx, id, nil, &reader.ID, entities.LoanStatusTaken, date(2030, 1, 2))
				loanErrs <- err
			}(instance.ID)
		}
	}

	wg.Wait()
	close(auditErrs)
	close(loanErrs)

	for err := range auditErrs {
		require.NoError(t, err)
	}
	for err := range loanErrs {
		require.NoError(t, err)
	}

	for _, instance := range instances {
		loaded, err := repo.GetInstance(ctx, instance.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.LoanStatusTaken, loaded.Status)
	}
}
