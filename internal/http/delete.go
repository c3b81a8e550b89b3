package http

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
)

// DeleteController removes catalog entries. The store applies the cascade
// rules: a book takes its copies and reviews with it, an author or genre
// only detaches from its books.
type DeleteController struct {
	store   CatalogAdminStore
	storage PhotoStorage
	auditor CatalogAuditor
}

// NewDeleteController creates a new DeleteController. storage and auditor
// may be nil.
func NewDeleteController(store CatalogAdminStore, storage PhotoStorage, auditor CatalogAuditor) *DeleteController {
	return &DeleteController{store: store, storage: storage, auditor: auditor}
}

// DeleteBook handles DELETE /api/books/:id
func (dc *DeleteController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	// Loaded first for the audit description and the cover file
	book, err := dc.store.GetBook(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, translateStoreError(err), "book")
		return
	}

	if err := dc.store.DeleteBook(c.Request.Context(), id); err != nil {
		respondServiceError(c, translateStoreError(err), "book")
		return
	}

	if book.Cover != "" && dc.storage != nil {
		if err := dc.storage.Remove(book.Cover); err != nil {
			log.Printf("Failed to remove cover %s: %v", book.Cover, err)
		}
	}

	dc.logDelete(c, "book", id, fmt.Sprintf("Deleted book %q with %d copies and %d reviews",
		book.Title, len(book.Instances), len(book.Reviews)))
	respondSuccess(c, "Book deleted")
}

// DeleteAuthor handles DELETE /api/authors/:id
func (dc *DeleteController) DeleteAuthor(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := dc.store.DeleteAuthor(c.Request.Context(), id); err != nil {
		respondServiceError(c, translateStoreError(err), "author")
		return
	}

	dc.logDelete(c, "author", id, fmt.Sprintf("Deleted author %d", id))
	respondSuccess(c, "Author deleted")
}

// DeleteGenre handles DELETE /api/genres/:id
func (dc *DeleteController) DeleteGenre(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := dc.store.DeleteGenre(c.Request.Context(), id); err != nil {
		respondServiceError(c, translateStoreError(err), "genre")
		return
	}

	dc.logDelete(c, "genre", id, fmt.Sprintf("Deleted genre %d", id))
	respondSuccess(c, "Genre deleted")
}

func (dc *DeleteController) logDelete(c *gin.Context, entityType string, id uint, description string) {
	if dc.auditor != nil {
		dc.auditor.LogCatalog(auth.GetUserID(c), "delete", entityType, id, description)
	}
}
