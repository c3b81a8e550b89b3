package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/media"
)

// CoversController handles book cover uploads.
type CoversController struct {
	store   CatalogAdminStore
	storage PhotoStorage
	auditor CatalogAuditor
}

// NewCoversController creates a new CoversController. auditor may be nil.
func NewCoversController(store CatalogAdminStore, storage PhotoStorage, auditor CatalogAuditor) *CoversController {
	return &CoversController{
		store:   store,
		storage: storage,
		auditor: auditor,
	}
}

// UploadCover stores a new cover image for a book and drops the old file.
// POST /api/books/:id/cover (multipart field "cover")
func (cc *CoversController) UploadCover(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := cc.store.GetBook(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, translateStoreError(err), "book")
		return
	}

	header, err := c.FormFile("cover")
	if err != nil {
		respondBadRequest(c, "cover file is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		respondInternalError(c, err, "open cover upload")
		return
	}
	defer file.Close()

	rel, err := cc.storage.Save(media.KindCover, book.ID, file)
	if err != nil {
		if errors.Is(err, media.ErrUnsupportedType) || errors.Is(err, media.ErrTooLarge) {
			respondBadRequest(c, photoErrorMessage(err))
			return
		}
		respondInternalError(c, err, "save cover")
		return
	}

	if err := cc.store.UpdateBookCover(c.Request.Context(), book.ID, rel); err != nil {
		if removeErr := cc.storage.Remove(rel); removeErr != nil {
			log.Printf("Failed to remove cover %s: %v", rel, removeErr)
		}
		respondServiceError(c, translateStoreError(err), "book")
		return
	}
	if book.Cover != "" && book.Cover != rel {
		if err := cc.storage.Remove(book.Cover); err != nil {
			log.Printf("Failed to remove cover %s: %v", book.Cover, err)
		}
	}

	if cc.auditor != nil {
		cc.auditor.LogCatalog(auth.GetUserID(c), "cover_upload", "book", book.ID, "New cover for "+book.Title)
	}

	c.JSON(http.StatusOK, gin.H{
		"cover":     rel,
		"cover_url": media.URL(rel),
	})
}
