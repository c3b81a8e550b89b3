package http

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarian/internal/entities"
)

func coverUpload(t *testing.T, env *routerEnv, bookID uint, token string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("cover", "cover.png")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/books/%d/cover", bookID), &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestCoversController_UploadCover(t *testing.T) {
	t.Run("librarian uploads a cover", func(t *testing.T) {
		env := setupRouterEnv(t)

		w := coverUpload(t, env, env.odes.ID, env.token(env.librarian), pngBytes(t))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		resp := decodeJSON[map[string]string](t, w)
		assert.Equal(t, "/media/"+resp["cover"], resp["cover_url"])

		book, err := env.catalog.GetBook(context.Background(), env.odes.ID)
		require.NoError(t, err)
		assert.Equal(t, resp["cover"], book.Cover)

		path, err := env.media.Path(book.Cover)
		require.NoError(t, err)
		_, err = os.Stat(path)
		assert.NoError(t, err)

		// The book page shows it
		page := env.browser().get(fmt.Sprintf("/books/%d/", env.odes.ID)).Body.String()
		assert.Contains(t, page, resp["cover_url"])
	})

	t.Run("rejects non images", func(t *testing.T) {
		env := setupRouterEnv(t)

		w := coverUpload(t, env, env.odes.ID, env.token(env.librarian), []byte("plain text"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown book", func(t *testing.T) {
		env := setupRouterEnv(t)

		w := coverUpload(t, env, 999, env.token(env.librarian), pngBytes(t))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("readers are forbidden", func(t *testing.T) {
		env := setupRouterEnv(t)

		w := coverUpload(t, env, env.odes.ID, env.token(env.reader), pngBytes(t))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestDeleteController_CascadeThroughRouter(t *testing.T) {
	env := setupRouterEnv(t)
	token := env.token(env.librarian)
	instance := env.holdCopy(env.warPeace, env.reader, entities.LoanStatusTaken, nil)

	// Deleting the author keeps the book
	w := env.apiRequest(http.MethodDelete, fmt.Sprintf("/api/authors/%d", env.tolstoy.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	book, err := env.catalog.GetBook(context.Background(), env.warPeace.ID)
	require.NoError(t, err)
	assert.Nil(t, book.AuthorID)

	// Deleting the book takes its copies
	w = env.apiRequest(http.MethodDelete, fmt.Sprintf("/api/books/%d", env.warPeace.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, err = env.loans.GetInstance(context.Background(), instance.ID)
	assert.Error(t, err)

	w = env.apiRequest(http.MethodDelete, fmt.Sprintf("/api/books/%d", env.warPeace.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	env.auditor.Wait()
	_, total, err := env.auditor.GetEvents(context.Background(), auditFilter(entities.AuditEventCatalog), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}
