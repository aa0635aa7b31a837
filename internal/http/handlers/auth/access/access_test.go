package access

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/farm-manager/internal/lib/sl"
)

func TestAccessHandler(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/auth/access/{tier}", New(sl.NewDiscardLogger()).ServeHTTP)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/access/gold", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"allowed":true,"tier":"gold"}`, rec.Body.String())
}
