package me

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/farm-manager/internal/http/middlewarectx"
	"github.com/magabrotheeeer/farm-manager/internal/lib/apperr"
	"github.com/magabrotheeeer/farm-manager/internal/lib/sl"
	"github.com/magabrotheeeer/farm-manager/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func TestMeHandler(t *testing.T) {
	id, gone := uuid.New(), uuid.New()
	svc := new(ServiceMock)
	svc.On("Me", mock.Anything, id).Return(&models.User{ID: id, Email: "maria@fazenda.com"}, nil).Once()
	svc.On("Me", mock.Anything, gone).Return(nil, apperr.New(apperr.KindUnauthenticated, "user no longer exists")).Once()
	h := New(sl.NewDiscardLogger(), svc)

	do := func(userID uuid.UUID) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserID, userID))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := do(id)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"maria@fazenda.com"`)
	assert.Contains(t, rec.Body.String(), `"planos":[]`)

	rec = do(gone)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	svc.AssertExpectations(t)
}
