package verifycode

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/farm-manager/internal/lib/apperr"
	"github.com/magabrotheeeer/farm-manager/internal/lib/sl"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) VerifyCode(ctx context.Context, email, code string) (string, error) {
	args := m.Called(ctx, email, code)
	return args.String(0), args.Error(1)
}

func TestVerifyCodeHandler(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("VerifyCode", mock.Anything, "joao@fazenda.com", "good").Return("code verified", nil).Once()
	svc.On("VerifyCode", mock.Anything, "joao@fazenda.com", "bad").Return("", apperr.New(apperr.KindInvalidToken, "invalid code")).Once()
	h := New(sl.NewDiscardLogger(), svc)

	do := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/verify-code", bytes.NewBufferString(body)))
		return rec
	}

	rec := do(`{"email":"joao@fazenda.com","codigo":"good"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"code verified"}`, rec.Body.String())

	rec = do(`{"email":"joao@fazenda.com","codigo":"bad"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid code"}`, rec.Body.String())

	rec = do(`{"email":"joao@fazenda.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"field Code is a required field"}`, rec.Body.String())

	svc.AssertExpectations(t)
}
