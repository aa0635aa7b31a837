package invite

import (
	"bytes"
	"context"
	"errors"
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
	"github.com/magabrotheeeer/farm-manager/internal/services/auth"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) PreRegisterSubUser(ctx context.Context, adminID uuid.UUID, in auth.InviteInput) (string, error) {
	args := m.Called(ctx, adminID, in)
	return args.String(0), args.Error(1)
}

func TestInviteHandler(t *testing.T) {
	adminID := uuid.New()
	propID := uuid.New()
	body := `{"email":"joao@fazenda.com","role":"MANAGER","propriedades":["` + propID.String() + `"]}`

	tests := []struct {
		name       string
		body       string
		svcErr     error
		callsSvc   bool
		wantStatus int
		wantBody   string
	}{
		{"created", body, nil, true, http.StatusCreated, `{"message":"invitation sent"}`},
		{"administrator role rejected", `{"email":"joao@fazenda.com","role":"ADMINISTRATOR","propriedades":["` + propID.String() + `"]}`, nil, false, http.StatusBadRequest, ""},
		{"no properties", `{"email":"joao@fazenda.com","role":"EMPLOYEE","propriedades":[]}`, nil, false, http.StatusBadRequest, ""},
		{"malformed json", `{"email":`, nil, false, http.StatusBadRequest, `{"error":"invalid request body"}`},
		{"not owner", body, apperr.Validation("properties do not belong to the administrator"), true, http.StatusBadRequest, `{"error":"properties do not belong to the administrator"}`},
		{"sub-user caller", body, apperr.New(apperr.KindForbidden, "only administrators can invite users"), true, http.StatusForbidden, ""},
		{"mail failure", body, apperr.Internal(errors.New("amqp closed")), true, http.StatusInternalServerError, `{"error":"internal error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.callsSvc {
				msg := ""
				if tt.svcErr == nil {
					msg = "invitation sent"
				}
				svc.On("PreRegisterSubUser", mock.Anything, adminID, auth.InviteInput{
					Email:       "joao@fazenda.com",
					Role:        models.RoleManager,
					PropertyIDs: []uuid.UUID{propID},
				}).Return(msg, tt.svcErr).Once()
			}

			req := httptest.NewRequest(http.MethodPost, "/auth/sub-users", bytes.NewBufferString(tt.body))
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserID, adminID))
			rec := httptest.NewRecorder()
			New(sl.NewDiscardLogger(), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
			svc.AssertExpectations(t)
		})
	}
}
