package plan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/farm-manager/internal/cache"
	"github.com/magabrotheeeer/farm-manager/internal/config"
	"github.com/magabrotheeeer/farm-manager/internal/lib/apperr"
	"github.com/magabrotheeeer/farm-manager/internal/lib/sl"
	"github.com/magabrotheeeer/farm-manager/internal/models"
	"github.com/magabrotheeeer/farm-manager/internal/storage"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockStore) ListPlans(ctx context.Context, userID uuid.UUID) ([]models.Plan, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).([]models.Plan)
	return p, args.Error(1)
}

func (m *MockStore) SavePaymentPlan(ctx context.Context, p *models.Plan) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockStore) ExpirePlans(ctx context.Context, now time.Time) ([]models.ExpiredPlan, error) {
	args := m.Called(ctx, now)
	p, _ := args.Get(0).([]models.ExpiredPlan)
	return p, args.Error(1)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	return m.Called(ctx, to, subject, htmlBody).Error(0)
}

func setupCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	c, err := cache.InitServer(context.Background(), config.RedisConnection{AddressRedis: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newService(store Store, c Cache, m Mailer) *Service {
	s := NewService(store, c, m, sl.NewDiscardLogger(), time.Minute, 30*24*time.Hour)
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestSufficient(t *testing.T) {
	tests := []struct {
		name     string
		plans    []models.Plan
		required models.PlanType
		want     bool
	}{
		{"no plans", nil, models.PlanBase, false},
		{"active base for base", []models.Plan{{Type: models.PlanBase, Status: models.PlanStatusPaid}}, models.PlanBase, true},
		{"active base for gold", []models.Plan{{Type: models.PlanBase, Status: models.PlanStatusPaid}}, models.PlanGold, false},
		{"trial gold for base", []models.Plan{{Type: models.PlanGold, Status: models.PlanStatusTrial}}, models.PlanBase, true},
		{"trial gold for gold", []models.Plan{{Type: models.PlanGold, Status: models.PlanStatusTrial}}, models.PlanGold, true},
		{"pending gold", []models.Plan{{Type: models.PlanGold, Status: models.PlanStatusPending}}, models.PlanBase, false},
		{"expired and cancelled", []models.Plan{
			{Type: models.PlanGold, Status: models.PlanStatusExpired},
			{Type: models.PlanBase, Status: models.PlanStatusCancelled},
		}, models.PlanBase, false},
		{"mixed", []models.Plan{
			{Type: models.PlanGold, Status: models.PlanStatusCancelled},
			{Type: models.PlanBase, Status: models.PlanStatusPaid},
		}, models.PlanBase, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sufficient(tt.plans, tt.required))
		})
	}
}

func TestEffectivePlans_SubUserInheritsAdmin(t *testing.T) {
	store := new(MockStore)
	adminID, subID := uuid.New(), uuid.New()
	plans := []models.Plan{{ID: uuid.New(), UserID: adminID, Type: models.PlanGold, Status: models.PlanStatusPaid}}

	store.On("FindByID", mock.Anything, subID).Return(&models.User{ID: subID, AdminID: &adminID}, nil).Once()
	store.On("ListPlans", mock.Anything, adminID).Return(plans, nil).Once()

	got, err := newService(store, nil, nil).EffectivePlans(context.Background(), subID)
	require.NoError(t, err)
	assert.Equal(t, plans, got)
	store.AssertExpectations(t)
}

func TestEffectivePlans_Cached(t *testing.T) {
	c, _ := setupCache(t)
	store := new(MockStore)
	userID := uuid.New()
	plans := []models.Plan{{ID: uuid.New(), UserID: userID, Type: models.PlanBase, Status: models.PlanStatusTrial}}

	store.On("FindByID", mock.Anything, userID).Return(&models.User{ID: userID}, nil).Once()
	store.On("ListPlans", mock.Anything, userID).Return(plans, nil).Once()

	s := newService(store, c, nil)
	for range 3 {
		got, err := s.EffectivePlans(context.Background(), userID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, models.PlanStatusTrial, got[0].Status)
	}
	store.AssertExpectations(t)
}

func TestEffectivePlans_UserNotFound(t *testing.T) {
	store := new(MockStore)
	id := uuid.New()
	store.On("FindByID", mock.Anything, id).Return(nil, storage.ErrUserNotFound).Once()

	_, err := newService(store, nil, nil).EffectivePlans(context.Background(), id)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestAllows(t *testing.T) {
	store := new(MockStore)
	id := uuid.New()
	store.On("FindByID", mock.Anything, id).Return(&models.User{ID: id}, nil)
	store.On("ListPlans", mock.Anything, id).Return([]models.Plan{{Type: models.PlanBase, Status: models.PlanStatusPaid}}, nil)
	s := newService(store, nil, nil)

	ok, err := s.Allows(context.Background(), id, models.PlanBase)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Allows(context.Background(), id, models.PlanGold)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Allows(context.Background(), id, "platinum")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestApplyPayment_Succeeded(t *testing.T) {
	c, mr := setupCache(t)
	store := new(MockStore)
	mailer := new(MockMailer)
	user := &models.User{ID: uuid.New(), Name: "Maria", Email: "maria@fazenda.com"}
	require.NoError(t, c.Set(context.Background(), plansKey(user.ID), []models.Plan{}, time.Minute))

	store.On("FindByID", mock.Anything, user.ID).Return(user, nil).Once()
	store.On("SavePaymentPlan", mock.Anything, mock.MatchedBy(func(p *models.Plan) bool {
		return p.UserID == user.ID && p.Status == models.PlanStatusPaid && p.Type == models.PlanGold &&
			p.PaymentID == "pay_1" && p.ExpiresAt != nil && p.ExpiresAt.Equal(fixedNow.Add(30*24*time.Hour))
	})).Return(nil).Once()
	mailer.On("Send", mock.Anything, user.Email, mock.Anything, mock.Anything).Return(nil).Once()

	p, err := newService(store, c, mailer).ApplyPayment(context.Background(), PaymentEvent{
		Event: EventSucceeded, PaymentID: "pay_1", UserID: user.ID, PlanType: models.PlanGold,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PlanStatusPaid, p.Status)
	assert.False(t, mr.Exists(plansKey(user.ID)))
	store.AssertExpectations(t)
	mailer.AssertExpectations(t)
}

func TestApplyPayment_StatusMapping(t *testing.T) {
	tests := []struct {
		event string
		want  models.PlanStatus
	}{
		{EventWaitingForCapture, models.PlanStatusPending},
		{EventCanceled, models.PlanStatusCancelled},
		{EventRefunded, models.PlanStatusCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			store := new(MockStore)
			mailer := new(MockMailer)
			user := &models.User{ID: uuid.New(), Email: "a@b.c"}
			store.On("FindByID", mock.Anything, user.ID).Return(user, nil)
			store.On("SavePaymentPlan", mock.Anything, mock.Anything).Return(nil)
			mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

			p, err := newService(store, nil, mailer).ApplyPayment(context.Background(), PaymentEvent{
				Event: tt.event, PaymentID: "pay", UserID: user.ID, PlanType: models.PlanBase,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Status)
			assert.Nil(t, p.ExpiresAt)
		})
	}
}

func TestApplyPayment_MailFailureIgnored(t *testing.T) {
	store := new(MockStore)
	mailer := new(MockMailer)
	user := &models.User{ID: uuid.New(), Email: "a@b.c"}
	store.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	store.On("SavePaymentPlan", mock.Anything, mock.Anything).Return(nil)
	mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	_, err := newService(store, nil, mailer).ApplyPayment(context.Background(), PaymentEvent{
		Event: EventSucceeded, PaymentID: "pay", UserID: user.ID, PlanType: models.PlanBase,
	})
	assert.NoError(t, err)
}

func TestApplyPayment_Rejects(t *testing.T) {
	id := uuid.New()

	t.Run("unknown event", func(t *testing.T) {
		_, err := newService(new(MockStore), nil, nil).ApplyPayment(context.Background(), PaymentEvent{
			Event: "payout.succeeded", PaymentID: "p", UserID: id, PlanType: models.PlanBase,
		})
		assert.ErrorIs(t, err, ErrUnknownEvent)
	})

	t.Run("unknown plan", func(t *testing.T) {
		_, err := newService(new(MockStore), nil, nil).ApplyPayment(context.Background(), PaymentEvent{
			Event: EventSucceeded, PaymentID: "p", UserID: id, PlanType: "silver",
		})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("unknown user", func(t *testing.T) {
		store := new(MockStore)
		store.On("FindByID", mock.Anything, id).Return(nil, storage.ErrUserNotFound)
		_, err := newService(store, nil, nil).ApplyPayment(context.Background(), PaymentEvent{
			Event: EventSucceeded, PaymentID: "p", UserID: id, PlanType: models.PlanBase,
		})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestExpireDue(t *testing.T) {
	c, mr := setupCache(t)
	store := new(MockStore)
	owner := uuid.New()
	require.NoError(t, c.Set(context.Background(), plansKey(owner), []models.Plan{}, time.Minute))
	expired := []models.ExpiredPlan{{PlanID: uuid.New(), UserID: owner, Email: "a@b.c", Type: models.PlanBase}}
	store.On("ExpirePlans", mock.Anything, fixedNow).Return(expired, nil).Once()

	got, err := newService(store, c, nil).ExpireDue(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, expired, got)
	assert.False(t, mr.Exists(plansKey(owner)))
}
