package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/farm-manager/internal/lib/sl"
	"github.com/magabrotheeeer/farm-manager/internal/models"
)

type MockExpirer struct {
	mock.Mock
}

func (m *MockExpirer) ExpireDue(ctx context.Context, now time.Time) ([]models.ExpiredPlan, error) {
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

var fixedNow = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

func newService(e PlanExpirer, m Mailer) *Service {
	s := New(e, m, sl.NewDiscardLogger(), time.Hour)
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestRunOnce_MailsOwners(t *testing.T) {
	expirer := new(MockExpirer)
	mailer := new(MockMailer)
	expired := []models.ExpiredPlan{
		{PlanID: uuid.New(), UserID: uuid.New(), Email: "a@fazenda.com", Name: "A", Type: models.PlanBase},
		{PlanID: uuid.New(), UserID: uuid.New(), Email: "b@fazenda.com", Name: "B", Type: models.PlanGold},
	}
	expirer.On("ExpireDue", mock.Anything, fixedNow).Return(expired, nil).Once()
	mailer.On("Send", mock.Anything, "a@fazenda.com", "Seu plano expirou", mock.Anything).Return(errors.New("broker down")).Once()
	mailer.On("Send", mock.Anything, "b@fazenda.com", "Seu plano expirou", mock.Anything).Return(nil).Once()

	assert.Equal(t, 2, newService(expirer, mailer).RunOnce(context.Background()))
	expirer.AssertExpectations(t)
	mailer.AssertExpectations(t)
}

func TestRunOnce_Nothing(t *testing.T) {
	expirer := new(MockExpirer)
	mailer := new(MockMailer)
	expirer.On("ExpireDue", mock.Anything, fixedNow).Return(nil, nil).Once()

	assert.Zero(t, newService(expirer, mailer).RunOnce(context.Background()))
	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunOnce_StoreError(t *testing.T) {
	expirer := new(MockExpirer)
	expirer.On("ExpireDue", mock.Anything, fixedNow).Return(nil, errors.New("db down")).Once()

	assert.Zero(t, newService(expirer, new(MockMailer)).RunOnce(context.Background()))
}

func TestRun_StopsOnCancel(t *testing.T) {
	expirer := new(MockExpirer)
	expirer.On("ExpireDue", mock.Anything, mock.Anything).Return(nil, nil)
	s := New(expirer, new(MockMailer), sl.NewDiscardLogger(), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.GreaterOrEqual(t, len(expirer.Calls), 2)
}
