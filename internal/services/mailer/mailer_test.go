package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/farm-manager/internal/models"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, message any) error {
	return m.Called(ctx, message).Error(0)
}

type recorder struct {
	stages []string
	errs   []error
}

func (r *recorder) MailEvent(stage string, err error) {
	r.stages = append(r.stages, stage)
	r.errs = append(r.errs, err)
}

func TestQueueMailer_Send(t *testing.T) {
	pub := new(MockPublisher)
	rec := &recorder{}
	want := models.MailMessage{To: "maria@fazenda.com", Subject: "Oi", HTMLBody: "<p>x</p>"}
	pub.On("Publish", mock.Anything, want).Return(nil).Once()

	err := NewQueueMailer(pub, rec).Send(context.Background(), want.To, want.Subject, want.HTMLBody)
	require.NoError(t, err)
	pub.AssertExpectations(t)
	assert.Equal(t, []string{"queued"}, rec.stages)
	assert.Nil(t, rec.errs[0])
}

func TestQueueMailer_SendError(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	err := NewQueueMailer(pub, nil).Send(context.Background(), "a@b.c", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestTemplates(t *testing.T) {
	t.Run("verification escapes and links", func(t *testing.T) {
		e, err := VerificationEmail("<script>", "https://app/verify-email?token=abc")
		require.NoError(t, err)
		assert.Equal(t, "Confirme seu e-mail", e.Subject)
		assert.Contains(t, e.HTML, `href="https://app/verify-email?token=abc"`)
		assert.Contains(t, e.HTML, "&lt;script&gt;")
		assert.NotContains(t, e.HTML, "<script>")
	})

	t.Run("invitation carries code", func(t *testing.T) {
		e, err := InvitationEmail(models.RoleManager, "deadbeef")
		require.NoError(t, err)
		assert.Contains(t, e.HTML, "deadbeef")
		assert.Contains(t, e.HTML, "MANAGER")
	})

	t.Run("reset", func(t *testing.T) {
		e, err := ResetEmail("Maria", "https://app/reset-password?token=abc")
		require.NoError(t, err)
		assert.Contains(t, e.HTML, "reset-password?token=abc")
	})

	t.Run("plan status", func(t *testing.T) {
		e, err := PlanStatusEmail("Maria", models.PlanGold, models.PlanStatusPaid)
		require.NoError(t, err)
		assert.Contains(t, e.HTML, "gold")
		assert.Contains(t, e.HTML, "Pago/Ativo")
	})

	t.Run("plan expired", func(t *testing.T) {
		e, err := PlanExpiredEmail("Maria", models.PlanBase)
		require.NoError(t, err)
		assert.Contains(t, e.HTML, "expirou")
	})
}
