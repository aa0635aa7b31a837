package sender

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/farm-manager/internal/lib/sl"
	"github.com/magabrotheeeer/farm-manager/internal/lib/smtp"
	"github.com/magabrotheeeer/farm-manager/internal/models"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockTransport) From() string {
	return m.Called().String(0)
}

type MockSMTPClient struct {
	mock.Mock
	data bytes.Buffer
}

func (m *MockSMTPClient) Mail(from string) error {
	return m.Called(from).Error(0)
}

func (m *MockSMTPClient) Rcpt(to string) error {
	return m.Called(to).Error(0)
}

func (m *MockSMTPClient) Quit() error {
	return m.Called().Error(0)
}

func (m *MockSMTPClient) Close() error {
	return m.Called().Error(0)
}

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	if err := m.Called().Error(0); err != nil {
		return nil, err
	}
	return nopCloser{&m.data}, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

type countingRecorder struct{ sent, failed int }

func (c *countingRecorder) MailEvent(_ string, err error) {
	if err != nil {
		c.failed++
		return
	}
	c.sent++
}

func TestService_Deliver(t *testing.T) {
	body := []byte(`{"to":"maria@fazenda.com","subject":"Confirme seu e-mail","html_body":"<p>Olá</p>"}`)

	tests := []struct {
		name       string
		body       []byte
		setupMocks func(*MockTransport, *MockSMTPClient)
		wantErr    string
		wantSent   int
		wantFailed int
	}{
		{
			name: "success",
			body: body,
			setupMocks: func(tr *MockTransport, c *MockSMTPClient) {
				tr.On("Connect").Return(c, nil).Once()
				tr.On("From").Return("noreply@farm.example")
				c.On("Mail", "noreply@farm.example").Return(nil).Once()
				c.On("Rcpt", "maria@fazenda.com").Return(nil).Once()
				c.On("Data").Return(nil).Once()
				c.On("Quit").Return(nil).Once()
				c.On("Close").Return(nil).Once()
			},
			wantSent: 1,
		},
		{
			name:       "invalid JSON is dropped",
			body:       []byte(`invalid json`),
			setupMocks: func(*MockTransport, *MockSMTPClient) {},
		},
		{
			name:       "empty recipient is dropped",
			body:       []byte(`{"subject":"x"}`),
			setupMocks: func(*MockTransport, *MockSMTPClient) {},
		},
		{
			name: "SMTP connection error is retried",
			body: body,
			setupMocks: func(tr *MockTransport, _ *MockSMTPClient) {
				tr.On("Connect").Return(nil, errors.New("connection refused")).Once()
			},
			wantErr:    "connection refused",
			wantFailed: 1,
		},
		{
			name: "recipient rejected",
			body: body,
			setupMocks: func(tr *MockTransport, c *MockSMTPClient) {
				tr.On("Connect").Return(c, nil).Once()
				tr.On("From").Return("noreply@farm.example")
				c.On("Mail", "noreply@farm.example").Return(nil).Once()
				c.On("Rcpt", "maria@fazenda.com").Return(errors.New("550 mailbox unavailable")).Once()
				c.On("Close").Return(nil).Once()
			},
			wantErr:    "550",
			wantFailed: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := new(MockTransport)
			client := new(MockSMTPClient)
			rec := &countingRecorder{}
			tt.setupMocks(transport, client)

			s := New(transport, 0, 1, sl.NewDiscardLogger(), rec)
			err := s.Deliver(context.Background(), tt.body)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantSent, rec.sent)
			assert.Equal(t, tt.wantFailed, rec.failed)
			transport.AssertExpectations(t)
			client.AssertExpectations(t)
		})
	}
}

func TestService_SendWritesHTMLMessage(t *testing.T) {
	transport := new(MockTransport)
	client := new(MockSMTPClient)
	transport.On("Connect").Return(client, nil)
	transport.On("From").Return("noreply@farm.example")
	client.On("Mail", mock.Anything).Return(nil)
	client.On("Rcpt", mock.Anything).Return(nil)
	client.On("Data").Return(nil)
	client.On("Quit").Return(nil)
	client.On("Close").Return(nil)

	s := New(transport, 0, 1, sl.NewDiscardLogger(), nil)
	s.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	require.NoError(t, s.Send(context.Background(), models.MailMessage{To: "a@b.c", Subject: "Oi", HTMLBody: "<b>x</b>"}))
	assert.Contains(t, client.data.String(), "Content-Type: text/html")
	assert.Contains(t, client.data.String(), "<b>x</b>")
}

func TestService_RateLimitHonoursContext(t *testing.T) {
	transport := new(MockTransport)
	s := New(transport, 0.001, 1, sl.NewDiscardLogger(), nil)
	require.True(t, s.limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := s.Send(ctx, models.MailMessage{To: "a@b.c"})
	require.Error(t, err)
	transport.AssertNotCalled(t, "Connect")
}
