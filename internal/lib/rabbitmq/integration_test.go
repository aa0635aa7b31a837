//go:build integration

package rabbitmq

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/farm-manager/internal/lib/sl"
)

func setupRabbitMQ(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3-management",
			ExposedPorts: []string{"5672/tcp"},
			WaitingFor:   wait.ForListeningPort("5672/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5672")
	require.NoError(t, err)
	return fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())
}

func TestPublishAndConsume(t *testing.T) {
	url := setupRabbitMQ(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := Connect(ctx, url, 10, time.Second)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	ch, err := SetupChannel(conn, "notifications", []QueueConfig{{QueueName: "notification.mail", RoutingKey: "mail"}})
	require.NoError(t, err)
	defer func() { _ = ch.Close() }()

	require.NoError(t, NewPublisher(ch, "notifications", "mail").Publish(ctx, map[string]string{"to": "a@b.c"}))

	received := make(chan []byte, 1)
	require.NoError(t, ConsumerMessage(ctx, ch, "notification.mail", 1, sl.NewDiscardLogger(),
		func(_ context.Context, body []byte) error {
			received <- body
			return nil
		}))

	select {
	case body := <-received:
		assert.JSONEq(t, `{"to":"a@b.c"}`, string(body))
	case <-ctx.Done():
		t.Fatal("message was not consumed")
	}
}
