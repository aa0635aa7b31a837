// Package smtp отправляет письма через SMTP с STARTTLS и PLAIN-аутентификацией.
package smtp

import "io"

// Client интерфейс SMTP клиента.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Dialer устанавливает аутентифицированное соединение с SMTP сервером.
type Dialer interface {
	Connect() (Client, error)
	From() string
}
