package register

import (
	"context"

	"github.com/magabrotheeeer/farm-manager/internal/services/auth"
)

// Service регистрирует учётные записи.
type Service interface {
	Register(ctx context.Context, in auth.RegisterInput) (string, error)
}
