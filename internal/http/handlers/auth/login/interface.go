package login

import (
	"context"

	"github.com/magabrotheeeer/farm-manager/internal/models"
)

// Service выполняет вход.
type Service interface {
	Login(ctx context.Context, email, password string) (*models.User, string, error)
}
