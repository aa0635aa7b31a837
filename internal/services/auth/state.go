package auth

import (
	"fmt"
	"time"

	"github.com/magabrotheeeer/farm-manager/internal/lib/apperr"
	"github.com/magabrotheeeer/farm-manager/internal/models"
)

// AccountState состояние учётной записи, выводимое из записи пользователя.
type AccountState string

// Состояния учётной записи.
const (
	StatePreRegistered  AccountState = "PRE_REGISTERED"
	StateInvited        AccountState = "INVITED"
	StateProfilePending AccountState = "PROFILE_PENDING"
	StateActive         AccountState = "ACTIVE"
)

var accountTransitions = map[AccountState]map[AccountState]struct{}{
	StatePreRegistered:  {StateActive: {}},
	StateInvited:        {StateProfilePending: {}, StateActive: {}},
	StateProfilePending: {StateActive: {}},
}

// StateOf выводит состояние учётной записи.
func StateOf(u *models.User) AccountState {
	switch {
	case u.HasPassword() && u.EmailVerified:
		return StateActive
	case u.IsSubUser() && u.EmailVerified:
		return StateProfilePending
	case u.IsSubUser():
		return StateInvited
	default:
		return StatePreRegistered
	}
}

// CheckTransition возвращает ошибку валидации, если переход не разрешён.
func CheckTransition(from, to AccountState) error {
	if allowed, ok := accountTransitions[from]; ok {
		if _, exists := allowed[to]; exists {
			return nil
		}
	}
	return apperr.Wrap(apperr.KindValidation, "account is not in a state that allows this action",
		fmt.Errorf("transition %s -> %s", from, to))
}

// ResetState состояние процедуры сброса пароля.
type ResetState string

// Состояния сброса пароля.
const (
	ResetNormal    ResetState = "NORMAL"
	ResetRequested ResetState = "RESET_REQUESTED"
)

// ResetStateOf выводит состояние сброса на момент now. Истёкший токен равен его отсутствию.
func ResetStateOf(u *models.User, now time.Time) ResetState {
	if u.ResetPasswordToken == nil || u.ResetPasswordExpires == nil {
		return ResetNormal
	}
	if !now.Before(*u.ResetPasswordExpires) {
		return ResetNormal
	}
	return ResetRequested
}
