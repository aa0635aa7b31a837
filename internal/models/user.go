// Package models содержит доменные модели учётных записей, планов и писем.
// Структуры используются в бизнес‑логике, хранилище и HTTP-слое.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role роль пользователя внутри хозяйства.
type Role string

// Возможные роли.
const (
	RoleAdministrator Role = "ADMINISTRATOR"
	RoleManager       Role = "MANAGER"
	RoleEmployee      Role = "EMPLOYEE"
)

// Valid сообщает, является ли роль одной из известных.
func (r Role) Valid() bool {
	switch r {
	case RoleAdministrator, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// User представляет учётную запись системы.
//
// Хэш пароля и одноразовые токены никогда не попадают в JSON.
type User struct {
	ID                   uuid.UUID   `json:"id"`
	Name                 string      `json:"nome"`
	Email                string      `json:"email"`
	Phone                string      `json:"telefone"`
	Photo                string      `json:"fotoperfil,omitempty"`
	PasswordHash         string      `json:"-"`
	EmailVerified        bool        `json:"emailVerified"`
	VerificationToken    *string     `json:"-"`
	ResetPasswordToken   *string     `json:"-"`
	ResetPasswordExpires *time.Time  `json:"-"`
	Role                 Role        `json:"role"`
	AdminID              *uuid.UUID  `json:"adminId,omitempty"`
	AccessibleProperties []uuid.UUID `json:"propriedades,omitempty"`
	Plans                []Plan      `json:"planos"`
	CreatedAt            time.Time   `json:"createdAt"`
	UpdatedAt            time.Time   `json:"updatedAt"`
}

// HasPassword сообщает, задан ли пароль.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// IsSubUser сообщает, создан ли пользователь администратором.
func (u *User) IsSubUser() bool {
	return u.AdminID != nil
}

// Sanitized возвращает копию пользователя без секретных полей.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.PasswordHash = ""
	cp.VerificationToken = nil
	cp.ResetPasswordToken = nil
	cp.ResetPasswordExpires = nil
	if u.Plans == nil {
		cp.Plans = []Plan{}
	}
	return &cp
}

// ProfileUpdate частичное обновление профиля: nil поля не изменяются.
type ProfileUpdate struct {
	Name  *string
	Email *string
	Phone *string
	Photo *string
}

// Empty сообщает, что обновлять нечего.
func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.Photo == nil
}
