// Package password хеширует пароли bcrypt и проверяет их сложность.
package password

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost стоимость bcrypt по умолчанию.
const DefaultCost = 8

// MinLength минимальная длина пароля.
const MinLength = 8

// Symbols допустимые специальные символы пароля.
const Symbols = `!@#$%^&*()_+-=[]{};':"\|,.<>/?~`

// ErrMismatch пароль не соответствует хэшу.
var ErrMismatch = errors.New("password mismatch")

// ErrWeak пароль не удовлетворяет политике сложности.
var ErrWeak = errors.New("password must have at least 8 characters, including upper and lower case letters, a digit and a symbol")

// Hasher хеширует и сравнивает пароли с заданной стоимостью.
type Hasher struct {
	cost int
}

// NewHasher создаёт Hasher. Недопустимая стоимость заменяется на DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash возвращает bcrypt‑хэш пароля.
func (h *Hasher) Hash(password string) (string, error) {
	const op = "password.Hash"
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// Compare сравнивает хэш с введённым паролем.
//
// Несовпадение даёт ErrMismatch, испорченный хэш другую ошибку.
func (h *Hasher) Compare(hash, password string) error {
	const op = "password.Compare"
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return fmt.Errorf("%s: %w", op, ErrMismatch)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ValidateStrength проверяет политику: не короче MinLength, есть строчная
// и заглавная буквы, цифра и символ из Symbols.
func ValidateStrength(password string) error {
	if len([]rune(password)) < MinLength {
		return ErrWeak
	}
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(Symbols, r):
			symbol = true
		}
	}
	if !lower || !upper || !digit || !symbol {
		return ErrWeak
	}
	return nil
}
