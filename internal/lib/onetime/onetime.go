// Package onetime генерирует одноразовые токены для подтверждения почты,
// приглашений и сброса пароля.
package onetime

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// Size количество случайных байт в токене.
const Size = 20

// Generate возвращает 40 шестнадцатеричных символов из криптостойкого источника.
func Generate() (string, error) {
	return generate(rand.Reader)
}

func generate(r io.Reader) (string, error) {
	const op = "onetime.Generate"
	buf := make([]byte, Size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return hex.EncodeToString(buf), nil
}

// Generator функциональный тип для подмены генератора в тестах.
type Generator func() (string, error)
