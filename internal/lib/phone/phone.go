// Package phone нормализует телефонные номера в формат E.164.
package phone

import (
	"errors"
	"fmt"

	"github.com/nyaruka/phonenumbers"
)

// ErrInvalid номер не удалось распознать.
var ErrInvalid = errors.New("invalid phone number")

// Normalizer приводит номера к E.164, используя регион по умолчанию
// для номеров без кода страны.
type Normalizer struct {
	region string
}

// NewNormalizer создаёт Normalizer для региона (например, "BR").
func NewNormalizer(region string) *Normalizer {
	if region == "" {
		region = "BR"
	}
	return &Normalizer{region: region}
}

// Normalize возвращает номер в формате E.164.
func (n *Normalizer) Normalize(raw string) (string, error) {
	num, err := phonenumbers.Parse(raw, n.region)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalid
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
