package models

import (
	"time"

	"github.com/google/uuid"
)

// PlanType уровень тарифного плана.
type PlanType string

// Уровни планов. gold включает всё, что доступно base.
const (
	PlanBase PlanType = "base"
	PlanGold PlanType = "gold"
)

// Valid сообщает, известен ли уровень плана.
func (t PlanType) Valid() bool {
	return t == PlanBase || t == PlanGold
}

// PlanStatus статус плана в терминах платёжного провайдера.
type PlanStatus string

// Статусы плана.
const (
	PlanStatusPaid      PlanStatus = "Pago/Ativo"
	PlanStatusTrial     PlanStatus = "Trial"
	PlanStatusPending   PlanStatus = "Pendente"
	PlanStatusCancelled PlanStatus = "Cancelado"
	PlanStatusExpired   PlanStatus = "Expirado"
)

// Plan тарифный план пользователя.
type Plan struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"userId"`
	Type        PlanType   `json:"tipo"`
	Status      PlanStatus `json:"status"`
	ActivatedAt time.Time  `json:"dataAtivacao"`
	ExpiresAt   *time.Time `json:"dataExpiracao,omitempty"`
	PaymentID   string     `json:"paymentId,omitempty"`
}

// Active сообщает, даёт ли план доступ: оплачен или пробный.
func (p Plan) Active() bool {
	return p.Status == PlanStatusPaid || p.Status == PlanStatusTrial
}

// ExpiredPlan план, переведённый в Expirado планировщиком.
type ExpiredPlan struct {
	PlanID uuid.UUID
	UserID uuid.UUID
	Email  string
	Name   string
	Type   PlanType
}
