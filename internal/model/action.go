package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action — логическое действие владельца над бронированием.
type Action string

const (
	ActionCheckIn         Action = "check_in"
	ActionCheckOut        Action = "check_out"
	ActionCancel          Action = "cancel"
	ActionConfirm         Action = "confirm"
	ActionValidatePayment Action = "validate_payment"
	ActionSendTicket      Action = "send_ticket"
)

// Valid сообщает, поддерживается ли действие.
func (a Action) Valid() bool {
	switch a {
	case ActionCheckIn, ActionCheckOut, ActionCancel, ActionConfirm, ActionValidatePayment, ActionSendTicket:
		return true
	}
	return false
}

// Quiet сообщает, что после действия список не перезагружается, а применяется только локальный патч.
func (a Action) Quiet() bool {
	return a == ActionValidatePayment || a == ActionSendTicket
}

// ErrorKind классифицирует неуспешный результат действия.
type ErrorKind string

const (
	ErrorKindNetworkFailure     ErrorKind = "NetworkFailure"
	ErrorKindHTTP               ErrorKind = "HttpError"
	ErrorKindNotFound           ErrorKind = "NotFound"
	ErrorKindValidationConflict ErrorKind = "ValidationConflict"
	ErrorKindBusy               ErrorKind = "Busy"
	ErrorKindUnsupported        ErrorKind = "UnsupportedAction"
)

// ActionPayload содержит необязательные параметры действия.
type ActionPayload struct {
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Currency string           `json:"currency,omitempty"`
}

// ReservationPatch описывает изменения одного бронирования после успешного действия.
type ReservationPatch struct {
	Status        *ReservationStatus `json:"status,omitempty"`
	Payment       *Payment           `json:"payment,omitempty"`
	PaymentStatus *PaymentStatus     `json:"payment_status,omitempty"`
	Ticket        *Ticket            `json:"ticket,omitempty"`
	Notes         *string            `json:"notes,omitempty"`
}

// Empty сообщает, что патч ничего не меняет.
func (p ReservationPatch) Empty() bool {
	return p.Status == nil && p.Payment == nil && p.PaymentStatus == nil && p.Ticket == nil && p.Notes == nil
}

// Apply применяет патч к бронированию.
func (p ReservationPatch) Apply(r *Reservation) {
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Payment != nil {
		r.Payment = p.Payment
	}
	if p.PaymentStatus != nil {
		r.PaymentStatus = *p.PaymentStatus
	}
	if p.Ticket != nil {
		r.Ticket = p.Ticket
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
}

// ActionResult — итог выполнения действия над бронированием.
type ActionResult struct {
	ReservationID int64             `json:"reservation_id"`
	Action        Action            `json:"action"`
	OK            bool              `json:"ok"`
	Patch         *ReservationPatch `json:"patch,omitempty"`
	Reloaded      bool              `json:"reloaded"`
	ErrorKind     ErrorKind         `json:"error_kind,omitempty"`
	HTTPStatus    int               `json:"http_status,omitempty"`
	Message       string            `json:"message,omitempty"`
}

// ActionEntry — запись журнала выполненных действий.
type ActionEntry struct {
	Owner         string    `json:"-"`
	ReservationID int64     `json:"reservation_id"`
	Action        Action    `json:"action"`
	OK            bool      `json:"ok"`
	ErrorKind     ErrorKind `json:"error_kind,omitempty"`
	Message       string    `json:"message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
