// Package model содержит доменные сущности панели владельца ParkeaYa.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/shopspring/decimal"
)

// ReservationStatus описывает каноничный статус жизненного цикла бронирования.
type ReservationStatus string

const (
	StatusActive    ReservationStatus = "active"
	StatusUpcoming  ReservationStatus = "upcoming"
	StatusCompleted ReservationStatus = "completed"
	StatusCancelled ReservationStatus = "cancelled"
)

// PaymentStatus описывает каноничный статус оплаты бронирования.
type PaymentStatus string

const (
	PaymentPaid       PaymentStatus = "pagado"
	PaymentPending    PaymentStatus = "pending"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
	PaymentProcessing PaymentStatus = "processing"
)

// DefaultCurrency используется, когда бэкенд не сообщает валюту платежа.
const DefaultCurrency = "PEN"

// Payment описывает платёж, привязанный к бронированию.
type Payment struct {
	Method             string           `json:"method,omitempty"`
	Amount             decimal.Decimal  `json:"amount"`
	Currency           string           `json:"currency"`
	Status             string           `json:"status,omitempty"`
	Reference          string           `json:"payment_reference,omitempty"`
	CreatedAt          *time.Time       `json:"created_at,omitempty"`
	PaidAt             *time.Time       `json:"paid_at,omitempty"`
	PlatformCommission *decimal.Decimal `json:"platform_commission,omitempty"`
	OwnerNetAmount     *decimal.Decimal `json:"owner_net_amount,omitempty"`
}

// Ticket описывает талон, выпущенный для бронирования.
type Ticket struct {
	ID             string         `json:"id,omitempty"`
	Code           string         `json:"code,omitempty"`
	Type           string         `json:"type,omitempty"`
	State          string         `json:"state,omitempty"`
	IssuedAt       *time.Time     `json:"issued_at,omitempty"`
	ValidUntil     *time.Time     `json:"valid_until,omitempty"`
	QRImageURL     string         `json:"qr_image_url,omitempty"`
	AdditionalData map[string]any `json:"additional_data,omitempty"`
}

// Reservation — каноничное представление бронирования после нормализации.
type Reservation struct {
	ID              int64             `json:"id"`
	ReservationCode string            `json:"reservation_code,omitempty"`
	Status          ReservationStatus `json:"status"`
	UserID          int64             `json:"user_id,omitempty"`
	UserName        string            `json:"user_name,omitempty"`
	Phone           string            `json:"phone,omitempty"`
	VehiclePlate    string            `json:"vehicle_plate,omitempty"`
	VehicleModel    string            `json:"vehicle_model,omitempty"`
	StartTime       *time.Time        `json:"start_time,omitempty"`
	EndTime         *time.Time        `json:"end_time,omitempty"`
	ActualStartTime *time.Time        `json:"actual_start_time,omitempty"`
	ActualEndTime   *time.Time        `json:"actual_end_time,omitempty"`
	Amount          decimal.Decimal   `json:"amount"`
	SpotNumber      string            `json:"spot_number,omitempty"`
	Payment         *Payment          `json:"payment"`
	PaymentStatus   PaymentStatus     `json:"payment_status"`
	Notes           string            `json:"notes,omitempty"`
	Ticket          *Ticket           `json:"ticket,omitempty"`
}

// Stats содержит сводную статистику панели владельца.
type Stats struct {
	Total           int             `json:"total"`
	Today           int             `json:"today"`
	Active          int             `json:"active"`
	Upcoming        int             `json:"upcoming"`
	Completed       int             `json:"completed"`
	Cancelled       int             `json:"cancelled"`
	PaidCount       int             `json:"paid_count"`
	TodayEarnings   decimal.Decimal `json:"today_earnings"`
	MonthlyEarnings decimal.Decimal `json:"monthly_earnings"`
}

// ListFilter задаёт фильтры списка бронирований в каноничных значениях.
type ListFilter struct {
	Status string
	Date   string
	Search string
}

// Principal описывает владельца, от имени которого выполняется запрос.
// UserID прочитан из токена без проверки подписи и годится только для журналов.
type Principal struct {
	Token  string
	UserID string
}

// Key возвращает ключ, под которым хранится состояние владельца. Ключ строится
// из самого токена, поэтому чужое состояние недоступно без токена его владельца.
func (p Principal) Key() string {
	sum := sha256.Sum256([]byte(p.Token))
	return "token:" + hex.EncodeToString(sum[:16])
}
