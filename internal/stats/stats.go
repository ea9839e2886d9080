// Package stats считает статистику панели владельца по списку бронирований
// и объединяет её с данными эндпоинта статистики бэкенда.
package stats

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/model"
	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/normalize"
)

// monthlyWindowDays — глубина окна месячной выручки в календарных днях.
const monthlyWindowDays = 30

// IsSettled сообщает, что платёж бронирования проведён: статус «оплачено» и сумма строго больше нуля.
func IsSettled(r model.Reservation) bool {
	if r.Payment == nil || !r.Payment.Amount.IsPositive() {
		return false
	}
	return normalize.PaymentStatus(r.Payment.Status) == model.PaymentPaid || r.PaymentStatus == model.PaymentPaid
}

// StartOfDay возвращает полночь дня t в его часовом поясе.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Aggregate считает статистику по списку бронирований на момент now.
func Aggregate(list []model.Reservation, now time.Time) model.Stats {
	startOfToday := StartOfDay(now)
	startOfTomorrow := startOfToday.AddDate(0, 0, 1)
	monthStart := now.AddDate(0, 0, -monthlyWindowDays)

	s := model.Stats{
		Total:           len(list),
		TodayEarnings:   decimal.Zero,
		MonthlyEarnings: decimal.Zero,
	}

	for _, r := range list {
		switch r.Status {
		case model.StatusActive:
			s.Active++
		case model.StatusUpcoming:
			s.Upcoming++
		case model.StatusCompleted:
			s.Completed++
		case model.StatusCancelled:
			s.Cancelled++
		}

		if r.StartTime != nil && !r.StartTime.Before(startOfToday) && r.StartTime.Before(startOfTomorrow) {
			s.Today++
		}

		if !IsSettled(r) {
			continue
		}

		s.PaidCount++

		// Платёж без даты оплаты считается проведённым только что.
		paidAt := now
		if r.Payment.PaidAt != nil {
			paidAt = *r.Payment.PaidAt
		}

		if !paidAt.Before(startOfToday) {
			s.TodayEarnings = s.TodayEarnings.Add(r.Payment.Amount)
		}
		if !paidAt.Before(monthStart) {
			s.MonthlyEarnings = s.MonthlyEarnings.Add(r.Payment.Amount)
		}
	}

	return s
}

// Partial содержит поля статистики, которые вернул бэкенд. nil означает, что поле не пришло.
type Partial struct {
	Total           *int
	Today           *int
	Active          *int
	Upcoming        *int
	Completed       *int
	Cancelled       *int
	PaidCount       *int
	TodayEarnings   *decimal.Decimal
	MonthlyEarnings *decimal.Decimal
}

// ParseBackend читает ответ эндпоинта статистики бэкенда.
func ParseBackend(raw map[string]any) Partial {
	return Partial{
		Total:           intField(raw, "total", "total_reservas"),
		Today:           intField(raw, "today", "reservas_hoy"),
		Active:          intField(raw, "active", "reservas_activas"),
		Upcoming:        intField(raw, "upcoming", "reservas_proximas"),
		Completed:       intField(raw, "completed", "reservas_finalizadas"),
		Cancelled:       intField(raw, "cancelled", "reservas_canceladas"),
		PaidCount:       intField(raw, "paid_count", "pagadas"),
		TodayEarnings:   earningsField(raw, "today_earnings", "ingresos_hoy"),
		MonthlyEarnings: earningsField(raw, "monthly_earnings", "ingresos_mes"),
	}
}

// Merge подставляет локальные значения только в те поля, которые бэкенд не вернул.
func Merge(remote Partial, local model.Stats) model.Stats {
	out := local

	setInt(&out.Total, remote.Total)
	setInt(&out.Today, remote.Today)
	setInt(&out.Active, remote.Active)
	setInt(&out.Upcoming, remote.Upcoming)
	setInt(&out.Completed, remote.Completed)
	setInt(&out.Cancelled, remote.Cancelled)
	setInt(&out.PaidCount, remote.PaidCount)

	if remote.TodayEarnings != nil {
		out.TodayEarnings = *remote.TodayEarnings
	}
	if remote.MonthlyEarnings != nil {
		out.MonthlyEarnings = *remote.MonthlyEarnings
	}

	return out
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func intField(raw map[string]any, keys ...string) *int {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		var n int64
		var err error
		switch x := v.(type) {
		case json.Number:
			n, err = x.Int64()
		case float64:
			n = int64(x)
		case string:
			n, err = strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		default:
			continue
		}
		if err != nil {
			continue
		}
		res := int(n)
		return &res
	}
	return nil
}

// earningsField возвращает выручку бэкенда. Нулевая выручка считается отсутствующей:
// эндпоинт отдаёт 0 вместо null, и локальный расчёт в этом случае точнее.
func earningsField(raw map[string]any, keys ...string) *decimal.Decimal {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		var d decimal.Decimal
		var err error
		switch x := v.(type) {
		case json.Number:
			d, err = decimal.NewFromString(x.String())
		case float64:
			d = decimal.NewFromFloat(x)
		case string:
			d, err = decimal.NewFromString(strings.TrimSpace(x))
		default:
			continue
		}
		if err != nil || d.IsZero() {
			continue
		}
		return &d
	}
	return nil
}
