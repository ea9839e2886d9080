// Package normalize приводит записи бронирований бэкенда ParkeaYa к каноничному виду.
//
// Бэкенд отдаёт записи с разными наборами полей (испанские и английские имена,
// вложенные и плоские варианты). Для каждого каноничного поля задан упорядоченный
// список псевдонимов; побеждает первое непустое значение. Нормализация никогда не
// завершается ошибкой: некорректные поля заменяются значениями по умолчанию.
package normalize

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/model"
)

var (
	userObjects    = []string{"usuario", "usuario_info", "user"}
	vehicleObjects = []string{"vehiculo", "vehiculo_info", "vehicle"}
	paymentObjects = []string{"payment", "pago", "payment_info"}
)

var (
	idAliases   = flat("id", "reserva_id", "reservation_id")
	codeAliases = flat("codigo_reserva", "codigo", "code", "reservation_code")

	statusAliases = flat("estado", "status")

	userIDAliases = chain(
		nested(userObjects, "id"),
		flat("user_id", "usuario_id", "usuario"),
	)
	userNameAliases = chain(
		[]accessor{fullName("usuario"), fullName("usuario_info"), fullName("user")},
		nested(userObjects, "username"),
		flat("usuario_nombre", "user_name", "nombre_usuario"),
	)
	phoneAliases = chain(
		nested(userObjects, "telefono_formateado", "telefono", "phone"),
		flat("telefono_formateado", "phone", "telefono"),
	)
	plateAliases = chain(
		nested(vehicleObjects, "placa", "plate"),
		flat("placa", "vehicle_plate", "plate"),
	)
	vehicleModelAliases = chain(
		nested(vehicleObjects, "modelo", "model"),
		flat("modelo", "vehicle_model"),
	)

	amountAliases = flat("costo_estimado", "amount", "monto")

	startAliases       = flat("hora_entrada", "start_time", "entrada", "check_in_time")
	endAliases         = flat("hora_salida", "end_time", "salida")
	actualStartAliases = flat("actual_start_time", "check_in_time")
	actualEndAliases   = flat("actual_end_time", "check_out_time")

	spotAliases = chain(
		[]accessor{key("parking_spot", "number"), key("spot", "number"), key("estacionamiento", "nombre")},
		flat("spot_number", "numero_espacio"),
	)
	notesAliases = flat("notes", "notas")
)

var (
	paymentMethodAliases = chain(
		nested(paymentObjects, "metodo", "method"),
		flat("metodo_pago", "payment_method", "pago_metodo"),
	)
	paymentAmountAliases = chain(
		nested(paymentObjects, "monto", "amount"),
		flat("monto_pagado", "payment_amount", "pago_monto", "amount_pagado", "paid_amount"),
	)
	paymentCurrencyAliases = chain(
		nested(paymentObjects, "moneda", "currency"),
		flat("moneda", "currency"),
	)
	paymentStatusAliases = chain(
		nested(paymentObjects, "estado", "status"),
		flat("estado_pago", "payment_status", "pago_estado", "payment_state"),
	)
	paymentReferenceAliases = chain(
		nested(paymentObjects, "referencia_pago", "reference"),
		flat("referencia", "payment_reference"),
	)
	paymentCreatedAliases = chain(
		nested(paymentObjects, "fecha_creacion", "created_at"),
		flat("payment_created_at", "pago_creado"),
	)
	paymentPaidAliases = chain(
		nested(paymentObjects, "fecha_pago", "paid_at"),
		flat("payment_paid_at", "pago_fecha"),
	)
	paymentCommissionAliases = chain(
		nested(paymentObjects, "comision_plataforma", "commission"),
		flat("comision", "commission"),
	)
	paymentNetAliases = chain(
		nested(paymentObjects, "monto_propietario", "owner_amount"),
		flat("monto_propietario", "net_amount"),
	)
)

// Плоские поля, наличие любого из которых означает, что у бронирования есть данные об оплате.
var flatPaymentFields = []string{
	"metodo_pago", "payment_method", "pago_metodo",
	"monto_pagado", "payment_amount", "pago_monto", "amount_pagado", "paid_amount",
	"estado_pago", "payment_status", "pago_estado", "payment_state",
	"payment_reference", "payment_created_at", "payment_paid_at", "pago_fecha",
}

var statusTokens = map[string]model.ReservationStatus{
	"activa":      model.StatusActive,
	"active":      model.StatusActive,
	"in_progress": model.StatusActive,
	"proxima":     model.StatusUpcoming,
	"proximo":     model.StatusUpcoming,
	"upcoming":    model.StatusUpcoming,
	"confirmed":   model.StatusUpcoming,
	"confirmada":  model.StatusUpcoming,
	"finalizada":  model.StatusCompleted,
	"finished":    model.StatusCompleted,
	"completed":   model.StatusCompleted,
	"cancelada":   model.StatusCancelled,
	"cancelled":   model.StatusCancelled,
	"canceled":    model.StatusCancelled,
}

var paymentStatusTokens = map[string]model.PaymentStatus{
	"pagado":      model.PaymentPaid,
	"paid":        model.PaymentPaid,
	"pago":        model.PaymentPaid,
	"pendiente":   model.PaymentPending,
	"pending":     model.PaymentPending,
	"fallido":     model.PaymentFailed,
	"failed":      model.PaymentFailed,
	"reembolsado": model.PaymentRefunded,
	"refunded":    model.PaymentRefunded,
	"procesando":  model.PaymentProcessing,
	"processing":  model.PaymentProcessing,
}

var backendFilterTokens = map[string]string{
	"active":    "activa",
	"upcoming":  "proxima",
	"completed": "finalizada",
	"cancelled": "cancelada",
	"pending":   "pendiente",
	"confirmed": "confirmada",
}

// Status переводит статус бэкенда в каноничный. Неизвестные значения возвращаются в нижнем регистре.
func Status(token string) model.ReservationStatus {
	lower := strings.ToLower(strings.TrimSpace(token))
	if s, ok := statusTokens[lower]; ok {
		return s
	}
	return model.ReservationStatus(lower)
}

// PaymentStatus переводит статус оплаты в каноничный без учёта регистра; пустой статус — pending.
func PaymentStatus(token string) model.PaymentStatus {
	lower := strings.ToLower(strings.TrimSpace(token))
	if lower == "" {
		return model.PaymentPending
	}
	if s, ok := paymentStatusTokens[lower]; ok {
		return s
	}
	return model.PaymentStatus(lower)
}

// BackendStatusFilter переводит каноничный фильтр статуса в значение, которое ожидает бэкенд.
// Для "all" и пустого значения возвращается пустая строка.
func BackendStatusFilter(canonical string) string {
	lower := strings.ToLower(strings.TrimSpace(canonical))
	if lower == "" || lower == "all" {
		return ""
	}
	if s, ok := backendFilterTokens[lower]; ok {
		return s
	}
	return lower
}

// Reservation нормализует сырую запись бронирования.
func Reservation(raw map[string]any) model.Reservation {
	r := model.Reservation{
		ID:              firstInt(raw, idAliases),
		ReservationCode: firstString(raw, codeAliases),
		Status:          Status(firstString(raw, statusAliases)),
		UserID:          firstInt(raw, userIDAliases),
		UserName:        firstString(raw, userNameAliases),
		Phone:           firstString(raw, phoneAliases),
		VehiclePlate:    firstString(raw, plateAliases),
		VehicleModel:    firstString(raw, vehicleModelAliases),
		StartTime:       firstTime(raw, startAliases),
		EndTime:         firstTime(raw, endAliases),
		ActualStartTime: firstTime(raw, actualStartAliases),
		ActualEndTime:   firstTime(raw, actualEndAliases),
		Amount:          reservationAmount(raw),
		SpotNumber:      firstString(raw, spotAliases),
		Notes:           firstString(raw, notesAliases),
		PaymentStatus:   model.PaymentPending,
	}

	if hasPayment(raw) {
		p := payment(raw, r.Amount)
		r.Payment = &p
		r.PaymentStatus = PaymentStatus(p.Status)
	}

	if t, ok := raw["ticket"].(map[string]any); ok {
		ticket := Ticket(t)
		r.Ticket = &ticket
	}

	return r
}

// Payment нормализует объект платежа, например ответ эндпоинта подтверждения оплаты.
// fallback подставляется, если сумма платежа отсутствует или равна нулю.
func Payment(obj map[string]any, fallback decimal.Decimal) model.Payment {
	return payment(map[string]any{"payment": obj}, fallback)
}

func payment(raw map[string]any, fallback decimal.Decimal) model.Payment {
	p := model.Payment{
		Method:    firstString(raw, paymentMethodAliases),
		Currency:  firstString(raw, paymentCurrencyAliases),
		Status:    firstString(raw, paymentStatusAliases),
		Reference: firstString(raw, paymentReferenceAliases),
		CreatedAt: firstTime(raw, paymentCreatedAliases),
		PaidAt:    firstTime(raw, paymentPaidAliases),
	}

	// Бэкенд может подтвердить оплату, не вернув сумму.
	amount, ok := firstDecimal(raw, paymentAmountAliases)
	if !ok || !amount.IsPositive() {
		amount = fallback
	}
	p.Amount = amount

	if p.Currency == "" {
		p.Currency = model.DefaultCurrency
	}
	if d, ok := firstDecimal(raw, paymentCommissionAliases); ok {
		p.PlatformCommission = &d
	}
	if d, ok := firstDecimal(raw, paymentNetAliases); ok {
		p.OwnerNetAmount = &d
	}

	return p
}

// Ticket нормализует талон, возвращённый бэкендом.
func Ticket(raw map[string]any) model.Ticket {
	t := model.Ticket{
		ID:         firstString(raw, flat("id")),
		Code:       firstString(raw, flat("codigo_ticket", "code", "codigo")),
		Type:       firstString(raw, flat("tipo", "tipo_ticket", "type")),
		State:      firstString(raw, flat("estado", "state", "status")),
		IssuedAt:   firstTime(raw, flat("fecha_emision", "issued_at")),
		ValidUntil: firstTime(raw, flat("fecha_validez_hasta", "valid_until")),
		QRImageURL: firstString(raw, flat("qr_image_url")),
	}
	if extra := firstObject(raw, []string{"datos_adicionales", "additional_data"}); extra != nil {
		t.AdditionalData = extra
	}
	return t
}

func reservationAmount(raw map[string]any) decimal.Decimal {
	amount, ok := firstNonNegativeDecimal(raw, amountAliases)
	if !ok {
		return decimal.Zero
	}
	return amount
}

func hasPayment(raw map[string]any) bool {
	if firstObject(raw, paymentObjects) != nil {
		return true
	}
	for _, f := range flatPaymentFields {
		if v, ok := raw[f]; ok && v != nil {
			return true
		}
	}
	return false
}
