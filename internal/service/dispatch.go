package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/backend"
	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/lock"
	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/model"
	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/normalize"
	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/validation"
)

const (
	paymentMethodManual    = "manual"
	paymentReferenceOwner  = "validated_by_owner"
	ticketTypePaymentValid = "pago_validado"
	ticketStateValid       = "valido"
	ticketCreatedBy        = "owner_panel"
	ticketNotePrefix       = "Ticket creado: "

	bulkConcurrency = 8
)

// MsgValidationConflict возвращается, когда подтверждение оплаты прошло, а регистрация платежа нет.
const MsgValidationConflict = "validation recorded but payment registration failed"

// errNoReservationCode означает, что у бронирования нет кода и вызов по коду невозможен.
var errNoReservationCode = errors.New("reservation code not available")

// Эндпоинты действий бэкенда по коду бронирования. confirm выполняется через check-in.
var actionEndpoints = map[model.Action]string{
	model.ActionCheckIn:         "checkin",
	model.ActionConfirm:         "checkin",
	model.ActionCheckOut:        "checkout",
	model.ActionCancel:          "cancel",
	model.ActionValidatePayment: "validate_payment",
}

// Статус, который получает бронирование после успешного действия, если список не удалось перезагрузить.
var optimisticStatus = map[model.Action]model.ReservationStatus{
	model.ActionCheckIn:  model.StatusActive,
	model.ActionConfirm:  model.StatusActive,
	model.ActionCheckOut: model.StatusCompleted,
	model.ActionCancel:   model.StatusCancelled,
}

// Dispatch выполняет действие над бронированием из загруженного списка владельца.
// Ошибки сети и бэкенда не возвращаются как error, а описываются в результате.
func (s *Service) Dispatch(ctx context.Context, p model.Principal, id int64, action model.Action, payload model.ActionPayload) model.ActionResult {
	res := s.dispatch(ctx, p, id, action, payload, true)
	s.record(ctx, p, res)
	return res
}

// BulkDispatch выполняет действие над несколькими бронированиями параллельно.
// Ошибка одного элемента не прерывает остальные. После статусных действий список
// перезагружается один раз.
func (s *Service) BulkDispatch(ctx context.Context, p model.Principal, ids []int64, action model.Action) []model.ActionResult {
	results := make([]model.ActionResult, len(ids))

	var g errgroup.Group
	g.SetLimit(bulkConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			results[i] = s.dispatch(ctx, p, id, action, model.ActionPayload{}, false)
			s.record(ctx, p, results[i])
			return nil
		})
	}
	_ = g.Wait()

	if action.Quiet() {
		return results
	}

	anyOK := false
	for _, r := range results {
		anyOK = anyOK || r.OK
	}
	if !anyOK {
		return results
	}

	if err := s.reload(ctx, p); err != nil {
		s.logger.Warn("reload after bulk action failed", zap.String("action", string(action)), zap.Error(err))
		return results
	}
	for i := range results {
		if results[i].OK {
			results[i].Reloaded = true
		}
	}
	return results
}

func (s *Service) dispatch(ctx context.Context, p model.Principal, id int64, action model.Action, payload model.ActionPayload, reload bool) model.ActionResult {
	res := model.ActionResult{ReservationID: id, Action: action}

	if !action.Valid() {
		return fail(res, model.ErrorKindUnsupported, 0, fmt.Sprintf("unsupported action %q", action))
	}

	r, err := s.store.Find(p.Key(), id)
	if err != nil {
		return fail(res, model.ErrorKindNotFound, 0, "reservation not found")
	}
	// validate_payment и send_ticket умеют работать по числовому идентификатору.
	if !action.Quiet() && !validation.IsValidReservationCode(r.ReservationCode) {
		return fail(res, model.ErrorKindNotFound, 0, errNoReservationCode.Error())
	}

	release, err := s.locker.Acquire(ctx, lock.Key(p.Key(), id))
	if err != nil {
		if errors.Is(err, lock.ErrBusy) {
			return fail(res, model.ErrorKindBusy, 0, "another action is in progress for this reservation")
		}
		s.logger.Error("acquire busy flag", zap.Int64("reservation_id", id), zap.Error(err))
		return fail(res, model.ErrorKindNetworkFailure, 0, "could not mark reservation busy")
	}
	defer release()

	switch action {
	case model.ActionValidatePayment:
		return s.validatePayment(ctx, p, r, payload, res)
	case model.ActionSendTicket:
		return s.sendTicket(ctx, p, r, res)
	default:
		return s.transition(ctx, p, r, action, reload, res)
	}
}

// transition выполняет статусное действие и перезагружает список. Если перезагрузка
// не удалась, к записи применяется ожидаемый статус.
func (s *Service) transition(ctx context.Context, p model.Principal, r model.Reservation, action model.Action, reload bool, res model.ActionResult) model.ActionResult {
	if _, err := s.backend.ReservationAction(ctx, p.Token, r.ReservationCode, actionEndpoints[action], nil); err != nil {
		return failFromErr(res, err)
	}
	res.OK = true

	if reload {
		err := s.reload(ctx, p)
		if err == nil {
			res.Reloaded = true
			return res
		}
		s.logger.Warn("reload after action failed, applying local status",
			zap.Int64("reservation_id", r.ID), zap.String("action", string(action)), zap.Error(err))
	}

	status := optimisticStatus[action]
	patch := model.ReservationPatch{Status: &status}
	s.applyPatch(p, r.ID, patch)
	res.Patch = &patch
	return res
}

// validatePayment подтверждает оплату бронирования. Если после подтверждения платёж
// не зарегистрирован, он создаётся отдельным вызовом по идентификатору бронирования
// и сразу попадает в локальный список. Без кода бронирования первый шаг считается неудачным.
func (s *Service) validatePayment(ctx context.Context, p model.Principal, r model.Reservation, payload model.ActionPayload, res model.ActionResult) model.ActionResult {
	amount := paymentAmount(r, payload)
	currency := paymentCurrency(r, payload)

	stepErr := errNoReservationCode
	if validation.IsValidReservationCode(r.ReservationCode) {
		body := backend.ValidatePaymentRequest{Amount: amount, Status: string(model.PaymentPaid), Currency: currency}
		_, stepErr = s.backend.ReservationAction(ctx, p.Token, r.ReservationCode, actionEndpoints[model.ActionValidatePayment], body)
	}
	if stepErr != nil {
		s.logger.Warn("validate payment call failed", zap.Int64("reservation_id", r.ID), zap.Error(stepErr))
	}

	needPayment := r.Payment == nil || r.PaymentStatus != model.PaymentPaid || stepErr != nil
	if !needPayment {
		res.OK = true
		return res
	}

	req := backend.PaymentRequest{
		ReservationID: r.ID,
		Amount:        amount,
		Status:        string(model.PaymentPaid),
		Currency:      currency,
		Method:        paymentMethodManual,
		Reference:     paymentReferenceOwner,
	}

	resp, err := s.backend.OwnerValidatePayment(ctx, p.Token, req)
	if err != nil {
		s.logger.Warn("owner payment registration failed", zap.Int64("reservation_id", r.ID), zap.Error(err))
		switch {
		case errors.Is(stepErr, errNoReservationCode):
			return failFromErr(res, err)
		case stepErr != nil:
			return failFromErr(res, stepErr)
		}
		return fail(res, model.ErrorKindValidationConflict, httpStatus(err), MsgValidationConflict)
	}

	payment := s.paymentFromResponse(resp, req)
	paid := model.PaymentPaid
	patch := model.ReservationPatch{Payment: &payment, PaymentStatus: &paid}
	s.applyPatch(p, r.ID, patch)

	res.OK = true
	res.Patch = &patch

	s.issueTicket(ctx, p, r, req)
	return res
}

func (s *Service) paymentFromResponse(resp map[string]any, req backend.PaymentRequest) model.Payment {
	now := s.now()

	var pm model.Payment
	if len(resp) > 0 {
		pm = normalize.Payment(resp, req.Amount)
	} else {
		pm = model.Payment{Amount: req.Amount, Currency: req.Currency, CreatedAt: &now}
	}

	// Платёж зарегистрирован со статусом «оплачено», какой бы токен ни вернул бэкенд.
	pm.Status = string(model.PaymentPaid)
	if pm.Method == "" {
		pm.Method = req.Method
	}
	if pm.Reference == "" {
		pm.Reference = req.Reference
	}
	if pm.PaidAt == nil {
		pm.PaidAt = &now
	}
	return pm
}

// issueTicket выпускает талон в фоне. Результат не влияет на подтверждение оплаты.
func (s *Service) issueTicket(ctx context.Context, p model.Principal, r model.Reservation, pay backend.PaymentRequest) {
	req := ticketRequest(r, map[string]any{
		"validado_por": "owner",
		"monto":        json.Number(pay.Amount.String()),
		"metodo_pago":  pay.Method,
		"referencia":   pay.Reference,
	})

	ctx = context.WithoutCancel(ctx)

	if !s.startTask() {
		s.logger.Warn("service is closing, ticket not issued", zap.Int64("reservation_id", r.ID))
		return
	}
	go func() {
		defer s.tasks.Done()

		resp, err := s.backend.CreateTicket(ctx, p.Token, req)
		if err != nil {
			s.logger.Warn("ticket issuance failed", zap.Int64("reservation_id", r.ID), zap.Error(err))
			return
		}
		if len(resp) == 0 {
			return
		}

		ticket := normalize.Ticket(resp)
		s.applyPatch(p, r.ID, model.ReservationPatch{Ticket: &ticket})
		s.logger.Info("ticket issued", zap.Int64("reservation_id", r.ID), zap.String("ticket", ticket.Code))
	}()
}

// sendTicket выпускает талон для приложения клиента и сохраняет его в записи бронирования.
func (s *Service) sendTicket(ctx context.Context, p model.Principal, r model.Reservation, res model.ActionResult) model.ActionResult {
	req := ticketRequest(r, map[string]any{
		"creado_por": ticketCreatedBy,
		"nota":       "Ticket generado por propietario desde panel web",
	})
	req.Notes = "Creado por owner desde panel - " + s.now().UTC().Format(time.RFC3339)

	resp, err := s.backend.CreateTicket(ctx, p.Token, req)
	if err != nil {
		return failFromErr(res, err)
	}
	res.OK = true

	raw := resp
	if nested, ok := resp["ticket"].(map[string]any); ok {
		raw = nested
	}

	patch := model.ReservationPatch{}
	ref := "OK"
	if len(raw) > 0 {
		ticket := normalize.Ticket(raw)
		patch.Ticket = &ticket
		if tr := ticketRef(ticket); tr != "" {
			ref = tr
		}
	}

	notes := ticketNotePrefix + ref
	if r.Notes != "" {
		notes = r.Notes + "\n" + notes
	}
	patch.Notes = &notes

	s.applyPatch(p, r.ID, patch)
	res.Patch = &patch
	return res
}

func ticketRequest(r model.Reservation, extra map[string]any) backend.TicketRequest {
	req := backend.TicketRequest{
		ReservationID:  r.ID,
		Type:           ticketTypePaymentValid,
		State:          ticketStateValid,
		AdditionalData: extra,
	}
	if r.UserID != 0 {
		uid := r.UserID
		req.UserID = &uid
	}
	return req
}

func (s *Service) applyPatch(p model.Principal, id int64, patch model.ReservationPatch) {
	if _, err := s.store.Patch(p.Key(), id, patch); err != nil {
		s.logger.Debug("patch reservation", zap.Int64("reservation_id", id), zap.Error(err))
	}
}

func (s *Service) record(ctx context.Context, p model.Principal, res model.ActionResult) {
	e := model.ActionEntry{
		Owner:         p.Key(),
		ReservationID: res.ReservationID,
		Action:        res.Action,
		OK:            res.OK,
		ErrorKind:     res.ErrorKind,
		Message:       res.Message,
		CreatedAt:     s.now(),
	}
	if err := s.journal.Record(context.WithoutCancel(ctx), e); err != nil {
		s.logger.Error("record action", zap.Error(err))
	}
}

func paymentAmount(r model.Reservation, payload model.ActionPayload) decimal.Decimal {
	if payload.Amount != nil && payload.Amount.IsPositive() {
		return *payload.Amount
	}
	return r.Amount
}

func paymentCurrency(r model.Reservation, payload model.ActionPayload) string {
	if payload.Currency != "" {
		return payload.Currency
	}
	if r.Payment != nil && r.Payment.Currency != "" {
		return r.Payment.Currency
	}
	return model.DefaultCurrency
}

func ticketRef(t model.Ticket) string {
	if t.Code != "" {
		return t.Code
	}
	return t.ID
}

func fail(res model.ActionResult, kind model.ErrorKind, status int, msg string) model.ActionResult {
	res.OK = false
	res.ErrorKind = kind
	res.HTTPStatus = status
	res.Message = msg
	return res
}

func failFromErr(res model.ActionResult, err error) model.ActionResult {
	var httpErr *backend.HTTPError
	if errors.As(err, &httpErr) {
		msg := httpErr.Detail
		if msg == "" {
			msg = "backend responded with status " + strconv.Itoa(httpErr.StatusCode) + " " + http.StatusText(httpErr.StatusCode)
		}
		return fail(res, model.ErrorKindHTTP, httpErr.StatusCode, msg)
	}
	return fail(res, model.ErrorKindNetworkFailure, 0, "backend unreachable")
}

func httpStatus(err error) int {
	var httpErr *backend.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
