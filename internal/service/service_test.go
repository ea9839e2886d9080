package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/backend"
	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/lock"
	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/model"
	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/repository"
)

const (
	codeA = "0b7f6a1e-3f0c-4d55-9d7a-3b1f0e9d2c11"
	codeB = "7c1d2e3f-4a5b-4c6d-8e9f-0a1b2c3d4e5f"
	codeC = "9e8d7c6b-5a49-4382-a1b0-c9d8e7f6a5b4"
)

var owner = model.Principal{Token: "tok", UserID: "5"}

type fakeBackend struct {
	mu sync.Mutex

	list        []map[string]any
	listCalls   int
	failReloads bool

	stats    map[string]any
	statsErr error

	actionErr   map[string]error
	actionResp  map[string]map[string]any
	actionCalls []string
	actionBody  []any

	paymentResp map[string]any
	paymentErr  error
	paymentReqs []backend.PaymentRequest

	ticketResp map[string]any
	ticketErr  error
	ticketReqs []backend.TicketRequest
}

func (f *fakeBackend) ListReservations(ctx context.Context, token string, q backend.ListQuery) ([]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.failReloads && f.listCalls > 1 {
		return nil, errors.New("dial tcp: connection refused")
	}
	return f.list, nil
}

func (f *fakeBackend) OwnerStats(ctx context.Context, token string) (map[string]any, error) {
	return f.stats, f.statsErr
}

func (f *fakeBackend) ReservationAction(ctx context.Context, token, code, endpoint string, payload any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := code + "/" + endpoint
	f.actionCalls = append(f.actionCalls, key)
	f.actionBody = append(f.actionBody, payload)
	if err := f.actionErr[key]; err != nil {
		return nil, err
	}
	return f.actionResp[key], nil
}

func (f *fakeBackend) OwnerValidatePayment(ctx context.Context, token string, req backend.PaymentRequest) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paymentReqs = append(f.paymentReqs, req)
	return f.paymentResp, f.paymentErr
}

func (f *fakeBackend) CreateTicket(ctx context.Context, token string, req backend.TicketRequest) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticketReqs = append(f.ticketReqs, req)
	return f.ticketResp, f.ticketErr
}

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls + len(f.actionCalls) + len(f.paymentReqs) + len(f.ticketReqs)
}

func defaultList() []map[string]any {
	return []map[string]any{
		{"id": float64(1), "codigo_reserva": codeA, "estado": "confirmada", "costo_estimado": "30.00", "usuario": map[string]any{"id": float64(12), "first_name": "Ana", "last_name": "Quispe"}, "placa": "ABC-123"},
		{"id": float64(2), "codigo_reserva": codeB, "estado": "activa", "monto": float64(40), "placa": "XYZ-987"},
		{"id": float64(3), "codigo_reserva": codeC, "estado": "finalizada", "monto": float64(25), "pago": map[string]any{"estado": "pagado", "monto": float64(25)}},
		{"id": float64(4), "estado": "confirmada"},
	}
}

func newTestService(t *testing.T, fb *fakeBackend) (*Service, *repository.MemoryStore, *repository.MemoryJournal) {
	t.Helper()

	if fb.list == nil {
		fb.list = defaultList()
	}
	store := repository.NewMemoryStore()
	journal := repository.NewMemoryJournal()
	svc := NewService(fb, store, lock.NewMemoryLocker(), journal, nil)
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 15, 0, 0, 0, time.Local) }
	return svc, store, journal
}

func load(t *testing.T, svc *Service) {
	t.Helper()
	_, err := svc.LoadReservations(context.Background(), owner, model.ListFilter{})
	require.NoError(t, err)
}

func TestDispatch_ValidatePaymentWithoutPaymentPatchesLocally(t *testing.T) {
	fb := &fakeBackend{}
	svc, store, _ := newTestService(t, fb)
	load(t, svc)

	amount := decimal.NewFromInt(50)
	res := svc.Dispatch(context.Background(), owner, 1, model.ActionValidatePayment, model.ActionPayload{Amount: &amount})
	require.NoError(t, svc.Close())

	require.True(t, res.OK, "result: %+v", res)
	assert.False(t, res.Reloaded)
	require.NotNil(t, res.Patch)
	require.NotNil(t, res.Patch.Payment)
	assert.True(t, res.Patch.Payment.Amount.Equal(decimal.NewFromInt(50)), "amount = %s", res.Patch.Payment.Amount)
	assert.Equal(t, "pagado", res.Patch.Payment.Status)
	assert.Equal(t, model.PaymentPaid, *res.Patch.PaymentStatus)

	assert.Equal(t, 1, fb.listCalls, "validate_payment must not reload the list")

	require.Len(t, fb.actionBody, 1)
	step, ok := fb.actionBody[0].(backend.ValidatePaymentRequest)
	require.True(t, ok, "validate_payment body: %#v", fb.actionBody[0])
	assert.True(t, step.Amount.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "pagado", step.Status)
	assert.Equal(t, model.DefaultCurrency, step.Currency)

	require.Len(t, fb.paymentReqs, 1)
	req := fb.paymentReqs[0]
	assert.Equal(t, int64(1), req.ReservationID)
	assert.Equal(t, "pagado", req.Status)
	assert.Equal(t, "manual", req.Method)
	assert.Equal(t, "validated_by_owner", req.Reference)
	assert.Equal(t, model.DefaultCurrency, req.Currency)

	require.Len(t, fb.ticketReqs, 1)
	assert.Equal(t, "pago_validado", fb.ticketReqs[0].Type)
	require.NotNil(t, fb.ticketReqs[0].UserID)
	assert.Equal(t, int64(12), *fb.ticketReqs[0].UserID)

	r, err := store.Find(owner.Key(), 1)
	require.NoError(t, err)
	require.NotNil(t, r.Payment)
	assert.Equal(t, model.PaymentPaid, r.PaymentStatus)
	assert.Equal(t, model.StatusUpcoming, r.Status)
}

func TestDispatch_UnknownReservationMakesNoCalls(t *testing.T) {
	fb := &fakeBackend{}
	svc, _, _ := newTestService(t, fb)

	res := svc.Dispatch(context.Background(), owner, 1, model.ActionCheckIn, model.ActionPayload{})
	assert.False(t, res.OK)
	assert.Equal(t, model.ErrorKindNotFound, res.ErrorKind)
	assert.Zero(t, fb.calls())

	load(t, svc)
	before := fb.calls()

	res = svc.Dispatch(context.Background(), owner, 999, model.ActionValidatePayment, model.ActionPayload{})
	assert.False(t, res.OK)
	assert.Equal(t, model.ErrorKindNotFound, res.ErrorKind)
	assert.Equal(t, before, fb.calls())
}

func TestDispatch_ReservationWithoutCodeIsNotFound(t *testing.T) {
	fb := &fakeBackend{}
	svc, _, _ := newTestService(t, fb)
	load(t, svc)
	before := fb.calls()

	res := svc.Dispatch(context.Background(), owner, 4, model.ActionCancel, model.ActionPayload{})

	assert.Equal(t, model.ErrorKindNotFound, res.ErrorKind)
	assert.Equal(t, before, fb.calls())
}

func TestDispatch_ValidatePaymentWithoutCodeRegistersByID(t *testing.T) {
	fb := &fakeBackend{}
	svc, store, _ := newTestService(t, fb)
	load(t, svc)

	amount := decimal.NewFromInt(50)
	res := svc.Dispatch(context.Background(), owner, 4, model.ActionValidatePayment, model.ActionPayload{Amount: &amount})
	require.NoError(t, svc.Close())

	require.True(t, res.OK, "result: %+v", res)
	assert.Empty(t, fb.actionCalls, "no code, no call by code")
	require.Len(t, fb.paymentReqs, 1)
	assert.Equal(t, int64(4), fb.paymentReqs[0].ReservationID)
	assert.True(t, fb.paymentReqs[0].Amount.Equal(amount))

	r, err := store.Find(owner.Key(), 4)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, r.PaymentStatus)
}

func TestDispatch_ValidatePaymentWithoutCodeRegistrationFails(t *testing.T) {
	fb := &fakeBackend{paymentErr: &backend.HTTPError{StatusCode: http.StatusBadRequest, Detail: "monto requerido"}}
	svc, _, _ := newTestService(t, fb)
	load(t, svc)

	res := svc.Dispatch(context.Background(), owner, 4, model.ActionValidatePayment, model.ActionPayload{})

	assert.False(t, res.OK)
	assert.Equal(t, model.ErrorKindHTTP, res.ErrorKind)
	assert.Equal(t, http.StatusBadRequest, res.HTTPStatus)
	assert.Equal(t, "monto requerido", res.Message)
}

func TestDispatch_ValidatePaymentNormalizesResponseStatus(t *testing.T) {
	fb := &fakeBackend{paymentResp: map[string]any{"estado": "paid", "monto": "50", "metodo": "manual"}}
	svc, store, _ := newTestService(t, fb)
	load(t, svc)

	res := svc.Dispatch(context.Background(), owner, 1, model.ActionValidatePayment, model.ActionPayload{})
	require.NoError(t, svc.Close())

	require.True(t, res.OK)
	require.NotNil(t, res.Patch.Payment)
	assert.Equal(t, "pagado", res.Patch.Payment.Status)
	assert.True(t, res.Patch.Payment.Amount.Equal(decimal.NewFromInt(50)))

	r, _ := store.Find(owner.Key(), 1)
	require.NotNil(t, r.Payment)
	assert.Equal(t, "pagado", r.Payment.Status)
}

func TestDispatch_ValidatePaymentAfterCloseSkipsTicket(t *testing.T) {
	fb := &fakeBackend{}
	svc, _, _ := newTestService(t, fb)
	load(t, svc)
	require.NoError(t, svc.Close())

	res := svc.Dispatch(context.Background(), owner, 1, model.ActionValidatePayment, model.ActionPayload{})

	assert.True(t, res.OK)
	assert.Len(t, fb.paymentReqs, 1)
	assert.Empty(t, fb.ticketReqs)
}

func TestDispatch_UnsupportedAction(t *testing.T) {
	fb := &fakeBackend{}
	svc, _, _ := newTestService(t, fb)
	load(t, svc)

	res := svc.Dispatch(context.Background(), owner, 1, model.Action("approve"), model.ActionPayload{})

	assert.Equal(t, model.ErrorKindUnsupported, res.ErrorKind)
	assert.Equal(t, 1, fb.calls())
}

func TestDispatch_ValidatePaymentFailures(t *testing.T) {
	stepErr := &backend.HTTPError{StatusCode: http.StatusBadRequest, Detail: "reserva no valida"}
	createErr := &backend.HTTPError{StatusCode: http.StatusInternalServerError, Detail: "boom"}

	tests := []struct {
		name       string
		stepErr    error
		createErr  error
		wantOK     bool
		wantKind   model.ErrorKind
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "both fail surfaces first error",
			stepErr:    stepErr,
			createErr:  createErr,
			wantKind:   model.ErrorKindHTTP,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "reserva no valida",
		},
		{
			name:       "only registration fails",
			createErr:  createErr,
			wantKind:   model.ErrorKindValidationConflict,
			wantStatus: http.StatusInternalServerError,
			wantMsg:    MsgValidationConflict,
		},
		{
			name:    "first call fails but registration succeeds",
			stepErr: stepErr,
			wantOK:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := &fakeBackend{
				actionErr:  map[string]error{codeA + "/validate_payment": tt.stepErr},
				paymentErr: tt.createErr,
			}
			svc, store, _ := newTestService(t, fb)
			load(t, svc)

			res := svc.Dispatch(context.Background(), owner, 1, model.ActionValidatePayment, model.ActionPayload{})
			require.NoError(t, svc.Close())

			assert.Equal(t, tt.wantOK, res.OK)
			assert.Equal(t, tt.wantKind, res.ErrorKind)
			assert.Equal(t, tt.wantStatus, res.HTTPStatus)
			assert.Equal(t, tt.wantMsg, res.Message)
			require.Len(t, fb.paymentReqs, 1)
			assert.True(t, fb.paymentReqs[0].Amount.Equal(decimal.NewFromInt(30)), "amount defaults to reservation amount")

			r, _ := store.Find(owner.Key(), 1)
			if tt.wantOK {
				assert.Equal(t, model.PaymentPaid, r.PaymentStatus)
			} else {
				assert.Nil(t, r.Payment)
				assert.Empty(t, fb.ticketReqs, "no ticket without a registered payment")
			}
		})
	}
}

func TestDispatch_ValidatePaymentNetworkFailure(t *testing.T) {
	netErr := errors.New("dial tcp: connection refused")
	fb := &fakeBackend{
		actionErr:  map[string]error{codeA + "/validate_payment": netErr},
		paymentErr: netErr,
	}
	svc, _, _ := newTestService(t, fb)
	load(t, svc)

	res := svc.Dispatch(context.Background(), owner, 1, model.ActionValidatePayment, model.ActionPayload{})

	assert.False(t, res.OK)
	assert.Equal(t, model.ErrorKindNetworkFailure, res.ErrorKind)
}

func TestDispatch_ValidatePaymentAlreadyPaidSkipsRegistration(t *testing.T) {
	fb := &fakeBackend{}
	svc, _, _ := newTestService(t, fb)
	load(t, svc)

	res := svc.Dispatch(context.Background(), owner, 3, model.ActionValidatePayment, model.ActionPayload{})
	require.NoError(t, svc.Close())

	assert.True(t, res.OK)
	assert.Nil(t, res.Patch)
	assert.Empty(t, fb.paymentReqs)
	assert.Empty(t, fb.ticketReqs)
	assert.Equal(t, 1, fb.listCalls)
}

func TestDispatch_TicketFailureDoesNotFailValidation(t *testing.T) {
	fb := &fakeBackend{
		paymentResp: map[string]any{"id": float64(8), "estado": "pagado", "monto": "0", "metodo": "manual"},
		ticketErr:   &backend.HTTPError{StatusCode: http.StatusBadRequest},
	}
	svc, store, _ := newTestService(t, fb)
	load(t, svc)

	res := svc.Dispatch(context.Background(), owner, 2, model.ActionValidatePayment, model.ActionPayload{})
	require.NoError(t, svc.Close())

	require.True(t, res.OK)
	assert.True(t, res.Patch.Payment.Amount.Equal(decimal.NewFromInt(40)), "zero response amount falls back")
	require.Len(t, fb.ticketReqs, 1)

	r, _ := store.Find(owner.Key(), 2)
	assert.Nil(t, r.Ticket)
	assert.Equal(t, model.PaymentPaid, r.PaymentStatus)
}

func TestDispatch_TicketPatchedAfterValidation(t *testing.T) {
	fb := &fakeBackend{
		ticketResp: map[string]any{"id": float64(5), "codigo_ticket": "TK-5", "tipo": "pago_validado"},
	}
	svc, store, _ := newTestService(t, fb)
	load(t, svc)

	res := svc.Dispatch(context.Background(), owner, 1, model.ActionValidatePayment, model.ActionPayload{})
	require.NoError(t, svc.Close())

	require.True(t, res.OK)
	r, _ := store.Find(owner.Key(), 1)
	require.NotNil(t, r.Ticket)
	assert.Equal(t, "TK-5", r.Ticket.Code)
}

func TestDispatch_CheckInReloads(t *testing.T) {
	fb := &fakeBackend{}
	svc, _, _ := newTestService(t, fb)
	load(t, svc)

	res := svc.Dispatch(context.Background(), owner, 1, model.ActionConfirm, model.ActionPayload{})

	require.True(t, res.OK)
	assert.True(t, res.Reloaded)
	assert.Nil(t, res.Patch)
	assert.Equal(t, 2, fb.listCalls)
	assert.Equal(t, []string{codeA + "/checkin"}, fb.actionCalls)
}

func TestDispatch_ReloadFailureAppliesLocalStatus(t *testing.T) {
	fb := &fakeBackend{failReloads: true}
	svc, store, _ := newTestService(t, fb)
	load(t, svc)

	res := svc.Dispatch(context.Background(), owner, 2, model.ActionCheckOut, model.ActionPayload{})

	require.True(t, res.OK)
	assert.False(t, res.Reloaded)
	require.NotNil(t, res.Patch)
	assert.Equal(t, model.StatusCompleted, *res.Patch.Status)

	r, _ := store.Find(owner.Key(), 2)
	assert.Equal(t, model.StatusCompleted, r.Status)
}

func TestDispatch_HTTPErrorKeepsState(t *testing.T) {
	fb := &fakeBackend{
		actionErr: map[string]error{codeA + "/cancel": &backend.HTTPError{StatusCode: http.StatusUnauthorized}},
	}
	svc, store, journal := newTestService(t, fb)
	load(t, svc)

	res := svc.Dispatch(context.Background(), owner, 1, model.ActionCancel, model.ActionPayload{})

	assert.False(t, res.OK)
	assert.Equal(t, model.ErrorKindHTTP, res.ErrorKind)
	assert.Equal(t, http.StatusUnauthorized, res.HTTPStatus)
	assert.NotEmpty(t, res.Message)
	assert.Equal(t, 1, fb.listCalls)

	r, _ := store.Find(owner.Key(), 1)
	assert.Equal(t, model.StatusUpcoming, r.Status)

	entries, err := journal.ListByOwner(context.Background(), owner.Key(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].OK)
	assert.Equal(t, model.ErrorKindHTTP, entries[0].ErrorKind)
}

func TestDispatch_BusyReservation(t *testing.T) {
	fb := &fakeBackend{}
	locker := lock.NewMemoryLocker()
	svc := NewService(fb, nil, locker, nil, nil)
	fb.list = defaultList()
	load(t, svc)

	release, err := locker.Acquire(context.Background(), lock.Key(owner.Key(), 1))
	require.NoError(t, err)
	defer release()

	res := svc.Dispatch(context.Background(), owner, 1, model.ActionCheckIn, model.ActionPayload{})

	assert.Equal(t, model.ErrorKindBusy, res.ErrorKind)
	assert.Empty(t, fb.actionCalls)
}

func TestDispatch_SendTicketAppendsNote(t *testing.T) {
	fb := &fakeBackend{
		ticketResp: map[string]any{"ticket": map[string]any{"id": float64(77), "estado": "valido"}},
	}
	fb.list = defaultList()
	fb.list[1]["notas"] = "cliente frecuente"
	svc, store, _ := newTestService(t, fb)
	load(t, svc)

	res := svc.Dispatch(context.Background(), owner, 2, model.ActionSendTicket, model.ActionPayload{})

	require.True(t, res.OK)
	assert.False(t, res.Reloaded)
	assert.Equal(t, 1, fb.listCalls)
	assert.Empty(t, fb.actionCalls)

	require.Len(t, fb.ticketReqs, 1)
	req := fb.ticketReqs[0]
	assert.Equal(t, int64(2), req.ReservationID)
	assert.Nil(t, req.UserID)
	assert.Equal(t, "pago_validado", req.Type)
	assert.Equal(t, "valido", req.State)
	assert.Equal(t, "owner_panel", req.AdditionalData["creado_por"])
	assert.NotEmpty(t, req.Notes)

	r, _ := store.Find(owner.Key(), 2)
	require.NotNil(t, r.Ticket)
	assert.Equal(t, "77", r.Ticket.ID)
	assert.Equal(t, "cliente frecuente\nTicket creado: 77", r.Notes)
}

func TestDispatch_SendTicketWithoutCode(t *testing.T) {
	fb := &fakeBackend{}
	svc, store, _ := newTestService(t, fb)
	load(t, svc)

	res := svc.Dispatch(context.Background(), owner, 4, model.ActionSendTicket, model.ActionPayload{})

	require.True(t, res.OK, "result: %+v", res)
	require.Len(t, fb.ticketReqs, 1)
	assert.Equal(t, int64(4), fb.ticketReqs[0].ReservationID)

	r, _ := store.Find(owner.Key(), 4)
	assert.Nil(t, r.Ticket)
	assert.Equal(t, "Ticket creado: OK", r.Notes)
}

func TestDispatch_SendTicketFailure(t *testing.T) {
	fb := &fakeBackend{ticketErr: &backend.HTTPError{StatusCode: http.StatusNotFound, Detail: "Reserva no encontrada"}}
	svc, store, _ := newTestService(t, fb)
	load(t, svc)

	res := svc.Dispatch(context.Background(), owner, 1, model.ActionSendTicket, model.ActionPayload{})

	assert.False(t, res.OK)
	assert.Equal(t, model.ErrorKindHTTP, res.ErrorKind)
	assert.Equal(t, "Reserva no encontrada", res.Message)

	r, _ := store.Find(owner.Key(), 1)
	assert.Empty(t, r.Notes)
}

func TestBulkDispatch_IsolatesFailuresAndReloadsOnce(t *testing.T) {
	fb := &fakeBackend{
		actionErr: map[string]error{codeB + "/checkin": &backend.HTTPError{StatusCode: http.StatusConflict}},
	}
	svc, _, journal := newTestService(t, fb)
	load(t, svc)

	results := svc.BulkDispatch(context.Background(), owner, []int64{1, 2, 3, 99}, model.ActionCheckIn)

	require.Len(t, results, 4)
	assert.True(t, results[0].OK)
	assert.True(t, results[0].Reloaded)
	assert.Equal(t, model.ErrorKindHTTP, results[1].ErrorKind)
	assert.True(t, results[2].OK)
	assert.Equal(t, model.ErrorKindNotFound, results[3].ErrorKind)
	assert.Equal(t, 2, fb.listCalls, "one load plus one reload")
	assert.Len(t, fb.actionCalls, 3)

	entries, _ := journal.ListByOwner(context.Background(), owner.Key(), 0)
	assert.Len(t, entries, 4)
}

func TestBulkDispatch_QuietActionDoesNotReload(t *testing.T) {
	fb := &fakeBackend{}
	svc, _, _ := newTestService(t, fb)
	load(t, svc)

	results := svc.BulkDispatch(context.Background(), owner, []int64{1, 2}, model.ActionValidatePayment)
	require.NoError(t, svc.Close())

	for _, r := range results {
		assert.True(t, r.OK)
		assert.False(t, r.Reloaded)
	}
	assert.Equal(t, 1, fb.listCalls)
	assert.Len(t, fb.paymentReqs, 2)
}

func TestLoadReservations_SearchAndDateValidation(t *testing.T) {
	fb := &fakeBackend{}
	svc, store, _ := newTestService(t, fb)

	_, err := svc.LoadReservations(context.Background(), owner, model.ListFilter{Date: "19-10-2026"})
	assert.ErrorIs(t, err, ErrInvalidDateFilter)
	assert.Zero(t, fb.listCalls)

	list, err := svc.LoadReservations(context.Background(), owner, model.ListFilter{Search: "quispe"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].ID)

	list, err = svc.LoadReservations(context.Background(), owner, model.ListFilter{Search: "xyz"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(2), list[0].ID)

	snap, err := store.Get(owner.Key())
	require.NoError(t, err)
	assert.Len(t, snap.Items, 4, "snapshot keeps the whole list")
}

func TestStats_FallsBackToLocalAggregate(t *testing.T) {
	fb := &fakeBackend{statsErr: &backend.HTTPError{StatusCode: http.StatusInternalServerError}}
	svc, _, _ := newTestService(t, fb)

	s, err := svc.Stats(context.Background(), owner)
	require.NoError(t, err)

	assert.Equal(t, 1, fb.listCalls, "stats loads the list when none is loaded")
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.PaidCount)
	assert.True(t, s.TodayEarnings.Equal(decimal.NewFromInt(25)))
}

func TestStats_RejectedTokenIsNotMasked(t *testing.T) {
	fb := &fakeBackend{statsErr: &backend.HTTPError{StatusCode: http.StatusUnauthorized}}
	svc, _, _ := newTestService(t, fb)
	load(t, svc)

	_, err := svc.Stats(context.Background(), owner)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestStats_MergesBackendFields(t *testing.T) {
	fb := &fakeBackend{stats: map[string]any{"total_reservas": float64(120), "ingresos_hoy": float64(0)}}
	svc, _, _ := newTestService(t, fb)
	load(t, svc)

	s, err := svc.Stats(context.Background(), owner)
	require.NoError(t, err)

	assert.Equal(t, 120, s.Total)
	assert.Equal(t, 1, s.Active)
	assert.True(t, s.TodayEarnings.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, 1, fb.listCalls)
}
