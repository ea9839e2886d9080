// Package backend предоставляет клиент REST API бэкенда ParkeaYa.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Эндпоинты списка бронирований владельца в порядке предпочтения.
var reservationListPaths = []string{
	"/reservations/owner/reservas/",
	"/reservations/",
}

const (
	ownerStatsPath      = "/reservations/dashboard/owner/stats/"
	ownerValidatePath   = "/payments/owner_validate/"
	ticketForReservPath = "/tickets/tickets/create-for-reservation/"
)

// HTTPError возвращается, когда бэкенд ответил статусом вне диапазона 2xx.
type HTTPError struct {
	StatusCode int
	Detail     string
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend status %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("backend status %d", e.StatusCode)
}

// Client инкапсулирует HTTP-взаимодействие с бэкендом ParkeaYa.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ListQuery задаёт параметры запроса списка бронирований в значениях бэкенда.
type ListQuery struct {
	Estado string
	Fecha  string
}

// PaymentRequest — тело запроса ручного подтверждения оплаты владельцем.
type PaymentRequest struct {
	ReservationID int64           `json:"reserva"`
	Amount        decimal.Decimal `json:"monto"`
	Status        string          `json:"estado"`
	Currency      string          `json:"moneda"`
	Method        string          `json:"metodo"`
	Reference     string          `json:"referencia_pago"`
}

// ValidatePaymentRequest — тело запроса подтверждения оплаты по коду бронирования.
type ValidatePaymentRequest struct {
	Amount   decimal.Decimal `json:"monto"`
	Status   string          `json:"estado"`
	Currency string          `json:"moneda"`
}

// TicketRequest — тело запроса выпуска талона для бронирования.
type TicketRequest struct {
	ReservationID  int64          `json:"reserva"`
	UserID         *int64         `json:"usuario"`
	Type           string         `json:"tipo"`
	State          string         `json:"estado"`
	AdditionalData map[string]any `json:"datos_adicionales"`
	Notes          string         `json:"notas,omitempty"`
}

// NewClient создаёт HTTP-клиент бэкенда по указанному базовому адресу API.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ListReservations запрашивает список бронирований владельца.
// Если основной эндпоинт отсутствует (404/405), пробуется следующий.
func (c *Client) ListReservations(ctx context.Context, token string, q ListQuery) ([]map[string]any, error) {
	params := url.Values{}
	if q.Estado != "" {
		params.Set("estado", q.Estado)
	}
	if q.Fecha != "" {
		params.Set("fecha", q.Fecha)
	}

	var lastErr error
	for _, path := range reservationListPaths {
		if encoded := params.Encode(); encoded != "" {
			path += "?" + encoded
		}

		var body any
		err := c.do(ctx, http.MethodGet, token, path, nil, &body)
		if err == nil {
			return unwrapList(body), nil
		}

		var httpErr *HTTPError
		if errors.As(err, &httpErr) && (httpErr.StatusCode == http.StatusNotFound || httpErr.StatusCode == http.StatusMethodNotAllowed) {
			lastErr = err
			continue
		}
		return nil, err
	}

	return nil, lastErr
}

// OwnerStats запрашивает статистику владельца.
func (c *Client) OwnerStats(ctx context.Context, token string) (map[string]any, error) {
	var body map[string]any
	if err := c.do(ctx, http.MethodGet, token, ownerStatsPath, nil, &body); err != nil {
		return nil, err
	}
	return body, nil
}

// ReservationAction выполняет действие над бронированием по его коду.
// Пустое или не-JSON тело успешного ответа возвращается как nil.
func (c *Client) ReservationAction(ctx context.Context, token, code, endpoint string, payload any) (map[string]any, error) {
	path := fmt.Sprintf("/reservations/%s/%s/", url.PathEscape(code), endpoint)

	var body map[string]any
	if err := c.do(ctx, http.MethodPost, token, path, payload, &body); err != nil {
		return nil, err
	}
	return body, nil
}

// OwnerValidatePayment регистрирует платёж, подтверждённый владельцем вручную.
func (c *Client) OwnerValidatePayment(ctx context.Context, token string, req PaymentRequest) (map[string]any, error) {
	var body map[string]any
	if err := c.do(ctx, http.MethodPost, token, ownerValidatePath, req, &body); err != nil {
		return nil, err
	}
	return body, nil
}

// CreateTicket выпускает талон для бронирования.
func (c *Client) CreateTicket(ctx context.Context, token string, req TicketRequest) (map[string]any, error) {
	var body map[string]any
	if err := c.do(ctx, http.MethodPost, token, ticketForReservPath, req, &body); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, method, token, path string, payload any, out any) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("backend client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{StatusCode: resp.StatusCode, Detail: errorDetail(data)}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		// Тело ответа на действие необязательно и может не быть JSON-объектом.
		if method == http.MethodPost {
			return nil
		}
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func errorDetail(data []byte) string {
	var body map[string]any
	if err := json.Unmarshal(data, &body); err == nil {
		for _, k := range []string{"detail", "error", "message"} {
			if s, ok := body[k].(string); ok && s != "" {
				return s
			}
		}
	}
	text := strings.TrimSpace(string(data))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

// unwrapList достаёт массив записей из ответа: сам массив либо results, reservations или data.
func unwrapList(body any) []map[string]any {
	var items []any
	switch v := body.(type) {
	case []any:
		items = v
	case map[string]any:
		for _, k := range []string{"results", "reservations", "data"} {
			if arr, ok := v[k].([]any); ok {
				items = arr
				break
			}
		}
	}

	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
