// Package middleware содержит HTTP middleware панели владельца.
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/model"
)

type contextKey string

const principalKey contextKey = "principal"

// BearerAuth требует заголовок Authorization: Bearer <token> и кладёт владельца в контекст запроса.
// Подпись токена проверяет бэкенд ParkeaYa; идентификатор пользователя читается
// без проверки и используется только в журналах. Состояние владельца привязано к токену.
func BearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		p := model.Principal{Token: token, UserID: userIDFromToken(token)}

		ctx := context.WithValue(r.Context(), principalKey, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PrincipalFromContext извлекает владельца из контекста запроса.
func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalKey).(model.Principal)
	return p, ok
}

// WithPrincipal возвращает контекст с владельцем.
func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// userIDFromToken читает user_id или sub из JWT без проверки подписи.
// Для непрозрачных токенов возвращает пустую строку.
func userIDFromToken(token string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}

	for _, k := range []string{"user_id", "sub"} {
		switch v := claims[k].(type) {
		case float64:
			return strconv.FormatInt(int64(v), 10)
		case string:
			if v != "" {
				return v
			}
		}
	}
	return ""
}
