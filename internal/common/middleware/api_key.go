package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

const apiKeyHeader = "X-Api-Key"

// APIKeyMiddleware защищает приём событий от скрапера. Пустой ключ в
// конфиге отключает проверку (локальная разработка).
type APIKeyMiddleware struct {
	apiKey string
	logger *slog.Logger
}

func NewAPIKeyMiddleware(apiKey string, logger *slog.Logger) *APIKeyMiddleware {
	return &APIKeyMiddleware{
		apiKey: apiKey,
		logger: logger,
	}
}

func (m *APIKeyMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		provided := r.Header.Get(apiKeyHeader)

		if subtle.ConstantTimeCompare([]byte(provided), []byte(m.apiKey)) != 1 {
			m.logger.Warn("Отклонён запрос с неверным API-ключом",
				"remoteAddr", r.RemoteAddr,
				"path", r.URL.Path,
			)

			http.Error(w, "Unauthorized", http.StatusUnauthorized)

			return
		}

		next.ServeHTTP(w, r)
	})
}
