package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/notium/server/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// makeToken подписывает тестовый JWT с заданным временем жизни.
func makeToken(t *testing.T, secret string, userID int64, ttl time.Duration) string {
	t.Helper()

	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(ttl).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthenticator(t *testing.T) {
	authenticator := middleware.NewAuthenticator(testSecret)

	tests := []struct {
		name         string
		authHeader   string
		expectedCode int
		expectedUser int64
	}{
		{
			name:         "Валидный токен",
			authHeader:   "Bearer " + makeToken(t, testSecret, 42, time.Hour),
			expectedCode: http.StatusOK,
			expectedUser: 42,
		},
		{
			name:         "Заголовок отсутствует",
			authHeader:   "",
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "Неверный формат заголовка",
			authHeader:   "Token abc",
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "Токен подписан другим секретом",
			authHeader:   "Bearer " + makeToken(t, "другой-секрет", 42, time.Hour),
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "Истекший токен",
			authHeader:   "Bearer " + makeToken(t, testSecret, 42, -time.Hour),
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "Мусор вместо токена",
			authHeader:   "Bearer не.настоящий.токен",
			expectedCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextCalled := false
			next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				nextCalled = true
				userID, ok := middleware.GetUserIDFromContext(r.Context())
				assert.True(t, ok)
				assert.Equal(t, tt.expectedUser, userID)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/backups", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()

			authenticator(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
			assert.Equal(t, tt.expectedCode == http.StatusOK, nextCalled)
		})
	}
}

func TestGetUserIDFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	userID, ok := middleware.GetUserIDFromContext(req.Context())
	assert.False(t, ok)
	assert.Zero(t, userID)
}
