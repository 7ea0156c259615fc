package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/notium/server/internal/handlers"
	"github.com/notium/server/internal/models"
	"github.com/notium/server/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAuthService is a mock for AuthService.
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(username, password string) error {
	args := m.Called(username, password)
	return args.Error(0)
}

func (m *MockAuthService) Login(username, password string) (string, error) {
	args := m.Called(username, password)
	return args.String(0), args.Error(1)
}

func TestAuthHandler_Register(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		mockSetup    func(service *MockAuthService)
		expectedCode int
	}{
		{
			name: "Успешная регистрация",
			body: `{"username":"user","password":"pass"}`,
			mockSetup: func(service *MockAuthService) {
				service.On("Register", "user", "pass").Return(nil)
			},
			expectedCode: http.StatusCreated,
		},
		{
			name:         "Невалидный JSON",
			body:         "{сломанный",
			mockSetup:    func(_ *MockAuthService) {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Пустые учетные данные",
			body:         `{"username":"","password":""}`,
			mockSetup:    func(_ *MockAuthService) {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "Имя пользователя занято",
			body: `{"username":"user","password":"pass"}`,
			mockSetup: func(service *MockAuthService) {
				service.On("Register", "user", "pass").Return(services.ErrUsernameTaken)
			},
			expectedCode: http.StatusConflict,
		},
		{
			name: "Внутренняя ошибка сервиса",
			body: `{"username":"user","password":"pass"}`,
			mockSetup: func(service *MockAuthService) {
				service.On("Register", "user", "pass").Return(errors.New("ошибка"))
			},
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockAuthService)
			tt.mockSetup(service)

			handler := handlers.NewAuthHandler(service)
			req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()

			handler.Register(rr, req)
			assert.Equal(t, tt.expectedCode, rr.Code)
			service.AssertExpectations(t)
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("Успешный вход возвращает токен", func(t *testing.T) {
		service := new(MockAuthService)
		service.On("Login", "user", "pass").Return("jwt-token", nil)

		handler := handlers.NewAuthHandler(service)
		req := httptest.NewRequest(http.MethodPost, "/api/login",
			strings.NewReader(`{"username":"user","password":"pass"}`))
		rr := httptest.NewRecorder()

		handler.Login(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp models.LoginResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "jwt-token", resp.Token)
	})

	t.Run("Неверные учетные данные", func(t *testing.T) {
		service := new(MockAuthService)
		service.On("Login", "user", "wrong").Return("", services.ErrInvalidCredentials)

		handler := handlers.NewAuthHandler(service)
		req := httptest.NewRequest(http.MethodPost, "/api/login",
			strings.NewReader(`{"username":"user","password":"wrong"}`))
		rr := httptest.NewRecorder()

		handler.Login(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Внутренняя ошибка сервиса", func(t *testing.T) {
		service := new(MockAuthService)
		service.On("Login", "user", "pass").Return("", errors.New("ошибка"))

		handler := handlers.NewAuthHandler(service)
		req := httptest.NewRequest(http.MethodPost, "/api/login",
			strings.NewReader(`{"username":"user","password":"pass"}`))
		rr := httptest.NewRecorder()

		handler.Login(rr, req)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
