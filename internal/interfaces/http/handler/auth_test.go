package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	appidentity "github.com/salesapi/backend/internal/application/identity"
	"github.com/salesapi/backend/internal/domain/identity"
	"github.com/salesapi/backend/internal/infrastructure/auth"
	"github.com/salesapi/backend/internal/infrastructure/config"
	"github.com/salesapi/backend/internal/infrastructure/persistence"
	"github.com/salesapi/backend/internal/infrastructure/persistence/models"
	"github.com/salesapi/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newAuthTestRouter(t *testing.T) (*gin.Engine, *persistence.GormUserRepository, *auth.JWTService) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.UserModel{}))
	t.Cleanup(func() { _ = sqlDB.Close() })

	users := persistence.NewGormUserRepository(db)
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-32-characters-long",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "test-issuer",
	})
	h := NewAuthHandler(appidentity.NewAuthService(users, jwtService, zap.NewNop()))

	router := gin.New()
	router.POST("/auth/login", h.Login)
	return router, users, jwtService
}

func TestAuthHandler_Login(t *testing.T) {
	router, users, jwtService := newAuthTestRouter(t)

	user, err := identity.NewActiveUser("manager@example.com", "Secret123!", identity.UserRoleManager, time.Now())
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), user))

	suspended, err := identity.NewActiveUser("gone@example.com", "Secret123!", identity.UserRoleCustomer, time.Now())
	require.NoError(t, err)
	suspended.Suspend(time.Now())
	require.NoError(t, users.Create(context.Background(), suspended))

	t.Run("returns a usable token", func(t *testing.T) {
		w := send(t, router, http.MethodPost, "/auth/login", map[string]string{
			"email":    "manager@example.com",
			"password": "Secret123!",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			Data LoginResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Bearer", resp.Data.TokenType)
		assert.Equal(t, user.ID, resp.Data.User.ID)
		assert.Equal(t, "manager", resp.Data.User.Role)

		claims, err := jwtService.ValidateToken(resp.Data.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.UserID)
	})

	tests := []struct {
		name   string
		body   map[string]string
		status int
		code   string
	}{
		{"wrong password", map[string]string{"email": "manager@example.com", "password": "nope-nope"}, http.StatusUnauthorized, dto.ErrCodeInvalidCredentials},
		{"unknown email", map[string]string{"email": "ghost@example.com", "password": "Secret123!"}, http.StatusUnauthorized, dto.ErrCodeInvalidCredentials},
		{"suspended account", map[string]string{"email": "gone@example.com", "password": "Secret123!"}, http.StatusUnauthorized, dto.ErrCodeAccountInactive},
		{"missing password", map[string]string{"email": "manager@example.com"}, http.StatusBadRequest, dto.ErrCodeValidationFailed},
		{"malformed email", map[string]string{"email": "manager", "password": "Secret123!"}, http.StatusBadRequest, dto.ErrCodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := send(t, router, http.MethodPost, "/auth/login", tt.body)
			assert.Equal(t, tt.status, w.Code)
			resp := decodeResponse(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}
