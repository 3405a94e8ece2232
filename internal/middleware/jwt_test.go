package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/obe-portal-api/internal/models"
	"github.com/noah-isme/obe-portal-api/internal/service"
)

type staticUserRepo struct {
	user *models.User
}

func (r *staticUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if r.user == nil || r.user.Username != username {
		return nil, sql.ErrNoRows
	}
	return r.user, nil
}

func (r *staticUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if r.user == nil || r.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return r.user, nil
}

func (r *staticUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func newAuthFixture(t *testing.T, role models.UserRole) (*service.AuthService, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &staticUserRepo{user: &models.User{
		ID:           "u1",
		Username:     "asha",
		Name:         "Asha",
		PasswordHash: string(hash),
		Role:         role,
		Status:       models.UserStatusActive,
	}}
	svc := service.NewAuthService(repo, nil, nil, service.AuthConfig{
		AccessTokenSecret: "middleware-test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "obe-portal",
	})
	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "asha", Password: "secret123"})
	require.NoError(t, err)
	return svc, res.AccessToken
}

func newRouter(authSvc *service.AuthService, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{JWT(authSvc)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/protected", handlers...)
	return r
}

func TestJWTAllowsValidToken(t *testing.T) {
	authSvc, token := newAuthFixture(t, models.RoleTeacher)
	r := newRouter(authSvc)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestJWTRejectsMissingHeader(t *testing.T) {
	authSvc, _ := newAuthFixture(t, models.RoleTeacher)
	r := newRouter(authSvc)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTRejectsMalformedHeader(t *testing.T) {
	authSvc, token := newAuthFixture(t, models.RoleTeacher)
	r := newRouter(authSvc)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTRejectsGarbageToken(t *testing.T) {
	authSvc, _ := newAuthFixture(t, models.RoleTeacher)
	r := newRouter(authSvc)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRolesAllowsListedRole(t *testing.T) {
	authSvc, token := newAuthFixture(t, models.RoleAdmin)
	r := newRouter(authSvc, RequireRoles(models.RoleAdmin, models.RoleProgramCoordinator))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRolesBlocksOtherRole(t *testing.T) {
	authSvc, token := newAuthFixture(t, models.RoleTeacher)
	r := newRouter(authSvc, RequireRoles(models.RoleAdmin))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}
