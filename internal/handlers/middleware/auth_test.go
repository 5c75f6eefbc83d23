package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlog "gorm.io/gorm/logger"

	"github.com/charleshuang3/invitegate/internal/gormw"
	"github.com/charleshuang3/invitegate/internal/models"
	"github.com/charleshuang3/invitegate/internal/storage"
	"github.com/charleshuang3/invitegate/testdata"
)

func setupTestAuth(t *testing.T) (*testdata.IdentityProvider, *gormw.DB, *gin.Engine) {
	t.Helper()
	db, err := gormw.Open(&gormw.Config{
		LogLevel: gormlog.Silent,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())

	idp := testdata.NewIdentityProvider(t)
	auth := NewAuth(idp.Verifier(), db)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api", auth.Middleware())
	api.GET("/me", func(c *gin.Context) {
		u := CurrentUser(c)
		c.String(http.StatusOK, u.Subject+"|"+u.Email+"|"+u.Roles)
	})
	api.GET("/admin", RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, "admin ok")
	})

	return idp, db, router
}

func doGet(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware_Success(t *testing.T) {
	idp, db, router := setupTestAuth(t)

	rec := doGet(router, "/api/me", idp.IDToken("sub-1", "alice@example.com", "Alice"))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "sub-1|alice@example.com|user", rec.Body.String())

	user, err := storage.GetUserBySubject(db, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)

	// second request reuses the account
	rec = doGet(router, "/api/me", idp.IDToken("sub-1", "", ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAuthMiddleware_InvalidEmailIgnored(t *testing.T) {
	idp, _, router := setupTestAuth(t)

	rec := doGet(router, "/api/me", idp.IDToken("sub-1", "not-an-email", ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sub-1||user", rec.Body.String())
}

func TestAuthMiddleware_Error(t *testing.T) {
	idp, _, router := setupTestAuth(t)
	other := testdata.NewIdentityProvider(t)

	tests := []struct {
		name  string
		token string
	}{
		{
			name:  "missing token",
			token: "",
		},
		{
			name:  "garbage",
			token: "not.a.jwt",
		},
		{
			name:  "expired",
			token: idp.ExpiredIDToken("sub-1"),
		},
		{
			name:  "wrong audience",
			token: idp.IDTokenForAudience("sub-1", "another-project"),
		},
		{
			name:  "signed by other key",
			token: other.IDToken("sub-1", "", ""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doGet(router, "/api/me", tt.token)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	idp, db, router := setupTestAuth(t)

	rec := doGet(router, "/api/admin", idp.IDToken("sub-1", "", ""))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	user, err := storage.GetUserBySubject(db, "sub-1")
	require.NoError(t, err)
	user.Promote()
	require.NoError(t, storage.UpdateUserRoles(db, user))

	rec = doGet(router, "/api/admin", idp.IDToken("sub-1", "", ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin ok", rec.Body.String())
}
