package invite

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	gormlog "gorm.io/gorm/logger"

	"github.com/charleshuang3/invitegate/internal/gormw"
	"github.com/charleshuang3/invitegate/internal/handlers/middleware"
	"github.com/charleshuang3/invitegate/internal/models"
	"github.com/charleshuang3/invitegate/internal/promotion"
	"github.com/charleshuang3/invitegate/internal/storage"
	"github.com/charleshuang3/invitegate/testdata"
)

const testMasterCode = "the-master-code"

type testEnv struct {
	idp     *testdata.IdentityProvider
	db      *gormw.DB
	service *promotion.Service
	router  *gin.Engine
}

func setupTestHandlers(t *testing.T) *testEnv {
	t.Helper()
	db, err := gormw.Open(&gormw.Config{
		LogLevel: gormlog.Silent,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())

	hash, err := bcrypt.GenerateFromPassword([]byte(testMasterCode), bcrypt.MinCost)
	require.NoError(t, err)

	service := promotion.NewService(&promotion.Config{
		DefaultMaxUses:              1,
		CodeLength:                  10,
		MasterCodeHash:              string(hash),
		MaxFailedAttempts:           3,
		FailedAttemptsWindowMinutes: 10,
	}, db)
	t.Cleanup(service.Close)

	idp := testdata.NewIdentityProvider(t)
	auth := middleware.NewAuth(idp.Verifier(), db)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api", auth.Middleware())
	admin := api.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	NewHandlers(service).RegisterHandlers(api, admin)

	return &testEnv{
		idp:     idp,
		db:      db,
		service: service,
		router:  router,
	}
}

func (e *testEnv) do(t *testing.T, method, path, subject string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+e.idp.IDToken(subject, subject+"@example.com", ""))

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// makeAdmin signs the subject in once and promotes it directly in storage.
func (e *testEnv) makeAdmin(t *testing.T, subject string) {
	t.Helper()
	user, err := storage.GetOrCreateUserBySubject(e.db, subject, "", "")
	require.NoError(t, err)
	user.Promote()
	require.NoError(t, storage.UpdateUserRoles(e.db, user))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHandleMe(t *testing.T) {
	env := setupTestHandlers(t)

	rec := env.do(t, http.MethodGet, "/api/me", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	me := decode[userResponse](t, rec)
	assert.NotZero(t, me.ID)
	assert.Equal(t, "alice@example.com", me.Email)
	assert.Equal(t, models.RoleUser, me.Roles)
}

func TestAdminRoutes_Forbidden(t *testing.T) {
	env := setupTestHandlers(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/admin/invitations"},
		{http.MethodPost, "/api/admin/invitations"},
		{http.MethodGet, "/api/admin/invitations/ABC/redemptions"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, "alice", nil)
			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}
}

func TestGenerateAndListInvitations(t *testing.T) {
	env := setupTestHandlers(t)
	env.makeAdmin(t, "root")

	rec := env.do(t, http.MethodPost, "/api/admin/invitations", "root", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[invitationResponse](t, rec)
	assert.Len(t, first.Code, 10)
	assert.Equal(t, uint(1), first.MaxUses)
	assert.Equal(t, uint(0), first.UsedCount)
	assert.NotZero(t, first.CreatedBy)

	rec = env.do(t, http.MethodPost, "/api/admin/invitations", "root", url.Values{"max_uses": {"4"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	second := decode[invitationResponse](t, rec)
	assert.Equal(t, uint(4), second.MaxUses)

	rec = env.do(t, http.MethodGet, "/api/admin/invitations", "root", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Invitations []invitationResponse `json:"invitations"`
	}](t, rec)
	require.Len(t, list.Invitations, 2)

	codes := []string{list.Invitations[0].Code, list.Invitations[1].Code}
	assert.ElementsMatch(t, []string{first.Code, second.Code}, codes)
}

func TestGenerateInvitation_Error(t *testing.T) {
	env := setupTestHandlers(t)
	env.makeAdmin(t, "root")

	tests := []struct {
		name string
		form url.Values
	}{
		{
			name: "not a number",
			form: url.Values{"max_uses": {"many"}},
		},
		{
			name: "negative",
			form: url.Values{"max_uses": {"-1"}},
		},
		{
			name: "too large",
			form: url.Values{"max_uses": {"100000"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/admin/invitations", "root", tt.form)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleRedeem_Success(t *testing.T) {
	env := setupTestHandlers(t)
	env.makeAdmin(t, "root")

	rec := env.do(t, http.MethodPost, "/api/admin/invitations", "root", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	inv := decode[invitationResponse](t, rec)

	rec = env.do(t, http.MethodPost, "/api/invitations/redeem", "alice", url.Values{"code": {inv.Code}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[redeemResponse](t, rec)
	assert.True(t, resp.Promoted)
	assert.Equal(t, models.RoleAdmin, resp.Roles)

	// alice is an admin now
	rec = env.do(t, http.MethodGet, "/api/admin/invitations", "alice", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/admin/invitations/"+inv.Code+"/redemptions", "root", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[struct {
		Code        string               `json:"code"`
		Redemptions []redemptionResponse `json:"redemptions"`
	}](t, rec)
	assert.Equal(t, inv.Code, history.Code)
	assert.Len(t, history.Redemptions, 1)

	// single use
	rec = env.do(t, http.MethodPost, "/api/invitations/redeem", "bob", url.Values{"code": {inv.Code}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "used up")
}

func TestHandleRedeem_MasterCode(t *testing.T) {
	env := setupTestHandlers(t)

	rec := env.do(t, http.MethodPost, "/api/invitations/redeem", "alice", url.Values{"code": {testMasterCode}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[redeemResponse](t, rec).Promoted)
}

func TestHandleRedeem_Error(t *testing.T) {
	tests := []struct {
		name         string
		form         url.Values
		expectedCode int
		expectedBody string
		setup        func(t *testing.T, env *testEnv) url.Values
	}{
		{
			name:         "missing code",
			form:         url.Values{},
			expectedCode: http.StatusBadRequest,
			expectedBody: "Missing required parameters",
		},
		{
			name:         "unknown code",
			form:         url.Values{"code": {"XXXX"}},
			expectedCode: http.StatusBadRequest,
			expectedBody: "Invalid invitation code.",
		},
		{
			name:         "already admin",
			expectedCode: http.StatusConflict,
			expectedBody: "Already an admin.",
			setup: func(t *testing.T, env *testEnv) url.Values {
				env.makeAdmin(t, "alice")
				require.NoError(t, storage.AddInvitation(env.db, &models.Invitation{Code: "CODE", MaxUses: 1}))
				return url.Values{"code": {"CODE"}}
			},
		},
		{
			name:         "throttled",
			expectedCode: http.StatusTooManyRequests,
			expectedBody: "Too many failed attempts",
			setup: func(t *testing.T, env *testEnv) url.Values {
				for i := 0; i < 3; i++ {
					env.do(t, http.MethodPost, "/api/invitations/redeem", "alice", url.Values{"code": {"WRONG"}})
				}
				require.NoError(t, storage.AddInvitation(env.db, &models.Invitation{Code: "CODE", MaxUses: 1}))
				return url.Values{"code": {"CODE"}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestHandlers(t)
			form := tt.form
			if tt.setup != nil {
				form = tt.setup(t, env)
			}

			rec := env.do(t, http.MethodPost, "/api/invitations/redeem", "alice", form)
			assert.Equal(t, tt.expectedCode, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
		})
	}
}

func TestHandleListRedemptions_NotFound(t *testing.T) {
	env := setupTestHandlers(t)
	env.makeAdmin(t, "root")

	rec := env.do(t, http.MethodGet, "/api/admin/invitations/NOPE/redemptions", "root", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRedeemErrorStatus(t *testing.T) {
	status, _ := redeemErrorStatus(&promotion.StorageError{Op: "test", Err: assert.AnError})
	assert.Equal(t, http.StatusInternalServerError, status)

	status, _ = redeemErrorStatus(promotion.ErrUserNotFound)
	assert.Equal(t, http.StatusNotFound, status)
}
