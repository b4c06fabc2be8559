package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"secbank-cbs/internal/apperr"
	"secbank-cbs/internal/config"
	"secbank-cbs/internal/middleware"
	"secbank-cbs/internal/model"
	"secbank-cbs/internal/repository"
	"secbank-cbs/internal/security"
	"secbank-cbs/internal/service"
	"secbank-cbs/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUsers struct {
	repository.UserRepository
	users map[uint]*model.User
}

func (s *stubUsers) FindByIDWithRoles(_ context.Context, id uint) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

type stubAccounts struct {
	service.AccountService
	lastActor  uint
	lastStatus model.AccountStatus
	lastReason string
	openReq    service.OpenAccountRequest
	err        error
}

func (s *stubAccounts) OpenAccount(_ context.Context, actorID uint, req service.OpenAccountRequest) (*service.AccountResponse, error) {
	s.lastActor = actorID
	s.openReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &service.AccountResponse{Account: model.Account{ID: 1, AccountNumber: "001SA26-0000001", Status: model.AccountActive}}, nil
}

func (s *stubAccounts) UpdateStatus(_ context.Context, actorID, id uint, target model.AccountStatus, reason string) (*service.AccountResponse, error) {
	s.lastActor, s.lastStatus, s.lastReason = actorID, target, reason
	if s.err != nil {
		return nil, s.err
	}
	return &service.AccountResponse{Account: model.Account{ID: id, Status: target}}, nil
}

func (s *stubAccounts) Close(_ context.Context, actorID, id uint, reason string) (*service.AccountResponse, error) {
	s.lastActor, s.lastReason = actorID, reason
	if s.err != nil {
		return nil, s.err
	}
	return &service.AccountResponse{Account: model.Account{ID: id, Status: model.AccountClosed}}, nil
}

func (s *stubAccounts) ListAccounts(_ context.Context, filter repository.AccountFilter, page, limit int) ([]service.AccountResponse, int64, error) {
	s.lastStatus = filter.Status
	return []service.AccountResponse{{Account: model.Account{ID: 1}}}, 1, nil
}

type accountEnv struct {
	router  *gin.Engine
	stub    *stubAccounts
	officer string
	viewer  string
}

func newAccountEnv(t *testing.T) *accountEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	perms := func(codes ...string) []model.Role {
		ps := make([]model.Permission, 0, len(codes))
		for _, c := range codes {
			ps = append(ps, model.Permission{PermissionCode: c})
		}
		return []model.Role{{RoleCode: "TEST", Permissions: ps}}
	}
	users := &stubUsers{users: map[uint]*model.User{
		7: {ID: 7, Username: "officer", Status: model.UserStatusActive,
			Roles: perms(model.PermAccountView, model.PermAccountCreate, model.PermAccountUpdate, model.PermAccountClose)},
		8: {ID: 8, Username: "viewer", Status: model.UserStatusActive, Roles: perms(model.PermAccountView)},
	}}
	tokens := security.NewTokenService(config.JWTConfig{Secret: "handler-secret", AccessTTL: time.Hour, RefreshTTL: time.Hour}, nil, nil)
	auth := security.NewAuthenticator(tokens, security.NewPrincipalResolver(users))

	stub := &stubAccounts{}
	r := gin.New()
	api := r.Group("/api/v1", middleware.Authenticate(auth))
	NewAccountHandler(stub).RegisterRoutes(api)

	issue := func(id uint) string {
		tok, err := tokens.IssueAccessToken(security.NewPrincipal(users.users[id]))
		require.NoError(t, err)
		return tok
	}
	return &accountEnv{router: r, stub: stub, officer: issue(7), viewer: issue(8)}
}

func (e *accountEnv) do(method, path, token, body string) (int, response.Response) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	var res response.Response
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	return w.Code, res
}

func TestOpenAccountHandler(t *testing.T) {
	env := newAccountEnv(t)

	status, res := env.do("POST", "/api/v1/accounts", env.officer,
		`{"customerId":1,"accountTypeId":2,"branchId":3,"initialDeposit":"1500.50"}`)

	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, uint(7), env.stub.lastActor)
	assert.True(t, decimal.RequireFromString("1500.50").Equal(env.stub.openReq.InitialDeposit))
}

func TestOpenAccountHandlerValidation(t *testing.T) {
	env := newAccountEnv(t)

	status, res := env.do("POST", "/api/v1/accounts", env.officer, `{"accountTypeId":2,"branchId":3,"signatureType":"ANY"}`)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", res.Code)
	assert.Equal(t, "Is required", res.Fields["customerId"])
	assert.Contains(t, res.Fields["signatureType"], "Must be one of")
}

func TestOpenAccountHandlerForbidden(t *testing.T) {
	env := newAccountEnv(t)

	status, res := env.do("POST", "/api/v1/accounts", env.viewer, `{"customerId":1,"accountTypeId":2,"branchId":3}`)

	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", res.Code)
}

func TestUpdateStatusHandlerIsCaseSensitive(t *testing.T) {
	env := newAccountEnv(t)

	status, res := env.do("PUT", "/api/v1/accounts/5/status?status=active", env.officer, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", res.Code)

	status, _ = env.do("PUT", "/api/v1/accounts/5/status?status=BLOCKED&reason=fraud", env.officer, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, model.AccountBlocked, env.stub.lastStatus)
	assert.Equal(t, "fraud", env.stub.lastReason)

	status, _ = env.do("PUT", "/api/v1/accounts/abc/status?status=BLOCKED", env.officer, "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCloseHandlerMapsStateErrors(t *testing.T) {
	env := newAccountEnv(t)
	env.stub.err = apperr.New(apperr.CodeNonZeroBalance, "Account balance must be zero before closing")

	status, res := env.do("POST", "/api/v1/accounts/5/close", env.officer, `{"reason":"customer request"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "NON_ZERO_BALANCE", res.Code)
	assert.Equal(t, "customer request", env.stub.lastReason)
}

func TestListAccountsHandler(t *testing.T) {
	env := newAccountEnv(t)

	status, res := env.do("GET", "/api/v1/accounts?status=FROZEN&page=1&limit=5", env.viewer, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, model.AccountFrozen, env.stub.lastStatus)

	page, ok := res.Data.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, page["total"])
	assert.EqualValues(t, 5, page["limit"])

	status, _ = env.do("GET", "/api/v1/accounts?status=frozen", env.viewer, "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestWriteErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		err  error
		want int
	}{
		{apperr.NotFound("Account", "id", 1), http.StatusNotFound},
		{apperr.Validation(map[string]string{"x": "bad"}), http.StatusBadRequest},
		{apperr.Conflict("Role", "roleCode", "ADMIN"), http.StatusConflict},
		{apperr.New(apperr.CodeInvalidCredentials, "no"), http.StatusUnauthorized},
		{apperr.New(apperr.CodeAccountLocked, "no"), http.StatusUnauthorized},
		{apperr.New(apperr.CodeForbidden, "no"), http.StatusForbidden},
		{apperr.New(apperr.CodeTerminalState, "no"), http.StatusUnprocessableEntity},
		{apperr.New(apperr.CodeIllegalTransition, "no"), http.StatusUnprocessableEntity},
		{apperr.New(apperr.CodeBusiness, "no"), http.StatusUnprocessableEntity},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", "/", nil)

			writeError(c, tt.err)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), "db down")
			}
		})
	}
}
