package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sjperalta/advance-portal/internal/config"
	"github.com/sjperalta/advance-portal/internal/middleware"
	"github.com/sjperalta/advance-portal/internal/models"
	"github.com/sjperalta/advance-portal/internal/repository"
	"github.com/sjperalta/advance-portal/internal/services"
	"github.com/sjperalta/advance-portal/internal/session"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	router *gin.Engine
	repos  *repository.Repositories
	svcs   *services.Services
	cookie *http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	cfg := &config.Config{SessionTTL: time.Hour, SessionCookie: "advance_session"}
	repos := repository.NewRepositories(db)
	svcs := services.NewServices(repos, session.NewDBStore(repos.Session), nil, cfg, db)

	created, err := svcs.Auth.EnsureAdmin(context.Background(), "admin@example.com", "secret1")
	require.NoError(t, err)
	require.True(t, created)

	h := NewHandlers(svcs, cfg, nil)
	router := gin.New()
	router.Use(middleware.RequestID())
	router.GET("/health", h.Health.Index)
	router.POST("/login", h.Auth.Login)
	router.GET("/logout", h.Auth.Logout)
	protected := router.Group("")
	protected.Use(middleware.Auth(svcs.Auth, cfg.SessionCookie))
	protected.Any("/api", h.API.Dispatch)
	protected.Any("/api.php", h.API.Dispatch)
	protected.GET("/reports/export", h.Report.Export)
	protected.GET("/reports/outstanding.pdf", h.Report.OutstandingPDF)

	return &testServer{router: router, repos: repos, svcs: svcs}
}

func (s *testServer) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (s *testServer) login(t *testing.T) {
	t.Helper()
	s.loginAs(t, "admin@example.com", "secret1")
}

func (s *testServer) loginAs(t *testing.T, email, password string) {
	t.Helper()
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w, env := s.do(t, req)
	require.Equal(t, http.StatusOK, w.Code, env.Message)

	for _, c := range w.Result().Cookies() {
		if c.Name == "advance_session" {
			s.cookie = c
		}
	}
	require.NotNil(t, s.cookie)
}

func (s *testServer) postJSON(t *testing.T, action, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api?action="+action, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return s.do(t, req)
}

func (s *testServer) postForm(t *testing.T, action string, form url.Values) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api.php?action="+action, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(t, req)
}

func (s *testServer) get(t *testing.T, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	return s.do(t, httptest.NewRequest(http.MethodGet, path, nil))
}

func TestAPI_RequiresSession(t *testing.T) {
	s := newTestServer(t)

	w, env := s.get(t, "/api?action=get_employees")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Authentication required", env.Message)

	s.cookie = &http.Cookie{Name: "advance_session", Value: "forged"}
	w, _ = s.get(t, "/api?action=get_employees")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"bad json", `{"email":`, http.StatusBadRequest, "Invalid JSON data"},
		{"missing password", `{"email":"admin@example.com"}`, http.StatusBadRequest, "Email and password are required"},
		{"bad email", `{"email":"admin","password":"x"}`, http.StatusBadRequest, "Invalid email format"},
		{"unknown email", `{"email":"who@example.com","password":"x"}`, http.StatusUnauthorized,
			"No account found with this email address. Please check your email or contact administrator."},
		{"wrong password", `{"email":"admin@example.com","password":"nope"}`, http.StatusUnauthorized,
			"Invalid password. Please check your password and try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w, env := s.do(t, req)
			assert.Equal(t, tt.status, w.Code)
			assert.False(t, env.Success)
			assert.Equal(t, tt.message, env.Message)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"admin@example.com","password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")
	w, env := s.do(t, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Login successful", env.Message)

	var data struct {
		Redirect string              `json:"redirect"`
		User     models.UserResponse `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "dashboard", data.Redirect)
	assert.Equal(t, "admin@example.com", data.User.Email)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.Len(t, cookies[0].Value, 64)
}

func TestAPI_DispatchRules(t *testing.T) {
	s := newTestServer(t)
	s.login(t)

	w, env := s.get(t, "/api?action=drop_tables")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid action", env.Message)

	w, env = s.get(t, "/api?action=add_employee&id=E1&name=Ana")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "Method not allowed", env.Message)

	w, env = s.get(t, "/api.php?action=get_dashboard_stats")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "Stats loaded successfully", env.Message)
}

func TestAPI_RejectsOversizedIDs(t *testing.T) {
	s := newTestServer(t)
	s.login(t)

	w, env := s.postForm(t, "delete_voucher", url.Values{"autoId": {"18446744073709551617"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Voucher ID must be a whole number", env.Message)

	w, env = s.postJSON(t, "delete_borrower", `{"id":"99999999999999999999"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ID must be a whole number", env.Message)
}

func TestAPI_EmployeeLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.login(t)

	w, env := s.postForm(t, "add_employee", url.Values{"id": {"E1"}, "name": {"Ana"}})
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	assert.Equal(t, "Employee added successfully", env.Message)

	w, env = s.postForm(t, "add_employee", url.Values{"id": {"E1"}, "name": {"Ana again"}})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Employee ID already exists", env.Message)

	w, env = s.postForm(t, "add_employee", url.Values{"id": {"E2"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Name is required", env.Message)

	w, _ = s.postJSON(t, "update_employee", `{"id":"E1","name":"Ana Maria"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = s.get(t, "/api?action=get_employees")
	require.Equal(t, http.StatusOK, w.Code)
	var employees []models.EmployeeResponse
	require.NoError(t, json.Unmarshal(env.Data, &employees))
	require.Len(t, employees, 1)
	assert.Equal(t, "Ana Maria", employees[0].Name)

	w, _ = s.postForm(t, "delete_employee", url.Values{"id": {"E1"}})
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = s.postForm(t, "delete_employee", url.Values{"id": {"E1"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
}

func TestAPI_BorrowerAndVoucher(t *testing.T) {
	s := newTestServer(t)
	s.login(t)

	w, _ := s.postForm(t, "add_employee", url.Values{"id": {"E1"}, "name": {"Ana"}})
	require.Equal(t, http.StatusOK, w.Code)

	w, env := s.postJSON(t, "add_borrower",
		`{"empId":"E1","name":"Ana","amount":"1,000","emi":200,"month":"5","disbursedDate":"15-01-2024"}`)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	var created services.BorrowerResult
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "APP000001", created.Borrower.ApplicationNo)
	assert.Equal(t, "15-01-2024", created.Borrower.DisbursedDate)
	assert.Equal(t, 1000.0, created.Borrower.OutstandingAmount)

	w, env = s.postJSON(t, "add_borrower",
		`{"empId":"E1","name":"Ana","amount":1000,"emi":200,"month":5,"disbursedDate":"31-02-2024"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, `Invalid disbursed date "31-02-2024". Use DD-MM-YYYY`, env.Message)

	w, env = s.postJSON(t, "add_borrower",
		`{"empId":"E9","name":"Nobody","amount":1000,"emi":200,"month":5,"disbursedDate":"15-01-2024"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Employee ID not found", env.Message)

	w, env = s.postForm(t, "add_voucher", url.Values{
		"id": {"V1"}, "empId": {"E1"}, "empName": {"Ana"},
		"date": {"31-01-2024"}, "amount": {"400"}, "month": {"January"},
	})
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	var voucher services.VoucherResult
	require.NoError(t, json.Unmarshal(env.Data, &voucher))
	require.NotNil(t, voucher.BorrowerUpdate)
	assert.Equal(t, 1000.0, voucher.BorrowerUpdate.OldOutstanding)
	assert.Equal(t, 600.0, voucher.BorrowerUpdate.NewOutstanding)
	assert.Equal(t, "31-01-2024", voucher.Voucher.Date)

	w, env = s.get(t, "/api?action=get_borrower_history&empId=E1")
	require.Equal(t, http.StatusOK, w.Code)
	var history models.BorrowerHistory
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Equal(t, 1, history.Summary.Active)
	assert.Equal(t, 600.0, history.Summary.TotalOutstanding)

	w, env = s.postJSON(t, "delete_voucher", `{"autoId": 1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "was not restored")

	w, _ = s.postJSON(t, "delete_borrower", `{"applicationNo":"APP000001"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = s.postJSON(t, "delete_borrower", `{"applicationNo":"APP000001"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Active borrower not found", env.Message)
}

func TestAPI_ImportVouchers(t *testing.T) {
	s := newTestServer(t)
	s.login(t)

	w, env := s.postJSON(t, "import_employees", `{"employees":[{"id":"E1","name":"Ana"},{"id":"E1","name":"Dup"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Imported 1 of 2 employees; 1 row(s) skipped", env.Message)

	w, env = s.postJSON(t, "import_vouchers", `{"vouchers":[
		{"id":"V1","empId":"E1","empName":"Ana","date":"31-01-2024","amount":100,"month":"January"},
		{"id":"V2","empId":"E1","empName":"Ana","date":"not a date","amount":100,"month":"February"}
	]}`)
	require.Equal(t, http.StatusOK, w.Code)
	var result services.ImportResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)
	require.Len(t, result.Errors, 1)
	assert.True(t, strings.HasPrefix(result.Errors[0], "Row 2: "))

	w, env = s.postJSON(t, "import_vouchers", `{"vouchers":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No vouchers data provided", env.Message)

	w, env = s.postJSON(t, "import_vouchers", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid JSON data", env.Message)
}

func TestAPI_AccountSettings(t *testing.T) {
	s := newTestServer(t)
	s.login(t)

	w, env := s.postJSON(t, "change_password", `{"currentPassword":"secret1","newPassword":"abc","confirmPassword":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "New password must be at least 6 characters long", env.Message)

	w, _ = s.postJSON(t, "change_password", `{"currentPassword":"secret1","newPassword":"secret2","confirmPassword":"secret2"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = s.postJSON(t, "update_email", `{"newEmail":"root@example.com","currentPassword":"secret2"}`)
	require.Equal(t, http.StatusOK, w.Code, env.Message)

	w, env = s.get(t, "/api?action=get_current_user")
	require.Equal(t, http.StatusOK, w.Code)
	var user models.UserResponse
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "root@example.com", user.Email)

	w, env = s.get(t, "/api?action=get_audit_logs")
	require.Equal(t, http.StatusOK, w.Code)
	var logs struct {
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &logs))
	assert.Positive(t, logs.Total)
}

func TestAPI_AuditLogsAdminOnly(t *testing.T) {
	s := newTestServer(t)
	hash, err := services.HashPassword("secret1")
	require.NoError(t, err)
	require.NoError(t, s.repos.User.Create(context.Background(), &models.User{
		Username: "clerk",
		Email:    "clerk@example.com",
		Password: hash,
		Role:     models.RoleUser,
	}))
	s.loginAs(t, "clerk@example.com", "secret1")

	w, env := s.get(t, "/api?action=get_audit_logs")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Administrator access required", env.Message)

	w, _ = s.get(t, "/api?action=get_employees")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogout(t *testing.T) {
	s := newTestServer(t)
	s.login(t)

	w, _ := s.get(t, "/logout")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w, _ = s.get(t, "/api?action=get_employees")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReports(t *testing.T) {
	s := newTestServer(t)
	s.login(t)

	w, _ := s.get(t, "/reports/export?type=employees&format=csv")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.True(t, strings.HasPrefix(w.Body.String(), "Employee ID,Name,Status"))

	w, env := s.get(t, "/reports/export?type=payroll")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)

	w, _ = s.get(t, "/reports/outstanding.pdf")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.get(t, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
