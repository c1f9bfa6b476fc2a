package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/api/middleware"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/dto"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/president"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/service"
	pkgerrors "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/errors"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	loginResult *dto.TokenResponse
	loginErr    error
	logoutJTI   string
	logoutErr   error
	meResult    *dto.UserResponse
}

func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) Refresh(_ context.Context, _ *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) Logout(_ context.Context, jti string, _ time.Time) error {
	m.logoutJTI = jti
	return m.logoutErr
}
func (m *mockAuthService) Me(_ context.Context, _ model.Actor) (*dto.UserResponse, error) {
	return m.meResult, nil
}
func (m *mockAuthService) ChangePassword(_ context.Context, _ model.Actor, _ *dto.ChangePasswordRequest) error {
	return nil
}

// ── Mock EvaluationService ──

type mockEvaluationService struct {
	submitResult   *model.Evaluation
	submitErr      error
	submitVersion  *int
	submitActor    model.Actor
	listResult     []model.Evaluation
	listTotal      int64
	listErr        error
	transitionRows []dto.TransitionRule
}

func (m *mockEvaluationService) CreateDraft(_ context.Context, _ model.Actor, _ *dto.CreateEvaluationRequest) (*model.Evaluation, error) {
	return nil, nil
}
func (m *mockEvaluationService) SaveContent(_ context.Context, _ model.Actor, _ string, _ *dto.SaveContentRequest) (*model.Evaluation, error) {
	return nil, nil
}
func (m *mockEvaluationService) Submit(_ context.Context, actor model.Actor, _ string, expected *int) (*model.Evaluation, error) {
	m.submitActor = actor
	m.submitVersion = expected
	return m.submitResult, m.submitErr
}
func (m *mockEvaluationService) Unlock(_ context.Context, _ model.Actor, _ string, _ *dto.UnlockRequest) (*model.Evaluation, error) {
	return nil, nil
}
func (m *mockEvaluationService) Get(_ context.Context, _ model.Actor, _ string) (*dto.EvaluationDetail, error) {
	return nil, nil
}
func (m *mockEvaluationService) List(_ context.Context, _ model.Actor, _ *dto.EvaluationListRequest) ([]model.Evaluation, int64, error) {
	return m.listResult, m.listTotal, m.listErr
}
func (m *mockEvaluationService) History(_ context.Context, _ model.Actor, _ string) ([]model.OperationLog, error) {
	return nil, nil
}
func (m *mockEvaluationService) Transitions() []dto.TransitionRule { return m.transitionRows }

// ── Mock UploadService ──

type mockUploadService struct {
	gotIndex int
	gotBody  string
}

func (m *mockUploadService) Init(_ context.Context, _ model.Actor, _ *dto.InitUploadRequest) (*dto.UploadStatusResponse, error) {
	return nil, nil
}
func (m *mockUploadService) PutChunk(_ context.Context, _ model.Actor, uploadID string, index int, r io.Reader) (*dto.UploadStatusResponse, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.gotIndex = index
	m.gotBody = string(b)
	return &dto.UploadStatusResponse{UploadID: uploadID, UploadedChunks: []int{index}}, nil
}
func (m *mockUploadService) Complete(_ context.Context, _ model.Actor, _ string) (*model.Attachment, error) {
	return nil, nil
}
func (m *mockUploadService) Status(_ context.Context, _ model.Actor, _ string) (*dto.UploadStatusResponse, error) {
	return nil, nil
}
func (m *mockUploadService) CleanupExpired(_ context.Context) (int, error) { return 0, nil }

// ── Mock SyncService ──

type mockSyncService struct {
	gotBody     []byte
	gotTaskID   string
	gotChecksum string
	receiveAck  *dto.ReceiveAck
	receiveErr  error
}

func (m *mockSyncService) Start(_ context.Context, _ model.Actor, _ *dto.SyncRequest) (*model.SyncTask, error) {
	return &model.SyncTask{ID: "task-1", Status: model.SyncPending}, nil
}
func (m *mockSyncService) Retry(_ context.Context, _ model.Actor, _ string) (*model.SyncTask, error) {
	return nil, service.ErrSyncNotRetryable
}
func (m *mockSyncService) List(_ context.Context, _ model.Actor, _ *dto.SyncListRequest) ([]model.SyncTask, int64, error) {
	return nil, 0, nil
}
func (m *mockSyncService) Get(_ context.Context, _ model.Actor, _ string) (*model.SyncTask, error) {
	return nil, nil
}
func (m *mockSyncService) Run(_ context.Context, _ string)                {}
func (m *mockSyncService) SweepStale(_ context.Context) (int64, error) { return 0, nil }
func (m *mockSyncService) Receive(_ context.Context, body []byte, taskID, sum string) (*dto.ReceiveAck, error) {
	m.gotBody, m.gotTaskID, m.gotChecksum = body, taskID, sum
	return m.receiveAck, m.receiveErr
}

// ── Mock PublicationService ──

type mockPublicationService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockPublicationService) Publish(_ context.Context, _ model.Actor, _ *dto.PublishRequest) (*model.Publication, error) {
	return nil, nil
}
func (m *mockPublicationService) Distribute(_ context.Context, _ model.Actor, _ string) (*model.Publication, error) {
	return nil, nil
}
func (m *mockPublicationService) List(_ context.Context, _ model.Actor, _ *dto.PaginationRequest) ([]model.Publication, int64, error) {
	return nil, 0, nil
}
func (m *mockPublicationService) Get(_ context.Context, _ model.Actor, _ string) (*model.Publication, error) {
	return nil, nil
}
func (m *mockPublicationService) Export(_ context.Context, _ model.Actor, _ string) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func setupGin() (*gin.Engine, *gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, r := gin.CreateTestContext(w)
	return r, c, w
}

var testActor = model.NewActor("test-user-id", "张主任", model.RoleTeachingOffice, "office-1")

// withActor 模拟 JWT 中间件注入调用方
func withActor(actor model.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextActor, actor)
		c.Set(middleware.ContextTokenJTI, "test-jti")
		c.Set(middleware.ContextTokenExp, time.Now().Add(15*time.Minute))
		c.Next()
	}
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{
		loginResult: &dto.TokenResponse{
			AccessToken:  "test-access-token",
			RefreshToken: "test-refresh-token",
			ExpiresIn:    7200,
		},
	}
	h := NewAuthHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{
		Username: "director",
		Password: "Test1234",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewReader([]byte("invalid json")))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != response.CodeInvalidArgument {
		t.Errorf("expected code %d, got %d", response.CodeInvalidArgument, resp.Code)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{loginErr: service.ErrInvalidCredentials})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{
		Username: "director",
		Password: "wrong",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != response.CodeUnauthorized {
		t.Errorf("expected error code %d, got %d", response.CodeUnauthorized, resp.Code)
	}
	if resp.Message != "用户名或密码错误" {
		t.Errorf("unexpected message: %s", resp.Message)
	}
}

func TestAuthHandler_Login_BodyTooLarge(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	_, _, w := setupGin()
	body := `{"username":"` + strings.Repeat("a", 4096) + `","password":"x"}`
	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = -1 // 未声明长度，由读取时截断

	r := gin.New()
	r.POST("/auth/login", middleware.BodyLimit(1024), h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != response.CodeBodyTooLarge {
		t.Errorf("expected code %d, got %d", response.CodeBodyTooLarge, resp.Code)
	}
}

func TestAuthHandler_Me_Unauthenticated(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/auth/me", nil)

	r := gin.New()
	r.GET("/auth/me", h.Me)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuthHandler_Logout_UsesTokenJTI(t *testing.T) {
	mock := &mockAuthService{}
	h := NewAuthHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/logout", nil)

	r := gin.New()
	r.POST("/auth/logout", withActor(testActor), h.Logout)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.logoutJTI != "test-jti" {
		t.Errorf("expected jti test-jti, got %q", mock.logoutJTI)
	}
}

// ═══════════════════════════════════════════════════════════
// EvaluationHandler Tests
// ═══════════════════════════════════════════════════════════

func TestEvaluationHandler_Submit_EmptyBody(t *testing.T) {
	mock := &mockEvaluationService{submitResult: &model.Evaluation{ID: "e1", Status: model.StatusLocked}}
	h := NewEvaluationHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/evaluations/e1/submit", nil)

	r := gin.New()
	r.POST("/evaluations/:id/submit", withActor(testActor), h.Submit)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if mock.submitVersion != nil {
		t.Errorf("expected nil version, got %d", *mock.submitVersion)
	}
	if mock.submitActor.UserID != testActor.UserID {
		t.Errorf("actor not forwarded: %+v", mock.submitActor)
	}
}

func TestEvaluationHandler_Submit_WithVersion(t *testing.T) {
	mock := &mockEvaluationService{submitResult: &model.Evaluation{ID: "e1"}}
	h := NewEvaluationHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/evaluations/e1/submit", strings.NewReader(`{"version":3}`))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/evaluations/:id/submit", withActor(testActor), h.Submit)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.submitVersion == nil || *mock.submitVersion != 3 {
		t.Errorf("expected version 3, got %v", mock.submitVersion)
	}
}

func TestEvaluationHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"NotFound", service.ErrEvaluationNotFound, 404, response.CodeNotFound},
		{"Forbidden", service.ErrNoCapability, 403, response.CodeForbidden},
		{"InvalidTransition", service.ErrAttachmentLocked, 409, response.CodeInvalidTransition},
		{"OptimisticLock", pkgerrors.ErrOptimisticLock, 409, response.CodeConflict},
		{"InternalError", errors.New("unknown"), 500, response.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewEvaluationHandler(&mockEvaluationService{submitErr: tt.err})

			_, _, w := setupGin()
			req := httptest.NewRequest("POST", "/evaluations/e1/submit", nil)

			r := gin.New()
			r.POST("/evaluations/:id/submit", withActor(testActor), h.Submit)
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			resp := parseResponse(w)
			if resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
			if tt.wantCode == response.CodeInternal && resp.Message == "unknown" {
				t.Error("internal error text must not leak")
			}
		})
	}
}

func TestEvaluationHandler_List_Pagination(t *testing.T) {
	mock := &mockEvaluationService{
		listResult: []model.Evaluation{{ID: "e1"}, {ID: "e2"}},
		listTotal:  12,
	}
	h := NewEvaluationHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/evaluations?page=2&page_size=5", nil)

	r := gin.New()
	r.GET("/evaluations", withActor(testActor), h.List)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data response.PageData `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	p := resp.Data.Pagination
	if p.Page != 2 || p.PageSize != 5 || p.Total != 12 || p.TotalPages != 3 {
		t.Errorf("unexpected pagination: %+v", p)
	}
}

// ═══════════════════════════════════════════════════════════
// UploadHandler Tests
// ═══════════════════════════════════════════════════════════

func TestUploadHandler_PutChunk_RawBody(t *testing.T) {
	mock := &mockUploadService{}
	h := NewUploadHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("PUT", "/uploads/u1/chunks/2", strings.NewReader("89"))

	r := gin.New()
	r.PUT("/uploads/:id/chunks/:index", withActor(testActor), h.PutChunk)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.gotIndex != 2 || mock.gotBody != "89" {
		t.Errorf("unexpected chunk: index=%d body=%q", mock.gotIndex, mock.gotBody)
	}
}

func TestUploadHandler_PutChunk_BadIndex(t *testing.T) {
	h := NewUploadHandler(&mockUploadService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("PUT", "/uploads/u1/chunks/x", strings.NewReader("89"))

	r := gin.New()
	r.PUT("/uploads/:id/chunks/:index", withActor(testActor), h.PutChunk)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// SyncHandler Tests
// ═══════════════════════════════════════════════════════════

func TestSyncHandler_Start_Accepted(t *testing.T) {
	h := NewSyncHandler(&mockSyncService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/sync/tasks", jsonBody(dto.SyncRequest{
		EvaluationIDs: []string{"7d7c2a4e-3a4f-4a3c-9d38-3b1f5f9a2c11"},
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/sync/tasks", withActor(testActor), h.Start)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Errorf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSyncHandler_Retry_NotRetryable(t *testing.T) {
	h := NewSyncHandler(&mockSyncService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/sync/tasks/t1/retry", nil)

	r := gin.New()
	r.POST("/sync/tasks/:id/retry", withActor(testActor), h.Retry)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestSyncHandler_Receive_ForwardsHeaders(t *testing.T) {
	mock := &mockSyncService{receiveAck: &dto.ReceiveAck{Status: "success", Message: "ok", Received: 2}}
	h := NewSyncHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/receive-sync-data", strings.NewReader(`{"sync_task_id":"t1"}`))
	req.Header.Set(president.HeaderTaskID, "t1")
	req.Header.Set(president.HeaderChecksum, "abc")

	r := gin.New()
	r.POST("/receive-sync-data", h.Receive)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.gotTaskID != "t1" || mock.gotChecksum != "abc" || string(mock.gotBody) != `{"sync_task_id":"t1"}` {
		t.Errorf("unexpected forwarding: %q %q %q", mock.gotTaskID, mock.gotChecksum, mock.gotBody)
	}
	var ack dto.ReceiveAck
	json.Unmarshal(w.Body.Bytes(), &ack)
	if ack.Status != "success" || ack.Received != 2 {
		t.Errorf("unexpected ack: %+v", ack)
	}
}

func TestSyncHandler_Receive_ChecksumMismatch(t *testing.T) {
	h := NewSyncHandler(&mockSyncService{
		receiveErr: pkgerrors.New(pkgerrors.ErrChecksumMismatch, "同步数据校验和不一致"),
	})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/receive-sync-data", strings.NewReader(`{}`))

	r := gin.New()
	r.POST("/receive-sync-data", h.Receive)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != response.CodeChecksumMismatch {
		t.Errorf("expected code %d, got %d", response.CodeChecksumMismatch, resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// PublicationHandler Tests
// ═══════════════════════════════════════════════════════════

func TestPublicationHandler_Export_Success(t *testing.T) {
	mock := &mockPublicationService{
		buf:      bytes.NewBufferString("excel content"),
		filename: "评估公示_2025.xlsx",
	}
	h := NewPublicationHandler(mock, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/publications/p1/export", nil)

	r := gin.New()
	r.GET("/publications/:id/export", withActor(testActor), h.Export)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("unexpected content type: %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment;") {
		t.Errorf("unexpected Content-Disposition: %q", cd)
	}
	if w.Body.String() != "excel content" {
		t.Errorf("unexpected body: %q", w.Body.String())
	}
}

func TestPublicationHandler_Export_NotFound(t *testing.T) {
	h := NewPublicationHandler(&mockPublicationService{err: pkgerrors.New(pkgerrors.ErrNotFound, "公示不存在")}, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/publications/p1/export", nil)

	r := gin.New()
	r.GET("/publications/:id/export", withActor(testActor), h.Export)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
