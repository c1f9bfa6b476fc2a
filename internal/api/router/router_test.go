package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/config"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/api/handler"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/jwt"
)

func testConfig(receiver bool) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			MaxBodyBytes:    1024,
			ReceiverEnabled: receiver,
			CORS:            config.CORSConfig{AllowOrigins: []string{"http://localhost:5173"}},
		},
		Auth: config.AuthConfig{
			JWTSecret:       "router-test-secret-0123456789",
			AccessTokenTTL:  time.Minute,
			RefreshTokenTTL: time.Hour,
		},
		Upload: config.UploadConfig{MaxFileSize: 4096},
	}
}

// 以下用例均在到达 Handler 之前被中间件拦截，Handler 可为空
func setup(receiver bool) (http.Handler, *jwt.Manager) {
	cfg := testConfig(receiver)
	mgr := jwt.NewManager(&cfg.Auth)
	return Setup(cfg, &handler.Handler{}, mgr, nil, zap.NewNop()), mgr
}

func do(r http.Handler, method, path, token string, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestSetup_HealthAndMetrics(t *testing.T) {
	r, _ := setup(false)

	w := do(r, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = do(r, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetup_ReceiverMountedOnlyWhenEnabled(t *testing.T) {
	r, _ := setup(false)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/receive-sync-data", "", "{}").Code)

	r, _ = setup(true)
	assert.Equal(t, http.StatusRequestEntityTooLarge,
		do(r, http.MethodPost, "/receive-sync-data", "", strings.Repeat("x", 2048)).Code,
		"接收端已挂载且受请求体上限约束")
}

func TestSetup_CapabilityGating(t *testing.T) {
	r, mgr := setup(false)
	director, _ := mgr.GenerateAccessToken(jwt.Subject{UserID: "u1", Role: string(model.RoleTeachingOffice), TeachingOfficeID: "o1"})
	team, _ := mgr.GenerateAccessToken(jwt.Subject{UserID: "u2", Role: string(model.RoleEvaluationTeam)})

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"未认证", http.MethodGet, "/api/v1/evaluations", "", http.StatusUnauthorized},
		{"教研室不能审定", http.MethodPost, "/api/v1/approvals/approve", director, http.StatusForbidden},
		{"教研室不能同步", http.MethodPost, "/api/v1/sync/tasks", director, http.StatusForbidden},
		{"教研室不能查看审计日志", http.MethodGet, "/api/v1/operation-logs", director, http.StatusForbidden},
		{"考评小组不能确定最终得分", http.MethodPost, "/api/v1/evaluations/e1/final-score", team, http.StatusForbidden},
		{"考评小组不能公示", http.MethodPost, "/api/v1/publications", team, http.StatusForbidden},
		{"考评小组不能上传附件", http.MethodPut, "/api/v1/uploads/u1/chunks/0", team, http.StatusForbidden},
		{"教研室不能解锁", http.MethodPost, "/api/v1/evaluations/e1/unlock", director, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, tc.method, tc.path, tc.token, "{}")
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func TestSetup_BodyLimitPerGroup(t *testing.T) {
	r, mgr := setup(false)
	director, _ := mgr.GenerateAccessToken(jwt.Subject{UserID: "u1", Role: string(model.RoleTeachingOffice), TeachingOfficeID: "o1"})

	big := strings.Repeat("x", 2048)
	assert.Equal(t, http.StatusRequestEntityTooLarge, do(r, http.MethodPost, "/api/v1/auth/login", "", big).Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge, do(r, http.MethodPut, "/api/v1/evaluations/e1/content", director, big).Code)

	// 文件类请求上限为单文件上限加表单开销
	huge := strings.Repeat("x", 4096+multipartOverhead+1)
	assert.Equal(t, http.StatusRequestEntityTooLarge, do(r, http.MethodPut, "/api/v1/uploads/u1/chunks/0", director, huge).Code)
}
