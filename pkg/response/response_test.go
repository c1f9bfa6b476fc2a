package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	pkgerrors "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
		wantMsg    string
	}{
		{"业务错误", pkgerrors.New(pkgerrors.ErrScoreOutOfRange, "最终得分超出范围"), 422, CodeScoreOutOfRange, "最终得分超出范围"},
		{"包装后的业务错误", fmt.Errorf("finalize: %w", pkgerrors.New(pkgerrors.ErrForbidden, "无权限")), 403, CodeForbidden, "无权限"},
		{"乐观锁", pkgerrors.ErrOptimisticLock, 409, CodeConflict, "数据已被其他操作修改，请刷新后重试"},
		{"记录不存在", gorm.ErrRecordNotFound, 404, CodeNotFound, pkgerrors.ErrNotFound.Error()},
		{"唯一约束", gorm.ErrDuplicatedKey, 409, CodeConflict, pkgerrors.ErrConflict.Error()},
		{"临时故障", pkgerrors.Wrap(pkgerrors.ErrTransient, "AI 服务暂不可用", errors.New("dial tcp: timeout")), 503, CodeTransient, "AI 服务暂不可用"},
		{"未知错误", errors.New("pq: connection refused"), 500, CodeInternal, "服务器内部错误"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			FromError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp Response
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantMsg, resp.Message)
		})
	}
}

func TestOKPage_TotalPages(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	OKPage(c, []int{1, 2}, 41, 1, 20)

	var resp struct {
		Data PageData `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Data.Pagination.TotalPages)
	assert.EqualValues(t, 41, resp.Data.Pagination.Total)
}

func TestAccepted(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Accepted(c, gin.H{"task_id": "t1"})
	assert.Equal(t, http.StatusAccepted, w.Code)
}
