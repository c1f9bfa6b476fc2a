package service

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/dto"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	pkgerrors "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/errors"
)

const uploadBody = "0123456789" // 4 + 4 + 2

func (h *harness) initUpload(e *model.Evaluation) *dto.UploadStatusResponse {
	h.t.Helper()
	st, err := h.svc.Upload.Init(h.ctx, h.actor(h.fx.Director), &dto.InitUploadRequest{
		EvaluationID: e.ID,
		Indicator:    model.IndicatorReformProjects,
		FileName:     "教改结题报告.pdf",
		FileSize:     int64(len(uploadBody)),
		FileType:     "application/pdf",
	})
	require.NoError(h.t, err)
	return st
}

func (h *harness) putChunk(uploadID string, index int, data string) (*dto.UploadStatusResponse, error) {
	return h.svc.Upload.PutChunk(h.ctx, h.actor(h.fx.Director), uploadID, index, strings.NewReader(data))
}

func TestUpload_ChunksAssembleInOrder(t *testing.T) {
	h := newHarness(t)
	e := h.draft(1, 0)
	director := h.actor(h.fx.Director)

	st := h.initUpload(e)
	assert.Equal(t, 3, st.TotalChunks)
	assert.EqualValues(t, 4, st.ChunkSize)
	assert.Empty(t, st.UploadedChunks)

	// 乱序上传
	_, err := h.putChunk(st.UploadID, 2, "89")
	require.NoError(t, err)
	_, err = h.putChunk(st.UploadID, 0, "0123")
	require.NoError(t, err)

	_, err = h.svc.Upload.Complete(h.ctx, director, st.UploadID)
	assert.ErrorIs(t, err, ErrUploadIncomplete)

	st, err = h.putChunk(st.UploadID, 1, "4567")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, st.UploadedChunks)

	a, err := h.svc.Upload.Complete(h.ctx, director, st.UploadID)
	require.NoError(t, err)
	assert.Equal(t, "教改结题报告.pdf", a.FileName)
	assert.EqualValues(t, len(uploadBody), a.FileSize)
	assert.Equal(t, model.IndicatorReformProjects, a.Indicator)

	_, rc, err := h.svc.Attachment.Open(h.ctx, director, a.ID)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, uploadBody, string(got))

	// 会话与分片目录均已清理
	_, err = h.svc.Upload.Status(h.ctx, director, st.UploadID)
	assert.ErrorIs(t, err, ErrUploadNotFound)
	_, err = os.Stat(filepath.Join(h.cfg.Upload.TempDir, st.UploadID))
	assert.True(t, os.IsNotExist(err))

	list, err := h.svc.Attachment.List(h.ctx, director, e.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpload_RepeatedChunkIsNoop(t *testing.T) {
	h := newHarness(t)
	st := h.initUpload(h.draft(1, 0))

	_, err := h.putChunk(st.UploadID, 0, "0123")
	require.NoError(t, err)
	// 重传内容不同也不会覆盖已接收分片
	again, err := h.putChunk(st.UploadID, 0, "xxxx")
	require.NoError(t, err)
	assert.Equal(t, []int{0}, again.UploadedChunks)

	data, err := os.ReadFile(filepath.Join(h.cfg.Upload.TempDir, st.UploadID, chunkName(0)))
	require.NoError(t, err)
	assert.Equal(t, "0123", string(data))
}

func TestUpload_ChunkValidation(t *testing.T) {
	h := newHarness(t)
	st := h.initUpload(h.draft(1, 0))

	_, err := h.putChunk(st.UploadID, 3, "xx")
	assert.ErrorIs(t, err, ErrChunkOutOfRange)
	_, err = h.putChunk(st.UploadID, -1, "xx")
	assert.ErrorIs(t, err, ErrChunkOutOfRange)

	_, err = h.putChunk(st.UploadID, 0, "012")
	assert.ErrorIs(t, err, ErrChunkSizeMismatch)
	_, err = h.putChunk(st.UploadID, 2, "890")
	assert.ErrorIs(t, err, ErrChunkSizeMismatch)

	st, err = h.svc.Upload.Status(h.ctx, h.actor(h.fx.Director), st.UploadID)
	require.NoError(t, err)
	assert.Empty(t, st.UploadedChunks)

	// 其他用户不能操作该会话
	_, err = h.svc.Upload.PutChunk(h.ctx, h.actor(h.fx.Team), st.UploadID, 0, strings.NewReader("0123"))
	assert.ErrorIs(t, err, pkgerrors.ErrForbidden)
}

func TestUpload_InitValidation(t *testing.T) {
	h := newHarness(t)
	e := h.draft(1, 0)
	director := h.actor(h.fx.Director)

	cases := []struct {
		name string
		req  dto.InitUploadRequest
		want error
	}{
		{"超过大小", dto.InitUploadRequest{Indicator: model.IndicatorHonors, FileName: "a.pdf", FileSize: 2 << 20}, ErrFileTooLarge},
		{"不允许的类型", dto.InitUploadRequest{Indicator: model.IndicatorHonors, FileName: "a.exe", FileSize: 10}, ErrFileTypeNotAllowed},
		{"未知指标", dto.InitUploadRequest{Indicator: "unknown", FileName: "a.pdf", FileSize: 10}, ErrUnknownIndicator},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.req.EvaluationID = e.ID
			_, err := h.svc.Upload.Init(h.ctx, director, &tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := h.svc.Evaluation.Submit(h.ctx, director, e.ID, nil)
	require.NoError(t, err)
	_, err = h.svc.Upload.Init(h.ctx, director, &dto.InitUploadRequest{
		EvaluationID: e.ID, Indicator: model.IndicatorHonors, FileName: "a.pdf", FileSize: 10,
	})
	assert.ErrorIs(t, err, ErrAttachmentLocked)
}

func TestUpload_CompleteAfterSubmitRejected(t *testing.T) {
	h := newHarness(t)
	e := h.draft(1, 0)
	director := h.actor(h.fx.Director)
	st := h.initUpload(e)
	for i, part := range []string{"0123", "4567", "89"} {
		_, err := h.putChunk(st.UploadID, i, part)
		require.NoError(t, err)
	}

	_, err := h.svc.Evaluation.Submit(h.ctx, director, e.ID, nil)
	require.NoError(t, err)

	_, err = h.svc.Upload.Complete(h.ctx, director, st.UploadID)
	assert.ErrorIs(t, err, ErrAttachmentLocked)

	st, err = h.svc.Upload.Status(h.ctx, director, st.UploadID)
	require.NoError(t, err)
	assert.Equal(t, string(model.UploadInProgress), st.Status)
}

func TestUpload_CleanupExpired(t *testing.T) {
	h := newHarness(t)
	e := h.draft(1, 0)
	live := h.initUpload(e)

	stale := &model.UploadSession{
		EvaluationID: e.ID,
		Indicator:    model.IndicatorHonors,
		FileName:     "old.pdf",
		FileSize:     4,
		FileType:     "application/pdf",
		ChunkSize:    4,
		TotalChunks:  1,
		CreatedBy:    h.fx.Director.ID,
		ExpiresAt:    time.Now().UTC().Add(-time.Minute),
		CreatedAt:    time.Now().UTC().Add(-2 * time.Hour),
	}
	require.NoError(t, h.repo.Upload.CreateSession(h.ctx, stale))
	staleDir := filepath.Join(h.cfg.Upload.TempDir, stale.ID)
	require.NoError(t, os.MkdirAll(staleDir, 0o755))

	_, err := h.svc.Upload.Status(h.ctx, h.actor(h.fx.Director), stale.ID)
	assert.ErrorIs(t, err, ErrUploadNotFound, "过期会话视为不存在")

	n, err := h.svc.Upload.CleanupExpired(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = h.repo.Upload.GetSession(h.ctx, stale.ID)
	assert.Error(t, err)
	_, err = os.Stat(staleDir)
	assert.True(t, os.IsNotExist(err))

	_, err = h.svc.Upload.Status(h.ctx, h.actor(h.fx.Director), live.UploadID)
	assert.NoError(t, err)
}
