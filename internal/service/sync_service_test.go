package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/dto"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/president"
	pkgerrors "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/errors"
)

// receiveLoopback 发送端直接把请求交给本服务的接收端
func (h *harness) receiveLoopback() {
	h.sender.handle = func(taskID, sum string, body []byte) (*president.Ack, error) {
		ack, err := h.svc.Sync.Receive(context.Background(), body, taskID, sum)
		if err != nil {
			return nil, err
		}
		return &president.Ack{Status: ack.Status, Message: ack.Message, Received: ack.Received}, nil
	}
}

func (h *harness) startSync(ids ...string) *model.SyncTask {
	h.t.Helper()
	task, err := h.svc.Sync.Start(h.ctx, h.actor(h.fx.Office2), &dto.SyncRequest{EvaluationIDs: ids})
	require.NoError(h.t, err)
	h.pool.Wait()
	task, err = h.repo.SyncTask.GetByID(h.ctx, task.ID)
	require.NoError(h.t, err)
	return task
}

func TestSync_CompletedAndIngested(t *testing.T) {
	h := newHarness(t)
	h.receiveLoopback()
	e := h.finalized(80)

	task := h.startSync(e.ID)
	require.Equal(t, model.SyncCompleted, task.Status, "error: %v", task.ErrorMessage)
	assert.Equal(t, 1, task.SyncedCount)
	assert.Equal(t, 0, task.FailedCount)
	require.NotNil(t, task.Checksum)
	assert.Len(t, *task.Checksum, 64)
	assert.NotEmpty(t, task.SyncData)
	assert.NotNil(t, task.CompletedAt)

	ingest := h.logs(model.TargetSyncTask, task.ID)
	var ops []string
	for _, l := range ingest {
		ops = append(ops, l.OperationType)
	}
	assert.Contains(t, ops, model.OpSync)
	assert.Contains(t, ops, model.OpSyncIngest)

	// 同步不改变评估状态
	h.expectStatus(e.ID, model.StatusFinalized)
}

func TestSync_TamperedPayloadRejected(t *testing.T) {
	h := newHarness(t)
	first := h.finalized(80)
	h.owner = h.otherDirector()
	second := h.finalized(80)
	h.owner = nil

	var receiveErr error
	h.sender.handle = func(taskID, sum string, body []byte) (*president.Ack, error) {
		// 只改动第一个评估的自评内容
		tampered := bytes.Replace(body, []byte("建设两门一流课程"), []byte("建设三门一流课程"), 1)
		if bytes.Equal(tampered, body) {
			t.Error("数据包中应包含自评内容")
		}
		_, receiveErr = h.svc.Sync.Receive(context.Background(), tampered, taskID, sum)
		return nil, receiveErr
	}

	task := h.startSync(first.ID, second.ID)
	require.Error(t, receiveErr)
	assert.True(t, errors.Is(receiveErr, pkgerrors.ErrChecksumMismatch))

	assert.Equal(t, model.SyncFailed, task.Status)
	assert.Equal(t, 2, task.TotalCount)
	assert.Equal(t, 1, task.RetryCount)
	assert.Equal(t, 2, task.FailedCount)
	require.NotNil(t, task.ErrorMessage)
	assert.Contains(t, *task.ErrorMessage, "校验和")

	for _, l := range h.logs(model.TargetSyncTask, task.ID) {
		assert.NotEqual(t, model.OpSyncIngest, l.OperationType, "校验失败不应写入接收日志")
	}

	// 未篡改的数据包可以通过校验
	require.Len(t, h.sender.bodies, 1)
	ack, err := h.svc.Sync.Receive(h.ctx, h.sender.bodies[0], task.ID, *task.Checksum)
	require.NoError(t, err)
	assert.Equal(t, 2, ack.Received)
}

func TestSync_RetryOnlyFailed(t *testing.T) {
	h := newHarness(t)
	e := h.finalized(80)
	office := h.actor(h.fx.Office2)

	h.sender.handle = func(string, string, []byte) (*president.Ack, error) {
		return nil, pkgerrors.New(pkgerrors.ErrTransient, "校长办公会系统暂不可用")
	}
	task := h.startSync(e.ID)
	require.Equal(t, model.SyncFailed, task.Status)
	assert.Equal(t, 1, task.RetryCount)

	h.sender.handle = nil
	_, err := h.svc.Sync.Retry(h.ctx, office, task.ID)
	require.NoError(t, err)
	h.pool.Wait()

	task, err = h.repo.SyncTask.GetByID(h.ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SyncCompleted, task.Status)
	assert.Equal(t, 1, task.RetryCount, "成功的重试不增加失败次数")
	assert.Nil(t, task.ErrorMessage)
	assert.Equal(t, 2, h.sender.Calls())

	_, err = h.svc.Sync.Retry(h.ctx, office, task.ID)
	assert.ErrorIs(t, err, ErrSyncNotRetryable)
}

func TestSync_AckFailureMarksFailed(t *testing.T) {
	h := newHarness(t)
	e := h.finalized(80)
	h.sender.handle = func(string, string, []byte) (*president.Ack, error) {
		return &president.Ack{Status: "error", Message: "拒收"}, nil
	}

	task := h.startSync(e.ID)
	assert.Equal(t, model.SyncFailed, task.Status)
	require.NotNil(t, task.ErrorMessage)
	assert.Contains(t, *task.ErrorMessage, "拒收")
}

func TestSync_StartRequiresFinalScore(t *testing.T) {
	h := newHarness(t)
	e := h.submitted(1, 1)

	_, err := h.svc.Sync.Start(h.ctx, h.actor(h.fx.Office2), &dto.SyncRequest{EvaluationIDs: []string{e.ID}})
	assert.ErrorIs(t, err, ErrMissingFinalScore)

	_, err = h.svc.Sync.Start(h.ctx, h.actor(h.fx.Office2), &dto.SyncRequest{EvaluationIDs: []string{"00000000-0000-0000-0000-000000000000"}})
	assert.ErrorIs(t, err, ErrEvaluationNotFound)

	_, err = h.svc.Sync.Start(h.ctx, h.actor(h.fx.Team), &dto.SyncRequest{EvaluationIDs: []string{e.ID}})
	assert.ErrorIs(t, err, pkgerrors.ErrForbidden)
	assert.Equal(t, 0, h.sender.Calls())
}

func TestSync_SweepStale(t *testing.T) {
	h := newHarness(t)
	old := &model.SyncTask{
		EvaluationIDs: datatypes.NewJSONSlice([]string{"a"}),
		Status:        model.SyncSyncing,
		TotalCount:    1,
		StartedAt:     time.Now().UTC().Add(-time.Hour),
		CreatedBy:     h.fx.Office2.ID,
	}
	fresh := &model.SyncTask{
		EvaluationIDs: datatypes.NewJSONSlice([]string{"b"}),
		Status:        model.SyncSyncing,
		TotalCount:    1,
		CreatedBy:     h.fx.Office2.ID,
	}
	require.NoError(t, h.repo.SyncTask.Create(h.ctx, old))
	require.NoError(t, h.repo.SyncTask.Create(h.ctx, fresh))

	n, err := h.svc.Sync.SweepStale(h.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := h.repo.SyncTask.GetByID(h.ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SyncFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Contains(t, *got.ErrorMessage, "超时")

	// 放弃后的任务不再接受迟到的结果
	h.svc.Sync.Run(h.ctx, old.ID)
	got, err = h.repo.SyncTask.GetByID(h.ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SyncFailed, got.Status)

	got, err = h.repo.SyncTask.GetByID(h.ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SyncSyncing, got.Status)
}

func TestSync_ListAndGet(t *testing.T) {
	h := newHarness(t)
	e := h.finalized(80)
	task := h.startSync(e.ID)

	list, total, err := h.svc.Sync.List(h.ctx, h.actor(h.fx.Office2), &dto.SyncListRequest{Status: string(model.SyncCompleted)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, task.ID, list[0].ID)

	_, err = h.svc.Sync.Get(h.ctx, h.actor(h.fx.President), task.ID)
	assert.ErrorIs(t, err, pkgerrors.ErrForbidden)

	_, err = h.svc.Sync.Get(h.ctx, h.actor(h.fx.Office2), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrSyncTaskNotFound)
}
