package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/config"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/dto"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/president"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/repository"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/testutil"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/worker"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/jwt"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/storage"
)

// ── Fakes ──

type fakeProvider struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
	// block 非空时调用阻塞到通道关闭
	block chan struct{}
	// hook 在返回前执行，用于模拟评分期间的并发修改
	hook func()
}

func (p *fakeProvider) Complete(_ context.Context, _, _ string) (string, error) {
	p.mu.Lock()
	p.calls++
	reply, err, block, hook := p.reply, p.err, p.block, p.hook
	p.mu.Unlock()
	if block != nil {
		<-block
	}
	if hook != nil {
		hook()
	}
	return reply, err
}

func (p *fakeProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeSender struct {
	mu     sync.Mutex
	handle func(taskID, sum string, body []byte) (*president.Ack, error)
	bodies [][]byte
}

func (s *fakeSender) Send(_ context.Context, taskID, sum string, body []byte) (*president.Ack, error) {
	s.mu.Lock()
	s.bodies = append(s.bodies, body)
	handle := s.handle
	s.mu.Unlock()
	if handle == nil {
		return &president.Ack{Status: "success"}, nil
	}
	return handle(taskID, sum, body)
}

func (s *fakeSender) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bodies)
}

// ── Harness ──

type harness struct {
	t      *testing.T
	ctx    context.Context
	cfg    *config.Config
	repo   *repository.Repository
	fx     *testutil.Fixture
	pool   *worker.Pool
	ai     *fakeProvider
	sender *fakeSender
	svc    *Service
	// owner 为空时由 fx.Director 创建与提交评估
	owner *model.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewDB(t)
	repo := repository.NewRepository(db)

	cfg := &config.Config{
		Server: config.ServerConfig{BaseURL: "http://eval.test"},
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret-0123456789",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: time.Hour,
		},
		Sync: config.SyncConfig{StaleAfter: 30 * time.Minute},
		Upload: config.UploadConfig{
			ChunkSize:     4,
			MaxFileSize:   1 << 20,
			SessionTTL:    time.Hour,
			TempDir:       t.TempDir(),
			AllowedSuffix: []string{".pdf", ".docx"},
		},
	}
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("创建本地存储失败: %v", err)
	}
	pool := worker.NewPool(2, time.Minute, zap.NewNop())
	t.Cleanup(func() { _ = pool.Shutdown(context.Background()) })

	h := &harness{
		t:      t,
		ctx:    context.Background(),
		cfg:    cfg,
		repo:   repo,
		fx:     testutil.Seed(t, db),
		pool:   pool,
		ai:     &fakeProvider{},
		sender: &fakeSender{},
	}
	h.svc = NewService(Deps{
		Config:    cfg,
		Repo:      repo,
		JWT:       jwt.NewManager(&cfg.Auth),
		Store:     store,
		AI:        h.ai,
		President: h.sender,
		Pool:      pool,
		Logger:    zap.NewNop(),
	})
	return h
}

func (h *harness) actor(u *model.User) model.Actor { return testutil.Actor(u) }

func (h *harness) director() *model.User {
	if h.owner != nil {
		return h.owner
	}
	return h.fx.Director
}

// otherDirector 为第二个教研室创建主任账号
func (h *harness) otherDirector() *model.User {
	h.t.Helper()
	u := &model.User{
		Username:         "director2",
		Name:             "陈主任",
		Role:             model.RoleTeachingOffice,
		TeachingOfficeID: &h.fx.Other.ID,
		PasswordHash:     "x",
	}
	if err := h.repo.User.Create(h.ctx, u); err != nil {
		h.t.Fatalf("创建第二位主任失败: %v", err)
	}
	return u
}

func highlightItems(n int) []map[string]interface{} {
	out := make([]map[string]interface{}, n)
	for i := range out {
		out[i] = map[string]interface{}{"name": fmt.Sprintf("项目%d", i+1), "level": "省级", "score": 2}
	}
	return out
}

// content 最小自评内容：声明 reform 个教改项目、honors 个教学荣誉
func content(reform, honors int) json.RawMessage {
	raw, _ := json.Marshal(map[string]interface{}{
		"schemaVersion": 1,
		"regularTeaching": map[string]interface{}{
			model.IndicatorCourseConstruct: map[string]interface{}{"content": "建设两门一流课程", "selfScore": 8, "maxScore": 10},
		},
		"highlights": map[string]interface{}{
			"reformProjects": highlightItems(reform),
			"honors":         highlightItems(honors),
		},
	})
	return raw
}

// aiReply 设置模型返回：解析出的教改项目与荣誉数量，以及附件归类（文件名=指标）
func (h *harness) aiReply(total float64, reform, honors int, classes ...string) {
	var cls []map[string]string
	for _, c := range classes {
		parts := strings.SplitN(c, "=", 2)
		cls = append(cls, map[string]string{"file_name": parts[0], "indicator": parts[1]})
	}
	raw, _ := json.Marshal(map[string]interface{}{
		"total_score": total,
		"indicator_scores": []map[string]interface{}{
			{"indicator": "课程建设", "score": 8, "max_score": 10},
			{"indicator": model.IndicatorTeachingProcess, "score": 9, "max_score": 10},
		},
		"parsed_reform_projects":     reform,
		"parsed_honors":              honors,
		"parsed_competitions":        0,
		"parsed_innovations":         0,
		"attachment_classifications": cls,
	})
	h.ai.reply = "好的，评分结果如下：\n" + string(raw)
	h.ai.err = nil
}

func (h *harness) draft(reform, honors int) *model.Evaluation {
	h.t.Helper()
	e, err := h.svc.Evaluation.CreateDraft(h.ctx, h.actor(h.director()), &dto.CreateEvaluationRequest{
		Year:    2024,
		Content: content(reform, honors),
	})
	if err != nil {
		h.t.Fatalf("创建草稿失败: %v", err)
	}
	return e
}

func (h *harness) submitted(reform, honors int) *model.Evaluation {
	h.t.Helper()
	e := h.draft(reform, honors)
	e, err := h.svc.Evaluation.Submit(h.ctx, h.actor(h.director()), e.ID, nil)
	if err != nil {
		h.t.Fatalf("提交失败: %v", err)
	}
	return e
}

// scoreAI 触发 AI 评分并等待后台任务结束
func (h *harness) scoreAI(e *model.Evaluation) *model.AIScoringTask {
	h.t.Helper()
	task, err := h.svc.AIScoring.Trigger(h.ctx, h.actor(h.fx.Team), e.ID, nil)
	if err != nil {
		h.t.Fatalf("触发 AI 评分失败: %v", err)
	}
	h.pool.Wait()
	task, err = h.repo.AITask.GetByID(h.ctx, task.ID)
	if err != nil {
		h.t.Fatalf("读取 AI 评分任务失败: %v", err)
	}
	return task
}

func (h *harness) manual(u *model.User, e *model.Evaluation, scores ...float64) {
	h.t.Helper()
	keys := model.RegularIndicators
	in := make([]dto.IndicatorScoreInput, len(scores))
	for i, sc := range scores {
		in[i] = dto.IndicatorScoreInput{Indicator: keys[i], Score: sc}
	}
	if _, err := h.svc.Scoring.SubmitManual(h.ctx, h.actor(u), e.ID, &dto.ManualScoreRequest{Scores: in}); err != nil {
		h.t.Fatalf("提交人工评分失败: %v", err)
	}
}

// finalized 走完 提交 → AI 评分 → 两位评审 → 确定最终得分
func (h *harness) finalized(final float64) *model.Evaluation {
	h.t.Helper()
	e := h.submitted(2, 2)
	h.aiReply(78.5, 2, 2)
	if task := h.scoreAI(e); task.Status != model.AITaskCompleted {
		h.t.Fatalf("AI 评分应成功，实际状态 %s", task.Status)
	}
	h.manual(h.fx.Team, e, 40, 40)
	h.manual(h.fx.Office2, e, 40, 40)
	if _, err := h.svc.Scoring.Finalize(h.ctx, h.actor(h.fx.Office2), e.ID, &dto.FinalizeRequest{FinalScore: final, Summary: "综合良好"}); err != nil {
		h.t.Fatalf("确定最终得分失败: %v", err)
	}
	return h.reload(e.ID)
}

func (h *harness) reload(id string) *model.Evaluation {
	h.t.Helper()
	e, err := h.repo.Evaluation.GetByID(h.ctx, id)
	if err != nil {
		h.t.Fatalf("读取评估失败: %v", err)
	}
	return e
}

func (h *harness) expectStatus(id string, want model.EvaluationStatus) *model.Evaluation {
	h.t.Helper()
	e := h.reload(id)
	if e.Status != want {
		h.t.Fatalf("期望状态 %s，实际 %s", want, e.Status)
	}
	return e
}

func (h *harness) logs(targetType, targetID string) []model.OperationLog {
	h.t.Helper()
	list, err := h.repo.OperationLog.ListByTarget(h.ctx, targetType, targetID)
	if err != nil {
		h.t.Fatalf("读取审计日志失败: %v", err)
	}
	return list
}

func intPtr(v int) *int { return &v }
