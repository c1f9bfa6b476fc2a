package service

import (
	"go.uber.org/zap"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/config"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/ai"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/president"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/repository"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/worker"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/jwt"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/redis"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/storage"
)

// Deps Service 层依赖；Redis 可为空（登出时令牌注销降级为无操作）
type Deps struct {
	Config    *config.Config
	Repo      *repository.Repository
	JWT       *jwt.Manager
	Redis     *redis.Client
	Store     storage.ObjectStore
	AI        ai.Provider
	President president.Sender
	Pool      *worker.Pool
	Logger    *zap.Logger
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth        AuthService
	Evaluation  EvaluationService
	Attachment  AttachmentService
	Upload      UploadService
	AIScoring   AIScoringService
	Anomaly     AnomalyService
	Scoring     ScoringService
	Approval    ApprovalService
	Publication PublicationService
	Insight     InsightService
	Sync        SyncService
	Audit       AuditService
}

// NewService 创建 Service 聚合
func NewService(d Deps) *Service {
	return &Service{
		Auth:        NewAuthService(d.Config, d.Repo, d.JWT, d.Redis, d.Logger),
		Evaluation:  NewEvaluationService(d.Repo, d.Logger),
		Attachment:  NewAttachmentService(d.Config, d.Repo, d.Store, d.Logger),
		Upload:      NewUploadService(d.Config, d.Repo, d.Store, d.Logger),
		AIScoring:   NewAIScoringService(d.Repo, d.AI, d.Pool, d.Logger),
		Anomaly:     NewAnomalyService(d.Repo, d.Logger),
		Scoring:     NewScoringService(d.Repo, d.Logger),
		Approval:    NewApprovalService(d.Repo, d.Logger),
		Publication: NewPublicationService(d.Repo, d.Logger),
		Insight:     NewInsightService(d.Repo, d.Logger),
		Sync:        NewSyncService(d.Config, d.Repo, d.President, d.Pool, d.Logger),
		Audit:       NewAuditService(d.Repo, d.Logger),
	}
}
