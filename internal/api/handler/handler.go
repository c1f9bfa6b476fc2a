package handler

import "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth        *AuthHandler
	Evaluation  *EvaluationHandler
	Attachment  *AttachmentHandler
	Upload      *UploadHandler
	Scoring     *ScoringHandler
	Approval    *ApprovalHandler
	Publication *PublicationHandler
	Sync        *SyncHandler
	Audit       *AuditHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:        NewAuthHandler(svc.Auth),
		Evaluation:  NewEvaluationHandler(svc.Evaluation),
		Attachment:  NewAttachmentHandler(svc.Attachment),
		Upload:      NewUploadHandler(svc.Upload),
		Scoring:     NewScoringHandler(svc.AIScoring, svc.Anomaly, svc.Scoring),
		Approval:    NewApprovalHandler(svc.Approval),
		Publication: NewPublicationHandler(svc.Publication, svc.Insight),
		Sync:        NewSyncHandler(svc.Sync),
		Audit:       NewAuditHandler(svc.Audit),
	}
}
