package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/config"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/repository"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/storage"
)

// AttachmentService 附件业务接口
type AttachmentService interface {
	// Upload 直接上传；r 读取完毕即写入对象存储
	Upload(ctx context.Context, actor model.Actor, in UploadInput, r io.Reader) (*model.Attachment, error)
	List(ctx context.Context, actor model.Actor, evaluationID string) ([]model.Attachment, error)
	// Open 返回附件元数据与内容流，流由调用方关闭
	Open(ctx context.Context, actor model.Actor, id string) (*model.Attachment, io.ReadCloser, error)
	Delete(ctx context.Context, actor model.Actor, id string) error
	Reclassify(ctx context.Context, actor model.Actor, id, indicator string) (*model.Attachment, error)
}

// UploadInput 附件元数据
type UploadInput struct {
	EvaluationID string
	Indicator    string
	FileName     string
	FileType     string
	FileSize     int64
}

type attachmentService struct {
	cfg    *config.Config
	repo   *repository.Repository
	store  storage.ObjectStore
	lc     *lifecycle
	logger *zap.Logger
}

// NewAttachmentService 创建 AttachmentService 实例
func NewAttachmentService(cfg *config.Config, repo *repository.Repository, store storage.ObjectStore, logger *zap.Logger) AttachmentService {
	return newAttachmentService(cfg, repo, store, logger)
}

func newAttachmentService(cfg *config.Config, repo *repository.Repository, store storage.ObjectStore, logger *zap.Logger) *attachmentService {
	return &attachmentService{cfg: cfg, repo: repo, store: store, lc: newLifecycle(repo, logger), logger: logger}
}

// editable 附件只在草稿或被驳回时可由本教研室变更
func editable(actor model.Actor, e *model.Evaluation) error {
	if !actor.OwnsOffice(e.TeachingOfficeID) {
		return ErrNotOwner
	}
	if e.Status != model.StatusDraft && e.Status != model.StatusRejected {
		return ErrAttachmentLocked
	}
	return nil
}

// checkFile 校验文件大小、后缀与指标
func (s *attachmentService) checkFile(in *UploadInput) error {
	in.Indicator = model.NormalizeIndicator(in.Indicator)
	if !model.IsKnownIndicator(in.Indicator) {
		return ErrUnknownIndicator
	}
	if s.cfg.Upload.MaxFileSize > 0 && in.FileSize > s.cfg.Upload.MaxFileSize {
		return ErrFileTooLarge
	}
	in.FileName = filepath.Base(strings.ReplaceAll(in.FileName, "\\", "/"))
	if in.FileName == "." || in.FileName == "/" || in.FileName == "" {
		return ErrFileTypeNotAllowed
	}
	if len(s.cfg.Upload.AllowedSuffix) > 0 {
		ext := strings.ToLower(filepath.Ext(in.FileName))
		ok := false
		for _, allowed := range s.cfg.Upload.AllowedSuffix {
			if strings.EqualFold(ext, allowed) {
				ok = true
				break
			}
		}
		if !ok {
			return ErrFileTypeNotAllowed
		}
	}
	if in.FileType == "" {
		in.FileType = "application/octet-stream"
	}
	return nil
}

func (s *attachmentService) Upload(ctx context.Context, actor model.Actor, in UploadInput, r io.Reader) (*model.Attachment, error) {
	if err := s.checkFile(&in); err != nil {
		return nil, err
	}
	e, err := s.lc.load(ctx, s.repo, actor, in.EvaluationID, nil)
	if err != nil {
		return nil, err
	}
	if err := editable(actor, e); err != nil {
		return nil, err
	}
	return s.save(ctx, actor, e, in, r)
}

// save 写入对象存储并登记附件；登记失败时清理已写入的对象
func (s *attachmentService) save(ctx context.Context, actor model.Actor, e *model.Evaluation, in UploadInput, r io.Reader) (*model.Attachment, error) {
	path := fmt.Sprintf("evaluations/%s/%s/%s%s", e.ID, in.Indicator, uuid.NewString(), strings.ToLower(filepath.Ext(in.FileName)))
	meta := map[string]string{
		"evaluation-id": e.ID,
		"indicator":     in.Indicator,
		"uploaded-by":   actor.UserID,
	}
	if err := s.store.Put(ctx, path, r, in.FileType, meta); err != nil {
		s.logger.Error("附件写入对象存储失败", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	a := &model.Attachment{
		EvaluationID: e.ID,
		Indicator:    in.Indicator,
		FileName:     in.FileName,
		FileSize:     in.FileSize,
		FileType:     in.FileType,
		StoragePath:  path,
		ClassifiedBy: model.ClassifiedByUser,
		UploadedBy:   actor.UserID,
	}
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Attachment.Create(ctx, a); err != nil {
			return err
		}
		return appendLog(ctx, tx, actor, model.OpUploadAttachment, model.TargetAttachment, a.ID, map[string]interface{}{
			"evaluation_id": e.ID,
			"indicator":     a.Indicator,
			"file_name":     a.FileName,
			"file_size":     a.FileSize,
		})
	})
	if err != nil {
		if derr := s.store.Delete(ctx, path); derr != nil {
			s.logger.Warn("清理孤立附件对象失败", zap.String("path", path), zap.Error(derr))
		}
		return nil, err
	}
	return a, nil
}

func (s *attachmentService) List(ctx context.Context, actor model.Actor, evaluationID string) ([]model.Attachment, error) {
	if _, err := s.lc.load(ctx, s.repo, actor, evaluationID, nil); err != nil {
		return nil, err
	}
	return s.repo.Attachment.ListByEvaluation(ctx, evaluationID)
}

// get 读取附件并校验所属评估可见
func (s *attachmentService) get(ctx context.Context, actor model.Actor, id string) (*model.Attachment, *model.Evaluation, error) {
	a, err := s.repo.Attachment.GetByID(ctx, id)
	if err != nil {
		return nil, nil, notFound(err, ErrAttachmentNotFound)
	}
	e, err := s.lc.load(ctx, s.repo, actor, a.EvaluationID, nil)
	if err != nil {
		return nil, nil, err
	}
	return a, e, nil
}

func (s *attachmentService) Open(ctx context.Context, actor model.Actor, id string) (*model.Attachment, io.ReadCloser, error) {
	a, _, err := s.get(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Get(ctx, a.StoragePath)
	if err != nil {
		if err == storage.ErrObjectNotFound {
			return nil, nil, ErrAttachmentNotFound
		}
		return nil, nil, err
	}
	return a, rc, nil
}

func (s *attachmentService) Delete(ctx context.Context, actor model.Actor, id string) error {
	a, e, err := s.get(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := editable(actor, e); err != nil {
		return err
	}
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Attachment.Delete(ctx, a.ID); err != nil {
			return notFound(err, ErrAttachmentNotFound)
		}
		return appendLog(ctx, tx, actor, model.OpDeleteAttachment, model.TargetAttachment, a.ID, map[string]interface{}{
			"evaluation_id": a.EvaluationID,
			"file_name":     a.FileName,
		})
	})
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, a.StoragePath); err != nil {
		s.logger.Warn("删除附件对象失败", zap.String("path", a.StoragePath), zap.Error(err))
	}
	return nil
}

// Reclassify 本教研室在可编辑状态下，或评审管理角色在任何时候，可手工调整归类
func (s *attachmentService) Reclassify(ctx context.Context, actor model.Actor, id, indicator string) (*model.Attachment, error) {
	indicator = model.NormalizeIndicator(indicator)
	if !model.IsKnownIndicator(indicator) {
		return nil, ErrUnknownIndicator
	}
	a, e, err := s.get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.Can(model.CapHandleAnomaly) {
		if err := editable(actor, e); err != nil {
			return nil, err
		}
	}
	if a.Indicator == indicator {
		return a, nil
	}

	from := a.Indicator
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Attachment.UpdateIndicator(ctx, a.ID, indicator, model.ClassifiedByUser); err != nil {
			return notFound(err, ErrAttachmentNotFound)
		}
		return appendLog(ctx, tx, actor, model.OpReclassifyAttachment, model.TargetAttachment, a.ID, map[string]interface{}{
			"evaluation_id": a.EvaluationID,
			"from":          from,
			"to":            indicator,
			"classified_by": model.ClassifiedByUser,
		})
	})
	if err != nil {
		return nil, err
	}
	a.Indicator = indicator
	a.ClassifiedBy = model.ClassifiedByUser
	return a, nil
}
