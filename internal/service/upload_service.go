package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/config"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/dto"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/repository"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/storage"
)

// UploadService 分片上传业务接口：init → chunk → complete / status
type UploadService interface {
	Init(ctx context.Context, actor model.Actor, req *dto.InitUploadRequest) (*dto.UploadStatusResponse, error)
	// PutChunk 重复上传已接收的分片为无操作
	PutChunk(ctx context.Context, actor model.Actor, uploadID string, index int, r io.Reader) (*dto.UploadStatusResponse, error)
	Complete(ctx context.Context, actor model.Actor, uploadID string) (*model.Attachment, error)
	Status(ctx context.Context, actor model.Actor, uploadID string) (*dto.UploadStatusResponse, error)
	// CleanupExpired 删除过期会话及其分片目录，返回清理数量
	CleanupExpired(ctx context.Context) (int, error)
}

type uploadService struct {
	cfg    *config.Config
	repo   *repository.Repository
	att    *attachmentService
	logger *zap.Logger
}

// NewUploadService 创建 UploadService 实例
func NewUploadService(cfg *config.Config, repo *repository.Repository, store storage.ObjectStore, logger *zap.Logger) UploadService {
	return &uploadService{
		cfg:    cfg,
		repo:   repo,
		att:    newAttachmentService(cfg, repo, store, logger),
		logger: logger,
	}
}

func (s *uploadService) spoolDir(uploadID string) string {
	return filepath.Join(s.cfg.Upload.TempDir, uploadID)
}

func chunkName(index int) string {
	return fmt.Sprintf("chunk-%06d", index)
}

// expectedSize 第 index 个分片应有的字节数；最后一片可不足 chunk_size
func expectedSize(sess *model.UploadSession, index int) int64 {
	if index == sess.TotalChunks-1 {
		return sess.FileSize - int64(sess.TotalChunks-1)*sess.ChunkSize
	}
	return sess.ChunkSize
}

func (s *uploadService) Init(ctx context.Context, actor model.Actor, req *dto.InitUploadRequest) (*dto.UploadStatusResponse, error) {
	in := UploadInput{
		EvaluationID: req.EvaluationID,
		Indicator:    req.Indicator,
		FileName:     req.FileName,
		FileType:     req.FileType,
		FileSize:     req.FileSize,
	}
	if err := s.att.checkFile(&in); err != nil {
		return nil, err
	}
	e, err := s.att.lc.load(ctx, s.repo, actor, in.EvaluationID, nil)
	if err != nil {
		return nil, err
	}
	if err := editable(actor, e); err != nil {
		return nil, err
	}

	chunkSize := req.ChunkSize
	if chunkSize <= 0 {
		chunkSize = s.cfg.Upload.ChunkSize
	}
	total := int((in.FileSize + chunkSize - 1) / chunkSize)

	now := time.Now().UTC()
	sess := &model.UploadSession{
		EvaluationID: e.ID,
		Indicator:    in.Indicator,
		FileName:     in.FileName,
		FileSize:     in.FileSize,
		FileType:     in.FileType,
		ChunkSize:    chunkSize,
		TotalChunks:  total,
		Status:       model.UploadInProgress,
		CreatedBy:    actor.UserID,
		ExpiresAt:    now.Add(s.cfg.Upload.SessionTTL),
		CreatedAt:    now,
	}
	if err := s.repo.Upload.CreateSession(ctx, sess); err != nil {
		s.logger.Error("创建上传会话失败", zap.Error(err))
		return nil, err
	}
	if err := os.MkdirAll(s.spoolDir(sess.ID), 0o755); err != nil {
		_ = s.repo.Upload.DeleteSession(ctx, sess.ID)
		return nil, err
	}
	return toUploadStatus(sess, nil), nil
}

// session 读取会话并校验归属与有效期
func (s *uploadService) session(ctx context.Context, actor model.Actor, uploadID string) (*model.UploadSession, error) {
	sess, err := s.repo.Upload.GetSession(ctx, uploadID)
	if err != nil {
		return nil, notFound(err, ErrUploadNotFound)
	}
	if sess.CreatedBy != actor.UserID {
		return nil, ErrNotUploadUser
	}
	if time.Now().UTC().After(sess.ExpiresAt) {
		return nil, ErrUploadNotFound
	}
	return sess, nil
}

func (s *uploadService) PutChunk(ctx context.Context, actor model.Actor, uploadID string, index int, r io.Reader) (*dto.UploadStatusResponse, error) {
	sess, err := s.session(ctx, actor, uploadID)
	if err != nil {
		return nil, err
	}
	if sess.Status != model.UploadInProgress {
		return nil, ErrUploadClosed
	}
	if index < 0 || index >= sess.TotalChunks {
		return nil, ErrChunkOutOfRange
	}

	received, err := s.repo.Upload.ListChunkIndexes(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	for _, i := range received {
		if i == index {
			_, _ = io.Copy(io.Discard, r)
			return toUploadStatus(sess, received), nil
		}
	}

	want := expectedSize(sess, index)
	n, err := s.spool(sess.ID, index, io.LimitReader(r, want+1))
	if err != nil {
		return nil, err
	}
	if n != want {
		_ = os.Remove(filepath.Join(s.spoolDir(sess.ID), chunkName(index)))
		return nil, ErrChunkSizeMismatch
	}

	if err := s.repo.Upload.AddChunk(ctx, &model.UploadChunk{UploadID: sess.ID, ChunkIndex: index, Size: n}); err != nil {
		return nil, err
	}
	received, err = s.repo.Upload.ListChunkIndexes(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	return toUploadStatus(sess, received), nil
}

// spool 分片先写临时文件再重命名，避免半截分片被拼装
func (s *uploadService) spool(uploadID string, index int, r io.Reader) (int64, error) {
	dir := s.spoolDir(uploadID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(dir, ".part-*")
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, chunkName(index))); err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}
	return n, nil
}

func (s *uploadService) Complete(ctx context.Context, actor model.Actor, uploadID string) (*model.Attachment, error) {
	sess, err := s.session(ctx, actor, uploadID)
	if err != nil {
		return nil, err
	}
	if sess.Status != model.UploadInProgress {
		return nil, ErrUploadClosed
	}
	received, err := s.repo.Upload.ListChunkIndexes(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if len(received) != sess.TotalChunks {
		return nil, ErrUploadIncomplete
	}

	e, err := s.att.lc.load(ctx, s.repo, actor, sess.EvaluationID, nil)
	if err != nil {
		return nil, err
	}
	if err := editable(actor, e); err != nil {
		return nil, err
	}

	// 抢占会话，防止并发 complete 重复登记附件
	ok, err := s.repo.Upload.SwapStatus(ctx, sess.ID, model.UploadInProgress, model.UploadCompleted)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUploadClosed
	}

	a, err := s.assemble(ctx, actor, e, sess)
	if err != nil {
		if _, rerr := s.repo.Upload.SwapStatus(ctx, sess.ID, model.UploadCompleted, model.UploadInProgress); rerr != nil {
			s.logger.Warn("恢复上传会话状态失败", zap.String("upload_id", sess.ID), zap.Error(rerr))
		}
		return nil, err
	}

	s.discard(ctx, sess.ID)
	return a, nil
}

// assemble 按序拼接分片并登记附件
func (s *uploadService) assemble(ctx context.Context, actor model.Actor, e *model.Evaluation, sess *model.UploadSession) (*model.Attachment, error) {
	files := make([]*os.File, 0, sess.TotalChunks)
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	readers := make([]io.Reader, 0, sess.TotalChunks)
	for i := 0; i < sess.TotalChunks; i++ {
		f, err := os.Open(filepath.Join(s.spoolDir(sess.ID), chunkName(i)))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, ErrUploadIncomplete
			}
			return nil, err
		}
		files = append(files, f)
		readers = append(readers, f)
	}

	return s.att.save(ctx, actor, e, UploadInput{
		EvaluationID: sess.EvaluationID,
		Indicator:    sess.Indicator,
		FileName:     sess.FileName,
		FileType:     sess.FileType,
		FileSize:     sess.FileSize,
	}, io.MultiReader(readers...))
}

func (s *uploadService) Status(ctx context.Context, actor model.Actor, uploadID string) (*dto.UploadStatusResponse, error) {
	sess, err := s.session(ctx, actor, uploadID)
	if err != nil {
		return nil, err
	}
	received, err := s.repo.Upload.ListChunkIndexes(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	return toUploadStatus(sess, received), nil
}

func (s *uploadService) CleanupExpired(ctx context.Context) (int, error) {
	expired, err := s.repo.Upload.ListExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	for _, sess := range expired {
		s.discard(ctx, sess.ID)
	}
	return len(expired), nil
}

// discard 删除会话记录与分片目录
func (s *uploadService) discard(ctx context.Context, uploadID string) {
	if err := s.repo.Upload.DeleteSession(ctx, uploadID); err != nil {
		s.logger.Warn("删除上传会话失败", zap.String("upload_id", uploadID), zap.Error(err))
	}
	if err := os.RemoveAll(s.spoolDir(uploadID)); err != nil {
		s.logger.Warn("删除分片目录失败", zap.String("upload_id", uploadID), zap.Error(err))
	}
}

func toUploadStatus(sess *model.UploadSession, received []int) *dto.UploadStatusResponse {
	if received == nil {
		received = []int{}
	}
	return &dto.UploadStatusResponse{
		UploadID:       sess.ID,
		EvaluationID:   sess.EvaluationID,
		FileName:       sess.FileName,
		FileSize:       sess.FileSize,
		ChunkSize:      sess.ChunkSize,
		TotalChunks:    sess.TotalChunks,
		UploadedChunks: received,
		Status:         string(sess.Status),
		ExpiresAt:      dto.FormatTime(sess.ExpiresAt),
	}
}
