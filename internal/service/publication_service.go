package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/dto"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/insight"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/repository"
	pkgerrors "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/errors"
)

// ErrExportGenerateFail 公示导出失败
var ErrExportGenerateFail = pkgerrors.New(pkgerrors.ErrInternal, "生成公示表格失败")

// PublicationService 公示与分发接口
type PublicationService interface {
	// Publish 公示一批已审定评估；评估只能出现在一次公示中
	Publish(ctx context.Context, actor model.Actor, req *dto.PublishRequest) (*model.Publication, error)
	// Distribute 分发公示：逐个迁移到 distributed、生成洞察摘要并归档附件
	Distribute(ctx context.Context, actor model.Actor, publicationID string) (*model.Publication, error)
	List(ctx context.Context, actor model.Actor, req *dto.PaginationRequest) ([]model.Publication, int64, error)
	Get(ctx context.Context, actor model.Actor, publicationID string) (*model.Publication, error)
	// Export 导出公示结果表
	Export(ctx context.Context, actor model.Actor, publicationID string) (*bytes.Buffer, string, error)
}

type publicationService struct {
	repo   *repository.Repository
	lc     *lifecycle
	logger *zap.Logger
}

// NewPublicationService 创建 PublicationService 实例
func NewPublicationService(repo *repository.Repository, logger *zap.Logger) PublicationService {
	return &publicationService{repo: repo, lc: newLifecycle(repo, logger), logger: logger}
}

func (s *publicationService) Publish(ctx context.Context, actor model.Actor, req *dto.PublishRequest) (*model.Publication, error) {
	if !actor.Can(model.CapPublish) {
		return nil, ErrNoCapability
	}
	ids := uniqueIDs(req.EvaluationIDs)
	p := &model.Publication{
		EvaluationIDs: datatypes.NewJSONSlice(ids),
		PublishedBy:   actor.UserID,
	}

	var done []applied
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		// 先迁移状态：未审定的评估以状态错误返回，而不是唯一约束冲突
		evals := make([]*model.Evaluation, 0, len(ids))
		for _, id := range ids {
			e, err := s.lc.load(ctx, tx, actor, id, nil)
			if err != nil {
				return err
			}
			evals = append(evals, e)
		}
		if err := tx.Publication.Create(ctx, p); err != nil {
			if pkgerrors.IsUniqueViolation(err) {
				return ErrAlreadyPublished
			}
			return err
		}
		for _, e := range evals {
			d, err := s.lc.step(ctx, tx, actor, e, model.OpPublish, func(model.EvaluationStatus) (change, error) {
				return change{Details: map[string]interface{}{"publication_id": p.ID}}, nil
			})
			if err != nil {
				return err
			}
			done = append(done, d)
		}
		return appendLog(ctx, tx, actor, model.OpPublish, model.TargetPublication, p.ID, map[string]interface{}{
			"evaluation_ids": ids,
		})
	})
	if err != nil {
		return nil, err
	}
	s.lc.record(done...)
	return p, nil
}

func (s *publicationService) Distribute(ctx context.Context, actor model.Actor, publicationID string) (*model.Publication, error) {
	if !actor.Can(model.CapDistribute) {
		return nil, ErrNoCapability
	}

	var p *model.Publication
	var done []applied
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		if p, err = tx.Publication.GetForUpdate(ctx, publicationID); err != nil {
			return notFound(err, ErrPublicationNotFound)
		}
		if p.DistributedAt != nil {
			return ErrPublicationDone
		}

		for _, id := range p.EvaluationIDs {
			e, err := s.lc.load(ctx, tx, actor, id, nil)
			if err != nil {
				return err
			}
			d, err := s.lc.step(ctx, tx, actor, e, model.OpDistribute, func(model.EvaluationStatus) (change, error) {
				in, err := generateInsight(ctx, tx, e.ID)
				if err != nil {
					return change{}, err
				}
				return change{Details: map[string]interface{}{
					"publication_id": p.ID,
					"insight_id":     in.ID,
				}}, nil
			})
			if err != nil {
				return err
			}
			done = append(done, d)
		}

		now := time.Now().UTC()
		if err := tx.Publication.MarkDistributed(ctx, p, actor.UserID, now); err != nil {
			return err
		}
		archived, err := tx.Attachment.ArchiveByEvaluations(ctx, p.EvaluationIDs, now)
		if err != nil {
			return err
		}
		return appendLog(ctx, tx, actor, model.OpDistribute, model.TargetPublication, p.ID, map[string]interface{}{
			"evaluation_ids":       []string(p.EvaluationIDs),
			"archived_attachments": archived,
		})
	})
	if err != nil {
		return nil, err
	}
	s.lc.record(done...)
	return p, nil
}

func (s *publicationService) List(ctx context.Context, actor model.Actor, req *dto.PaginationRequest) ([]model.Publication, int64, error) {
	if !actor.Can(model.CapViewAll) {
		return nil, 0, ErrNoCapability
	}
	return s.repo.Publication.List(ctx, req.GetOffset(), req.GetPageSize())
}

func (s *publicationService) Get(ctx context.Context, actor model.Actor, publicationID string) (*model.Publication, error) {
	if !actor.Can(model.CapViewAll) {
		return nil, ErrNoCapability
	}
	p, err := s.repo.Publication.GetByID(ctx, publicationID)
	if err != nil {
		return nil, notFound(err, ErrPublicationNotFound)
	}
	return p, nil
}

// ── 导出 ──

// publicationRow 导出表的一行
type publicationRow struct {
	office string
	year   int
	status model.EvaluationStatus
	score  *float64
}

func (s *publicationService) Export(ctx context.Context, actor model.Actor, publicationID string) (*bytes.Buffer, string, error) {
	p, err := s.Get(ctx, actor, publicationID)
	if err != nil {
		return nil, "", err
	}
	evals, err := s.repo.Evaluation.GetByIDs(ctx, p.EvaluationIDs)
	if err != nil {
		return nil, "", err
	}
	finals, err := s.repo.Score.ListFinalScores(ctx, p.EvaluationIDs)
	if err != nil {
		return nil, "", err
	}
	scoreOf := make(map[string]float64, len(finals))
	for _, fs := range finals {
		scoreOf[fs.EvaluationID] = fs.FinalScore
	}

	byID := make(map[string]*model.Evaluation, len(evals))
	for i := range evals {
		byID[evals[i].ID] = &evals[i]
	}

	rows := make([]publicationRow, 0, len(evals))
	for _, id := range p.EvaluationIDs {
		e, ok := byID[id]
		if !ok {
			continue
		}
		r := publicationRow{year: e.Year, status: e.Status}
		if e.TeachingOffice != nil {
			r.office = e.TeachingOffice.Name
		}
		if v, ok := scoreOf[e.ID]; ok {
			r.score = &v
		}
		rows = append(rows, r)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "公示结果"
	idx, _ := f.NewSheet(sheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheet, "A", "A", 8)
	f.SetColWidth(sheet, "B", "B", 24)
	f.SetColWidth(sheet, "C", "C", 10)
	f.SetColWidth(sheet, "D", "E", 12)
	f.SetColWidth(sheet, "F", "F", 14)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	f.SetCellValue(sheet, "A1", fmt.Sprintf("教研室年度考核结果公示（%s）", p.PublishedAt.Format("2006-01-02")))
	f.MergeCell(sheet, "A1", "F1")
	f.SetCellStyle(sheet, "A1", "A1", headerStyle)

	headers := []string{"序号", "教研室", "年度", "最终得分", "等级", "状态"}
	for i, h := range headers {
		f.SetCellValue(sheet, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheet, "A2", "F2", headerStyle)

	for i, r := range rows {
		row := i + 3
		f.SetCellValue(sheet, cell("A", row), i+1)
		f.SetCellValue(sheet, cell("B", row), r.office)
		f.SetCellValue(sheet, cell("C", row), r.year)
		if r.score != nil {
			f.SetCellValue(sheet, cell("D", row), *r.score)
			f.SetCellValue(sheet, cell("E", row), insight.GradeOf(*r.score).Label())
		} else {
			f.SetCellValue(sheet, cell("D", row), "-")
			f.SetCellValue(sheet, cell("E", row), "-")
		}
		f.SetCellValue(sheet, cell("F", row), string(r.status))
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.String("publication_id", p.ID), zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, fmt.Sprintf("公示结果_%s.xlsx", p.PublishedAt.Format("20060102")), nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
