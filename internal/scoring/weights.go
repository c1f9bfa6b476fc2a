// Package scoring 评分台账的计算规则：角色权重、加权均值、AI 提示词与结果解析、异常检测
package scoring

import (
	"fmt"
	"math"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/model"
	pkgerrors "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/errors"
)

// 角色权重与偏离阈值为固定常量，不做配置
const (
	WeightEvaluationTeam   = 0.70
	WeightEvaluationOffice = 0.50

	// MaxDeviation 最终得分相对加权均值的最大偏离比例
	MaxDeviation = 0.20
)

const epsilon = 1e-9

// WeightOf 返回评审角色的权重
func WeightOf(role model.Role) (float64, bool) {
	switch role {
	case model.RoleEvaluationTeam:
		return WeightEvaluationTeam, true
	case model.RoleEvaluationOffice:
		return WeightEvaluationOffice, true
	}
	return 0, false
}

// ErrNoManualScores 尚无人工评分
var ErrNoManualScores = pkgerrors.New(pkgerrors.ErrInvalidTransition, "至少需要一份人工评分才能确定最终得分")

// WeightedMean Σ(total_i × weight_i) / Σ weight_i
// 按入参顺序累加，同一组评分结果稳定
func WeightedMean(scores []model.ManualScore) (float64, error) {
	if len(scores) == 0 {
		return 0, ErrNoManualScores
	}
	var num, den float64
	for i := range scores {
		num += scores[i].Total() * scores[i].Weight
		den += scores[i].Weight
	}
	if den <= 0 {
		return 0, pkgerrors.New(pkgerrors.ErrInternal, "人工评分权重之和为 0")
	}
	return num / den, nil
}

// AllowedRange 加权均值允许的最终得分区间
func AllowedRange(mean float64) (lo, hi float64) {
	if mean == 0 {
		return 0, 0
	}
	d := math.Abs(mean) * MaxDeviation
	return mean - d, mean + d
}

// CheckFinalScore |provided − mean| / mean ≤ 0.20；均值为 0 时仅接受 0
func CheckFinalScore(provided, mean float64) error {
	if mean == 0 {
		if provided == 0 {
			return nil
		}
		return pkgerrors.New(pkgerrors.ErrScoreOutOfRange, "加权均值为 0，最终得分只能为 0")
	}
	dev := math.Abs(provided-mean) / math.Abs(mean)
	if dev > MaxDeviation+epsilon {
		lo, hi := AllowedRange(mean)
		return pkgerrors.New(pkgerrors.ErrScoreOutOfRange,
			fmt.Sprintf("最终得分 %.2f 偏离加权均值 %.2f 达 %.1f%%，允许区间为 [%.2f, %.2f]",
				provided, mean, dev*100, lo, hi))
	}
	return nil
}
