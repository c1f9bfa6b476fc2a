package president

import (
	"encoding/json"
	"fmt"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/checksum"
	pkgerrors "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/errors"
)

// 接收端要求每个评估必须携带的字段
var requiredFields = []string{"evaluation_id", "teaching_office_id", "content", "ai_score", "manual_scores", "final_score"}

// 可以为空列表但必须存在的字段
var listFields = []string{"attachments", "anomalies"}

// Verify 接收端校验：任务号与请求头一致、校验和与请求头及包内字段一致、各评估字段完整
// 校验在原始请求体上进行，不经结构体往返
func Verify(body []byte, headerTaskID, headerChecksum string) (*Package, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrInvalidArgument, "同步数据包不是合法的 JSON 对象", err)
	}

	var taskID, inPayload string
	_ = json.Unmarshal(top["task_id"], &taskID)
	_ = json.Unmarshal(top[checksum.Field], &inPayload)

	if taskID == "" || taskID != headerTaskID {
		return nil, pkgerrors.New(pkgerrors.ErrChecksumMismatch, "同步任务号与请求头不一致")
	}

	actual, err := checksum.Compute(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrInvalidArgument, "同步数据包无法规范化", err)
	}
	if actual != headerChecksum || actual != inPayload {
		return nil, pkgerrors.New(pkgerrors.ErrChecksumMismatch, "同步数据校验和不一致，数据可能被篡改")
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal(top["evaluations"], &items); err != nil || items == nil {
		return nil, pkgerrors.New(pkgerrors.ErrInvalidArgument, "同步数据包缺少 evaluations 列表")
	}
	for i, item := range items {
		if err := checkItem(i, item); err != nil {
			return nil, err
		}
	}

	var p Package
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrInvalidArgument, "同步数据包字段类型错误", err)
	}
	return &p, nil
}

func checkItem(i int, item map[string]json.RawMessage) error {
	for _, f := range requiredFields {
		v, ok := item[f]
		if !ok || string(v) == "null" {
			return pkgerrors.New(pkgerrors.ErrInvalidArgument, fmt.Sprintf("第 %d 个评估缺少字段 %s", i+1, f))
		}
	}
	for _, f := range listFields {
		v, ok := item[f]
		if !ok {
			return pkgerrors.New(pkgerrors.ErrInvalidArgument, fmt.Sprintf("第 %d 个评估缺少字段 %s", i+1, f))
		}
		var list []json.RawMessage
		if err := json.Unmarshal(v, &list); err != nil || list == nil {
			return pkgerrors.New(pkgerrors.ErrInvalidArgument, fmt.Sprintf("第 %d 个评估的 %s 必须为列表", i+1, f))
		}
	}
	return nil
}
