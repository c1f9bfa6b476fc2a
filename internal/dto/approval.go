package dto

// ── 审定、公示与同步 DTO ──

// ApprovalRequest 校长办公会审定（批量）
type ApprovalRequest struct {
	EvaluationIDs []string `json:"evaluation_ids" binding:"required,min=1,dive,uuid"`
	RejectReason  string   `json:"reject_reason"  binding:"max=1000"`
}

// ResubmitRequest 校长办公会驳回后重新报送
type ResubmitRequest struct {
	Reason  string `json:"reason"  binding:"required,max=1000"`
	Version *int   `json:"version"`
}

// PublishRequest 公示
type PublishRequest struct {
	EvaluationIDs []string `json:"evaluation_ids" binding:"required,min=1,dive,uuid"`
}

// SyncRequest 同步到校长办公会
type SyncRequest struct {
	EvaluationIDs []string `json:"evaluation_ids" binding:"required,min=1,dive,uuid"`
}

// SyncListRequest 同步任务列表
type SyncListRequest struct {
	PaginationRequest
	Status string `form:"status" binding:"omitempty,oneof=pending syncing completed failed"`
}

// ReceiveAck 接收端应答
type ReceiveAck struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Received int    `json:"received"`
}

// ── 审计日志 ──

// OperationLogListRequest 审计日志筛选
type OperationLogListRequest struct {
	PaginationRequest
	OperationType string `form:"operation_type"`
	OperatorID    string `form:"operator_id"`
	TargetID      string `form:"target_id"`
	TargetType    string `form:"target_type"`
	StartTime     string `form:"start_time"`
	EndTime       string `form:"end_time"`
}
