package dto

// ── 附件与分片上传 DTO ──

// ReclassifyRequest 手工调整附件归类
type ReclassifyRequest struct {
	Indicator string `json:"indicator" binding:"required"`
}

// InitUploadRequest 初始化分片上传
type InitUploadRequest struct {
	EvaluationID string `json:"evaluation_id" binding:"required,uuid"`
	Indicator    string `json:"indicator"     binding:"required"`
	FileName     string `json:"file_name"     binding:"required,max=255"`
	FileSize     int64  `json:"file_size"     binding:"required,min=1"`
	FileType     string `json:"file_type"`
	ChunkSize    int64  `json:"chunk_size"    binding:"omitempty,min=1"`
}

// UploadStatusResponse 分片上传会话状态
type UploadStatusResponse struct {
	UploadID       string `json:"upload_id"`
	EvaluationID   string `json:"evaluation_id"`
	FileName       string `json:"file_name"`
	FileSize       int64  `json:"file_size"`
	ChunkSize      int64  `json:"chunk_size"`
	TotalChunks    int    `json:"total_chunks"`
	UploadedChunks []int  `json:"uploaded_chunks"`
	Status         string `json:"status"`
	ExpiresAt      string `json:"expires_at"`
}
