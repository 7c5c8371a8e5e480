package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：业务错误（数据缺失、校验失败等，重试无意义）
// - 5xxx：系统错误（渲染、存储等，可重试）
const (
	OK              = 0
	ResourceMissing = 4004
	InvalidDocument = 4022
	SystemError     = 5000
	RenderFailed    = 5001
	StorageFailed   = 5002
)
