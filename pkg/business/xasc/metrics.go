package xasc

// 可观测性常量
const (
	MetricsComponent = "xasc"

	MetricsOpRequest = "request"

	MetricsAttrHTTPMethod = "http.method"
	MetricsAttrHTTPPath   = "http.path"
	MetricsAttrHTTPStatus = "http.status"
	MetricsAttrRequestID  = "request.id"
)
