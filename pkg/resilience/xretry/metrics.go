package xretry

const (
	// MetricsComponent 组件名称。
	MetricsComponent = "xretry"

	MetricsOpRoundTrip = "RoundTrip"

	MetricsAttrAttempts   = "attempts"
	MetricsAttrStatus     = "http.status"
	MetricsAttrHTTPMethod = "http.method"
	MetricsAttrHTTPPath   = "http.path"
)
