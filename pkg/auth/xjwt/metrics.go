package xjwt

const (
	// MetricsComponent 组件名称。
	MetricsComponent = "xjwt"

	MetricsOpIssueToken = "IssueToken"
	MetricsOpGetToken   = "GetToken"

	MetricsAttrCacheHit  = "cache_hit"
	MetricsAttrExpiresIn = "expires_in"
)
