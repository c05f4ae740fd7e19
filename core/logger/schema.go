package logger

import "strings"

var allowedLevels = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

var allowedStatus = map[string]struct{}{
	"ok":           {},
	"fail":         {},
	"skip":         {},
	"retry":        {},
	"rate_limited": {},
	"cancelled":    {},
}

var allowedOutcome = map[string]struct{}{
	"ok":           {},
	"fail":         {},
	"cancelled":    {},
	"rate_limited": {},
}

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if mapped, ok := allowedLevels[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

// normalizeStatus lowercases status; unknown values are kept as is.
func normalizeStatus(status string) string {
	lowered := strings.ToLower(strings.TrimSpace(status))
	if _, ok := allowedStatus[lowered]; ok {
		return lowered
	}
	return status
}

func normalizeOutcome(outcome string) (string, bool) {
	outcome = strings.ToLower(strings.TrimSpace(outcome))
	_, ok := allowedOutcome[outcome]
	return outcome, ok
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"flow_id",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"op",
	"cb_key",
	"outcome",
	"stage",
	"locale",
	"attempt",
	"attempts",
	"batch",
	"completed",
	"total",
	"signature",
	"fetched",
	"unique",
	"duration_ms",
	"messages",
	"kb",
	"count",
	"payload",
	"lang",
	"username",
	"mode",
	"listen",
	"public_url",
	"http_code",
	"err",
	"err_code",
	"reason",
	"cause",
	"retryable",
	"backoff_ms",
}
