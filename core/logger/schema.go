package logger

import "strings"

var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
	"fatal":   "FATAL",
}

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if mapped, ok := levelNames[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

// normalizeStatus lowercases status; "error" is folded into "fail".
func normalizeStatus(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "error" {
		return "fail"
	}
	return status
}

// defaultKeyOrder puts correlation and domain identifiers first; remaining keys
// follow alphabetically.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"handler",
	"op",
	"cb_key",
	"flow_id",
	"from",
	"to",
	"state",
	"room_id",
	"appeal_id",
	"target_id",
	"duration_ms",
	"count",
	"skipped",
	"mode",
	"username",
	"listen",
	"public_url",
	"driver",
	"db",
	"host",
	"err",
	"retryable",
	"attempts",
	"backoff_ms",
	"pending_count",
}
