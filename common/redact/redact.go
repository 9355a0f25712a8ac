// Package redact strips sensitive values from log output and audit payloads
// before they leave the process boundary.
//
// Provider API keys must never appear in log lines, AI request logs or the
// audit_log table. Redaction is best-effort: it works on string
// representations and relies on callers passing the right sensitive terms.
package redact

import (
	"strings"
)

const placeholder = "[REDACTED]"

// String replaces every occurrence of each sensitive value in s with
// [REDACTED]. Values shorter than 4 characters are skipped to avoid spurious
// redaction of common substrings.
//
//	safe := redact.String(err.Error(), cfg.OpenAIKey, cfg.GeminiKey)
func String(s string, sensitiveValues ...string) string {
	for _, v := range sensitiveValues {
		if len(v) < 4 {
			continue
		}
		s = strings.ReplaceAll(s, v, placeholder)
	}
	return s
}

// Map returns a copy of m with string values replaced by [REDACTED] for every
// key whose name suggests a secret. Nested maps are copied and redacted too;
// other values are passed through unchanged.
func Map(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			if val != "" && isSensitiveKey(k) {
				out[k] = placeholder
				continue
			}
			out[k] = val
		case map[string]any:
			out[k] = Map(val)
		default:
			out[k] = v
		}
	}
	return out
}

// isSensitiveKey returns true when the key name suggests it holds a secret.
func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, word := range []string{"password", "passwd", "token", "secret", "apikey", "api_key", "credential", "authorization"} {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
