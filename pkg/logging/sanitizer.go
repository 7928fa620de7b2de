package logging

import (
	"regexp"
)

const (
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Pattern to match potential passwords in connection strings
	// Matches: password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)\s*=\s*[^;&\s]+`)

	// Pattern to match user names in ADO-style connection strings
	// Matches: User Id=xxx, uid=xxx, user=xxx
	userPattern = regexp.MustCompile(`(?i)(user\s*id|uid|user(name)?)\s*=\s*[^;&\s]+`)

	// Pattern to match connection string credentials (user:pass@host format)
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)
)

// SanitizeConnectionString removes credentials from a connection string.
// Use this before a connection string reaches any log line, status record,
// or API response. Server host and database name are preserved.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = userPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeError redacts credential-bearing substrings from an error message.
// Driver errors can echo the full connection string back, so every error that
// may be persisted to a sync status row or returned over the API goes through
// here first. Full unredacted detail is permitted only in server-side logs.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeMessage(err.Error())
}

// SanitizeMessage is SanitizeError for a raw string.
func SanitizeMessage(msg string) string {
	if msg == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(msg, "${1}="+RedactedText)
	sanitized = userPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
