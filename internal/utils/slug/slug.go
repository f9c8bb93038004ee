package slug

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	nonAlnum   = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespace = regexp.MustCompile(`\s+`)
	unsafeRun  = regexp.MustCompile(`[^a-z0-9]+`)
)

// Make 小写、去掉非字母数字、空白转连字符："Steel Circuit: Redux" -> "steel-circuit-redux"
func Make(s string) string {
	s = nonAlnum.ReplaceAllString(strings.ToLower(s), "")
	return whitespace.ReplaceAllString(strings.TrimSpace(s), "-")
}

// WithSuffix 标题冲突时追加外部ID；ID 中非字母数字的连续字符折叠为单个连字符
func WithSuffix(base, externalID string) string {
	suffix := strings.Trim(unsafeRun.ReplaceAllString(strings.ToLower(externalID), "-"), "-")
	if suffix == "" {
		sum := sha256.Sum256([]byte(externalID))
		suffix = hex.EncodeToString(sum[:4])
	}
	return base + "-" + suffix
}
