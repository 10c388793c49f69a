package middleware

import (
	"net/http"
	"strings"

	"github.com/Wikid82/ipguard/internal/util"
)

const maxLoggedValue = 200

// redactedHeaders never reach the logs. Forwarding headers stay visible:
// they are how the client address was resolved.
var redactedHeaders = map[string]struct{}{
	"authorization":       {},
	"cookie":              {},
	"set-cookie":          {},
	"proxy-authorization": {},
	"x-api-key":           {},
	"x-api-token":         {},
	"x-access-token":      {},
	"x-auth-token":        {},
}

// SanitizeHeaders returns header values safe to log. Credentials are
// replaced with "<redacted>"; everything else is stripped of control
// characters and truncated.
func SanitizeHeaders(h http.Header) map[string][]string {
	if h == nil {
		return nil
	}
	out := make(map[string][]string, len(h))
	for k, vals := range h {
		if _, ok := redactedHeaders[strings.ToLower(k)]; ok {
			out[k] = []string{"<redacted>"}
			continue
		}
		clean := make([]string, 0, len(vals))
		for _, v := range vals {
			clean = append(clean, clip(util.SanitizeForLog(v)))
		}
		out[k] = clean
	}
	return out
}

// SanitizePath drops the query string, control characters and anything past
// the logging limit.
func SanitizePath(p string) string {
	if i := strings.IndexByte(p, '?'); i != -1 {
		p = p[:i]
	}
	return clip(util.SanitizeForLog(p))
}

func clip(s string) string {
	return util.Truncate(s, maxLoggedValue)
}
