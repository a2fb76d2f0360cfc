package analyst

import "regexp"

// MaxResponseLength caps sanitized model output in characters
const MaxResponseLength = 8000

// FallbackResponse stands in when the model returned nothing usable
const FallbackResponse = "I apologize, but I was unable to produce an analysis for this request. Please try again."

const (
	scriptMarker = "[removed script]"
	iframeMarker = "[removed iframe]"
)

var (
	scriptPattern  = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	iframePattern  = regexp.MustCompile(`(?is)<iframe\b[^>]*>.*?</iframe\s*>`)
	jsURIPattern   = regexp.MustCompile(`(?i)javascript:`)
	dataURIPattern = regexp.MustCompile(`(?i)data:(?:text/html|application/javascript)`)
	handlerPattern = regexp.MustCompile(`(?i)\s+on\w+\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]+)`)
)

// Sanitize strips executable and markup-injection patterns from model
// output and enforces the default length cap. It is a pure function:
// identical input always yields identical output, and the result is
// never empty.
func Sanitize(raw string) string {
	return SanitizeWithLimit(raw, MaxResponseLength)
}

// SanitizeWithLimit is Sanitize with an explicit length cap. Truncation
// happens before pattern removal so removal cost stays bounded. This is
// a blocklist, not an HTML sanitizer: callers rendering the output as
// markup must still escape it.
func SanitizeWithLimit(raw string, maxLength int) string {
	if raw == "" {
		return FallbackResponse
	}

	if len(raw) > maxLength {
		raw = raw[:maxLength]
	}

	raw = scriptPattern.ReplaceAllString(raw, scriptMarker)
	raw = iframePattern.ReplaceAllString(raw, iframeMarker)
	raw = jsURIPattern.ReplaceAllString(raw, "javascript-blocked:")
	raw = dataURIPattern.ReplaceAllString(raw, "data-blocked:")
	raw = handlerPattern.ReplaceAllString(raw, "")

	if raw == "" {
		return FallbackResponse
	}
	return raw
}
