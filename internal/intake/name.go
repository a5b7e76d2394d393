package intake

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	whitespaceRun = regexp.MustCompile(`[\s\v\p{Z}\x{FEFF}]+`)
	unsafeChars   = regexp.MustCompile(`[^A-Za-z0-9_-]`)
)

// SplitExt splits a client filename into base and extension. The extension
// runs from the last '.' to the end; a leading dot does not start one.
func SplitExt(original string) (base, ext string) {
	i := strings.LastIndexByte(original, '.')
	if i <= 0 {
		return original, ""
	}
	return original[:i], original[i:]
}

// SanitizeBase collapses whitespace runs to a single '-' and drops every
// character that is not an ASCII letter, digit, '_' or '-'.
func SanitizeBase(base string) string {
	return unsafeChars.ReplaceAllString(whitespaceRun.ReplaceAllString(base, "-"), "")
}

// SanitizeExt applies the base-name allowlist to the part after the dot,
// keeping case. An extension with nothing left after the dot is dropped.
func SanitizeExt(ext string) string {
	if ext == "" {
		return ""
	}
	clean := unsafeChars.ReplaceAllString(strings.TrimPrefix(ext, "."), "")
	if clean == "" {
		return ""
	}
	return "." + clean
}

// DeriveName builds the stored name "<unix millis>-<base><ext>" from the
// client filename. A non-empty suffix is inserted as "-<suffix>" before the
// extension.
func DeriveName(original string, now time.Time, suffix string) string {
	base, ext := SplitExt(original)

	var sb strings.Builder
	sb.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	sb.WriteByte('-')
	sb.WriteString(SanitizeBase(base))
	if suffix != "" {
		sb.WriteByte('-')
		sb.WriteString(suffix)
	}
	sb.WriteString(SanitizeExt(ext))
	return sb.String()
}
