package util

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxLogBodySize is the default number of envelope bytes kept in logs (10KB).
const MaxLogBodySize = 10 * 1024

var (
	xmlDecl      = regexp.MustCompile(`^\s*<\?xml[^>]*\?>`)
	interTagGaps = regexp.MustCompile(`>\s+<`)
)

// CompactEnvelope prepares a SOAP envelope for a log line: the XML
// declaration and whitespace between tags are dropped, then the result is cut
// to maxSize bytes at the last complete tag and marked with the number of
// bytes omitted. maxSize <= 0 means MaxLogBodySize. Non-XML bodies, such as
// an HTML error page, are cut at a rune boundary instead.
func CompactEnvelope(data string, maxSize int) string {
	if maxSize <= 0 {
		maxSize = MaxLogBodySize
	}
	s := strings.TrimSpace(data)
	if strings.HasPrefix(s, "<") {
		s = xmlDecl.ReplaceAllString(s, "")
		s = interTagGaps.ReplaceAllString(strings.TrimSpace(s), "><")
	}
	if len(s) <= maxSize {
		return s
	}

	cut := maxSize
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if end := strings.LastIndexByte(s[:cut], '>'); end > 0 {
		cut = end + 1
	}
	return s[:cut] + "...(" + strconv.Itoa(len(s)-cut) + " bytes truncated)"
}
