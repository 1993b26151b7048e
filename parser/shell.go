package parser

import "strings"

type quoteState int

const (
	quoteNone quoteState = iota
	quoteSingle
	quoteDouble
)

var shellUnescapes = [][2]string{
	{`\"`, `"`},
	{`\'`, `'`},
	{`\ `, ` `},
	{`\\`, `\`},
}

// SplitArgs splits s into command line arguments the way a shell would,
// honouring single and double quotes and backslash escapes of quotes,
// spaces and backslashes. An unterminated quote is closed at the end of s.
// A backslash at the very end of s is kept as is.
func SplitArgs(s string) []string {
	s = strings.TrimSpace(s)

	var parts []string
	var state quoteState

	// spans holds [start, end) pairs of the current argument's text,
	// excluding any quote characters that opened or closed a region
	spans := []int{0}
	last := byte(' ')
	for i := 0; i <= len(s); i++ {
		c := byte(' ')
		if i < len(s) {
			c = s[i]
		}

		switch {
		case last == '\\' && (c == '"' || c == '\'' || c == '\\'):
		case last == '\\' && c == ' ' && i < len(s):
		case c == '"' && state == quoteNone:
			state = quoteDouble
			spans = append(spans, i, i+1)
		case c == '"' && state == quoteDouble:
			state = quoteNone
			spans = append(spans, i, i+1)
		case c == '\'' && state == quoteNone:
			state = quoteSingle
			spans = append(spans, i, i+1)
		case c == '\'' && state == quoteSingle:
			state = quoteNone
			spans = append(spans, i, i+1)
		case c == ' ' && (state == quoteNone || i >= len(s)):
			spans = append(spans, i)
			if part := joinSpans(s, spans); part != "" {
				parts = append(parts, part)
			}

			spans = append(spans[:0], i+1)
		}

		last = c
	}

	return parts
}

func joinSpans(s string, spans []int) string {
	var sb strings.Builder
	for i := 0; i+1 < len(spans); i += 2 {
		sb.WriteString(s[spans[i]:spans[i+1]])
	}

	part := strings.TrimSpace(sb.String())
	for _, r := range shellUnescapes {
		part = strings.ReplaceAll(part, r[0], r[1])
	}

	return part
}
