package report

import (
	"regexp"
	"strconv"
	"strings"
)

const maxHeadingWords = 8

var numberedHeading = regexp.MustCompile(`^(\d{1,2})[.)]\s+(.+)$`)

// ParseSections splits model output into titled sections.
//
// Numbered headings ("1. Imaging Modality", "**2. Findings:** text") must
// appear in sequence starting at 1, so a list restarting at 1 inside a
// section stays part of that section's body. Markdown headings ("## Impression")
// and fully bold lines ("**Impression:**") are headings regardless of numbering.
// Text before the first heading becomes an untitled section. Markdown emphasis
// is stripped from titles and bodies.
func ParseSections(text string) []Section {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var (
		out     []Section
		title   string
		titled  bool
		body    []string
		nextNum = 1
	)
	flush := func() {
		b := strings.TrimSpace(strings.Join(body, "\n"))
		if titled || b != "" {
			out = append(out, Section{Title: title, Body: b})
		}
		body = body[:0]
	}

	for _, raw := range strings.Split(text, "\n") {
		h, ok := parseHeading(strings.TrimSpace(raw), nextNum)
		if !ok {
			body = append(body, cleanLine(raw))
			continue
		}
		flush()
		title, titled = h.title, true
		if h.number > 0 {
			nextNum = h.number + 1
		}
		if h.rest != "" {
			body = append(body, h.rest)
		}
	}
	flush()

	if len(out) == 0 {
		return []Section{{Body: strings.TrimSpace(text)}}
	}
	return out
}

type heading struct {
	number int
	title  string
	rest   string
}

func parseHeading(line string, want int) (heading, bool) {
	if line == "" {
		return heading{}, false
	}

	markdown := strings.HasPrefix(line, "#")
	s := strings.TrimSpace(strings.TrimLeft(line, "#"))
	bold := boldLead(s)
	s = stripEmphasis(s)

	if m := numberedHeading.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n != want {
			return heading{}, false
		}
		title, rest := splitTitle(m[2])
		if !shortTitle(title) {
			return heading{}, false
		}
		return heading{number: n, title: title, rest: rest}, true
	}

	if markdown || bold {
		title, rest := splitTitle(s)
		if !shortTitle(title) {
			return heading{}, false
		}
		return heading{title: title, rest: rest}, true
	}
	return heading{}, false
}

// boldLead reports whether s starts with a bold span that is either the whole
// line or a label ending in a colon ("**Impression:** normal").
func boldLead(s string) bool {
	if !strings.HasPrefix(s, "**") {
		return false
	}
	end := strings.Index(s[2:], "**")
	if end < 0 {
		return false
	}
	inner := s[2 : 2+end]
	after := strings.TrimSpace(s[2+end+2:])
	return strings.HasSuffix(inner, ":") || after == "" || strings.HasPrefix(after, ":")
}

func splitTitle(s string) (title, rest string) {
	if i := strings.Index(s, ":"); i >= 0 {
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
	}
	return strings.TrimSpace(s), ""
}

func shortTitle(s string) bool {
	n := len(strings.Fields(s))
	return n > 0 && n <= maxHeadingWords
}

func stripEmphasis(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	return strings.TrimSpace(s)
}

func cleanLine(s string) string {
	s = strings.TrimRight(s, " \t")
	trimmed := strings.TrimLeft(s, " \t")
	indent := s[:len(s)-len(trimmed)]
	if strings.HasPrefix(trimmed, "* ") {
		trimmed = "- " + trimmed[2:]
	}
	return indent + strings.ReplaceAll(strings.ReplaceAll(trimmed, "**", ""), "__", "")
}
