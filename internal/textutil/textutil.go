// Package textutil contains the line-numbering helpers used by notes
// with the numbered flag set.
package textutil

import (
	"strconv"
	"strings"
)

// Renumber prefixes every non-blank line with "1. ", "2. ", ... in
// order, replacing any existing number prefix. Blank lines are kept and
// do not consume a number.
func Renumber(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	n := 1
	for i, line := range lines {
		body := stripPrefix(line)
		if strings.TrimSpace(body) == "" {
			lines[i] = body
			continue
		}
		lines[i] = strconv.Itoa(n) + ". " + body
		n++
	}
	return strings.Join(lines, "\n")
}

// Strip removes a leading "N. " or "N) " number prefix from every line.
func Strip(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = stripPrefix(line)
	}
	return strings.Join(lines, "\n")
}

// stripPrefix returns line without a leading number prefix, or line
// unchanged when there is none.
func stripPrefix(line string) string {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(line) {
		return line
	}
	if line[i] != '.' && line[i] != ')' {
		return line
	}
	i++
	if i < len(line) && line[i] == ' ' {
		i++
	}
	return line[i:]
}
