package manual

import (
	"fmt"
	"strconv"
	"strings"
)

// selfEdit rewrites the annotation text in place, resolving every
// "+hex"-prefixed offset token into an absolute hex offset relative to a
// running accumulator (spec.md §4.3). It operates on raw lines to avoid
// any normalization surprises, and preserves every line's original
// terminator and every byte it does not rewrite.
//
// Returns the rewritten text and whether it differs from the input.
func selfEdit(text string) (string, bool, error) {
	lines, endings := splitPreservingEndings(text)

	var accumulator uint64
	width := 0
	changed := false

	for i, line := range lines {
		token, rest := leadingToken(line)
		if token == "" {
			continue
		}

		if token[0] == '+' {
			hexPart := token[1:]
			if hexPart == "" || !isHex(hexPart) {
				continue
			}
			delta, err := strconv.ParseUint(hexPart, 16, 64)
			if err != nil {
				return "", false, fmt.Errorf("manual: line %d: bad +offset %q: %w", i+1, token, err)
			}
			newVal := accumulator + delta
			newTok := fmt.Sprintf("%0*X", width, newVal)
			newLine := newTok + rest
			if newLine != line {
				changed = true
			}
			lines[i] = newLine
			// accumulator is NOT updated by '+' lines.
			continue
		}

		if isHex(token) {
			v, err := strconv.ParseUint(token, 16, 64)
			if err != nil {
				continue
			}
			accumulator = v
			width = len(token)
		}
	}

	out := joinPreservingEndings(lines, endings)
	return out, changed, nil
}

// leadingToken returns the first whitespace-delimited token of line (after
// stripping leading space/tab) and the remainder of the line starting at
// the position right after that token, unmodified.
func leadingToken(line string) (token, rest string) {
	trimmed := strings.TrimLeft(line, " \t")
	lead := len(line) - len(trimmed)
	end := 0
	for end < len(trimmed) {
		c := trimmed[end]
		if c == ' ' || c == '\t' {
			break
		}
		end++
	}
	token = trimmed[:end]
	rest = line[lead+end:]
	return token, rest
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// splitPreservingEndings splits text into lines and records each line's
// original terminator ("\r\n", "\n", or "" for a final unterminated line).
func splitPreservingEndings(text string) ([]string, []string) {
	var lines, endings []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			end := i
			ending := "\n"
			if end > start && text[end-1] == '\r' {
				end--
				ending = "\r\n"
			}
			lines = append(lines, text[start:end])
			endings = append(endings, ending)
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
		endings = append(endings, "")
	}
	return lines, endings
}

func joinPreservingEndings(lines, endings []string) string {
	var sb strings.Builder
	for i, l := range lines {
		sb.WriteString(l)
		sb.WriteString(endings[i])
	}
	return sb.String()
}
