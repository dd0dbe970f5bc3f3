package vault

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// note is the decoded YAML frontmatter of one vault note. Hand-edited
// frontmatter is loosely typed: a field can be a string in one note
// and a list or bool in the next, so every accessor normalises.
type note map[string]any

// parseNote splits a note into frontmatter and body. The frontmatter
// sits between two "---" lines at the top of the file.
func parseNote(raw []byte) (note, string, error) {
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	rest, ok := strings.CutPrefix(text, "---\n")
	if !ok {
		return nil, "", fmt.Errorf("no frontmatter")
	}
	meta, body, ok := strings.Cut(rest, "\n---")
	if !ok {
		return nil, "", fmt.Errorf("unterminated frontmatter")
	}
	body = strings.TrimPrefix(body, "\n")

	n := note{}
	if err := yaml.Unmarshal([]byte(meta), &n); err != nil {
		return nil, "", fmt.Errorf("parse frontmatter: %w", err)
	}
	return n, body, nil
}

// str reads a field as a string. Lists collapse to a comma join,
// booleans to yes/no.
func (n note) str(key string) string {
	switch v := n[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// list reads a field as a string slice, wrapping a bare string.
func (n note) list(key string) []string {
	switch v := n[key].(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return []string{fmt.Sprint(v)}
	}
}

// boolean reads a field as a bool, accepting yes/true/1 strings.
func (n note) boolean(key string) bool {
	switch v := n[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "yes", "true", "1":
			return true
		}
	}
	return false
}

// number reads a field as a float, stripping currency formatting
// from strings ("$12,500" parses as 12500). Unparseable values are
// zero.
func (n note) number(key string) float64 {
	switch v := n[key].(type) {
	case int:
		return float64(v)
	case float64:
		return v
	case string:
		cleaned := strings.TrimSpace(strings.NewReplacer("$", "", ",", "").Replace(v))
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

// scopeSplitPattern breaks a scope written as prose into items.
var scopeSplitPattern = regexp.MustCompile(`[,;]|\s+and\s+`)

// scope reads the scope field, splitting a bare string on commas,
// semicolons and "and".
func (n note) scope() []string {
	raw, ok := n["scope"].(string)
	if !ok {
		return n.list("scope")
	}
	var out []string
	for _, part := range scopeSplitPattern.Split(raw, -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Section patterns for the structured parts of a note body.
var (
	performancePattern = regexp.MustCompile(`(?is)##\s*performance notes(.*?)(?:##|\z)`)
	knowledgePattern   = regexp.MustCompile(`(?is)##\s*knowledge gained(.*?)(?:##|\z)`)
)

// performanceNotes collects the bullet points under the
// "## Performance Notes" heading.
func performanceNotes(body string) []string {
	m := performancePattern.FindStringSubmatch(body)
	if m == nil {
		return nil
	}
	var notes []string
	for _, line := range strings.Split(m[1], "\n") {
		line = strings.TrimSpace(line)
		bullet, ok := strings.CutPrefix(line, "-")
		if !ok {
			continue
		}
		if bullet = strings.TrimSpace(bullet); bullet != "" {
			notes = append(notes, bullet)
		}
	}
	return notes
}

// knowledgeGained returns the prose under the "## Knowledge Gained"
// heading.
func knowledgeGained(body string) string {
	m := knowledgePattern.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(strings.ReplaceAll(m[1], "---", ""))
}
