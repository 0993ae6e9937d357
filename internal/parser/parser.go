// Package parser extracts frontmatter, a title, and wikilink occurrences
// from Markdown content.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/adrg/frontmatter"
)

var wikilinkRe = regexp.MustCompile(`(!?)\[\[([^\[\]]*?)\]\]`)

// Link is one [[...]] occurrence in a note.
type Link struct {
	Raw     string `json:"raw"`               // text between the brackets
	Target  string `json:"target"`            // link text without alias or heading
	Alias   string `json:"alias,omitempty"`   // display text after '|'
	Heading string `json:"heading,omitempty"` // '#' fragment, if any
	Line    int    `json:"line"`              // 1-based, counted in the whole file
	Embed   bool   `json:"embed,omitempty"`   // ![[...]]
}

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Title       string
	Links       []Link
}

// Parse separates frontmatter from the body and extracts every wikilink.
// Content whose frontmatter does not parse is treated as all body.
func Parse(data []byte) (*Result, error) {
	fm, body, offset := splitFrontmatter(data)
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, body),
		Links:       extractLinks(body, offset),
	}, nil
}

// splitFrontmatter returns the frontmatter map, the body, and the number of
// lines that precede the body in data.
func splitFrontmatter(data []byte) (map[string]any, string, int) {
	var fm map[string]any
	rest, err := frontmatter.Parse(bytes.NewReader(data), &fm)
	if err != nil {
		return nil, string(data), 0
	}
	if len(fm) == 0 {
		fm = nil
	}
	offset := 0
	if len(rest) < len(data) && bytes.HasSuffix(data, rest) {
		offset = bytes.Count(data[:len(data)-len(rest)], []byte("\n"))
	}
	return fm, string(rest), offset
}

// extractLinks returns every wikilink occurrence in source order, skipping
// fenced code blocks. lineOffset is added to each line number.
func extractLinks(body string, lineOffset int) []Link {
	var out []Link
	inFence := false
	for i, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		for _, m := range wikilinkRe.FindAllStringSubmatch(line, -1) {
			if l, ok := parseLink(m[2]); ok {
				l.Line = lineOffset + i + 1
				l.Embed = m[1] == "!"
				out = append(out, l)
			}
		}
	}
	return out
}

// parseLink splits raw link text into target, heading, and alias.
func parseLink(raw string) (Link, bool) {
	target, alias, _ := strings.Cut(raw, "|")
	target, heading, _ := strings.Cut(target, "#")
	target = strings.TrimSpace(target)
	if target == "" {
		return Link{}, false
	}
	return Link{
		Raw:     raw,
		Target:  target,
		Alias:   strings.TrimSpace(alias),
		Heading: strings.TrimSpace(heading),
	}, true
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]any, body string) string {
	if s, ok := fm["title"].(string); ok && s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
