// Package report renders merged search locations for terminals, files and
// the HTTP API.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgallion1/modsearch/internal/search"
	"github.com/yuin/goldmark"
)

// Format is an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatJSON     Format = "json"
)

// Formats lists every supported format.
var Formats = []Format{FormatText, FormatMarkdown, FormatHTML, FormatJSON}

// ParseFormat resolves a format name. The empty string means text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// ContentType is the HTTP media type of a format.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatJSON:
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}

// Extension is the file extension used when a report is saved.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatHTML:
		return ".html"
	case FormatJSON:
		return ".json"
	}
	return ".txt"
}

const separatorWidth = 100

var (
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	pathStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	valueStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
)

// Renderer writes locations in a chosen format.
type Renderer struct {
	// Target is shown in document headings. Optional.
	Target string
	// Styled colors text output with lipgloss.
	Styled bool
}

// Render writes unstyled locations in format f.
func Render(w io.Writer, locations []search.Location, f Format) error {
	return Renderer{}.Render(w, locations, f)
}

func (r Renderer) Render(w io.Writer, locations []search.Location, f Format) error {
	switch f {
	case FormatText:
		return r.text(w, locations)
	case FormatMarkdown:
		_, err := io.WriteString(w, r.markdown(locations))
		return err
	case FormatHTML:
		return r.html(w, locations)
	case FormatJSON:
		return r.json(w, locations)
	}
	return fmt.Errorf("unknown report format %q", f)
}

// text prints a separator line, the path, the value and every source for
// each location.
func (r Renderer) text(w io.Writer, locations []search.Location) error {
	style := func(s lipgloss.Style, v string) string {
		if r.Styled {
			return s.Render(v)
		}
		return v
	}
	var buf bytes.Buffer
	for _, loc := range locations {
		buf.WriteString(style(separatorStyle, strings.Repeat("-", separatorWidth)))
		buf.WriteString("\n")
		buf.WriteString(style(pathStyle, loc.Path))
		buf.WriteString("\n\n")
		buf.WriteString(style(valueStyle, loc.Value))
		buf.WriteString("\n\n")
		for _, src := range loc.Sources {
			buf.WriteString(style(sourceStyle, src))
			buf.WriteString("\n")
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func (r Renderer) markdown(locations []search.Location) string {
	var sb strings.Builder
	if r.Target != "" {
		fmt.Fprintf(&sb, "# Search results for %s\n\n", codeSpan(r.Target))
	} else {
		sb.WriteString("# Search results\n\n")
	}
	fmt.Fprintf(&sb, "%d location(s).\n", len(locations))
	for i, loc := range locations {
		fmt.Fprintf(&sb, "\n## %d. %s\n\n", i+1, codeSpan(loc.Path))
		sb.WriteString("**Value:**\n\n")
		sb.WriteString(codeBlock(loc.Value))
		sb.WriteString("\n**Sources:**\n\n")
		for _, src := range loc.Sources {
			fmt.Fprintf(&sb, "- %s\n", codeSpan(src))
		}
	}
	return sb.String()
}

func (r Renderer) html(w io.Writer, locations []search.Location) error {
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(r.markdown(locations)), &body); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	if _, err := io.WriteString(w, "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>modsearch results</title></head><body>\n"); err != nil {
		return err
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return err
	}
	_, err := io.WriteString(w, "</body></html>\n")
	return err
}

func (r Renderer) json(w io.Writer, locations []search.Location) error {
	if locations == nil {
		locations = []search.Location{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Target    string            `json:"target,omitempty"`
		Count     int               `json:"count"`
		Locations []search.Location `json:"locations"`
	}{r.Target, len(locations), locations})
}

// longestBacktickRun is the length of the longest run of backticks in s.
func longestBacktickRun(s string) int {
	longest, run := 0, 0
	for _, c := range s {
		if c == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return longest
}

// codeSpan wraps s in a Markdown code span whose fence is longer than any
// backtick run inside s. Line breaks become spaces so the span stays on one
// line.
func codeSpan(s string) string {
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
	longest := longestBacktickRun(s)
	fence := strings.Repeat("`", longest+1)
	if longest > 0 || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		return fence + " " + s + " " + fence
	}
	return fence + s + fence
}

// codeBlock renders s as a fenced code block. Matched values can span
// several lines, so they never go through inline markup.
func codeBlock(s string) string {
	fence := strings.Repeat("`", max(3, longestBacktickRun(s)+1))
	s = strings.TrimSuffix(s, "\n")
	return fence + "text\n" + s + "\n" + fence + "\n"
}
