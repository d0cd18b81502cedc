// Package batch reads files that list several texts to analyze in one run.
package batch

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Separator is the line that ends one entry and starts the next
const Separator = "---"

// Entry is one text to analyze, or one page to fetch first
type Entry struct {
	Text string
	URL  string
}

// IsURL reports whether the entry names a page instead of holding text
func (e Entry) IsURL() bool {
	return e.URL != ""
}

// ReadBatchFile reads entries from a file
// Supports formats:
// - Plain text, possibly several lines: analyzed as one text
// - A single http(s) URL: the page is fetched and its text analyzed
// - "# comment" lines are ignored
// Entries are separated by a line holding only "---".
func ReadBatchFile(filename string) ([]Entry, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return Parse(string(content)), nil
}

// Parse splits batch file content into entries
func Parse(content string) []Entry {
	var entries []Entry
	var current []string

	flush := func() {
		text := strings.TrimSpace(strings.Join(current, "\n"))
		current = current[:0]
		if text == "" {
			return
		}
		if isURL(text) {
			entries = append(entries, Entry{URL: text})
			return
		}
		entries = append(entries, Entry{Text: text})
	}

	for _, line := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == Separator:
			flush()
		case strings.HasPrefix(trimmed, "#"):
		default:
			current = append(current, strings.TrimRight(line, " \t"))
		}
	}
	flush()
	return entries
}

func isURL(s string) bool {
	if strings.ContainsAny(s, " \n\t") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
