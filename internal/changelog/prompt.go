// Package changelog turns commits into a summarization prompt and turns the
// summarizer's markdown into something fit for a terminal or a web page.
package changelog

import (
	"strings"
	"time"

	"github.com/kevinmichaelchen/delta/internal/models"
)

const promptHeader = `
Create a concise technical changelog based on the changes provided below. The changelog must meet the following requirements:
	•	Format the changelog using markdown bullet points.
	•	Limit the output to a maximum of 7 bullet points (use less if you can).
	•	Include only the changelog entries—do not add any introductory text, explanations, summaries, or section headers (e.g., do not include “# Changelog”).
	•	The response should consist exclusively of the bullet points, with no text before or after.

Reference the following changes:


`

// BuildPrompt renders the instructions followed by one block per commit.
func BuildPrompt(commits []models.Commit) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	for _, c := range commits {
		b.WriteString("Commit: " + c.Message + "\n")
		b.WriteString("Author: " + c.Author + "\n")
		b.WriteString("Date: " + c.Date + "\n")
		b.WriteString("Changes:\n" + strings.Join(c.Changes, "\n") + "\n\n")
	}
	return b.String()
}

// EarliestCommitDate returns the oldest commit date in UTC, or nil when no
// commit carries a parseable date.
func EarliestCommitDate(commits []models.Commit) *time.Time {
	var earliest *time.Time
	for _, c := range commits {
		t, err := time.Parse(time.RFC3339, c.Date)
		if err != nil {
			continue
		}
		t = t.UTC()
		if earliest == nil || t.Before(*earliest) {
			earliest = &t
		}
	}
	return earliest
}

// Clean trims the summarizer's reply and unwraps a code fence around it.
func Clean(markdown string) string {
	s := strings.TrimSpace(markdown)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	if i := strings.Index(s, "\n"); i != -1 {
		s = s[i+1:]
	} else {
		return s
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
