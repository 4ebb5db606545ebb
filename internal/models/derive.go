package models

import (
	"math"
	"strings"
	"time"
	"unicode"
)

const (
	excerptWordLimit   = 30
	wordsPerMinute     = 200
	metaTitleMaxLen    = 60
	metaDescriptionLen = 160
)

// Slugify derives a URL slug from a name or title: lowercase, alphanumeric
// runs joined by single hyphens. Derived once at creation and never
// regenerated; uniqueness is enforced by the database index.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// DeriveExcerpt builds an excerpt from the first words of content. Content
// with at least the word limit gets a trailing ellipsis.
func DeriveExcerpt(content string) string {
	words := strings.Fields(content)
	if len(words) == 0 {
		return ""
	}
	if len(words) >= excerptWordLimit {
		return strings.Join(words[:excerptWordLimit], " ") + "..."
	}
	return strings.Join(words, " ")
}

// DeriveMetaTitle truncates a title for the meta_title field.
func DeriveMetaTitle(title string) string {
	return truncate(title, metaTitleMaxLen)
}

// DeriveMetaDescription truncates an excerpt for the meta_description field.
func DeriveMetaDescription(excerpt string) string {
	return truncate(excerpt, metaDescriptionLen)
}

// ReadingTime estimates reading time in minutes at 200 words per minute,
// never less than one minute.
func ReadingTime(content string) int {
	words := len(strings.Fields(content))
	minutes := int(math.Round(float64(words) / wordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// ComputeReadState fills the post's read-time derived fields.
func (p *Post) ComputeReadState() {
	p.ReadingTimeMinutes = ReadingTime(p.Content)
}

// ComputeDueState fills the task's read-time derived fields relative to now.
// is_overdue is a pure function of (due_date, status); it is never stored.
func (t *Task) ComputeDueState(now time.Time) {
	t.IsOverdue = t.DueDate.Before(now) && t.Status != TaskStatusCompleted
	t.DaysUntilDue = int(t.DueDate.Sub(now).Hours() / 24)
}

// NormalizeTagName normalizes a user-supplied tag name for get-or-create
// resolution: trimmed and lowercased.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func splitCommaList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
