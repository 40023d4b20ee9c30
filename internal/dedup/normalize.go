// Package dedup decides whether fetched articles were already processed.
//
// An article is a duplicate when its URL is already stored, or when a stored
// article has the same normalized title and was published on the same calendar day.
package dedup

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"NewsDigest/internal/domain"
)

const dateLayout = "2006-01-02"

// timestampLayouts are tried in order before falling back to pattern extraction.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	dateLayout,
}

var isoDateExpr = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// NormalizeTitle lowercases the title, turns every rune that is not a letter,
// digit or whitespace into a space, collapses whitespace and trims the result.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte(' ')
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// DateOnly extracts the calendar date of a source timestamp.
// The chain is strict: parse the timestamp and take its UTC date, else the first
// YYYY-MM-DD substring, else everything before the first 'T'.
func DateOnly(timestamp string) string {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, timestamp); err == nil {
			return parsed.UTC().Format(dateLayout)
		}
	}

	if match := isoDateExpr.FindString(timestamp); match != "" {
		return match
	}

	before, _, _ := strings.Cut(timestamp, "T")
	return before
}

// DayWindow turns a YYYY-MM-DD date into the half-open range covering that day.
// It reports false when the date is not a valid calendar date.
func DayWindow(date string) (domain.DayWindow, bool) {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return domain.DayWindow{}, false
	}

	return domain.DayWindow{
		Start: day.Format(dateLayout),
		End:   day.AddDate(0, 0, 1).Format(dateLayout),
	}, true
}
