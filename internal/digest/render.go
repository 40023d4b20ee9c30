// Package digest turns article summaries into the email (and plain-text) digest.
package digest

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"NewsDigest/internal/dedup"
	"NewsDigest/internal/domain"
)

const (
	subjectFormat = "Daily AI News Digest - %s (%d new articles)"
	emptyNotice   = "No new articles today"
)

var page = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; padding: 20px; background-color: #f5f5f5; }
.container { background-color: white; padding: 30px; border-radius: 8px; }
h1 { color: #2c3e50; border-bottom: 3px solid #3498db; padding-bottom: 10px; }
.article { margin-bottom: 30px; padding-bottom: 20px; border-bottom: 1px solid #eee; }
.article-title { font-size: 18px; font-weight: 600; color: #2c3e50; }
.article-meta { font-size: 12px; color: #7f8c8d; }
.article-summary { color: #555; }
.read-more { color: #3498db; text-decoration: none; }
.footer { margin-top: 40px; text-align: center; font-size: 12px; color: #7f8c8d; }
</style>
</head>
<body>
<div class="container">
<h1>Daily AI News Digest</h1>
<p class="date">{{.Date}}</p>
{{- if .Items}}
<p>Your daily selection of {{len .Items}} new AI and machine learning articles.</p>
{{- range .Items}}
<div class="article">
<div class="article-title">{{.Index}}. {{.Title}}</div>
<div class="article-meta">{{.Source}} &bull; {{.Published}}</div>
<div class="article-summary">{{.Summary}}</div>
<a href="{{.URL}}" class="read-more">Read full article &rarr;</a>
</div>
{{- end}}
{{- else}}
<p class="empty">` + emptyNotice + `</p>
{{- end}}
<div class="footer">
<p>Stay informed about the latest developments in artificial intelligence.</p>
</div>
</div>
</body>
</html>
`))

type item struct {
	Index     int
	Title     string
	Source    string
	Published string
	Summary   string
	URL       string
}

type view struct {
	Date  string
	Items []item
}

// Subject builds the digest subject line for the given day.
func Subject(count int, now time.Time) string {
	return fmt.Sprintf(subjectFormat, now.Format("Monday, January 2"), count)
}

// Render builds the HTML and text variants of the digest.
func Render(summaries []domain.ArticleSummary, now time.Time) (domain.Message, error) {
	v := view{Date: now.Format("Monday, January 2, 2006")}
	for i, s := range summaries {
		v.Items = append(v.Items, item{
			Index:     i + 1,
			Title:     s.Title,
			Source:    s.Source,
			Published: PublishedLabel(s.PublishedAt),
			Summary:   s.Summary,
			URL:       s.URL,
		})
	}

	var html bytes.Buffer
	if err := page.Execute(&html, v); err != nil {
		return domain.Message{}, fmt.Errorf("render digest: %w", err)
	}

	return domain.Message{
		Subject: Subject(len(summaries), now),
		HTML:    html.String(),
		Text:    renderText(v),
	}, nil
}

// PublishedLabel formats a publish timestamp as "Jan 2, 2006", keeping the raw
// value when it cannot be parsed.
func PublishedLabel(raw string) string {
	day, err := time.Parse(time.DateOnly, dedup.DateOnly(raw))
	if err != nil {
		return raw
	}
	return day.Format("Jan 2, 2006")
}

func renderText(v view) string {
	var b strings.Builder
	b.WriteString("Daily AI News Digest\n")
	b.WriteString(v.Date)
	b.WriteString("\n\n")

	if len(v.Items) == 0 {
		b.WriteString(emptyNotice)
		b.WriteString("\n")
		return b.String()
	}

	for _, it := range v.Items {
		fmt.Fprintf(&b, "%d. %s\n%s | %s\n%s\n%s\n\n", it.Index, it.Title, it.Source, it.Published, it.Summary, it.URL)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
