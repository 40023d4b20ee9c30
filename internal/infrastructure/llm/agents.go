package llm

import (
	"context"
	"fmt"
	"strings"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

const filterInstructions = `You are an AI & ML news content filter. Your job is to determine whether an article is genuinely related to Artificial Intelligence, Machine Learning, LLMs, Deep Learning, Neural Networks, or related AI technologies.

Evaluate the article based on:
- Title: Does it mention AI/ML technologies?
- Description/Content: Is the core topic about AI/ML or just tangentially related?
- Relevance: Is this news about AI/ML developments, tools, research, or applications?

REJECT (not AI/ML related):
- Casino bonuses, gambling, finance products unrelated to AI
- Entertainment news not featuring AI prominently
- General business/tech news that doesn't focus on AI/ML
- Marketing content disguised as news
- News about services using basic automation but not AI

ACCEPT (AI/ML related):
- LLM models and research (GPT, Claude, Gemini, Local LLMs, etc.)
- Machine Learning breakthroughs and applications
- AI tools and platforms
- AI governance, safety, and policy
- Companies announcing AI features
- AI research papers and academic work
- Neural networks and deep learning advances

Respond with "Yes" if relevant to AI/ML, "No" if not.

Be strict about relevance - casino bonuses, gambling products, and generic services are NOT AI/ML news.`

const summarizeInstructions = `You are an AI news summarizer. Create concise, informative 2-3 sentence summaries of news articles.

Focus on:
- Key developments and breakthroughs
- Important implications for the AI industry
- Actionable insights for readers
- Technical details that matter

Keep summaries clear, engaging, and suitable for a daily newsletter format.`

const noDescription = "No description available"

// Classifier asks the model whether an article is about AI and ML.
type Classifier struct {
	completer ports.Completer
}

var _ ports.RelevanceClassifier = (*Classifier)(nil)

// NewClassifier wraps a completer with the filter instructions.
func NewClassifier(c ports.Completer) *Classifier {
	return &Classifier{completer: c}
}

// Classify returns the raw model answer.
func (c *Classifier) Classify(ctx context.Context, article domain.CandidateArticle) (string, error) {
	prompt := "Is the following AI news article relevant to AI and ML?\n\n" +
		articleBlock(article) +
		"\n\nPlease respond with \"Yes\" or \"No\"."

	answer, err := c.completer.Complete(ctx, filterInstructions, prompt)
	if err != nil {
		return "", fmt.Errorf("classify %q: %w", article.Title, err)
	}
	return answer, nil
}

// Summarizer produces the short digest text of an article.
type Summarizer struct {
	completer ports.Completer
}

var _ ports.Summarizer = (*Summarizer)(nil)

// NewSummarizer wraps a completer with the summarizer instructions.
func NewSummarizer(c ports.Completer) *Summarizer {
	return &Summarizer{completer: c}
}

// Summarize returns a 2-3 sentence summary.
func (s *Summarizer) Summarize(ctx context.Context, article domain.CandidateArticle) (string, error) {
	prompt := "Summarize this AI news article in 2-3 concise sentences:\n\n" + articleBlock(article)

	summary, err := s.completer.Complete(ctx, summarizeInstructions, prompt)
	if err != nil {
		return "", fmt.Errorf("summarize %q: %w", article.Title, err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", fmt.Errorf("summarize %q: empty summary", article.Title)
	}
	return summary, nil
}

func articleBlock(a domain.CandidateArticle) string {
	description := a.Description
	if description == "" {
		description = noDescription
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\nSource: %s\nPublished: %s\n\nDescription: %s", a.Title, a.Source.Name, a.PublishedAt, description)
	if a.Content != "" {
		fmt.Fprintf(&b, "\n\nContent: %s", a.Content)
	}
	return b.String()
}
