package service

import (
	"fmt"
	"strings"

	"keep_up_backend/internal/model"
)

const recapInstructions = `You are a News Recap Assistant.
Summarize ONLY the events listed below into a daily recap of at most 5 items.

RULES:
1. Summarize each event in very simple, easy-to-understand language.
2. Output strict JSON only. No markdown.

SCHEMA:
[
  {
    "headline": "Short Headline",
    "summary": "2-3 sentences explaining exactly what happened and why it matters.",
    "timeAgo": "Yesterday"
  }
]
`

const quizInstructions = `Create a quiz of %d questions based ONLY on the news facts below.
Output strict JSON only. No markdown.

SCHEMA:
[
  {
    "question": "The actual question?",
    "options": ["Wrong 1", "Correct Answer", "Wrong 2"],
    "correctIndex": 1,
    "explanation": "A short 'Did You Know' fact explaining why."
  }
]
`

const researchPromptTemplate = `Find 5 distinct, trending news headlines for today in %s. Cover different topics (%s). Just list the facts.`

const formatPrompt = `You are a backend API. Convert the following news facts into a strict JSON list of 5 items.

RULES:
1. EXTRACT 5 COMPLETELY DIFFERENT STORIES. Do not repeat the same story.
2. Each item must be a different topic, one of: %s.
3. "contentLine" must be punchy and under 12 words.
4. Output ONLY the raw JSON string (no markdown).

SCHEMA:
[
  {
    "title": "Headline",
    "description": "One paragraph description.",
    "topic": "CATEGORY",
    "contentLine": "Headline text here.",
    "keywords": ["tag1", "tag2"]
  }
]

INPUT FACTS:
`

func writeFacts(b *strings.Builder, items []*model.NewsItem) {
	for _, it := range items {
		desc := it.Description
		if desc == "" {
			desc = it.ContentLine
		}
		fmt.Fprintf(b, "- %s: %s\n", it.Title, desc)
	}
}

// BuildRecapContext is the ContextBuilder for daily recaps.
func BuildRecapContext(key model.CacheKey, items []*model.NewsItem) string {
	var b strings.Builder
	b.WriteString(recapInstructions)
	fmt.Fprintf(&b, "\nEVENTS FOR DATE: %s\n", key.Date)
	if key.Scope != "" {
		fmt.Fprintf(&b, "REGION: %s\n", key.Scope)
	}
	writeFacts(&b, items)
	return b.String()
}

// BuildCategoryQuizContext is the ContextBuilder for per-category quizzes.
func BuildCategoryQuizContext(key model.CacheKey, items []*model.NewsItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, quizInstructions, 3)
	fmt.Fprintf(&b, "\nCATEGORY: %s\nDATE: %s\nNEWS FACTS:\n", key.Scope, key.Date)
	writeFacts(&b, items)
	return b.String()
}

// BuildDailyQuizContext is the ContextBuilder for the cross-category daily quiz.
func BuildDailyQuizContext(key model.CacheKey, items []*model.NewsItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, quizInstructions, 3)
	fmt.Fprintf(&b, "\nDATE: %s\nNEWS FACTS:\n", key.Date)
	writeFacts(&b, items)
	return b.String()
}

func categoryNames() string {
	cats := model.Categories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func buildResearchPrompt(region string) string {
	return fmt.Sprintf(researchPromptTemplate, region, categoryNames())
}

func buildFormatPrompt(rawFacts string) string {
	return fmt.Sprintf(formatPrompt, categoryNames()) + rawFacts
}
