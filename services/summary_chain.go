package services

import (
	"context"
	"fmt"
	"strings"

	"tutor-genai-service/internal/ai"
)

const summaryMapPrompt = `Write a concise summary of the following portion of a study document. Keep every key concept, definition and result; drop filler.

%s

CONCISE SUMMARY:`

const summaryReducePrompt = `The following are partial summaries of consecutive portions of one study document, in reading order.

%s

Distill them into one final, consolidated summary of the whole document in Markdown. Use headings and bullet points where they help. Produce a medium-length summary: thorough enough to study from, short enough to read in a few minutes. Output only the Markdown summary, with no preamble.`

// SummaryChain produces a whole-document Markdown summary with a map-reduce
// pass: each generation chunk is summarized independently, then the partial
// summaries are consolidated in one reduce call.
type SummaryChain struct {
	completer   ai.Completer
	concurrency int
}

func NewSummaryChain(completer ai.Completer, concurrency int) *SummaryChain {
	return &SummaryChain{completer: completer, concurrency: concurrency}
}

func (c *SummaryChain) Run(ctx context.Context, chunks []string) (string, error) {
	partials, err := mapChunks(ctx, chunks, c.concurrency, func(ctx context.Context, chunk string) (string, error) {
		return c.completer.Complete(ctx, fmt.Sprintf(summaryMapPrompt, chunk))
	})
	if err != nil {
		return "", fmt.Errorf("summary map stage: %w", err)
	}

	summary, err := c.completer.Complete(ctx, fmt.Sprintf(summaryReducePrompt, strings.Join(partials, "\n\n---\n\n")))
	if err != nil {
		return "", fmt.Errorf("summary reduce stage: %w", err)
	}
	return strings.TrimSpace(summary), nil
}
