package scoutdex

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/scoutdex/scoutdex/record"
)

// NoMatchAnswer is returned verbatim when the corpus holds nothing to ground
// an answer on. No generation call is made in that case.
const NoMatchAnswer = "I don't have any startup data matching your question yet. Try running a sync first."

// Answer is the result of one Ask call.
type Answer struct {
	// Question is the input question, unchanged.
	Question string `json:"question"`

	// Text is the answer. When Degraded is true it is a template built
	// from the retrieved records instead of generated prose.
	Text string `json:"answer"`

	// Sources lists the record IDs whose data grounded the answer, most
	// relevant first.
	Sources []string `json:"sources,omitempty"`

	// Degraded reports that generation failed and Text is the retrieval
	// fallback.
	Degraded bool `json:"degraded,omitempty"`
}

// Ask retrieves the records most relevant to the question and generates an
// answer grounded in them.
//
// The operation degrades, never cascades: if generation fails after retries
// the retrieved records are returned as a templated summary with Degraded
// set. Only embedding failure or an unready engine abort the call.
func (e *Engine) Ask(ctx context.Context, question string) (*Answer, error) {
	started := time.Now()
	ans, retrieved, err := e.ask(ctx, question)
	degraded := ans != nil && ans.Degraded
	e.opts.Metrics.RecordAnswer(degraded, time.Since(started), err)
	e.opts.Logger.LogAnswer(ctx, retrieved, degraded, err)
	return ans, err
}

func (e *Engine) ask(ctx context.Context, question string) (*Answer, int, error) {
	if strings.TrimSpace(question) == "" {
		return nil, 0, ErrInvalidQuery
	}

	st := e.state.Load()
	if st == nil {
		return nil, 0, ErrNotReady
	}
	if st.idx == nil {
		return &Answer{Question: question, Text: NoMatchAnswer}, 0, nil
	}

	qvec, err := e.embedQuery(ctx, question)
	if err != nil {
		return nil, 0, err
	}

	hits, err := st.idx.Search(ctx, qvec, e.opts.TopK)
	if err != nil {
		return nil, 0, err
	}
	if len(hits) == 0 {
		return &Answer{Question: question, Text: NoMatchAnswer}, 0, nil
	}

	// Pack context best-first until the budget runs out, so when the
	// candidates don't all fit it is the least similar ones that drop.
	var (
		blocks  []string
		sources []string
		used    int
	)
	for _, h := range hits {
		r, _ := st.records.Get(h.ID)
		block := contextBlock(r)
		if len(blocks) > 0 && used+len(block) > e.opts.PromptBudget {
			break
		}
		blocks = append(blocks, block)
		sources = append(sources, h.ID)
		used += len(block)
	}

	prompt := buildPrompt(question, blocks)

	var text string
	err = e.opts.RetryPolicy.Do(ctx, func(ctx context.Context) error {
		var err error
		text, err = e.generator.Generate(ctx, prompt)
		return err
	})
	if err != nil {
		return &Answer{
			Question: question,
			Text:     fallbackAnswer(st, sources),
			Sources:  sources,
			Degraded: true,
		}, len(hits), nil
	}

	return &Answer{
		Question: question,
		Text:     text,
		Sources:  sources,
	}, len(hits), nil
}

func contextBlock(r record.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", r.Name)
	fmt.Fprintf(&b, "Description: %s\n", r.Description)
	if r.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s\n", r.Industry)
	}
	if r.Funding != "" {
		fmt.Fprintf(&b, "Funding: %s\n", r.Funding)
	}
	if r.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", r.Location)
	}
	if r.Founded != 0 {
		fmt.Fprintf(&b, "Founded: %d\n", r.Founded)
	}
	if r.TeamSize != 0 {
		fmt.Fprintf(&b, "Team size: %d\n", r.TeamSize)
	}
	return b.String()
}

func buildPrompt(question string, blocks []string) string {
	var b strings.Builder
	b.WriteString("Here is information about relevant startups:\n\n")
	b.WriteString(strings.Join(blocks, "\n"))
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer the question using only the startup information above.")
	return b.String()
}

// fallbackAnswer summarizes the retrieved records when generation is down.
func fallbackAnswer(st *engineState, sources []string) string {
	var b strings.Builder
	b.WriteString("I couldn't generate a full answer right now, but these startups match your question best:\n")
	for _, id := range sources {
		r, _ := st.records.Get(id)
		fmt.Fprintf(&b, "- %s", r.Name)
		if r.Industry != "" {
			fmt.Fprintf(&b, " (%s)", r.Industry)
		}
		if r.Description != "" {
			fmt.Fprintf(&b, ": %s", r.Description)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
