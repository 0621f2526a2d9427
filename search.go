package scoutdex

import (
	"context"
	"strings"
	"time"

	"github.com/scoutdex/scoutdex/rank"
	"github.com/scoutdex/scoutdex/record"
)

// SearchResult is one ranked candidate with its calibrated score.
type SearchResult struct {
	// Record is the matched startup record.
	Record record.Record `json:"record"`

	// Rank is the 1-based position in this result set.
	Rank int `json:"rank"`

	// RawScore is the uncalibrated similarity from the index.
	RawScore float64 `json:"raw_score"`

	// ZScore is RawScore standardized against this query's candidate set.
	ZScore float64 `json:"z_score"`

	// Percent is the bounded match percentage in [0,100]. It is relative
	// to this candidate set and not comparable across queries.
	Percent float64 `json:"match_percent"`

	// Label is the qualitative match bucket.
	Label rank.Label `json:"label"`
}

// Search embeds the query and returns up to k candidates, best first, with
// query-relative calibrated scores. k <= 0 uses the configured default.
//
// An empty corpus yields an empty result set; ErrNotReady is returned only
// before any snapshot has been built or loaded.
func (e *Engine) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	started := time.Now()
	results, err := e.search(ctx, query, k)
	e.opts.Metrics.RecordSearch(k, time.Since(started), err)
	e.opts.Logger.LogSearch(ctx, k, len(results), err)
	return results, err
}

func (e *Engine) search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidQuery
	}
	if k <= 0 {
		k = e.opts.TopK
	}

	st := e.state.Load()
	if st == nil {
		return nil, ErrNotReady
	}
	if st.idx == nil {
		return nil, nil
	}

	qvec, err := e.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := st.idx.Search(ctx, qvec, k)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	raw := make([]float64, len(hits))
	for i, h := range hits {
		raw[i] = float64(h.Score)
	}
	scores := rank.Calibrate(raw, e.opts.Calibration)

	results := make([]SearchResult, len(hits))
	for i, h := range hits {
		r, _ := st.records.Get(h.ID)
		results[i] = SearchResult{
			Record:   r,
			Rank:     i + 1,
			RawScore: scores[i].Raw,
			ZScore:   scores[i].Z,
			Percent:  scores[i].Percent,
			Label:    scores[i].Label,
		}
	}
	return results, nil
}
