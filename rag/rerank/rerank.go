// Package rerank implements the post-merge reranking stage: a model-based
// relevance judgement with a lexical token-overlap fallback. Reranking is
// always best-effort; nothing in this package propagates an error to the
// search path.
package rerank

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"unicode/utf8"

	"github.com/astramind/astramind/pkg/tokenizer"
	"github.com/astramind/astramind/rag/engine"
	"github.com/astramind/astramind/rag/interfaces"
	"github.com/astramind/astramind/rag/types"
	"github.com/mudler/xlog"
)

// maxSnippetChars caps candidate text presented to the judge so the prompt
// stays within model limits.
const maxSnippetChars = 500

// jsonArray extracts the outermost JSON list from a response that may be
// wrapped in prose.
var jsonArray = regexp.MustCompile(`(?s)\[.*\]`)

// Reranker re-scores a merged candidate shortlist. When a relevance judge
// is configured it is asked to score the candidates; a malformed or failed
// judgement falls back to lexical token overlap for the entire batch, and
// any deeper failure falls back to the input list truncated to topN.
type Reranker struct {
	judge interfaces.RelevanceJudge
}

// New creates a reranker. A nil judge means lexical-only reranking.
func New(judge interfaces.RelevanceJudge) *Reranker {
	return &Reranker{judge: judge}
}

// Rerank scores the candidates, normalizes the rerank scores onto [0,1],
// sorts descending and truncates to topN.
func (r *Reranker) Rerank(ctx context.Context, query string, results []types.Result, topN int) (reranked []types.Result) {
	if len(results) == 0 {
		return []types.Result{}
	}

	defer func() {
		if p := recover(); p != nil {
			xlog.Error("Reranking failed, returning input order", "error", p)
			reranked = truncate(results, topN)
		}
	}()

	scored := r.semanticScores(ctx, query, results)
	if scored == nil {
		scored = lexicalScores(query, results)
	}

	engine.NormalizeRerankScores(scored)
	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].RerankScore > scored[b].RerankScore
	})

	return truncate(scored, topN)
}

type judgement struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// semanticScores asks the judge to score the candidates and maps the
// returned {index, score} pairs back onto them. Indices are 1-based;
// out-of-range indices are ignored and unscored candidates default to 0.
// Returns nil when the judgement is unavailable or unparseable, signalling
// the caller to use the lexical strategy for the whole batch.
func (r *Reranker) semanticScores(ctx context.Context, query string, results []types.Result) []types.Result {
	if r.judge == nil {
		return nil
	}

	snippets := make([]string, len(results))
	for i, res := range results {
		snippets[i] = truncateText(res.Text, maxSnippetChars)
	}

	raw, err := r.judge.Judge(ctx, query, snippets)
	if err != nil {
		xlog.Warn("Relevance judge unavailable, using lexical reranker", "error", err)
		return nil
	}

	match := jsonArray.FindString(raw)
	if match == "" {
		xlog.Warn("Relevance judgement carried no JSON list, using lexical reranker")
		return nil
	}

	var judgements []judgement
	if err := json.Unmarshal([]byte(match), &judgements); err != nil {
		xlog.Warn("Relevance judgement was malformed, using lexical reranker", "error", err)
		return nil
	}

	scored := make([]types.Result, len(results))
	copy(scored, results)
	for i := range scored {
		scored[i].RerankScore = 0.0
	}
	for _, j := range judgements {
		if j.Index >= 1 && j.Index <= len(scored) {
			scored[j.Index-1].RerankScore = j.Score
		}
	}
	return scored
}

// lexicalScores rates each candidate by token-set overlap with the query:
// |q ∩ t| / (|q| + 1). The +1 avoids division by zero and slightly dampens
// scores for short queries.
func lexicalScores(query string, results []types.Result) []types.Result {
	queryTokens := tokenizer.TokenSet(query)

	scored := make([]types.Result, len(results))
	copy(scored, results)
	for i := range scored {
		overlap := 0
		for tok := range tokenizer.TokenSet(scored[i].Text) {
			if _, ok := queryTokens[tok]; ok {
				overlap++
			}
		}
		scored[i].RerankScore = float64(overlap) / float64(len(queryTokens)+1)
	}
	return scored
}

// truncateText caps text at maxChars bytes, backing up to a rune boundary
// so the judge never receives a split rune.
func truncateText(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

func truncate(results []types.Result, topN int) []types.Result {
	if topN >= 0 && len(results) > topN {
		return results[:topN]
	}
	return results
}
