// Package reactions fetches reaction summaries for messages in bounded
// batches and attaches them progressively, after the message bodies are
// already on screen.
package reactions

import (
	"context"
	"log/slog"

	"github.com/m96-chan/slackscout/internal/message"
	"github.com/m96-chan/slackscout/internal/metrics"
)

// Request identifies one message to fetch reactions for. Position ties
// the async result back to its slot in the caller's list even if the
// list is concurrently being replaced.
type Request struct {
	Channel   string
	Timestamp string
	Position  int
}

// Result carries the summary for one request. A nil Summary means the
// lookup failed or the fetch for its chunk failed entirely.
type Result struct {
	Position int
	Summary  message.ReactionSummary
}

// BatchResponse is the outcome of fetching one set of requests. Result
// order is not guaranteed to match input order; consumers index by
// Position.
type BatchResponse struct {
	Reactions []Result
	Fetched   int
	Errors    int
}

// ChunkFunc performs one remote call for a chunk of requests. The
// returned map is keyed by Position; a request absent from the map is
// treated as failed. An error fails the whole chunk.
type ChunkFunc func(ctx context.Context, reqs []Request) (map[int]message.ReactionSummary, error)

// Fetcher splits requests into chunks of at most BatchSize and fetches
// each chunk with one remote call. A failed chunk yields nil summaries
// for its positions instead of aborting the batch.
type Fetcher struct {
	Fetch     ChunkFunc
	BatchSize int
}

// FetchAll fetches reactions for all requests. It never returns an
// error: failures are isolated per chunk and surfaced via Errors.
func (f *Fetcher) FetchAll(ctx context.Context, reqs []Request) BatchResponse {
	size := f.BatchSize
	if size < 1 {
		size = 1
	}

	resp := BatchResponse{Reactions: make([]Result, 0, len(reqs))}

	for start := 0; start < len(reqs); start += size {
		end := start + size
		if end > len(reqs) {
			end = len(reqs)
		}
		chunk := reqs[start:end]

		summaries, err := f.Fetch(ctx, chunk)
		if err != nil {
			slog.Warn("reaction chunk fetch failed",
				"chunk_size", len(chunk), "error", err)
			for _, req := range chunk {
				resp.Reactions = append(resp.Reactions, Result{Position: req.Position})
			}
			resp.Errors += len(chunk)
			metrics.ReactionErrors.Add(float64(len(chunk)))
			continue
		}

		for _, req := range chunk {
			summary, ok := summaries[req.Position]
			if !ok || summary == nil {
				resp.Reactions = append(resp.Reactions, Result{Position: req.Position})
				resp.Errors++
				metrics.ReactionErrors.Inc()
				continue
			}
			resp.Reactions = append(resp.Reactions, Result{Position: req.Position, Summary: summary})
			resp.Fetched++
			metrics.ReactionsFetched.Inc()
		}
	}

	return resp
}
