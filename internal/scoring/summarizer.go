package scoring

import (
	"context"
	"strings"
	"sync"

	"github.com/wonny/threes/backend/internal/contracts"
)

// digestResult is one summarizer outcome
type digestResult struct {
	kind     string
	text     string
	degraded bool // reasoning 실패로 원본 데이터를 그대로 사용
}

// summarize runs the three summarizers for one snapshot concurrently.
// An empty bundle yields the fixed no-data digest without a call; a failed
// call degrades to the rendered raw data so the evaluator still sees facts.
func summarize(ctx context.Context, svc contracts.ReasoningService, snap *contracts.Snapshot) (map[string]string, int) {
	bodies := map[string]string{
		DigestNews:        renderNews(snap.News),
		DigestTechnical:   renderTechnical(snap.Technical, snap.Flow),
		DigestFundamental: renderFundamental(snap.Fundamental),
	}

	results := make(chan digestResult, len(bodies))
	var wg sync.WaitGroup
	for kind, body := range bodies {
		if body == "" {
			results <- digestResult{kind: kind, text: noDataDigest}
			continue
		}
		wg.Add(1)
		go func(kind, body string) {
			defer wg.Done()
			text, err := svc.Ask(ctx, summarizerPrompt(kind, snap.Instrument, body), contracts.TierCheap)
			text = strings.TrimSpace(text)
			if err != nil || text == "" {
				results <- digestResult{kind: kind, text: body, degraded: true}
				return
			}
			results <- digestResult{kind: kind, text: text}
		}(kind, body)
	}
	wg.Wait()
	close(results)

	digests := make(map[string]string, len(bodies))
	degraded := 0
	for r := range results {
		digests[r.kind] = r.text
		if r.degraded {
			degraded++
		}
	}
	return digests, degraded
}
