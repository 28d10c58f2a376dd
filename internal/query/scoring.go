package query

import "math"

// bm25K1 and bm25B are the fixed BM25-style constants spec.md §4.5
// mandates as the required default; they are not configurable so that
// scoring stays deterministic across implementations.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// termWeight computes w_t for one matched term against one document,
// per the formula in spec.md §4.5.
func termWeight(documentFrequency, totalDocuments, termFrequency, documentLength int, avgDocumentLength float64) float64 {
	idf := math.Log(float64(totalDocuments+1)/float64(documentFrequency+1)) + 1

	denom := float64(termFrequency) + bm25K1*(1-bm25B+bm25B*float64(documentLength)/math.Max(avgDocumentLength, 1))
	if denom == 0 {
		return 0
	}
	return idf * (float64(termFrequency) * (bm25K1 + 1)) / denom
}

// normalizeScores divides every raw score by the maximum in the set,
// per spec.md §4.5 "Normalize to [0, 1]". If the maximum is zero, every
// score is left at zero.
func normalizeScores(raw map[string]float64) map[string]float64 {
	max := 0.0
	for _, v := range raw {
		if v > max {
			max = v
		}
	}
	out := make(map[string]float64, len(raw))
	if max == 0 {
		for id := range raw {
			out[id] = 0
		}
		return out
	}
	for id, v := range raw {
		out[id] = v / max
	}
	return out
}
