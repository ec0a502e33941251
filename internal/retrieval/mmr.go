package retrieval

import "math"

// MaximalMarginalRelevance returns the indexes of up to k candidates in
// selection order. The first pick is the candidate most similar to the query,
// every following pick maximises
//
//	lambda * sim(query, c) - (1 - lambda) * max(sim(c, s) for s in selected)
//
// with cosine similarity. Ties keep the lower index.
func MaximalMarginalRelevance(query []float32, candidates [][]float32, lambda float64, k int) []int {
	if k <= 0 || len(candidates) == 0 {
		return []int{}
	}
	k = min(k, len(candidates))

	querySim := make([]float64, len(candidates))
	for i, c := range candidates {
		querySim[i] = CosineSimilarity(query, c)
	}

	first := 0
	for i := 1; i < len(querySim); i++ {
		if querySim[i] > querySim[first] {
			first = i
		}
	}

	selected := make([]int, 0, k)
	selected = append(selected, first)
	taken := make([]bool, len(candidates))
	taken[first] = true

	// redundancy[i] is the highest similarity of candidate i to any selected one
	redundancy := make([]float64, len(candidates))
	for i, c := range candidates {
		redundancy[i] = CosineSimilarity(c, candidates[first])
	}

	for len(selected) < k {
		best := -1
		bestScore := math.Inf(-1)
		for i := range candidates {
			if taken[i] {
				continue
			}
			score := lambda*querySim[i] - (1-lambda)*redundancy[i]
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			break
		}

		selected = append(selected, best)
		taken[best] = true
		for i, c := range candidates {
			if !taken[i] {
				redundancy[i] = math.Max(redundancy[i], CosineSimilarity(c, candidates[best]))
			}
		}
	}

	return selected
}

// CosineSimilarity returns 0 for zero vectors and vectors of different length.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
