package recognition

import "fmt"

// MatchLocal finds the single best identity for a query embedding across all
// angle pools. ok is false iff the index is empty. The function is pure: the
// same query and index always give the same result.
func MatchLocal(query []float32, idx *IdentityIndex) (MatchResult, bool, error) {
	if idx.Len() == 0 {
		return MatchResult{}, false, nil
	}
	if len(query) != idx.dim {
		return MatchResult{}, false, fmt.Errorf("%w: query has %d dimensions, index has %d",
			ErrDimensionMismatch, len(query), idx.dim)
	}

	q, err := Normalize(query)
	if err != nil {
		return MatchResult{}, false, err
	}

	var best MatchResult
	found := false
	for _, a := range Angles {
		pool := idx.angles[a]
		if pool == nil || len(pool.vectors) == 0 {
			continue
		}
		pos, score := pool.nearest(q)
		if pos < 0 {
			continue
		}
		if !found || score > best.Score {
			m := pool.meta[pos]
			best = MatchResult{
				IdentityID:  m.ID,
				DisplayName: m.DisplayName,
				Score:       score,
				Angle:       a.String(),
				Source:      SourceLocal,
			}
			found = true
		}
	}
	return best, found, nil
}
