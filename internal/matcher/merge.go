package matcher

import "mangamatch/internal/catalog"

// MergeResults folds a fresh run into previously saved results. A decided
// previous result keeps its status, selection and timestamp but takes the
// fresh candidates; pending ones are replaced outright. Decided results with
// no fresh counterpart are kept after the fresh ones.
func MergeResults(previous, fresh []catalog.MatchResult) []catalog.MatchResult {
	prior := make(map[string]catalog.MatchResult, len(previous))
	for _, r := range previous {
		prior[r.Input.Key()] = r
	}

	out := make([]catalog.MatchResult, 0, len(fresh)+len(previous))
	seen := make(map[string]struct{}, len(fresh))
	for _, r := range fresh {
		key := r.Input.Key()
		seen[key] = struct{}{}
		if p, ok := prior[key]; ok && p.Status.Decided() {
			r.Status = p.Status
			r.Selected = p.Selected
			r.MatchedAt = p.MatchedAt
		}
		out = append(out, r)
	}
	for _, r := range previous {
		key := r.Input.Key()
		if _, ok := seen[key]; ok || !r.Status.Decided() {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
