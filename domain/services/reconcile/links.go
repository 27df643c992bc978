package reconcile

// LinkDelta is the minimal change to an article's internal link relation
type LinkDelta struct {
	Connect    []string `json:"connected"`
	Disconnect []string `json:"disconnected"`
}

// IsEmpty reports whether applying the delta would change nothing
func (d LinkDelta) IsEmpty() bool {
	return len(d.Connect) == 0 && len(d.Disconnect) == 0
}

// ToSet drops repeated ids, keeping the first occurrence of each
func ToSet(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// DiffLinks returns next minus previous as Connect and previous minus next as
// Disconnect. Connect follows document order and Disconnect the previous order.
func DiffLinks(next, previous []string) LinkDelta {
	nextSet := ToSet(next)
	prevSet := ToSet(previous)

	inNext := make(map[string]struct{}, len(nextSet))
	for _, id := range nextSet {
		inNext[id] = struct{}{}
	}
	inPrev := make(map[string]struct{}, len(prevSet))
	for _, id := range prevSet {
		inPrev[id] = struct{}{}
	}

	delta := LinkDelta{Connect: []string{}, Disconnect: []string{}}
	for _, id := range nextSet {
		if _, ok := inPrev[id]; !ok {
			delta.Connect = append(delta.Connect, id)
		}
	}
	for _, id := range prevSet {
		if _, ok := inNext[id]; !ok {
			delta.Disconnect = append(delta.Disconnect, id)
		}
	}
	return delta
}
