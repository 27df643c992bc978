// Package reconcile computes the store mutations that bring an article's
// associations in line with freshly extracted content.
package reconcile

import "github.com/solm0/solmee-xyz-keystone/domain/core/entities"

// KeywordPlan is the target keyword association set of one article, split
// into records that already exist and names that must be created
type KeywordPlan struct {
	Keywords   []string
	ConnectIDs []string
	Create     []string
}

// PlanKeywords partitions extracted keywords against the vocabulary.
// Both lists follow the extraction order and hold no duplicates.
func PlanKeywords(extracted []string, vocabulary entities.Vocabulary) KeywordPlan {
	plan := KeywordPlan{
		Keywords:   make([]string, 0, len(extracted)),
		ConnectIDs: make([]string, 0, len(extracted)),
		Create:     make([]string, 0),
	}

	seen := make(map[string]struct{}, len(extracted))
	for _, name := range extracted {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		plan.Keywords = append(plan.Keywords, name)

		if id, ok := vocabulary.Lookup(name); ok {
			plan.ConnectIDs = append(plan.ConnectIDs, id.String())
			continue
		}
		plan.Create = append(plan.Create, name)
	}

	return plan
}

// Satisfied reports whether current associations already equal the plan,
// in which case no mutation is needed
func (p KeywordPlan) Satisfied(currentIDs []string) bool {
	if len(p.Create) > 0 {
		return false
	}
	return sameSet(p.ConnectIDs, currentIDs)
}

func sameSet(a, b []string) bool {
	left := ToSet(a)
	right := ToSet(b)
	if len(left) != len(right) {
		return false
	}
	index := make(map[string]struct{}, len(left))
	for _, v := range left {
		index[v] = struct{}{}
	}
	for _, v := range right {
		if _, ok := index[v]; !ok {
			return false
		}
	}
	return true
}
