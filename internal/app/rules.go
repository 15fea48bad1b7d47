package app

import "github.com/bft-labs/twitstream/internal/domain"

// DiffRules computes the changes that turn the current server side rules into
// the desired set. Rules are matched by value and tag; ids on desired rules
// are ignored. Duplicates in desired are added once, and rules in current
// without an id cannot be deleted and are skipped.
func DiffRules(desired, current []domain.Rule) (add []domain.Rule, del []string) {
	want := make(map[string]bool, len(desired))
	for _, r := range desired {
		want[r.Key()] = true
	}

	have := make(map[string]bool, len(current))
	for _, r := range current {
		key := r.Key()
		if want[key] && !have[key] {
			have[key] = true
			continue
		}
		if r.ID != "" {
			del = append(del, r.ID)
		}
	}

	for _, r := range desired {
		key := r.Key()
		if have[key] {
			continue
		}
		have[key] = true
		add = append(add, domain.Rule{Value: r.Value, Tag: r.Tag})
	}
	return add, del
}
