package plan

import "sort"

// RankSet is a set of ranks within the coupling group's communicator.
type RankSet []int

func (rs RankSet) set() map[int]struct{} {
	s := make(map[int]struct{}, len(rs))
	for _, r := range rs {
		s[r] = struct{}{}
	}
	return s
}

func (rs RankSet) Contains(rank int) bool {
	for _, r := range rs {
		if r == rank {
			return true
		}
	}
	return false
}

// Union returns the sorted, de-duplicated union of rs and other.
//
// Used by the transfer descriptor builder to compute the dedicated
// subgroup for a plan: ranks(nspSend) ∪ ranks(nspRecv).
func (rs RankSet) Union(other RankSet) RankSet {
	s := rs.set()
	for _, r := range other {
		s[r] = struct{}{}
	}
	return sortedKeys(s)
}

func sortedKeys(s map[int]struct{}) RankSet {
	out := make(RankSet, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Ints(out)
	return out
}
