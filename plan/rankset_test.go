package plan

import (
	"reflect"
	"testing"
)

func TestRankSetContains(t *testing.T) {
	rs := RankSet{3, 1, 4}
	for _, r := range []int{1, 3, 4} {
		if !rs.Contains(r) {
			t.Errorf("Contains(%d) = false, want true", r)
		}
	}
	if rs.Contains(2) {
		t.Errorf("Contains(2) = true, want false")
	}
	if RankSet(nil).Contains(0) {
		t.Errorf("nil RankSet.Contains(0) = true, want false")
	}
}

func TestRankSetUnion(t *testing.T) {
	cases := []struct {
		a, b RankSet
		want RankSet
	}{
		{RankSet{0, 1}, RankSet{1, 2}, RankSet{0, 1, 2}},
		{RankSet{2, 1, 0}, RankSet{}, RankSet{0, 1, 2}},
		{nil, RankSet{5}, RankSet{5}},
		{nil, nil, RankSet{}},
	}
	for _, c := range cases {
		got := c.a.Union(c.b)
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("%v.Union(%v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}
