package plan

// Interval represents the half-open range of integers [Begin, End).
type Interval struct {
	Begin int
	End   int
}

func (i Interval) Len() int { return i.End - i.Begin }

// PrefixSumDispls turns a counts vector into the displacements vector a
// gatherv needs: displs[r] is the exclusive prefix sum of counts.
func PrefixSumDispls(counts []int) []int {
	displs := make([]int, len(counts))
	var offset int
	for i, c := range counts {
		displs[i] = offset
		offset += c
	}
	return displs
}
