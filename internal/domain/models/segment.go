package models

// Segment is a normalized half-open Order interval [From, To).
type Segment struct {
	From int `json:"from_order"`
	To   int `json:"to_order"`
}

// NewSegment normalizes two station orders regardless of travel direction.
func NewSegment(a, b int) Segment {
	if a > b {
		a, b = b, a
	}
	return Segment{From: a, To: b}
}

// SegmentBetween builds the segment covered by travelling between two stations.
func SegmentBetween(from, to Station) Segment {
	return NewSegment(from.Order, to.Order)
}

func (s Segment) Empty() bool { return s.From >= s.To }

// Overlaps reports whether two segments share more than an endpoint.
func (s Segment) Overlaps(o Segment) bool {
	return s.From < o.To && s.To > o.From
}

// Contains reports whether o lies within s, endpoints included.
func (s Segment) Contains(o Segment) bool {
	return s.From <= o.From && o.To <= s.To
}

// Legs lists the unit legs [k, k+1) the segment covers, identified by k.
// Two segments overlap iff their legs intersect.
func (s Segment) Legs() []int {
	if s.Empty() {
		return nil
	}
	out := make([]int, 0, s.To-s.From)
	for k := s.From; k < s.To; k++ {
		out = append(out, k)
	}
	return out
}
