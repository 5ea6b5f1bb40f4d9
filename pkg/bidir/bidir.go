// Package bidir splits every link into a forward and a reverse copy so both
// directions can be drawn side by side.
package bidir

import (
	"math"
	"sort"
	"unicode/utf16"

	"github.com/recera/dualgraph/pkg/graph"
)

// PairKey is the order-independent key of the node pair a link connects
func PairKey(a, b string) string {
	if a < b {
		return a + "||" + b
	}
	return b + "||" + a
}

// Expand returns a forward and a reverse copy of every link. Links sharing
// an unordered endpoint pair get parallel signs +1, -1, +2, -2, ... with
// forward copies ahead of reverse ones. The input is not modified.
func Expand(links []graph.Link) []graph.Link {
	out := make([]graph.Link, 0, len(links)*2)
	for _, l := range links {
		fwd := l
		fwd.ID = l.Source + "-" + l.Target + "-fwd"
		fwd.IsReverse = false

		rev := l
		rev.ID = l.Target + "-" + l.Source + "-rev"
		rev.Source, rev.Target = l.Target, l.Source
		rev.IsReverse = true

		out = append(out, fwd, rev)
	}

	groups := make(map[string][]int)
	var order []string
	for i, l := range out {
		k := PairKey(l.Source, l.Target)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}
	for _, k := range order {
		idx := groups[k]
		sort.SliceStable(idx, func(a, b int) bool {
			return !out[idx[a]].IsReverse && out[idx[b]].IsReverse
		})
		for j, i := range idx {
			out[i].ParallelSign = parallelSign(j)
		}
	}
	return out
}

// parallelSign maps 0, 1, 2, 3, ... to +1, -1, +2, -2, ...
func parallelSign(j int) int {
	mag := j/2 + 1
	if j%2 == 1 {
		return -mag
	}
	return mag
}

// PairHashAngle derives a stable angle in [0, 2π) from the link's unordered
// endpoint pair, so both directions of a pair share it. The hash runs in
// 32-bit integer arithmetic over UTF-16 code units so browsers produce the
// same angle.
func PairHashAngle(l graph.Link) float64 {
	key := PairKey(l.Source, l.Target)
	var h int64 = 2166136261
	for _, c := range utf16.Encode([]rune(key)) {
		x := int32(uint32(h)) ^ int32(c)
		h = int64(x) + int64(x<<1) + int64(x<<4) + int64(x<<7) + int64(x<<8) + int64(x<<24)
	}
	if h < 0 {
		h = -h
	}
	t := h % 360
	return float64(t) / 360 * 2 * math.Pi
}
