package rank

import (
	"math/rand/v2"
	"slices"
	"testing"
)

func TestTopK_MatchesSort(t *testing.T) {
	rng := rand.New(rand.NewPCG(21, 22))
	less := func(a, b int) bool { return a > b }

	for _, n := range []int{0, 1, 2, 3, 10, 257, 5000} {
		for _, k := range []int{0, 1, 5, n / 2, n, n + 3} {
			in := make([]int, n)
			for i := range in {
				in[i] = rng.IntN(50) // many duplicates
			}
			want := slices.Clone(in)
			slices.SortFunc(want, func(a, b int) int { return b - a })
			want = want[:min(max(k, 0), n)]

			got := topK(slices.Clone(in), k, less)
			if !slices.Equal(got, want) {
				t.Fatalf("n=%d k=%d: got %v, want %v", n, k, got, want)
			}
		}
	}
}

func TestTopK_SortedInput(t *testing.T) {
	less := func(a, b int) bool { return a < b }
	in := make([]int, 1000)
	for i := range in {
		in[i] = i
	}
	got := topK(in, 10, less)
	if !slices.Equal(got, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}) {
		t.Errorf("got %v", got)
	}
}
