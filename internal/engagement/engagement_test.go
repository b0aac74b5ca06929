package engagement

import "testing"

type counts struct{ likes, comments int64 }

func (c counts) Likes() int64    { return c.likes }
func (c counts) Comments() int64 { return c.comments }

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		in   counts
		want int64
	}{
		{name: "empty", in: counts{}, want: 0},
		{name: "likes only", in: counts{likes: 7}, want: 7},
		{name: "comments only", in: counts{comments: 3}, want: 3},
		{name: "both", in: counts{likes: 5, comments: 4}, want: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.in); got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreMonotonic(t *testing.T) {
	base := Score(counts{likes: 2, comments: 2})
	if Score(counts{likes: 3, comments: 2}) <= base {
		t.Error("score should grow with likes")
	}
	if Score(counts{likes: 2, comments: 3}) <= base {
		t.Error("score should grow with comments")
	}
}

func TestToggle(t *testing.T) {
	first := Toggle(false)
	if !first.Liked || first.Delta != 1 {
		t.Errorf("Toggle(false) = %+v, want liked with +1", first)
	}

	second := Toggle(first.Liked)
	if second.Liked || second.Delta != -1 {
		t.Errorf("Toggle(true) = %+v, want unliked with -1", second)
	}

	if net := first.Delta + second.Delta; net != 0 {
		t.Errorf("net delta after two toggles = %d, want 0", net)
	}
}

func TestToggleAlternates(t *testing.T) {
	liked := false
	var total int64
	for i := 0; i < 11; i++ {
		tr := Toggle(liked)
		if tr.Liked == liked {
			t.Fatalf("toggle %d did not change state", i)
		}
		liked = tr.Liked
		total += tr.Delta
		if total < 0 || total > 1 {
			t.Fatalf("counter drifted to %d after %d toggles", total, i+1)
		}
	}
	if !liked || total != 1 {
		t.Errorf("after odd toggles got liked=%v total=%d", liked, total)
	}
}
