// Package engagement scores posts and defines like state transitions.
package engagement

// Counters is anything carrying server maintained engagement counters
type Counters interface {
	Likes() int64
	Comments() int64
}

// Score is the popularity of a post: likes plus comments.
// Ties are left to the caller.
func Score(c Counters) int64 {
	return c.Likes() + c.Comments()
}

// Transition is the outcome of toggling a like
type Transition struct {
	Liked bool  `json:"liked"`
	Delta int64 `json:"delta"`
}

// Toggle flips the like state of a (user, post) pair. The caller must persist the
// row change and apply Delta to the post counter in one atomic step.
func Toggle(currentlyLiked bool) Transition {
	if currentlyLiked {
		return Transition{Liked: false, Delta: -1}
	}
	return Transition{Liked: true, Delta: 1}
}
