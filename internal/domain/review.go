package domain

import "time"

// CompletionReview records one party's verdict on completed work. Both the
// tenant and the landlord hold an independent slot on the aggregate; a
// rework cycle clears both.
type CompletionReview struct {
	Approved   bool
	Rating     *int
	Feedback   string
	ReviewedAt time.Time
}

func (c CompletionReview) clone() CompletionReview {
	copied := c
	copied.Rating = clonePtr(c.Rating)
	return copied
}

// ValidRating reports whether a rating is within the 1-5 scale.
func ValidRating(rating int) bool {
	return rating >= 1 && rating <= 5
}
