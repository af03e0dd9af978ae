package reddit

import "time"

// Submission is the subset of listing-entry fields the browser renders.
type Submission struct {
	ID           string
	Fullname     string
	Title        string
	Author       string
	Subreddit    string
	Score        int
	NumComments  int
	Permalink    string
	URL          string
	SelftextHTML string
	CreatedAt    time.Time
}

// Comment is one node of a comment tree. Replies come from the nested
// listing in the API response. A "more" stub (kind t1 absent, kind "more"
// in the wire format) has More set and carries the child IDs to request
// via FetchMoreChildren instead of a body.
type Comment struct {
	ID             string
	Fullname       string
	ParentFullname string
	Author         string
	Score          int
	BodyHTML       string
	Depth          int
	Replies        []Comment
	More           bool
	MoreIDs        []string
	CreatedAt      time.Time
}

// Listing is one page of submissions plus the cursor for the next page.
// After is empty when the service has no further pages.
type Listing struct {
	Entries []Submission
	After   string
}

// CommentPage is a submission together with its top-level comment forest.
type CommentPage struct {
	Submission Submission
	Comments   []Comment
}

// Token is the result of an authorization-code or refresh-token exchange.
// RefreshToken is empty on refresh grants, which reuse the original.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}
