package reddit

import (
	"encoding/json"
	"fmt"
	"time"
)

// thing is the kind/data envelope every API object arrives in.
type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listingData struct {
	After    string  `json:"after"`
	Children []thing `json:"children"`
}

type linkData struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Title        string  `json:"title"`
	Author       string  `json:"author"`
	Subreddit    string  `json:"subreddit"`
	Score        int     `json:"score"`
	NumComments  int     `json:"num_comments"`
	Permalink    string  `json:"permalink"`
	URL          string  `json:"url"`
	SelftextHTML string  `json:"selftext_html"`
	CreatedUTC   float64 `json:"created_utc"`
}

type commentData struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	ParentID   string          `json:"parent_id"`
	Author     string          `json:"author"`
	Score      int             `json:"score"`
	BodyHTML   string          `json:"body_html"`
	Replies    json.RawMessage `json:"replies"`
	Children   []string        `json:"children"`
	CreatedUTC float64         `json:"created_utc"`
}

func parseListing(root thing) (Listing, error) {
	if root.Kind != "Listing" {
		return Listing{}, fmt.Errorf("unexpected listing kind: %q", root.Kind)
	}
	var data listingData
	if err := json.Unmarshal(root.Data, &data); err != nil {
		return Listing{}, fmt.Errorf("decode listing data: %w", err)
	}

	entries := make([]Submission, 0, len(data.Children))
	for _, child := range data.Children {
		if child.Kind != "t3" {
			continue
		}
		sub, err := parseSubmission(child)
		if err != nil {
			return Listing{}, err
		}
		entries = append(entries, sub)
	}
	return Listing{Entries: entries, After: data.After}, nil
}

// parseCommentPage handles the two-element payload of /comments/<id>.json:
// a one-link listing followed by the top-level comment listing.
func parseCommentPage(payload []thing) (CommentPage, error) {
	if len(payload) != 2 {
		return CommentPage{}, fmt.Errorf("unexpected comment payload length: %d", len(payload))
	}

	linkListing, err := parseListing(payload[0])
	if err != nil {
		return CommentPage{}, err
	}
	if len(linkListing.Entries) != 1 {
		return CommentPage{}, fmt.Errorf("expected one submission, got %d", len(linkListing.Entries))
	}

	comments, err := parseCommentForest(payload[1], 0)
	if err != nil {
		return CommentPage{}, err
	}
	return CommentPage{Submission: linkListing.Entries[0], Comments: comments}, nil
}

func parseCommentForest(root thing, depth int) ([]Comment, error) {
	var data listingData
	if err := json.Unmarshal(root.Data, &data); err != nil {
		return nil, fmt.Errorf("decode comment listing: %w", err)
	}

	out := make([]Comment, 0, len(data.Children))
	for _, child := range data.Children {
		comment, err := parseComment(child, depth)
		if err != nil {
			return nil, err
		}
		out = append(out, comment)
	}
	return out, nil
}

func parseComment(th thing, depth int) (Comment, error) {
	var data commentData
	if err := json.Unmarshal(th.Data, &data); err != nil {
		return Comment{}, fmt.Errorf("decode comment data: %w", err)
	}

	if th.Kind == "more" {
		return Comment{
			ID:             data.ID,
			ParentFullname: data.ParentID,
			Depth:          depth,
			More:           true,
			MoreIDs:        data.Children,
		}, nil
	}
	if th.Kind != "t1" {
		return Comment{}, fmt.Errorf("unexpected comment kind: %q", th.Kind)
	}

	comment := Comment{
		ID:             data.ID,
		Fullname:       data.Name,
		ParentFullname: data.ParentID,
		Author:         data.Author,
		Score:          data.Score,
		BodyHTML:       data.BodyHTML,
		Depth:          depth,
		CreatedAt:      time.Unix(int64(data.CreatedUTC), 0).UTC(),
	}

	// Replies is an empty string for leaves, a nested listing otherwise.
	if len(data.Replies) > 0 && data.Replies[0] == '{' {
		var repliesThing thing
		if err := json.Unmarshal(data.Replies, &repliesThing); err != nil {
			return Comment{}, fmt.Errorf("decode replies envelope: %w", err)
		}
		replies, err := parseCommentForest(repliesThing, depth+1)
		if err != nil {
			return Comment{}, err
		}
		comment.Replies = replies
	}
	return comment, nil
}

func parseSubmission(th thing) (Submission, error) {
	var data linkData
	if err := json.Unmarshal(th.Data, &data); err != nil {
		return Submission{}, fmt.Errorf("decode submission data: %w", err)
	}
	return Submission{
		ID:           data.ID,
		Fullname:     data.Name,
		Title:        data.Title,
		Author:       data.Author,
		Subreddit:    data.Subreddit,
		Score:        data.Score,
		NumComments:  data.NumComments,
		Permalink:    data.Permalink,
		URL:          data.URL,
		SelftextHTML: data.SelftextHTML,
		CreatedAt:    time.Unix(int64(data.CreatedUTC), 0).UTC(),
	}, nil
}
