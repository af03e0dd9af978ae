package content

import (
	"context"
	"fmt"
	"sync"

	"github.com/glabrego/reddterm/internal/reddit"
)

// listingMarkerID is the synthetic ID of the trailing next-page marker in
// listing mode.
const listingMarkerID = "marker:listing"

// Service is the slice of the content API the store drives. All calls may
// fail with network, rate-limit, or permission errors; the store records
// the failure on the node and leaves everything else untouched.
type Service interface {
	FetchListing(ctx context.Context, subreddit, after string) (reddit.Listing, error)
	FetchComments(ctx context.Context, submissionID string) (reddit.CommentPage, error)
	FetchMoreChildren(ctx context.Context, linkFullname string, childIDs []string) ([]reddit.Comment, error)
}

type mode int

const (
	modeListing mode = iota
	modeComments
)

// Store owns the content tree for one browsing context: either a flat
// subreddit listing or a submission with its comment tree. Callers receive
// Row snapshots from Flatten and request mutations by node ID; nodes are
// never shared. Methods are safe for concurrent use; fetches run without
// the lock held, with the Loading state as the per-node exclusion flag.
type Store struct {
	svc Service

	mu           sync.Mutex
	mode         mode
	subreddit    string
	submissionID string
	linkFullname string
	after        string
	gen          uint64
	roots        []*node
	index        map[string]*node
	byFullname   map[string]*node
}

// NewListingStore creates a store for a subreddit listing context. Nothing
// is fetched until LoadPage.
func NewListingStore(svc Service, subreddit string) *Store {
	return &Store{
		svc:        svc,
		mode:       modeListing,
		subreddit:  subreddit,
		index:      make(map[string]*node),
		byFullname: make(map[string]*node),
	}
}

// NewCommentStore creates a store for a submission's comment tree context.
func NewCommentStore(svc Service, submissionID string) *Store {
	return &Store{
		svc:          svc,
		mode:         modeComments,
		submissionID: submissionID,
		index:        make(map[string]*node),
		byFullname:   make(map[string]*node),
	}
}

// LoadPage fetches the first page for this context, replacing any prior
// content. Errors are returned as values; the store stays empty on failure
// so the caller can retry.
func (s *Store) LoadPage(ctx context.Context) error {
	switch s.currentMode() {
	case modeListing:
		return s.loadFirstListingPage(ctx)
	default:
		return s.loadCommentPage(ctx)
	}
}

func (s *Store) currentMode() mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Store) loadFirstListingPage(ctx context.Context) error {
	listing, err := s.svc.FetchListing(ctx, s.subreddit, "")
	if err != nil {
		return fmt.Errorf("load listing page: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.roots = nil
	s.index = make(map[string]*node)
	s.byFullname = make(map[string]*node)
	s.appendListingEntriesLocked(listing)
	return nil
}

func (s *Store) loadCommentPage(ctx context.Context) error {
	page, err := s.svc.FetchComments(ctx, s.submissionID)
	if err != nil {
		return fmt.Errorf("load comment page: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.index = make(map[string]*node)
	s.byFullname = make(map[string]*node)
	s.linkFullname = page.Submission.Fullname

	root := &node{
		id:         page.Submission.ID,
		kind:       KindSubmission,
		state:      Loaded,
		submission: page.Submission,
	}
	s.register(root)
	for i := range page.Comments {
		root.children = append(root.children, s.buildCommentNode(page.Comments[i], root))
	}
	s.roots = []*node{root}
	return nil
}

// LoadMore fetches the children of the identified node. It is idempotent:
// calls while the node is Loading or already Loaded return (false, nil)
// without touching the network. A Failed node retries, clearing the old
// failure. The returned bool reports whether new content was committed.
func (s *Store) LoadMore(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	n, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return false, fmt.Errorf("load more: unknown node %q", id)
	}
	if n.state == Loading || n.state == Loaded {
		s.mu.Unlock()
		return false, nil
	}
	n.state = Loading
	n.failure = ""
	after := s.after
	link := s.linkFullname
	moreIDs := append([]string(nil), n.moreIDs...)
	kind := n.kind
	gen := s.gen
	s.mu.Unlock()

	switch kind {
	case KindMarker:
		return s.loadNextListingPage(ctx, n, after, gen)
	case KindMore:
		return s.loadMoreChildren(ctx, n, link, moreIDs, gen)
	default:
		s.mu.Lock()
		n.state = Loaded
		s.mu.Unlock()
		return false, nil
	}
}

func (s *Store) loadNextListingPage(ctx context.Context, marker *node, after string, gen uint64) (bool, error) {
	listing, err := s.svc.FetchListing(ctx, s.subreddit, after)
	if err != nil {
		s.failNode(marker, err.Error(), gen)
		return false, fmt.Errorf("load next listing page: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// LoadPage replaced the tree while this fetch was in flight; the page
	// belongs to the old generation and must not land in the new one.
	if s.gen != gen {
		return false, nil
	}
	// Drop the marker, commit the page, re-add the marker if more remains.
	if len(s.roots) > 0 && s.roots[len(s.roots)-1] == marker {
		s.roots = s.roots[:len(s.roots)-1]
		delete(s.index, marker.id)
	}
	s.appendListingEntriesLocked(listing)
	return true, nil
}

func (s *Store) appendListingEntriesLocked(listing reddit.Listing) {
	for i := range listing.Entries {
		entry := &node{
			id:         listing.Entries[i].ID,
			kind:       KindSubmission,
			state:      Loaded,
			submission: listing.Entries[i],
		}
		s.roots = append(s.roots, entry)
		s.register(entry)
	}
	s.after = listing.After
	if listing.After != "" {
		marker := &node{id: listingMarkerID, kind: KindMarker, state: NotLoaded}
		s.roots = append(s.roots, marker)
		s.register(marker)
	}
}

func (s *Store) loadMoreChildren(ctx context.Context, stub *node, link string, ids []string, gen uint64) (bool, error) {
	comments, err := s.svc.FetchMoreChildren(ctx, link, ids)
	if err != nil {
		s.failNode(stub, err.Error(), gen)
		return false, fmt.Errorf("load more children: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false, nil
	}

	// Build the replacement subtree first; the stub is swapped out only
	// once the whole batch is assembled.
	built := make(map[string]*node, len(comments))
	var replacement []*node
	for i := range comments {
		c := comments[i]
		parent := built[c.ParentFullname]
		if parent == nil {
			if existing, ok := s.byFullname[c.ParentFullname]; ok && existing != stub.parent {
				parent = existing
			}
		}
		if parent == nil {
			parent = stub.parent
		}
		child := s.buildFlatCommentNode(c, parent)
		if c.Fullname != "" {
			built[c.Fullname] = child
		}
		if parent == stub.parent {
			replacement = append(replacement, child)
		} else {
			parent.children = append(parent.children, child)
		}
	}

	s.replaceChildLocked(stub.parent, stub, replacement)
	delete(s.index, stub.id)
	stub.state = Loaded
	stub.moreIDs = nil
	return true, nil
}

func (s *Store) replaceChildLocked(parent *node, old *node, replacement []*node) {
	siblings := s.roots
	if parent != nil {
		siblings = parent.children
	}
	for i, sibling := range siblings {
		if sibling != old {
			continue
		}
		next := make([]*node, 0, len(siblings)-1+len(replacement))
		next = append(next, siblings[:i]...)
		next = append(next, replacement...)
		next = append(next, siblings[i+1:]...)
		if parent != nil {
			parent.children = next
		} else {
			s.roots = next
		}
		return
	}
}

func (s *Store) failNode(n *node, reason string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	n.state = Failed
	n.failure = reason
}

// ToggleFold flips the fold flag on a comment node. Folding hides the
// subtree from Flatten but keeps the loaded data, so re-expanding is
// instant. It reports whether the node was foldable.
func (s *Store) ToggleFold(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.index[id]
	if !ok || n.kind != KindComment {
		return false
	}
	n.folded = !n.folded
	return true
}

// Flatten produces the depth-first visible view as immutable snapshots,
// skipping the contents of folded subtrees.
func (s *Store) Flatten() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]Row, 0, len(s.index))
	for _, n := range s.roots {
		rows = flattenInto(rows, n)
	}
	return rows
}

func flattenInto(rows []Row, n *node) []Row {
	rows = append(rows, n.snapshot())
	if n.folded {
		return rows
	}
	for _, child := range n.children {
		rows = flattenInto(rows, child)
	}
	return rows
}

// Title names the browsing context for the header line.
func (s *Store) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == modeListing {
		if s.subreddit == "" || s.subreddit == "front" {
			return "front page"
		}
		return "r/" + s.subreddit
	}
	if len(s.roots) > 0 {
		return s.roots[0].submission.Title
	}
	return "comments"
}

func (s *Store) buildCommentNode(c reddit.Comment, parent *node) *node {
	depth := 0
	if parent != nil {
		depth = parent.depth + 1
	}
	if parent != nil && parent.kind == KindSubmission {
		depth = 0
	}

	if c.More {
		stub := &node{
			id:      moreNodeID(c),
			kind:    KindMore,
			depth:   depth,
			parent:  parent,
			state:   NotLoaded,
			moreIDs: append([]string(nil), c.MoreIDs...),
		}
		s.register(stub)
		return stub
	}

	n := &node{
		id:      c.ID,
		kind:    KindComment,
		depth:   depth,
		parent:  parent,
		state:   Loaded,
		comment: c,
	}
	n.comment.Replies = nil
	s.register(n)
	for i := range c.Replies {
		n.children = append(n.children, s.buildCommentNode(c.Replies[i], n))
	}
	return n
}

func (s *Store) buildFlatCommentNode(c reddit.Comment, parent *node) *node {
	c.Replies = nil
	c.Depth = 0
	return s.buildCommentNode(c, parent)
}

func (s *Store) register(n *node) {
	s.index[n.id] = n
	switch n.kind {
	case KindSubmission:
		s.byFullname[n.submission.Fullname] = n
	case KindComment:
		s.byFullname[n.comment.Fullname] = n
	}
}

func moreNodeID(c reddit.Comment) string {
	if c.ID != "" {
		return "more:" + c.ID
	}
	return fmt.Sprintf("more:%s:%d", c.ParentFullname, len(c.MoreIDs))
}

// IndexOf returns the position of the row with the given ID, or -1.
func IndexOf(rows []Row, id string) int {
	for i := range rows {
		if rows[i].ID == id {
			return i
		}
	}
	return -1
}
