package content

import "github.com/glabrego/reddterm/internal/reddit"

// LoadState tracks whether a node's children have been fetched. Loading
// doubles as the mutual-exclusion flag: only one fetch per node is ever in
// flight.
type LoadState int

const (
	NotLoaded LoadState = iota
	Loading
	Loaded
	Failed
)

func (s LoadState) String() string {
	switch s {
	case NotLoaded:
		return "not-loaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Kind identifies what a node represents in the flattened view.
type Kind int

const (
	KindSubmission Kind = iota // listing entry, or the root of a comment page
	KindComment
	KindMore   // "more comments" stub inside a tree
	KindMarker // trailing next-page marker of a listing
)

// node is the store's internal tree node. Callers only ever see Row
// snapshots; nodes are never handed out.
type node struct {
	id       string
	kind     Kind
	depth    int
	parent   *node
	children []*node

	state   LoadState
	failure string
	folded  bool

	submission reddit.Submission
	comment    reddit.Comment
	moreIDs    []string
}

// Row is an immutable snapshot of one visible line of the content tree.
type Row struct {
	ID      string
	Kind    Kind
	Depth   int
	State   LoadState
	Failure string
	Folded  bool

	// HiddenCount is the number of descendant rows a folded node hides.
	HiddenCount int
	// MoreCount is the number of children a more stub or listing marker
	// would fetch; zero when unknown.
	MoreCount int

	Submission reddit.Submission
	Comment    reddit.Comment
}

// IsSelectable reports whether the cursor may rest on this row. Every row
// kind is selectable; the method exists so callers don't special-case kinds.
func (r Row) IsSelectable() bool {
	return true
}

// NeedsLoad reports whether selecting this row should trigger a fetch.
func (r Row) NeedsLoad() bool {
	return (r.Kind == KindMore || r.Kind == KindMarker) && (r.State == NotLoaded || r.State == Failed)
}

func (n *node) snapshot() Row {
	row := Row{
		ID:        n.id,
		Kind:      n.kind,
		Depth:     n.depth,
		State:     n.state,
		Failure:   n.failure,
		Folded:    n.folded,
		MoreCount: len(n.moreIDs),
	}
	switch n.kind {
	case KindSubmission:
		row.Submission = n.submission
	case KindComment:
		comment := n.comment
		comment.Replies = nil // snapshots never alias store-owned data
		row.Comment = comment
	}
	if n.folded {
		row.HiddenCount = n.subtreeSize()
	}
	return row
}

func (n *node) subtreeSize() int {
	total := 0
	for _, child := range n.children {
		total += 1 + child.subtreeSize()
	}
	return total
}
