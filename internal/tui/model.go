package tui

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/glabrego/reddterm/internal/auth"
	"github.com/glabrego/reddterm/internal/content"
	"github.com/glabrego/reddterm/internal/reddit"
	"github.com/glabrego/reddterm/internal/storage"
	"github.com/glabrego/reddterm/internal/tui/nav"
)

// Service is the slice of the reddit client the browser needs. It is a
// superset of content.Service so one client value serves both the stores and
// the action commands.
type Service interface {
	FetchListing(ctx context.Context, subreddit, after string) (reddit.Listing, error)
	FetchComments(ctx context.Context, submissionID string) (reddit.CommentPage, error)
	FetchMoreChildren(ctx context.Context, linkFullname string, childIDs []string) ([]reddit.Comment, error)
	Vote(ctx context.Context, fullname string, dir int) error
	Comment(ctx context.Context, parentFullname, text string) error
	Edit(ctx context.Context, fullname, text string) error
	Delete(ctx context.Context, fullname string) error
}

// AuthFlow is the interactive login surface. Begin returns the URL the user
// must visit; Wait blocks until the callback round-trip completes.
type AuthFlow interface {
	Begin() (string, error)
	Wait(ctx context.Context) (reddit.Token, error)
	Cancel()
}

type phase int

const (
	phaseBrowsing phase = iota
	phaseLoading
	phaseError
	phaseAwaitingAuth
)

// promptKind selects what the one-line input at the bottom collects.
type promptKind int

const (
	promptNone promptKind = iota
	promptReply
	promptEdit
	promptSubreddit
)

type pageReadyMsg struct {
	store *content.Store
}

type pageErrorMsg struct {
	err error
}

type moreLoadedMsg struct {
	id  string
	err error
}

type actionDoneMsg struct {
	status  string
	refresh bool
	err     error
}

type authStartedMsg struct {
	url string
	err error
}

type authDoneMsg struct {
	token reddit.Token
	err   error
}

type historyErrorMsg struct {
	err error
}

type clearStatusMsg struct {
	id int
}

// Options wires the model's collaborators. Service is required; everything
// else degrades gracefully when absent.
type Options struct {
	Service   Service
	Auth      AuthFlow
	Session   *auth.Session
	Tokens    *auth.TokenStore
	History   *storage.Repository
	Visited   map[string]bool
	Subreddit string
	// SubmissionID opens a comment page directly instead of a listing.
	SubmissionID string
	// Revoke invalidates a refresh token server-side when switching accounts.
	Revoke  func(ctx context.Context, refreshToken string) error
	Unicode bool
	Persist bool
}

type Model struct {
	svc     Service
	auth    AuthFlow
	session *auth.Session
	tokens  *auth.TokenStore
	history *storage.Repository
	visited map[string]bool

	subreddit    string
	submissionID string

	store      *content.Store
	rows       []content.Row
	sel        int
	offset     int
	commentCtx bool

	// The listing context survives while a comment page is open so that
	// backing out restores the exact cursor position.
	savedListing *content.Store
	savedSel     int
	savedOffset  int

	phase       phase
	confirmQuit bool
	showHelp    bool

	prompt       promptKind
	promptTarget string // fullname a reply or edit applies to
	promptLabel  string
	promptText   []rune

	revoke  func(ctx context.Context, refreshToken string) error
	authURL string

	status    string
	statusID  int
	statusTTL time.Duration

	unicode bool
	persist bool
	width   int
	height  int

	openURLFn func(string) error
}

func NewModel(opts Options) Model {
	visited := opts.Visited
	if visited == nil {
		visited = make(map[string]bool)
	}
	return Model{
		svc:          opts.Service,
		auth:         opts.Auth,
		session:      opts.Session,
		tokens:       opts.Tokens,
		history:      opts.History,
		visited:      visited,
		subreddit:    opts.Subreddit,
		submissionID: opts.SubmissionID,
		revoke:       opts.Revoke,
		commentCtx:   opts.SubmissionID != "",
		phase:        phaseLoading,
		statusTTL:    4 * time.Second,
		unicode:      opts.Unicode,
		persist:      opts.Persist,
		openURLFn:    openURLInBrowser,
	}
}

func (m Model) Init() tea.Cmd {
	if m.submissionID != "" {
		return loadPageCmd(content.NewCommentStore(m.svc, m.submissionID))
	}
	return loadPageCmd(content.NewListingStore(m.svc, m.subreddit))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.offset = m.scrollTo(m.offset, m.sel)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case pageReadyMsg:
		m.store = msg.store
		m.rows = m.store.Flatten()
		m.sel = 0
		m.offset = 0
		m.phase = phaseBrowsing
		m.status = ""
		return m, nil
	case pageErrorMsg:
		m.phase = phaseError
		m.status = msg.err.Error()
		// A comment page that never committed leaves us on the listing.
		if m.savedListing != nil && m.store == m.savedListing {
			m.savedListing = nil
			m.commentCtx = false
		}
		return m, nil
	case moreLoadedMsg:
		return m.afterStructuralChange(msg.id, msg.err)
	case actionDoneMsg:
		if msg.err != nil {
			m.phase = phaseError
			m.status = actionErrorStatus(msg.err)
			return m, nil
		}
		m.status = msg.status
		m.statusID++
		cmds := []tea.Cmd{clearStatusCmd(m.statusID, m.statusTTL)}
		if msg.refresh && m.store != nil {
			m.phase = phaseLoading
			cmds = append(cmds, loadPageCmd(m.store))
		}
		return m, tea.Batch(cmds...)
	case authStartedMsg:
		if msg.err != nil {
			m.phase = phaseBrowsing
			if errors.Is(msg.err, auth.ErrBusy) {
				m.status = "a login is already in progress"
			} else {
				m.status = "login failed: " + msg.err.Error()
			}
			return m, nil
		}
		m.authURL = msg.url
		if m.openURLFn != nil {
			_ = m.openURLFn(msg.url)
		}
		return m, waitAuthCmd(m.auth)
	case authDoneMsg:
		m.authURL = ""
		m.phase = phaseBrowsing
		if msg.err != nil {
			if errors.Is(msg.err, auth.ErrCanceled) {
				m.status = "login canceled"
			} else {
				m.status = "login failed: " + msg.err.Error()
			}
			return m, nil
		}
		if m.session != nil {
			m.session.SetToken(msg.token.AccessToken)
		}
		m.status = "logged in"
		m.statusID++
		return m, clearStatusCmd(m.statusID, m.statusTTL)
	case historyErrorMsg:
		m.status = "history not saved: " + msg.err.Error()
		m.statusID++
		return m, clearStatusCmd(m.statusID, m.statusTTL)
	case clearStatusMsg:
		if msg.id == m.statusID && m.phase != phaseError {
			m.status = ""
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.confirmQuit {
		if key == "y" {
			if m.auth != nil {
				m.auth.Cancel()
			}
			return m, tea.Quit
		}
		m.confirmQuit = false
		return m, nil
	}

	if key == "ctrl+c" || (key == "q" && m.prompt == promptNone) {
		m.confirmQuit = true
		return m, nil
	}

	if m.prompt != promptNone {
		return m.handlePromptKey(msg)
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if key == "?" {
		m.showHelp = true
		return m, nil
	}

	if m.phase == phaseAwaitingAuth {
		if key == "esc" && m.auth != nil {
			m.auth.Cancel()
		}
		return m, nil
	}

	// Busy loading a whole page: navigation waits for the in-flight fetch.
	if m.phase == phaseLoading {
		return m, nil
	}

	switch key {
	case "up", "k":
		return m.moveSelection(-1)
	case "down", "j":
		return m.moveSelection(1)
	case "pgup", "ctrl+b":
		sel, offset := nav.PageUp(m.sel, m.viewHeight(), len(m.rows))
		return m.settleSelection(sel, offset)
	case "pgdown", "ctrl+f":
		sel, offset := nav.PageDown(m.sel, m.viewHeight(), len(m.rows))
		return m.settleSelection(sel, offset)
	case "g":
		return m.settleSelection(0, 0)
	case "G":
		sel := nav.Clamp(len(m.rows)-1, len(m.rows))
		return m.settleSelection(sel, m.offset)
	case "enter", " ":
		return m.activateSelection()
	case "h", "left":
		return m.foldParent()
	case "esc", "backspace":
		return m.leaveComments()
	case "f":
		m.phase = phaseLoading
		m.status = ""
		if m.store == nil {
			// Initial load never committed; start the context over.
			return m, m.Init()
		}
		return m, loadPageCmd(m.store)
	case "a":
		return m.vote(1)
	case "z":
		return m.vote(-1)
	case "o":
		return m.openCurrent()
	case "r":
		return m.beginReply()
	case "e":
		return m.beginEdit()
	case "d":
		return m.deleteCurrent()
	case "/":
		return m.beginSubredditPrompt()
	case "F":
		return m.switchSubreddit("front")
	case "u":
		return m.beginLogin()
	case "U":
		return m.forgetLogin()
	}

	return m, nil
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		kind := m.prompt
		m.prompt = promptNone
		m.promptText = nil
		switch kind {
		case promptReply:
			m.status = "reply discarded"
		case promptEdit:
			m.status = "edit discarded"
		default:
			return m, nil
		}
		m.statusID++
		return m, clearStatusCmd(m.statusID, m.statusTTL)
	case "enter":
		kind := m.prompt
		text := string(m.promptText)
		m.prompt = promptNone
		m.promptText = nil
		if kind == promptSubreddit {
			return m.switchSubreddit(text)
		}
		if text == "" {
			return m, nil
		}
		if kind == promptEdit {
			return m, editCmd(m.svc, m.promptTarget, text)
		}
		return m, replyCmd(m.svc, m.promptTarget, text)
	case "backspace":
		if len(m.promptText) > 0 {
			m.promptText = m.promptText[:len(m.promptText)-1]
		}
		return m, nil
	}
	if msg.Type == tea.KeyRunes {
		m.promptText = append(m.promptText, msg.Runes...)
	} else if msg.Type == tea.KeySpace {
		m.promptText = append(m.promptText, ' ')
	}
	return m, nil
}

// moveSelection shifts the cursor and, when it lands on the trailing
// next-page marker, kicks off exactly one page fetch.
func (m Model) moveSelection(delta int) (tea.Model, tea.Cmd) {
	sel := nav.Move(m.sel, delta, len(m.rows))
	return m.settleSelection(sel, m.offset)
}

func (m Model) settleSelection(sel, offset int) (tea.Model, tea.Cmd) {
	m.sel = nav.Clamp(sel, len(m.rows))
	m.offset = m.scrollTo(offset, m.sel)
	if m.phase == phaseError {
		m.phase = phaseBrowsing
		m.status = ""
	}
	return m, m.maybeAutoLoad()
}

// scrollTo returns the offset that keeps the selection on screen. Rows
// render to varying numbers of terminal lines (wrapped bodies, submission
// headers), so after the row-unit scroll the offset keeps advancing until
// the span from the top row through the selection fits the line budget.
func (m Model) scrollTo(offset, sel int) int {
	if len(m.rows) == 0 {
		return 0
	}
	sel = nav.Clamp(sel, len(m.rows))
	offset = nav.Scroll(offset, sel, m.viewHeight(), len(m.rows))
	for offset < sel && m.spanLines(offset, sel) > m.viewHeight() {
		offset++
	}
	return offset
}

func (m Model) spanLines(from, to int) int {
	total := 0
	for i := from; i <= to && i < len(m.rows); i++ {
		total += len(m.rowLines(i))
	}
	return total
}

// maybeAutoLoad triggers the lazy page fetch when the cursor rests on the
// listing's tail marker. The store's Loading state guarantees at most one
// fetch regardless of how many times the cursor re-lands here.
func (m Model) maybeAutoLoad() tea.Cmd {
	if m.store == nil || len(m.rows) == 0 {
		return nil
	}
	row := m.rows[m.sel]
	if row.Kind != content.KindMarker || !row.NeedsLoad() {
		return nil
	}
	m.rows[m.sel].State = content.Loading
	return loadMoreCmd(m.store, row.ID)
}

// activateSelection is enter/space: open a submission's comments, expand a
// more stub or marker, or fold a comment.
func (m Model) activateSelection() (tea.Model, tea.Cmd) {
	if m.store == nil || len(m.rows) == 0 {
		return m, nil
	}
	row := m.rows[m.sel]
	switch row.Kind {
	case content.KindSubmission:
		if m.inComments() {
			return m, nil
		}
		return m.enterComments(row.Submission)
	case content.KindComment:
		m.store.ToggleFold(row.ID)
		return m.refreshRows(row.ID)
	case content.KindMore, content.KindMarker:
		if !row.NeedsLoad() {
			return m, nil
		}
		m.rows[m.sel].State = content.Loading
		if m.phase == phaseError {
			m.phase = phaseBrowsing
			m.status = ""
		}
		return m, loadMoreCmd(m.store, row.ID)
	}
	return m, nil
}

func (m Model) enterComments(sub reddit.Submission) (tea.Model, tea.Cmd) {
	m.savedListing = m.store
	m.savedSel = m.sel
	m.savedOffset = m.offset
	m.commentCtx = true
	m.phase = phaseLoading
	m.status = ""
	m.visited[sub.ID] = true
	cmds := []tea.Cmd{loadPageCmd(content.NewCommentStore(m.svc, sub.ID))}
	if m.persist && m.history != nil {
		cmds = append(cmds, markVisitedCmd(m.history, sub))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) leaveComments() (tea.Model, tea.Cmd) {
	if !m.inComments() || m.savedListing == nil {
		return m, nil
	}
	m.store = m.savedListing
	m.savedListing = nil
	m.commentCtx = false
	m.rows = m.store.Flatten()
	m.sel = nav.Clamp(m.savedSel, len(m.rows))
	m.offset = m.scrollTo(m.savedOffset, m.sel)
	m.phase = phaseBrowsing
	m.status = ""
	return m, nil
}

// foldParent folds the nearest comment ancestor of the selection. When that
// removes the selected row from view, the selection lands on the folded
// ancestor itself.
func (m Model) foldParent() (tea.Model, tea.Cmd) {
	if len(m.rows) == 0 {
		return m, nil
	}
	row := m.rows[m.sel]
	if row.Kind != content.KindComment && row.Kind != content.KindMore {
		return m, nil
	}
	target := row.ID
	if row.Kind == content.KindMore || row.Depth > 1 || row.Folded {
		for i := m.sel - 1; i >= 0; i-- {
			if m.rows[i].Kind == content.KindComment && m.rows[i].Depth < row.Depth {
				target = m.rows[i].ID
				break
			}
		}
	}
	if !m.store.ToggleFold(target) {
		return m, nil
	}
	return m.refreshRows(target)
}

// refreshRows re-flattens after a structural change, keeping the selection on
// the same row when it survived and falling back to the given anchor when it
// did not.
func (m Model) refreshRows(anchor string) (tea.Model, tea.Cmd) {
	selID := ""
	if m.sel < len(m.rows) {
		selID = m.rows[m.sel].ID
	}
	m.rows = m.store.Flatten()
	idx := content.IndexOf(m.rows, selID)
	if idx < 0 {
		idx = content.IndexOf(m.rows, anchor)
	}
	if idx < 0 {
		idx = nav.Clamp(m.sel, len(m.rows))
	}
	m.sel = idx
	m.offset = m.scrollTo(m.offset, m.sel)
	return m, nil
}

func (m Model) afterStructuralChange(anchor string, err error) (tea.Model, tea.Cmd) {
	if err != nil {
		m.phase = phaseError
		m.status = actionErrorStatus(err)
	}
	if m.store == nil {
		return m, nil
	}
	// A committed page pushes the re-appended tail marker below the new
	// rows; the selection should land on the first of them, not follow the
	// marker to the bottom.
	wasMarker := err == nil && m.sel < len(m.rows) && m.rows[m.sel].Kind == content.KindMarker
	oldSel := m.sel
	next, cmd := m.refreshRows(anchor)
	updated := next.(Model)
	if wasMarker && oldSel < len(updated.rows) && updated.rows[oldSel].Kind != content.KindMarker {
		updated.sel = oldSel
		updated.offset = updated.scrollTo(updated.offset, updated.sel)
	}
	return updated, cmd
}

func (m Model) vote(dir int) (tea.Model, tea.Cmd) {
	fullname, ok := m.currentFullname()
	if !ok {
		return m, nil
	}
	if !m.sessionActive() {
		return m.needLogin()
	}
	return m, voteCmd(m.svc, fullname, dir)
}

func (m Model) beginReply() (tea.Model, tea.Cmd) {
	if len(m.rows) == 0 {
		return m, nil
	}
	if !m.sessionActive() {
		return m.needLogin()
	}
	row := m.rows[m.sel]
	switch row.Kind {
	case content.KindSubmission:
		m.promptTarget = row.Submission.Fullname
		m.promptLabel = "reply to " + row.Submission.Author
	case content.KindComment:
		m.promptTarget = row.Comment.Fullname
		m.promptLabel = "reply to " + row.Comment.Author
	default:
		return m, nil
	}
	m.prompt = promptReply
	m.promptText = nil
	return m, nil
}

// beginEdit opens the input for replacing the selected thing's body. The
// API rejects edits of other people's content, so ownership is left to the
// server to enforce.
func (m Model) beginEdit() (tea.Model, tea.Cmd) {
	fullname, ok := m.currentFullname()
	if !ok {
		return m, nil
	}
	if !m.sessionActive() {
		return m.needLogin()
	}
	label := "edit post"
	if m.rows[m.sel].Kind == content.KindComment {
		label = "edit comment"
	}
	m.prompt = promptEdit
	m.promptTarget = fullname
	m.promptLabel = label
	m.promptText = nil
	return m, nil
}

func (m Model) beginSubredditPrompt() (tea.Model, tea.Cmd) {
	m.prompt = promptSubreddit
	m.promptLabel = "go to subreddit"
	m.promptText = nil
	return m, nil
}

// switchSubreddit abandons the current context, comment page included, and
// loads the named subreddit's front listing.
func (m Model) switchSubreddit(name string) (tea.Model, tea.Cmd) {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "/r/")
	name = strings.TrimPrefix(name, "r/")
	if name == "" {
		return m, nil
	}
	m.subreddit = name
	m.submissionID = ""
	m.commentCtx = false
	m.savedListing = nil
	m.phase = phaseLoading
	m.status = ""
	return m, loadPageCmd(content.NewListingStore(m.svc, name))
}

func (m Model) deleteCurrent() (tea.Model, tea.Cmd) {
	fullname, ok := m.currentFullname()
	if !ok {
		return m, nil
	}
	if !m.sessionActive() {
		return m.needLogin()
	}
	return m, deleteCmd(m.svc, fullname)
}

func (m Model) openCurrent() (tea.Model, tea.Cmd) {
	if len(m.rows) == 0 {
		return m, nil
	}
	row := m.rows[m.sel]
	if row.Kind != content.KindSubmission || row.Submission.URL == "" {
		return m, nil
	}
	url := row.Submission.URL
	openFn := m.openURLFn
	return m, func() tea.Msg {
		if openFn == nil {
			return actionDoneMsg{err: fmt.Errorf("no browser available")}
		}
		if err := openFn(url); err != nil {
			return actionDoneMsg{err: fmt.Errorf("open browser: %w", err)}
		}
		return actionDoneMsg{status: "opened in browser"}
	}
}

// beginLogin starts the authorization flow. When a session is already
// active this is a switch: the stored refresh token is revoked server-side,
// credentials are dropped, and a fresh flow begins.
func (m Model) beginLogin() (tea.Model, tea.Cmd) {
	if m.auth == nil {
		return m, nil
	}
	m.phase = phaseAwaitingAuth
	m.status = ""
	if m.sessionActive() {
		if m.session != nil {
			m.session.Clear()
		}
		return m, switchAccountCmd(m.auth, m.tokens, m.revoke)
	}
	return m, beginAuthCmd(m.auth)
}

// forgetLogin is the local "forget me": delete the stored refresh token and
// drop the session. No network call.
func (m Model) forgetLogin() (tea.Model, tea.Cmd) {
	if !m.sessionActive() {
		return m, nil
	}
	if m.session != nil {
		m.session.Clear()
	}
	if m.tokens != nil {
		if err := m.tokens.Clear(); err != nil {
			m.status = "could not remove stored token: " + err.Error()
			return m, nil
		}
	}
	m.status = "logged out"
	m.statusID++
	return m, clearStatusCmd(m.statusID, m.statusTTL)
}

func (m Model) needLogin() (tea.Model, tea.Cmd) {
	m.status = "login required (press u)"
	m.statusID++
	return m, clearStatusCmd(m.statusID, m.statusTTL)
}

func (m Model) currentFullname() (string, bool) {
	if len(m.rows) == 0 {
		return "", false
	}
	row := m.rows[m.sel]
	switch row.Kind {
	case content.KindSubmission:
		return row.Submission.Fullname, row.Submission.Fullname != ""
	case content.KindComment:
		return row.Comment.Fullname, row.Comment.Fullname != ""
	}
	return "", false
}

func (m Model) sessionActive() bool {
	return m.session != nil && m.session.Active()
}

func (m Model) inComments() bool {
	return m.commentCtx
}

// viewHeight is the terminal-line budget for the row area: everything
// except the title, the blank separator, the footer, and the prompt line
// when one is open.
func (m Model) viewHeight() int {
	if m.height <= 4 {
		return 20
	}
	h := m.height - 3
	if m.prompt != promptNone {
		h--
	}
	if h < 1 {
		h = 1
	}
	return h
}

func actionErrorStatus(err error) string {
	switch {
	case errors.Is(err, reddit.ErrPermission):
		return "permission denied: " + err.Error()
	case errors.Is(err, reddit.ErrRateLimited):
		return "rate limited, try again shortly"
	case errors.Is(err, reddit.ErrNotFound):
		return "not found: " + err.Error()
	}
	return err.Error()
}

func loadPageCmd(store *content.Store) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := store.LoadPage(ctx); err != nil {
			return pageErrorMsg{err: err}
		}
		return pageReadyMsg{store: store}
	}
}

func loadMoreCmd(store *content.Store, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_, err := store.LoadMore(ctx, id)
		return moreLoadedMsg{id: id, err: err}
	}
}

func voteCmd(svc Service, fullname string, dir int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := svc.Vote(ctx, fullname, dir); err != nil {
			return actionDoneMsg{err: err}
		}
		if dir > 0 {
			return actionDoneMsg{status: "upvoted"}
		}
		if dir < 0 {
			return actionDoneMsg{status: "downvoted"}
		}
		return actionDoneMsg{status: "vote cleared"}
	}
}

func replyCmd(svc Service, parentFullname, text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := svc.Comment(ctx, parentFullname, text); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{status: "comment posted", refresh: true}
	}
}

func editCmd(svc Service, fullname, text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := svc.Edit(ctx, fullname, text); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{status: "edited", refresh: true}
	}
}

func deleteCmd(svc Service, fullname string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := svc.Delete(ctx, fullname); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{status: "deleted", refresh: true}
	}
}

func beginAuthCmd(flow AuthFlow) tea.Cmd {
	return func() tea.Msg {
		url, err := flow.Begin()
		return authStartedMsg{url: url, err: err}
	}
}

// switchAccountCmd revokes the stored refresh token, forgets it locally,
// and starts a fresh authorization flow. Revocation is best-effort: a dead
// token on the server is harmless, while blocking the switch on it would
// strand the user.
func switchAccountCmd(flow AuthFlow, tokens *auth.TokenStore, revoke func(ctx context.Context, refreshToken string) error) tea.Cmd {
	return func() tea.Msg {
		if tokens != nil {
			if stored, err := tokens.Load(); err == nil && stored != "" && revoke != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				_ = revoke(ctx, stored)
				cancel()
			}
			_ = tokens.Clear()
		}
		url, err := flow.Begin()
		return authStartedMsg{url: url, err: err}
	}
}

func waitAuthCmd(flow AuthFlow) tea.Cmd {
	return func() tea.Msg {
		token, err := flow.Wait(context.Background())
		return authDoneMsg{token: token, err: err}
	}
}

func markVisitedCmd(repo *storage.Repository, sub reddit.Submission) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repo.MarkVisited(ctx, sub.ID, sub.Subreddit, sub.Title); err != nil {
			return historyErrorMsg{err: err}
		}
		return nil
	}
}

func clearStatusCmd(id int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return clearStatusMsg{id: id}
	})
}

func openURLInBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Run()
}
