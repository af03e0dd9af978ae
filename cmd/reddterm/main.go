package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	flag "github.com/spf13/pflag"

	"github.com/glabrego/reddterm/internal/auth"
	"github.com/glabrego/reddterm/internal/config"
	"github.com/glabrego/reddterm/internal/reddit"
	"github.com/glabrego/reddterm/internal/storage"
	"github.com/glabrego/reddterm/internal/tui"
)

// historyLimit caps the visited-submission table; the oldest rows beyond
// it are pruned at startup.
const historyLimit = 500

func main() {
	subreddit := flag.StringP("subreddit", "s", "", "subreddit to open (defaults to the front page)")
	link := flag.StringP("link", "l", "", "submission URL or id to open directly")
	ascii := flag.Bool("ascii", false, "use ASCII characters instead of unicode glyphs")
	noHistory := flag.Bool("no-history", false, "do not record visited submissions")
	clearAuth := flag.Bool("clear-auth", false, "remove the stored login before starting")
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	filePath := *configPath
	if filePath == "" {
		filePath, err = config.DefaultFilePath()
		if err != nil {
			log.Fatalf("config error: %v", err)
		}
	}
	if err := cfg.ApplyFile(filePath); err != nil {
		log.Fatalf("config error: %v", err)
	}

	// Flags win over both the file and the environment.
	if flag.CommandLine.Changed("subreddit") {
		cfg.Subreddit = *subreddit
	}
	if flag.CommandLine.Changed("ascii") {
		cfg.Unicode = !*ascii
	}
	if flag.CommandLine.Changed("no-history") {
		cfg.Persistent = !*noHistory
	}
	cfg.Link = *link

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config error: %v", err)
	}

	tokens := auth.NewTokenStore(cfg.TokenPath)
	if *clearAuth {
		if err := tokens.Clear(); err != nil {
			log.Fatalf("clear stored login: %v", err)
		}
	}

	repo, err := storage.NewRepository(cfg.DBPath)
	if err != nil {
		log.Fatalf("storage init error: %v", err)
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := repo.Init(ctx); err != nil {
		log.Fatalf("storage schema error: %v", err)
	}
	if err := repo.CheckWritable(ctx); err != nil {
		log.Fatalf("storage write check failed (%v). Verify REDDTERM_DB_PATH is writable: %s", err, cfg.DBPath)
	}

	visited := map[string]bool{}
	if cfg.Persistent {
		if err := repo.Prune(ctx, historyLimit); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not prune history (%v)\n", err)
		}
		visited, err = repo.VisitedIDs(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not load history (%v)\n", err)
			visited = map[string]bool{}
		}
	}

	client := reddit.NewClient(cfg.APIBaseURL, cfg.OAuthBaseURL, cfg.UserAgent, nil)
	authorizer := reddit.NewAuthorizer(cfg.AuthBaseURL, cfg.ClientID, cfg.UserAgent, nil)

	session := auth.NewSession()
	client.SetTokenSource(session.Token)

	// A 401 mid-session means the access token expired; refresh it from the
	// stored refresh token and let the client retry. A rejected refresh
	// drops back to anonymous.
	client.SetRefresher(func(ctx context.Context) error {
		refresh, err := tokens.Load()
		if err != nil || refresh == "" {
			session.Clear()
			return fmt.Errorf("no stored refresh token")
		}
		token, err := authorizer.RefreshAccessToken(ctx, refresh)
		if err != nil {
			session.Clear()
			return fmt.Errorf("refresh access token: %w", err)
		}
		session.SetToken(token.AccessToken)
		return nil
	})

	// A stored refresh token re-activates the session silently before the
	// first render; a rejected refresh just starts anonymous.
	if refresh, err := tokens.Load(); err == nil && refresh != "" {
		token, err := authorizer.RefreshAccessToken(ctx, refresh)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: stored login rejected (%v), starting anonymous\n", err)
		} else {
			session.SetToken(token.AccessToken)
		}
	}

	submissionID, err := linkSubmissionID(cfg.Link)
	if err != nil {
		log.Fatalf("bad --link value: %v", err)
	}

	model := tui.NewModel(tui.Options{
		Service:      client,
		Auth:         auth.NewFlow(authorizer, tokens),
		Session:      session,
		Tokens:       tokens,
		History:      repo,
		Visited:      visited,
		Subreddit:    cfg.Subreddit,
		SubmissionID: submissionID,
		Revoke:       authorizer.RevokeToken,
		Unicode:      cfg.Unicode,
		Persist:      cfg.Persistent,
	})

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		log.Fatalf("tui error: %v", err)
	}
}

// linkSubmissionID accepts either a bare submission id or a full permalink
// of the form https://.../comments/<id>/... and returns the id.
func linkSubmissionID(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	if !strings.Contains(raw, "/") {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, part := range parts {
		if part == "comments" && i+1 < len(parts) {
			return parts[i+1], nil
		}
	}
	return "", fmt.Errorf("no /comments/<id> segment in %q", raw)
}
