package acquire

import (
	"context"
	"fmt"
	"log/slog"

	"reddit_tracker/internal/config"
	"reddit_tracker/internal/domain"
	"reddit_tracker/internal/source/reddit"
)

// RedditStrategy acquires posts and comments from Reddit, either via
// the public JSON endpoints or the authenticated API. Both share the
// same discovery and crawl logic; only the underlying client differs.
type RedditStrategy struct {
	name            string
	client          *reddit.Client
	posts           PostStore
	username        string
	maxCommentPages int
	crawler         *crawler
	logger          *slog.Logger
}

// NewPublic builds the default unauthenticated strategy, subject to
// the fetch client's pacing, retry and host-fallback behavior.
func NewPublic(cfg config.RedditConfig, stores Stores, logger *slog.Logger) *RedditStrategy {
	client := reddit.New(reddit.Config{
		Hosts:          cfg.Hosts,
		UserAgent:      cfg.UserAgent,
		Timeout:        cfg.Timeout,
		MaxAttempts:    cfg.MaxAttempts,
		InitialBackoff: cfg.InitialBackoff,
		MinDelay:       cfg.MinDelay,
		MaxDelay:       cfg.MaxDelay,
	}, logger)

	return newRedditStrategy("public", client, cfg, stores, logger)
}

// NewAPI builds the authenticated strategy used when credentials are
// configured. The official API is not subject to cloud-IP blocking.
func NewAPI(cfg config.RedditConfig, stores Stores, logger *slog.Logger) *RedditStrategy {
	client := reddit.NewAuthenticated(reddit.Config{
		UserAgent:      cfg.UserAgent,
		Timeout:        cfg.Timeout,
		MaxAttempts:    cfg.MaxAttempts,
		InitialBackoff: cfg.InitialBackoff,
	}, reddit.Credentials{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	}, logger)

	return newRedditStrategy("api", client, cfg, stores, logger)
}

func newRedditStrategy(name string, client *reddit.Client, cfg config.RedditConfig, stores Stores, logger *slog.Logger) *RedditStrategy {
	logger = logger.With("strategy", name)
	return &RedditStrategy{
		name:            name,
		client:          client,
		posts:           stores.Posts,
		username:        cfg.Username,
		maxCommentPages: cfg.MaxCommentPages,
		crawler:         &crawler{comments: stores.Comments, logger: logger},
		logger:          logger,
	}
}

func (s *RedditStrategy) Name() string {
	return s.name
}

// Acquire tries the account's submitted-posts listing first. Promoted
// and profile posts never appear there, so an empty listing falls back
// to inferring posts from the account's own comment history.
func (s *RedditStrategy) Acquire(ctx context.Context) (domain.AcquireResult, error) {
	var res domain.AcquireResult

	path := fmt.Sprintf("/user/%s/submitted.json?limit=100&raw_json=1", s.username)
	var listing reddit.Listing
	if err := s.client.GetJSON(ctx, path, &listing); err != nil {
		return res, fmt.Errorf("fetch submitted listing: %w", err)
	}

	submitted := listing.Data.Children
	if len(submitted) == 0 {
		return s.acquireDiscovered(ctx)
	}

	// PostsFound mirrors the listing length; non-post children are
	// counted here but contribute no records below.
	res.PostsFound = len(submitted)
	for _, item := range submitted {
		if item.Kind != reddit.KindPost {
			continue
		}
		d := item.Data

		post := &domain.Post{
			ID:         d.Name,
			Title:      d.Title,
			Subreddit:  d.Subreddit,
			URL:        "https://www.reddit.com" + d.Permalink,
			CreatedUTC: d.CreatedUTC,
		}
		if _, err := s.posts.Insert(ctx, post); err != nil {
			return res, fmt.Errorf("insert post %s: %w", d.Name, err)
		}

		pages, err := s.fetchPostDetail(ctx, d.Permalink)
		if err != nil {
			s.logger.Warn("post detail fetch failed, skipping comments",
				"post_id", d.Name,
				"error", err,
			)
			continue
		}
		if len(pages) < 2 {
			continue
		}

		n, err := s.crawler.walk(ctx, pages[1].Data.Children, d.Name, 0)
		res.NewComments += n
		if err != nil {
			return res, err
		}
	}

	return res, nil
}

// acquireDiscovered handles accounts whose posts are excluded from the
// submitted listing: every post the account commented on is treated as
// one of its own, then enriched from the post detail page.
func (s *RedditStrategy) acquireDiscovered(ctx context.Context) (domain.AcquireResult, error) {
	var res domain.AcquireResult

	discovered, err := s.discoverFromComments(ctx)
	if err != nil {
		return res, err
	}

	s.logger.Info("discovered posts from comment history", "count", len(discovered))
	res.PostsFound = len(discovered)

	for _, stub := range discovered {
		pages, err := s.fetchPostDetail(ctx, stub.permalink)
		if err != nil {
			s.logger.Warn("post detail fetch failed, skipping",
				"post_id", stub.id,
				"error", err,
			)
			continue
		}
		if len(pages) < 2 {
			continue
		}

		post, targetID := stub.resolve(pages[0].Data.Children)
		if _, err := s.posts.Insert(ctx, post); err != nil {
			return res, fmt.Errorf("insert post %s: %w", targetID, err)
		}

		n, err := s.crawler.walk(ctx, pages[1].Data.Children, targetID, 0)
		res.NewComments += n
		if err != nil {
			return res, err
		}
	}

	return res, nil
}

// discoveredPost is the minimal metadata extractable from a comment
// before the post detail page has been fetched.
type discoveredPost struct {
	id        string
	permalink string
	title     string
	subreddit string
}

// resolve prefers the full post payload from the detail listing and
// falls back to the stub metadata (with an unknown creation time) when
// the listing came back empty.
func (d discoveredPost) resolve(children []reddit.Thing) (*domain.Post, string) {
	if len(children) > 0 {
		p := children[0].Data
		title := p.Title
		if title == "" {
			title = d.title
		}
		subreddit := p.Subreddit
		if subreddit == "" {
			subreddit = d.subreddit
		}
		return &domain.Post{
			ID:         p.Name,
			Title:      title,
			Subreddit:  subreddit,
			URL:        "https://www.reddit.com" + p.Permalink,
			CreatedUTC: p.CreatedUTC,
		}, p.Name
	}

	return &domain.Post{
		ID:        d.id,
		Title:     d.title,
		Subreddit: d.subreddit,
		URL:       "https://www.reddit.com" + d.permalink,
	}, d.id
}

// discoverFromComments paginates the account's comment history and
// collects the distinct parent posts, first occurrence winning. The
// post permalink is derived by truncating the comment's own permalink.
func (s *RedditStrategy) discoverFromComments(ctx context.Context) ([]discoveredPost, error) {
	var out []discoveredPost
	seen := make(map[string]struct{})
	after := ""

	for page := 0; page < s.maxCommentPages; page++ {
		path := fmt.Sprintf("/user/%s/comments.json?limit=100&raw_json=1", s.username)
		if after != "" {
			path += "&after=" + after
		}

		var listing reddit.Listing
		if err := s.client.GetJSON(ctx, path, &listing); err != nil {
			return nil, fmt.Errorf("fetch comment history page %d: %w", page, err)
		}
		if len(listing.Data.Children) == 0 {
			break
		}

		for _, item := range listing.Data.Children {
			d := item.Data
			if d.LinkID == "" {
				continue
			}
			if _, ok := seen[d.LinkID]; ok {
				continue
			}

			permalink := reddit.PostPermalink(d.Permalink)
			if permalink == "" {
				continue
			}

			seen[d.LinkID] = struct{}{}
			out = append(out, discoveredPost{
				id:        d.LinkID,
				permalink: permalink,
				title:     d.LinkTitle,
				subreddit: d.Subreddit,
			})
		}

		after = listing.Data.After
		if after == "" {
			break
		}
	}

	return out, nil
}

// fetchPostDetail fetches a post's detail page: element 0 is the post
// listing, element 1 the top-level comment listing.
func (s *RedditStrategy) fetchPostDetail(ctx context.Context, permalink string) ([]reddit.Listing, error) {
	var pages []reddit.Listing
	err := s.client.GetJSON(ctx, permalink+".json?limit=500&raw_json=1", &pages)
	return pages, err
}
