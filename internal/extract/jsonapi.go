package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/webrecap/webrecap/internal/model"
	"github.com/webrecap/webrecap/internal/standardize"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const jsonAPIUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 ContentExtractor/1.0"

var (
	hnItemRe   = regexp.MustCompile(`news\.ycombinator\.com/item\?id=(\d+)`)
	ghRepoRe   = regexp.MustCompile(`github\.com/([\w-]+)/([\w.-]+)`)
	ghIssueRe  = regexp.MustCompile(`github\.com/([\w-]+)/([\w.-]+)/issues/(\d+)`)
	ghPullRe   = regexp.MustCompile(`github\.com/([\w-]+)/([\w.-]+)/pull/(\d+)`)
	soRe       = regexp.MustCompile(`stackoverflow\.com/questions/(\d+)`)
	devtoRe    = regexp.MustCompile(`dev\.to/([\w-]+)/([\w-]+)`)
	redditHost = regexp.MustCompile(`^https?://(www\.)?reddit\.com`)
)

// JSONAPIFetcher extracts through site-native JSON APIs for hosts that have
// them. It is the highest-trust strategy: structured responses never pick up
// navigation or ads.
type JSONAPIFetcher struct {
	client *http.Client

	tokenMu     sync.Mutex
	redditToken string
	tokenExpiry time.Time
}

func NewJSONAPIFetcher() *JSONAPIFetcher {
	return &JSONAPIFetcher{
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch dispatches by hostname. Returning (nil, nil) means the host has no
// JSON API; the other strategies carry on.
func (f *JSONAPIFetcher) Fetch(ctx context.Context, rawURL string) (*model.Candidate, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	hostname := strings.ToLower(u.Hostname())
	var posts []standardize.Post
	switch {
	case strings.Contains(hostname, "reddit.com"):
		posts, err = f.fetchReddit(ctx, rawURL)
	case strings.Contains(hostname, "news.ycombinator.com"):
		posts, err = f.fetchHackerNews(ctx, rawURL)
	case strings.Contains(hostname, "github.com"):
		posts, err = f.fetchGitHub(ctx, rawURL)
	case strings.Contains(hostname, "stackoverflow.com"):
		posts, err = f.fetchStackOverflow(ctx, rawURL)
	case strings.Contains(hostname, "dev.to"):
		posts, err = f.fetchDevTo(ctx, rawURL)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, nil
	}
	res := standardize.Posts(posts, rawURL, model.StrategyJSONAPI, standardize.ModeFlatWithRoles)
	if res == nil {
		return nil, nil
	}
	return &model.Candidate{
		Source:   model.StrategyJSONAPI,
		Metadata: res.Metadata,
		Content:  res.FlatWithRoles,
	}, nil
}

func (f *JSONAPIFetcher) fetchJSON(ctx context.Context, rawURL string, headers map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", jsonAPIUserAgent)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http %d for %s", resp.StatusCode, rawURL)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// redditAccessToken refreshes the OAuth token a minute before expiry.
// Credentials come from the environment like the rest of the third-party
// secrets.
func (f *JSONAPIFetcher) redditAccessToken(ctx context.Context) (string, error) {
	f.tokenMu.Lock()
	defer f.tokenMu.Unlock()
	if f.redditToken != "" && time.Now().Before(f.tokenExpiry.Add(-time.Minute)) {
		return f.redditToken, nil
	}
	clientID := os.Getenv("REDDIT_CLIENTID")
	clientSecret := os.Getenv("REDDIT_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return "", fmt.Errorf("reddit credentials not configured")
	}
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", os.Getenv("REDDIT_USERNAME"))
	form.Set("password", os.Getenv("REDDIT_PASSWORD"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://www.reddit.com/api/v1/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	creds := base64.StdEncoding.EncodeToString([]byte(clientID + ":" + clientSecret))
	req.Header.Set("Authorization", "Basic "+creds)
	req.Header.Set("User-Agent", jsonAPIUserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reddit token request failed: %s", resp.Status)
	}
	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", err
	}
	f.redditToken = token.AccessToken
	f.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return f.redditToken, nil
}

type redditThing struct {
	Data struct {
		Title      string  `json:"title"`
		Selftext   string  `json:"selftext"`
		Author     string  `json:"author"`
		CreatedUTC float64 `json:"created_utc"`
		Permalink  string  `json:"permalink"`
		Score      int64   `json:"score"`
		Body       string  `json:"body"`
	} `json:"data"`
}

type redditListing struct {
	Data struct {
		Children []redditThing `json:"children"`
	} `json:"data"`
}

// fetchReddit handles both post permalinks (post plus comments) and
// subreddit listings. Blocked requests back off and retry.
func (f *JSONAPIFetcher) fetchReddit(ctx context.Context, rawURL string) ([]standardize.Post, error) {
	const maxRetries = 3
	delay := 2 * time.Second
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
		}
		posts, err := f.fetchRedditOnce(ctx, rawURL)
		if err == nil {
			return posts, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("reddit fetch failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return nil, lastErr
}

func (f *JSONAPIFetcher) fetchRedditOnce(ctx context.Context, rawURL string) ([]standardize.Post, error) {
	token, err := f.redditAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	cleanPath := redditHost.ReplaceAllString(rawURL, "")
	if !strings.HasPrefix(cleanPath, "/") {
		cleanPath = "/" + cleanPath
	}
	cleanPath = strings.TrimSuffix(cleanPath, "/")
	apiURL := "https://oauth.reddit.com" + cleanPath
	headers := map[string]string{"Authorization": "Bearer " + token}

	// a permalink returns [postListing, commentListing]; a subreddit
	// returns a single listing
	var pair []redditListing
	if err := f.fetchJSON(ctx, apiURL, headers, &pair); err == nil && len(pair) > 0 {
		items := pair[0].Data.Children
		var comments []string
		if len(pair) > 1 {
			for _, c := range pair[1].Data.Children {
				if c.Data.Body != "" {
					comments = append(comments, c.Data.Body)
				}
			}
		}
		return redditPosts(items, comments), nil
	}
	var listing redditListing
	if err := f.fetchJSON(ctx, apiURL, headers, &listing); err != nil {
		return nil, err
	}
	return redditPosts(listing.Data.Children, nil), nil
}

func redditPosts(items []redditThing, firstComments []string) []standardize.Post {
	posts := make([]standardize.Post, 0, len(items))
	for i, item := range items {
		content := item.Data.Selftext
		if content == "" {
			content = item.Data.Title
		}
		post := standardize.Post{
			Title:       item.Data.Title,
			Content:     content,
			Author:      item.Data.Author,
			PublishedAt: time.Unix(int64(item.Data.CreatedUTC), 0).UTC().Format(time.RFC3339),
			URL:         "https://reddit.com" + item.Data.Permalink,
			Score:       item.Data.Score,
		}
		if i == 0 {
			post.Comments = firstComments
		}
		posts = append(posts, post)
	}
	return posts
}

func (f *JSONAPIFetcher) fetchHackerNews(ctx context.Context, rawURL string) ([]standardize.Post, error) {
	m := hnItemRe.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, nil
	}
	var item struct {
		Title string `json:"title"`
		Text  string `json:"text"`
		By    string `json:"by"`
		Score int64  `json:"score"`
		Time  int64  `json:"time"`
		URL   string `json:"url"`
	}
	apiURL := "https://hacker-news.firebaseio.com/v0/item/" + m[1] + ".json"
	if err := f.fetchJSON(ctx, apiURL, nil, &item); err != nil {
		return nil, err
	}
	content := item.Text
	if content == "" {
		content = item.Title
	}
	itemURL := item.URL
	if itemURL == "" {
		itemURL = rawURL
	}
	return []standardize.Post{{
		Title:       item.Title,
		Content:     content,
		Author:      item.By,
		Score:       item.Score,
		PublishedAt: time.Unix(item.Time, 0).UTC().Format(time.RFC3339),
		URL:         itemURL,
	}}, nil
}

func (f *JSONAPIFetcher) fetchGitHub(ctx context.Context, rawURL string) ([]standardize.Post, error) {
	if m := ghIssueRe.FindStringSubmatch(rawURL); m != nil {
		return f.fetchGitHubItem(ctx, fmt.Sprintf("https://api.github.com/repos/%s/%s/issues/%s", m[1], m[2], m[3]))
	}
	if m := ghPullRe.FindStringSubmatch(rawURL); m != nil {
		return f.fetchGitHubItem(ctx, fmt.Sprintf("https://api.github.com/repos/%s/%s/pulls/%s", m[1], m[2], m[3]))
	}
	m := ghRepoRe.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, nil
	}
	var repo struct {
		FullName    string `json:"full_name"`
		Description string `json:"description"`
		CreatedAt   string `json:"created_at"`
		HTMLURL     string `json:"html_url"`
		Owner       struct {
			Login string `json:"login"`
		} `json:"owner"`
		Stars int64 `json:"stargazers_count"`
	}
	apiURL := fmt.Sprintf("https://api.github.com/repos/%s/%s", m[1], m[2])
	if err := f.fetchJSON(ctx, apiURL, nil, &repo); err != nil {
		return nil, err
	}
	readme := f.fetchGitHubReadme(ctx, m[1], m[2])
	return []standardize.Post{{
		Title:       repo.FullName,
		Content:     strings.TrimSpace(repo.Description + "\n\n" + readme),
		Author:      repo.Owner.Login,
		PublishedAt: repo.CreatedAt,
		URL:         repo.HTMLURL,
		Score:       repo.Stars,
	}}, nil
}

func (f *JSONAPIFetcher) fetchGitHubItem(ctx context.Context, apiURL string) ([]standardize.Post, error) {
	var item struct {
		Title     string `json:"title"`
		Body      string `json:"body"`
		CreatedAt string `json:"created_at"`
		HTMLURL   string `json:"html_url"`
		User      struct {
			Login string `json:"login"`
		} `json:"user"`
	}
	if err := f.fetchJSON(ctx, apiURL, nil, &item); err != nil {
		return nil, err
	}
	return []standardize.Post{{
		Title:       item.Title,
		Content:     item.Body,
		Author:      item.User.Login,
		PublishedAt: item.CreatedAt,
		URL:         item.HTMLURL,
	}}, nil
}

func (f *JSONAPIFetcher) fetchGitHubReadme(ctx context.Context, owner, repo string) string {
	var readme struct {
		Content string `json:"content"`
	}
	apiURL := fmt.Sprintf("https://api.github.com/repos/%s/%s/readme", owner, repo)
	if err := f.fetchJSON(ctx, apiURL, nil, &readme); err != nil {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(readme.Content, "\n", ""))
	if err != nil {
		return ""
	}
	return string(decoded)
}

func (f *JSONAPIFetcher) fetchStackOverflow(ctx context.Context, rawURL string) ([]standardize.Post, error) {
	m := soRe.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, nil
	}
	var out struct {
		Items []struct {
			Title        string   `json:"title"`
			Body         string   `json:"body"`
			Score        int64    `json:"score"`
			CreationDate int64    `json:"creation_date"`
			Tags         []string `json:"tags"`
			Owner        struct {
				DisplayName string `json:"display_name"`
			} `json:"owner"`
		} `json:"items"`
	}
	apiURL := fmt.Sprintf(
		"https://api.stackexchange.com/2.3/questions/%s?order=desc&sort=activity&site=stackoverflow&filter=withbody", m[1])
	if err := f.fetchJSON(ctx, apiURL, nil, &out); err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	question := out.Items[0]
	return []standardize.Post{{
		Title:       question.Title,
		Content:     question.Body,
		Author:      question.Owner.DisplayName,
		Score:       question.Score,
		PublishedAt: time.Unix(question.CreationDate, 0).UTC().Format(time.RFC3339),
		URL:         rawURL,
	}}, nil
}

func (f *JSONAPIFetcher) fetchDevTo(ctx context.Context, rawURL string) ([]standardize.Post, error) {
	m := devtoRe.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, nil
	}
	var article struct {
		Title        string `json:"title"`
		BodyMarkdown string `json:"body_markdown"`
		Description  string `json:"description"`
		PublishedAt  string `json:"published_at"`
		URL          string `json:"url"`
		User         struct {
			Name string `json:"name"`
		} `json:"user"`
	}
	apiURL := fmt.Sprintf("https://dev.to/api/articles/%s/%s", m[1], m[2])
	if err := f.fetchJSON(ctx, apiURL, nil, &article); err != nil {
		return nil, err
	}
	content := article.BodyMarkdown
	if content == "" {
		content = article.Description
	}
	return []standardize.Post{{
		Title:       article.Title,
		Content:     content,
		Author:      article.User.Name,
		PublishedAt: article.PublishedAt,
		URL:         article.URL,
	}}, nil
}
