package extract

import (
	"bufio"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/webrecap/webrecap/internal/model"
	"github.com/webrecap/webrecap/internal/standardize"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

var (
	ytVideoIDRe   = regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11})(?:\?|&|$)`)
	twitchVodRe   = regexp.MustCompile(`videos/(\d+)`)
	twitchChannel = regexp.MustCompile(`twitch\.tv/([^/?]+)`)
)

// VideoFetcher extracts video metadata, captions and chat through the
// YouTube Data API and the Twitch Helix API.
type VideoFetcher struct {
	client *http.Client

	tokenMu     sync.Mutex
	twitchToken string
	tokenExpiry time.Time
}

func NewVideoFetcher() *VideoFetcher {
	return &VideoFetcher{
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// YouTube builds a video candidate from metadata plus captions. Returns
// (nil, nil) when the URL carries no recognizable video id, so the caller
// can fall back to plain web extraction.
func (f *VideoFetcher) YouTube(ctx context.Context, rawURL string) (*model.Candidate, error) {
	m := ytVideoIDRe.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, nil
	}
	videoID := m[1]

	video := &standardize.Video{URL: rawURL}
	if err := f.youtubeMetadata(ctx, videoID, video); err != nil {
		return nil, err
	}
	transcript, err := f.youtubeTranscript(ctx, videoID)
	if err != nil {
		logutil.GetLogger(ctx).Warn("no transcript available",
			zap.String("video_id", videoID),
			zap.Error(err))
	}
	video.Transcript = transcript

	return videoCandidate(video, rawURL), nil
}

func videoCandidate(video *standardize.Video, rawURL string) *model.Candidate {
	res := video.Standardize(rawURL, model.StrategyVideoAPI, standardize.ModeFlatWithRoles)
	if res == nil {
		return nil
	}
	return &model.Candidate{
		Source:   model.StrategyVideoAPI,
		Metadata: res.Metadata,
		Content:  res.FlatWithRoles,
	}
}

func (f *VideoFetcher) youtubeMetadata(ctx context.Context, videoID string, video *standardize.Video) error {
	apiKey := os.Getenv("YOUTUBE_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("youtube api key not configured")
	}
	apiURL := fmt.Sprintf(
		"https://www.googleapis.com/youtube/v3/videos?part=snippet,statistics,contentDetails&id=%s&key=%s",
		videoID, apiKey)
	var out struct {
		Items []struct {
			Snippet struct {
				Title        string `json:"title"`
				Description  string `json:"description"`
				ChannelTitle string `json:"channelTitle"`
				PublishedAt  string `json:"publishedAt"`
			} `json:"snippet"`
			Statistics struct {
				ViewCount string `json:"viewCount"`
			} `json:"statistics"`
			ContentDetails struct {
				Duration string `json:"duration"`
			} `json:"contentDetails"`
		} `json:"items"`
	}
	if err := f.getJSON(ctx, apiURL, nil, &out); err != nil {
		return err
	}
	if len(out.Items) == 0 {
		return fmt.Errorf("video %s not found", videoID)
	}
	item := out.Items[0]
	video.Title = item.Snippet.Title
	video.Description = item.Snippet.Description
	video.Channel = item.Snippet.ChannelTitle
	video.PublishedAt = item.Snippet.PublishedAt
	video.Duration = item.ContentDetails.Duration
	fmt.Sscanf(item.Statistics.ViewCount, "%d", &video.Views)
	return nil
}

type timedTextBody struct {
	Texts []struct {
		Start    float64 `xml:"start,attr"`
		Duration float64 `xml:"dur,attr"`
		Value    string  `xml:",chardata"`
	} `xml:"text"`
}

// youtubeTranscript pulls captions from the timedtext endpoint, trying
// English variants before falling back to the default track.
func (f *VideoFetcher) youtubeTranscript(ctx context.Context, videoID string) ([]standardize.TranscriptSegment, error) {
	var lastErr error
	for _, lang := range []string{"en", "en-US", "en-GB", ""} {
		endpoint := "https://video.google.com/timedtext?v=" + url.QueryEscape(videoID)
		if lang != "" {
			endpoint += "&lang=" + lang
		}
		segments, err := f.fetchTimedText(ctx, endpoint)
		if err != nil {
			lastErr = err
			continue
		}
		if len(segments) > 0 {
			return segments, nil
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no caption track for %s", videoID)
	}
	return nil, lastErr
}

func (f *VideoFetcher) fetchTimedText(ctx context.Context, endpoint string) ([]standardize.TranscriptSegment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("timedtext http %d", resp.StatusCode)
	}
	var body timedTextBody
	if err := xml.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	segments := make([]standardize.TranscriptSegment, 0, len(body.Texts))
	for _, text := range body.Texts {
		segments = append(segments, standardize.TranscriptSegment{
			Start:    text.Start,
			Duration: text.Duration,
			Text:     text.Value,
		})
	}
	return segments, nil
}

// Twitch extracts a VOD (metadata plus downloaded chat) or the live stream
// status of a channel. URLs matching neither pattern return (nil, nil).
func (f *VideoFetcher) Twitch(ctx context.Context, rawURL string) (*model.Candidate, error) {
	if m := twitchVodRe.FindStringSubmatch(rawURL); m != nil {
		return f.twitchVOD(ctx, rawURL, m[1])
	}
	if m := twitchChannel.FindStringSubmatch(rawURL); m != nil {
		return f.twitchLive(ctx, rawURL, m[1])
	}
	return nil, nil
}

func (f *VideoFetcher) twitchVOD(ctx context.Context, rawURL string, videoID string) (*model.Candidate, error) {
	var out struct {
		Data []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			UserName    string `json:"user_name"`
			CreatedAt   string `json:"created_at"`
			ViewCount   int64  `json:"view_count"`
			Duration    string `json:"duration"`
		} `json:"data"`
	}
	if err := f.twitchAPI(ctx, "videos", url.Values{"id": {videoID}}, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("twitch video %s not found", videoID)
	}
	item := out.Data[0]
	video := &standardize.Video{
		Title:       item.Title,
		Description: item.Description,
		Channel:     item.UserName,
		PublishedAt: item.CreatedAt,
		Views:       item.ViewCount,
		Duration:    item.Duration,
		URL:         rawURL,
		Chat:        f.downloadChat(ctx, videoID),
	}
	return videoCandidate(video, rawURL), nil
}

func (f *VideoFetcher) twitchLive(ctx context.Context, rawURL string, channel string) (*model.Candidate, error) {
	var out struct {
		Data []struct {
			Title       string `json:"title"`
			UserName    string `json:"user_name"`
			ViewerCount int64  `json:"viewer_count"`
			StartedAt   string `json:"started_at"`
		} `json:"data"`
	}
	if err := f.twitchAPI(ctx, "streams", url.Values{"user_login": {channel}}, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("stream %s is not live", channel)
	}
	item := out.Data[0]
	video := &standardize.Video{
		Title:     item.Title,
		Channel:   item.UserName,
		Live:      true,
		Views:     item.ViewerCount,
		StartedAt: item.StartedAt,
		URL:       rawURL,
	}
	return videoCandidate(video, rawURL), nil
}

func (f *VideoFetcher) twitchAPI(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	token, err := f.twitchAccessToken(ctx)
	if err != nil {
		return err
	}
	apiURL := "https://api.twitch.tv/helix/" + endpoint + "?" + params.Encode()
	headers := map[string]string{
		"Client-ID":     os.Getenv("TWITCH_CLIENT_ID"),
		"Authorization": "Bearer " + token,
	}
	return f.getJSON(ctx, apiURL, headers, out)
}

func (f *VideoFetcher) twitchAccessToken(ctx context.Context) (string, error) {
	f.tokenMu.Lock()
	defer f.tokenMu.Unlock()
	if f.twitchToken != "" && time.Now().Before(f.tokenExpiry) {
		return f.twitchToken, nil
	}
	clientID := os.Getenv("TWITCH_CLIENT_ID")
	clientSecret := os.Getenv("TWITCH_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return "", fmt.Errorf("twitch credentials not configured")
	}
	endpoint := fmt.Sprintf(
		"https://id.twitch.tv/oauth2/token?client_id=%s&client_secret=%s&grant_type=client_credentials",
		url.QueryEscape(clientID), url.QueryEscape(clientSecret))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("twitch token request failed: %s", resp.Status)
	}
	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", err
	}
	f.twitchToken = token.AccessToken
	f.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - time.Minute)
	return f.twitchToken, nil
}

type chatLine struct {
	Comment struct {
		CreatedAt string `json:"created_at"`
	} `json:"comment"`
	Commenter struct {
		DisplayName string `json:"display_name"`
	} `json:"commenter"`
	Message struct {
		Body string `json:"body"`
	} `json:"message"`
}

// downloadChat shells out to the tcd chat downloader. Chat is enrichment;
// any failure just means an empty chat.
func (f *VideoFetcher) downloadChat(ctx context.Context, videoID string) []standardize.ChatMessage {
	cmd := exec.CommandContext(ctx, "tcd", "--video", videoID, "--format", "json", "--output", "-")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil
	}
	if err := cmd.Start(); err != nil {
		logutil.GetLogger(ctx).Warn("chat downloader unavailable", zap.Error(err))
		return nil
	}
	var chat []standardize.ChatMessage
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var parsed chatLine
		if err := json.Unmarshal([]byte(line), &parsed); err != nil {
			continue
		}
		chat = append(chat, standardize.ChatMessage{
			Timestamp: parsed.Comment.CreatedAt,
			Author:    parsed.Commenter.DisplayName,
			Text:      parsed.Message.Body,
		})
	}
	_ = cmd.Wait()
	return chat
}

func (f *VideoFetcher) getJSON(ctx context.Context, rawURL string, headers map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
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
