package standardize

import (
	"fmt"
	"strings"

	"github.com/webrecap/webrecap/internal/model"
)

// Mode selects how much structure survives normalization.
type Mode string

const (
	ModeFlatRaw       Mode = "flat_raw"
	ModeFlatWithRoles Mode = "flat_with_roles"
	ModeStructured    Mode = "structured"
)

// Fragment is one typed piece of normalized content ("post", "comment",
// "transcript", "chat", "title", ...).
type Fragment struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Result is the normalized form handed to scoring and summarization.
type Result struct {
	Source        string
	Metadata      model.CandidateMetadata
	Fragments     []Fragment
	FlatRaw       string
	FlatWithRoles string
}

// Post is thread-shaped input: an article or submission plus its comments.
type Post struct {
	Title       string
	Author      string
	Content     string
	Comments    []string
	PublishedAt string
	URL         string
	Score       int64
	Description string
}

// TranscriptSegment is one timed caption line.
type TranscriptSegment struct {
	Start    float64
	Duration float64
	Text     string
}

// ChatMessage is one live-chat line from a stream VOD.
type ChatMessage struct {
	Timestamp string
	Author    string
	Text      string
}

// Video is media-shaped input: metadata plus transcript and chat.
type Video struct {
	Title       string
	Description string
	Channel     string
	Transcript  []TranscriptSegment
	Chat        []ChatMessage
	PublishedAt string
	StartedAt   string
	Duration    string
	Live        bool
	URL         string
	Views       int64
}

// Posts normalizes thread-shaped content. The first post is treated as the
// main item for metadata purposes.
func Posts(posts []Post, url string, source string, mode Mode) *Result {
	if len(posts) == 0 {
		return nil
	}
	fragments := postFragments(posts)
	res := &Result{
		Source:    source,
		Fragments: fragments,
		FlatRaw:   flattenRaw(fragments),
	}
	if mode == ModeFlatRaw {
		return res
	}
	res.Metadata = postMetadata(posts[0], url)
	res.FlatWithRoles = flattenWithRoles(fragments, res.Metadata)
	return res
}

// Video normalizes media-shaped content.
func (v *Video) Standardize(url string, source string, mode Mode) *Result {
	if v == nil {
		return nil
	}
	fragments := videoFragments(v)
	res := &Result{
		Source:    source,
		Fragments: fragments,
		FlatRaw:   flattenRaw(fragments),
	}
	if mode == ModeFlatRaw {
		return res
	}
	res.Metadata = videoMetadata(v, url)
	res.FlatWithRoles = flattenWithRoles(fragments, res.Metadata)
	return res
}

// Flat picks the normalized text for the given mode.
func (r *Result) Flat(mode Mode) string {
	if r == nil {
		return ""
	}
	if mode == ModeFlatRaw {
		return r.FlatRaw
	}
	return r.FlatWithRoles
}

func postFragments(posts []Post) []Fragment {
	var fragments []Fragment
	for _, post := range posts {
		if text := Sanitize(post.Content); text != "" {
			fragments = append(fragments, Fragment{Type: "post", Text: text})
		}
		for _, comment := range post.Comments {
			if text := Sanitize(comment); text != "" {
				fragments = append(fragments, Fragment{Type: "comment", Text: text})
			}
		}
	}
	return fragments
}

func videoFragments(v *Video) []Fragment {
	fragments := make([]Fragment, 0, 3+len(v.Transcript)+len(v.Chat))
	for _, item := range []Fragment{
		{Type: "title", Text: Sanitize(v.Title)},
		{Type: "description", Text: Sanitize(v.Description)},
		{Type: "channel", Text: Sanitize(v.Channel)},
	} {
		if item.Text != "" {
			fragments = append(fragments, item)
		}
	}
	for _, seg := range v.Transcript {
		text := Sanitize(seg.Text)
		if text == "" {
			continue
		}
		start := secondsToMins(seg.Start)
		end := secondsToMins(seg.Start + seg.Duration)
		fragments = append(fragments, Fragment{
			Type: "transcript",
			Text: fmt.Sprintf("[%s-%s] %s", start, end, text),
		})
	}
	for _, msg := range v.Chat {
		text := Sanitize(msg.Text)
		if text == "" {
			continue
		}
		var sb strings.Builder
		if msg.Timestamp != "" {
			sb.WriteString("[" + msg.Timestamp + "] ")
		}
		if msg.Author != "" {
			sb.WriteString("[" + Sanitize(msg.Author) + "] ")
		}
		sb.WriteString(text)
		fragments = append(fragments, Fragment{Type: "chat", Text: sb.String()})
	}
	return fragments
}

func postMetadata(post Post, url string) model.CandidateMetadata {
	md := model.CandidateMetadata{
		Title:       post.Title,
		Author:      post.Author,
		PublishedAt: post.PublishedAt,
		URL:         post.URL,
		Score:       post.Score,
		Description: post.Description,
	}
	if md.Title == "" {
		md.Title = "Untitled"
	}
	if md.URL == "" {
		md.URL = url
	}
	return md
}

func videoMetadata(v *Video, url string) model.CandidateMetadata {
	md := model.CandidateMetadata{
		Title:       v.Title,
		Channel:     v.Channel,
		PublishedAt: v.PublishedAt,
		StartedAt:   v.StartedAt,
		Duration:    v.Duration,
		Live:        v.Live,
		URL:         v.URL,
		Views:       v.Views,
		Description: v.Description,
	}
	if md.Title == "" {
		md.Title = "Untitled Video"
	}
	if md.URL == "" {
		md.URL = url
	}
	return md
}

func flattenRaw(fragments []Fragment) string {
	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		parts = append(parts, f.Text)
	}
	return strings.Join(parts, " ")
}

// flattenWithRoles prefixes a metadata header, then the body. Transcript
// fragments already carry timestamps, so only the first one gets a role tag;
// everything else is tagged per fragment.
func flattenWithRoles(fragments []Fragment, md model.CandidateMetadata) string {
	var header strings.Builder
	if md.Title != "" {
		header.WriteString("[TITLE] " + Sanitize(md.Title) + " ")
	}
	if md.Channel != "" {
		header.WriteString("[CHANNEL] " + Sanitize(md.Channel) + " ")
	}
	if md.Author != "" {
		header.WriteString("[AUTHOR] " + Sanitize(md.Author) + " ")
	}
	if md.Description != "" {
		header.WriteString("[DESCRIPTION] " + Sanitize(md.Description) + " ")
	}
	if md.StartedAt != "" {
		header.WriteString("[STARTED_AT] " + md.StartedAt + " ")
	}
	if md.PublishedAt != "" {
		header.WriteString("[PUBLISHED_AT] " + md.PublishedAt + " ")
	}

	hasTranscript := false
	for _, f := range fragments {
		if f.Type == "transcript" {
			hasTranscript = true
			break
		}
	}

	var body []string
	if hasTranscript {
		for _, f := range fragments {
			if f.Type != "transcript" {
				continue
			}
			if len(body) == 0 {
				body = append(body, "[TRANSCRIPT] "+f.Text)
			} else {
				body = append(body, f.Text)
			}
		}
	} else {
		for _, f := range fragments {
			body = append(body, "["+strings.ToUpper(f.Type)+"] "+f.Text)
		}
	}
	return strings.TrimSpace(header.String() + strings.Join(body, " "))
}
