package standardize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitize_StripsMarkupAndJunk(t *testing.T) {
	in := `<!-- comment --><script>var x = 1;</script>Hello   "world" \ [noise] | pipe`
	out := Sanitize(in)
	require.Equal(t, "Hello world noise pipe", out)
}

func TestSanitize_CollapsesDashRuns(t *testing.T) {
	require.Equal(t, "a b", Sanitize("a -- b"))
	require.Equal(t, "", Sanitize(""))
}

func TestSecondsToMins_Format(t *testing.T) {
	require.Equal(t, "0.05", secondsToMins(5))
	require.Equal(t, "1.00", secondsToMins(60))
	require.Equal(t, "2.07", secondsToMins(127.8))
}

func TestPosts_FlatWithRolesHeader(t *testing.T) {
	posts := []Post{
		{
			Title:    "My Thread",
			Author:   "alice",
			Content:  "the main post body",
			Comments: []string{"first comment", "second comment"},
		},
	}
	res := Posts(posts, "https://example.com/t/1", "json_api", ModeFlatWithRoles)
	require.NotNil(t, res)
	require.Equal(t, "My Thread", res.Metadata.Title)
	require.Equal(t, "https://example.com/t/1", res.Metadata.URL)

	flat := res.Flat(ModeFlatWithRoles)
	require.Contains(t, flat, "[TITLE] My Thread")
	require.Contains(t, flat, "[AUTHOR] alice")
	require.Contains(t, flat, "[POST] the main post body")
	require.Contains(t, flat, "[COMMENT] first comment")
	require.Contains(t, flat, "[COMMENT] second comment")
}

func TestPosts_EmptyInput(t *testing.T) {
	require.Nil(t, Posts(nil, "https://example.com", "json_api", ModeFlatWithRoles))
}

func TestPosts_UntitledFallback(t *testing.T) {
	res := Posts([]Post{{Content: "body"}}, "https://example.com", "json_api", ModeFlatWithRoles)
	require.Equal(t, "Untitled", res.Metadata.Title)
}

func TestVideo_TranscriptTaggedOnce(t *testing.T) {
	video := &Video{
		Title:   "Talk",
		Channel: "conf",
		Transcript: []TranscriptSegment{
			{Start: 0, Duration: 5, Text: "welcome everyone"},
			{Start: 5, Duration: 5, Text: "today we discuss"},
		},
	}
	res := video.Standardize("https://youtube.com/watch?v=abc", "video_api", ModeFlatWithRoles)
	require.NotNil(t, res)

	flat := res.FlatWithRoles
	require.Equal(t, 1, strings.Count(flat, "[TRANSCRIPT]"))
	require.Contains(t, flat, "[TRANSCRIPT] [0.00-0.05] welcome everyone")
	require.Contains(t, flat, "[0.05-0.10] today we discuss")
	require.Contains(t, flat, "[TITLE] Talk")
	require.Contains(t, flat, "[CHANNEL] conf")
}

func TestVideo_TimestampHeadersSpaced(t *testing.T) {
	video := &Video{
		Title:       "Stream",
		StartedAt:   "2020-01-01T10:00:00Z",
		PublishedAt: "2020-01-02T08:00:00Z",
		Transcript: []TranscriptSegment{
			{Start: 0, Duration: 5, Text: "welcome everyone"},
		},
	}
	res := video.Standardize("https://twitch.tv/v/1", "video_api", ModeFlatWithRoles)
	require.NotNil(t, res)

	// timestamp values must not glue onto the following tag
	flat := res.FlatWithRoles
	require.Contains(t, flat, "[STARTED_AT] 2020-01-01T10:00:00Z ")
	require.Contains(t, flat, "[PUBLISHED_AT] 2020-01-02T08:00:00Z ")
	require.NotContains(t, flat, "Z[")
}

func TestVideo_ChatFragments(t *testing.T) {
	video := &Video{
		Title: "Stream",
		Chat: []ChatMessage{
			{Timestamp: "0:01:00", Author: "bob", Text: "hi chat"},
		},
	}
	res := video.Standardize("https://twitch.tv/v/1", "video_api", ModeFlatWithRoles)
	require.Len(t, res.Fragments, 2)
	require.Equal(t, "chat", res.Fragments[1].Type)
	require.Equal(t, "[0:01:00] [bob] hi chat", res.Fragments[1].Text)
}

func TestFlatRaw_JoinsWithoutTags(t *testing.T) {
	res := Posts([]Post{{Title: "T", Content: "one", Comments: []string{"two"}}},
		"https://example.com", "json_api", ModeFlatRaw)
	require.Equal(t, "one two", res.FlatRaw)
	require.Empty(t, res.FlatWithRoles)
}
