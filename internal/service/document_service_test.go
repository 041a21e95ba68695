package service

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/webrecap/webrecap/internal/model"
	appErr "github.com/webrecap/webrecap/internal/pkg/errors"
)

func TestValidateURL(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"plain http", "http://example.com/page", "http://example.com/page", true},
		{"https with query", "https://example.com/a?b=1", "https://example.com/a?b=1", true},
		{"surrounding whitespace", "  https://example.com/x  ", "https://example.com/x", true},
		{"empty", "", "", false},
		{"only whitespace", "   ", "", false},
		{"ftp scheme", "ftp://example.com/file", "", false},
		{"scheme relative", "//example.com/page", "", false},
		{"no host", "https:///path", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := validateURL(tc.input)
			if !tc.ok {
				require.ErrorIs(t, err, appErr.ErrInvalid)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestDetectSource(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=abc123", model.SourceYouTube},
		{"https://youtube.com/watch?v=abc123", model.SourceYouTube},
		{"https://m.youtube.com/watch?v=abc123", model.SourceYouTube},
		{"https://youtu.be/abc123", model.SourceYouTube},
		{"https://www.twitch.tv/videos/123", model.SourceTwitch},
		{"https://twitch.tv/somechannel", model.SourceTwitch},
		{"https://example.com/article", model.SourceWebpage},
		{"https://notyoutube.com/watch", model.SourceWebpage},
		{"https://youtube.com.evil.example/watch", model.SourceWebpage},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, DetectSource(tc.url), tc.url)
	}
}
