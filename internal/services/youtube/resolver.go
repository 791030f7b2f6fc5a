// Package youtube resolves playlists and video metadata via the YouTube
// Data API v3.
//
// Go Pattern: This package defines a Resolver interface alongside the real
// implementation, so the pipeline can be tested with a fake. Interfaces are
// satisfied implicitly — the API client just needs the right methods.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

// ErrNotFound is returned when a video ID has no metadata upstream.
// Callers use errors.Is to distinguish "gone" from transport failures.
var ErrNotFound = errors.New("video not found")

// VideoMetadata is the subset of upstream snippet data the pipeline needs.
type VideoMetadata struct {
	Title       string
	Description string
	URL         string
}

// Resolver lists playlist contents and looks up per-video metadata.
type Resolver interface {
	ListPlaylistVideos(ctx context.Context, playlistID string) ([]string, error)
	GetVideoMetadata(ctx context.Context, videoID string) (*VideoMetadata, error)
}

// APIResolver implements Resolver against the YouTube Data API.
// The underlying client is built once at construction and shared — it is
// safe for concurrent use, and per-request deadlines are applied per call.
type APIResolver struct {
	svc *yt.Service
}

// NewResolver creates a resolver backed by the YouTube Data API.
func NewResolver(apiKey string) (*APIResolver, error) {
	svc, err := yt.NewService(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube client: %w", err)
	}
	return &APIResolver{svc: svc}, nil
}

// pageSize is the upstream maximum for playlistItems.list.
const pageSize = 50

// ListPlaylistVideos pages through the playlist, following continuation
// tokens until exhausted, and returns video IDs in upstream order.
// An upstream failure returns a wrapped error — the caller must treat that
// as "could not resolve", which is distinct from a legitimately empty
// playlist (nil error, empty slice).
func (r *APIResolver) ListPlaylistVideos(ctx context.Context, playlistID string) ([]string, error) {
	var videoIDs []string
	pageToken := ""

	for {
		call := r.svc.PlaylistItems.List([]string{"contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(pageSize).
			PageToken(pageToken)

		resp, err := call.Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list playlist %s: %w", playlistID, err)
		}

		for _, item := range resp.Items {
			if item.ContentDetails != nil && item.ContentDetails.VideoId != "" {
				videoIDs = append(videoIDs, item.ContentDetails.VideoId)
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	log.Printf("🎬 Playlist %s: found %d videos", playlistID, len(videoIDs))
	return videoIDs, nil
}

// GetVideoMetadata looks up title/description for a single video.
// Returns ErrNotFound when the upstream has no such item.
func (r *APIResolver) GetVideoMetadata(ctx context.Context, videoID string) (*VideoMetadata, error) {
	resp, err := r.svc.Videos.List([]string{"snippet"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata for %s: %w", videoID, err)
	}

	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}

	snippet := resp.Items[0].Snippet
	return &VideoMetadata{
		Title:       snippet.Title,
		Description: snippet.Description,
		URL:         WatchURL(videoID),
	}, nil
}

// WatchURL returns the canonical watch URL for a video ID.
func WatchURL(videoID string) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
}

// playlistIDRegex matches the list= query parameter in playlist URLs.
var playlistIDRegex = regexp.MustCompile(`list=([a-zA-Z0-9_-]+)`)

// barePlaylistIDRegex matches a playlist ID pasted without a URL.
// Playlist IDs start with PL/UU/FL/OL/RD and are at least 13 characters.
var barePlaylistIDRegex = regexp.MustCompile(`^(?:PL|UU|FL|OL|RD)[a-zA-Z0-9_-]{10,}$`)

// ParsePlaylistURL extracts the playlist ID from a playlist URL.
// Accepts a bare playlist ID as-is.
func ParsePlaylistURL(input string) (string, error) {
	input = strings.TrimSpace(input)

	if barePlaylistIDRegex.MatchString(input) {
		return input, nil
	}

	matches := playlistIDRegex.FindStringSubmatch(input)
	if len(matches) >= 2 {
		return matches[1], nil
	}

	return "", fmt.Errorf("invalid playlist URL: %s", input)
}
