package preprocess

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/distill-app/core/internal/config"
)

const defaultTimedTextEndpoint = "https://www.youtube.com"

var (
	videoIDPattern = regexp.MustCompile(`(?:youtube\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?)/|.*[?&]v=)|youtu\.be/)([^"&?/\s]{11})`)
	bareVideoID    = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// ExtractVideoID pulls the 11-character video ID out of any of the common
// YouTube URL shapes, or accepts a bare ID.
func ExtractVideoID(ref string) (string, bool) {
	if bareVideoID.MatchString(ref) {
		return ref, true
	}
	m := videoIDPattern.FindStringSubmatch(ref)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// YouTubeTranscriptClient fetches caption tracks from the timedtext API.
type YouTubeTranscriptClient struct {
	endpoint string
	language string
	http     *http.Client
}

func NewYouTubeTranscriptClient(cfg config.TranscriptConfig) *YouTubeTranscriptClient {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultTimedTextEndpoint
	}
	language := cfg.Language
	if language == "" {
		language = "en"
	}
	return &YouTubeTranscriptClient{
		endpoint: endpoint,
		language: language,
		http:     &http.Client{Timeout: 20 * time.Second},
	}
}

type timedTextDocument struct {
	XMLName xml.Name       `xml:"transcript"`
	Texts   []timedTextRow `xml:"text"`
}

type timedTextRow struct {
	Start float64 `xml:"start,attr"`
	Dur   float64 `xml:"dur,attr"`
	Body  string  `xml:",chardata"`
}

// Fetch implements TranscriptFetcher.
func (c *YouTubeTranscriptClient) Fetch(ctx context.Context, sourceRef string) ([]TranscriptSegment, error) {
	videoID, ok := ExtractVideoID(sourceRef)
	if !ok {
		return nil, fmt.Errorf("no video ID in %q", sourceRef)
	}

	query := url.Values{}
	query.Set("lang", c.language)
	query.Set("v", videoID)
	reqURL := fmt.Sprintf("%s/api/timedtext?%s", c.endpoint, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("timedtext request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("timedtext request failed with status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("no transcript available for video %s", videoID)
	}

	var doc timedTextDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("timedtext parse: %w", err)
	}

	segments := make([]TranscriptSegment, 0, len(doc.Texts))
	for _, row := range doc.Texts {
		segments = append(segments, TranscriptSegment{
			// The API double-escapes entities; one more pass after the
			// XML decoder is required.
			Text:     html.UnescapeString(row.Body),
			Offset:   row.Start,
			Duration: row.Dur,
		})
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("no transcript available for video %s", videoID)
	}
	return segments, nil
}
