package node

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Load types the node reports from /loadtracks.
const (
	LoadTypeTrack    = "TRACK_LOADED"
	LoadTypePlaylist = "PLAYLIST_LOADED"
	LoadTypeSearch   = "SEARCH_RESULT"
	LoadTypeNoMatch  = "NO_MATCHES"
	LoadTypeFailed   = "LOAD_FAILED"
)

// LoadResult is the node's answer to a track query. Its shape belongs
// to the node; the client passes it through without interpreting more
// than the load type.
type LoadResult struct {
	LoadType     string         `json:"loadType"`
	PlaylistInfo *PlaylistInfo  `json:"playlistInfo,omitempty"`
	Tracks       []LoadedTrack  `json:"tracks"`
	Exception    *LoadException `json:"exception,omitempty"`
}

type PlaylistInfo struct {
	Name          string `json:"name"`
	SelectedTrack int    `json:"selectedTrack"`
}

// LoadedTrack pairs a descriptor hash with the node's pre-decoded info.
type LoadedTrack struct {
	Hash string    `json:"track"`
	Info TrackInfo `json:"info"`
}

type TrackInfo struct {
	Identifier string `json:"identifier"`
	IsSeekable bool   `json:"isSeekable"`
	Author     string `json:"author"`
	Length     int64  `json:"length"`
	IsStream   bool   `json:"isStream"`
	Position   int64  `json:"position"`
	Title      string `json:"title"`
	URI        string `json:"uri"`
}

type LoadException struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// RestClient queries the node's HTTP surface.
type RestClient struct {
	baseURL       string
	authorization string
	client        *http.Client
}

func NewRestClient(baseURL, authorization string) *RestClient {
	return &RestClient{
		baseURL:       baseURL,
		authorization: authorization,
		client:        &http.Client{Timeout: 10 * time.Second},
	}
}

// LoadTracks resolves an identifier (a URL or a search prefix like
// "ytsearch:...") into playable tracks.
func (c *RestClient) LoadTracks(ctx context.Context, identifier string) (*LoadResult, error) {
	endpoint := fmt.Sprintf("%s/loadtracks?identifier=%s", c.baseURL, url.QueryEscape(identifier))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build loadtracks request: %w", err)
	}
	req.Header.Set("Authorization", c.authorization)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query node for tracks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("node returned status %d for loadtracks", resp.StatusCode)
	}

	var result LoadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode loadtracks response: %w", err)
	}
	return &result, nil
}
