package node

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadTracks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "youshallnotpass" {
			t.Errorf("Authorization header = %q, want youshallnotpass", got)
		}
		if got := r.URL.Query().Get("identifier"); got != "ytsearch:never gonna give you up" {
			t.Errorf("identifier = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"loadType": "SEARCH_RESULT",
			"tracks": [
				{"track": "QAAAhash", "info": {"identifier": "dQw4w9WgXcQ", "isSeekable": true, "author": "Rick Astley", "length": 212000, "isStream": false, "position": 0, "title": "Never Gonna Give You Up", "uri": "https://youtu.be/dQw4w9WgXcQ"}}
			]
		}`))
	}))
	defer server.Close()

	client := NewRestClient(server.URL, "youshallnotpass")
	result, err := client.LoadTracks(context.Background(), "ytsearch:never gonna give you up")
	if err != nil {
		t.Fatalf("LoadTracks() returned error: %v", err)
	}

	want := &LoadResult{
		LoadType: LoadTypeSearch,
		Tracks: []LoadedTrack{
			{
				Hash: "QAAAhash",
				Info: TrackInfo{
					Identifier: "dQw4w9WgXcQ",
					IsSeekable: true,
					Author:     "Rick Astley",
					Length:     212000,
					Title:      "Never Gonna Give You Up",
					URI:        "https://youtu.be/dQw4w9WgXcQ",
				},
			},
		},
	}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Errorf("LoadTracks() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTracksUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewRestClient(server.URL, "wrong")
	if _, err := client.LoadTracks(context.Background(), "something"); err == nil {
		t.Fatal("LoadTracks() returned nil error for a 401 response")
	}
}
