package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/romdeck/romdeck/internal/config"
	"github.com/romdeck/romdeck/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.New()
	cfg.BaseURL = server.URL
	cfg.APIKey = "test-key"

	client, err := NewClient(cfg, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client, server
}

func TestListPlatforms(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/platforms" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "test-key" {
			t.Errorf("missing API key header")
		}
		json.NewEncoder(w).Encode([]models.Platform{
			{ID: "snes", Name: "Super Nintendo", Folder: "snes"},
			{ID: "megadrive", Name: "Mega Drive", Folder: "megadrive"},
		})
	}))

	platforms, err := client.ListPlatforms(context.Background())
	if err != nil {
		t.Fatalf("ListPlatforms failed: %v", err)
	}
	if len(platforms) != 2 {
		t.Fatalf("expected 2 platforms, got %d", len(platforms))
	}
	if platforms[0].ID != "snes" {
		t.Errorf("unexpected platform: %+v", platforms[0])
	}
}

func TestListGamesNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Games list not found for platform nope"})
	}))

	_, err := client.ListGames(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !IsNotFound(err) {
		t.Errorf("expected a not-found error, got %v", err)
	}
}

func TestHistoryQueryParams(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("status") != "completed" {
			t.Errorf("expected status=completed, got %q", q.Get("status"))
		}
		if q.Get("limit") != "50" {
			t.Errorf("expected limit=50, got %q", q.Get("limit"))
		}
		json.NewEncoder(w).Encode([]models.HistoryEntry{
			{URL: "http://host/game.zip", GameName: "Game", Platform: "snes", Status: "Download_OK"},
		})
	}))

	entries, err := client.History(context.Background(), models.StatusCompleted, 50)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(entries) != 1 || entries[0].NormalizedStatus() != models.StatusCompleted {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestStartDownload(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/download" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req DownloadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if req.Platform != "snes" || req.GameName != "Game" || !req.IsArchive {
			t.Errorf("unexpected payload: %+v", req)
		}
		json.NewEncoder(w).Encode(DownloadOutcome{
			TaskID: "12345",
			History: &models.HistoryEntry{
				URL: req.URL, GameName: req.GameName, Platform: req.Platform, Status: "downloading",
			},
		})
	}))

	outcome, err := client.StartDownload(context.Background(), DownloadRequest{
		Platform: "snes", GameName: "Game", URL: "http://host/game.zip", IsArchive: true,
	})
	if err != nil {
		t.Fatalf("StartDownload failed: %v", err)
	}
	if !outcome.Accepted() {
		t.Errorf("outcome should be accepted: %+v", outcome)
	}
	if outcome.TaskID != "12345" {
		t.Errorf("unexpected task id %q", outcome.TaskID)
	}
}

func TestStartBatchPerItemOutcomes(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req BatchRequest
		json.NewDecoder(r.Body).Decode(&req)
		resp := BatchResponse{}
		for i, d := range req.Downloads {
			if i == 1 {
				resp.Tasks = append(resp.Tasks, DownloadOutcome{Error: "rejected"})
				continue
			}
			resp.Tasks = append(resp.Tasks, DownloadOutcome{
				TaskID:  "t",
				History: &models.HistoryEntry{URL: d.URL, Status: "downloading"},
			})
		}
		json.NewEncoder(w).Encode(resp)
	}))

	outcomes, err := client.StartBatch(context.Background(), []DownloadRequest{
		{URL: "http://host/a.zip"}, {URL: "http://host/b.zip"}, {URL: "http://host/c.zip"},
	})
	if err != nil {
		t.Fatalf("StartBatch failed: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Accepted() == false || outcomes[1].Accepted() || outcomes[2].Accepted() == false {
		t.Errorf("unexpected acceptance pattern: %+v", outcomes)
	}
}

func TestCancelRequiresIdentifier(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(okResponse{OK: true})
	}))

	if err := client.Cancel(context.Background(), "", ""); err == nil {
		t.Error("cancel without identifiers should fail locally")
	}
	if err := client.Cancel(context.Background(), "", "http://host/a.zip"); err != nil {
		t.Errorf("cancel by url failed: %v", err)
	}
}

func TestProgressURL(t *testing.T) {
	cfg := config.New()
	cfg.BaseURL = "https://rgsx.example.com"
	cfg.APIKey = "k"

	client, err := NewClient(cfg, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	wsURL, err := client.ProgressURL("http://host/game.zip")
	if err != nil {
		t.Fatalf("ProgressURL failed: %v", err)
	}
	want := "wss://rgsx.example.com/ws/progress?api_key=k&url=http%3A%2F%2Fhost%2Fgame.zip"
	if wsURL != want {
		t.Errorf("ProgressURL = %q, want %q", wsURL, want)
	}
}
