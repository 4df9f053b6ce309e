package download

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/romdeck/romdeck/internal/api"
	"github.com/romdeck/romdeck/internal/models"
)

// fakeAPI scripts server responses.
type fakeAPI struct {
	startOutcome *api.DownloadOutcome
	startErr     error
	batchFn      func(reqs []api.DownloadRequest) ([]api.DownloadOutcome, error)
	cancelErr    error
	cancelCalls  []api.CancelRequest
	redownload   *api.DownloadOutcome
	redownloadEr error
}

func (f *fakeAPI) StartDownload(ctx context.Context, req api.DownloadRequest) (*api.DownloadOutcome, error) {
	return f.startOutcome, f.startErr
}

func (f *fakeAPI) StartBatch(ctx context.Context, reqs []api.DownloadRequest) ([]api.DownloadOutcome, error) {
	return f.batchFn(reqs)
}

func (f *fakeAPI) Cancel(ctx context.Context, taskID, jobURL string) error {
	f.cancelCalls = append(f.cancelCalls, api.CancelRequest{TaskID: taskID, URL: jobURL})
	return f.cancelErr
}

func (f *fakeAPI) Redownload(ctx context.Context, jobURL string) (*api.DownloadOutcome, error) {
	return f.redownload, f.redownloadEr
}

// fakeChannels records channel opens and closes.
type fakeChannels struct {
	mu      sync.Mutex
	open    map[string]string // url -> name
	closed  []string
	openErr map[string]error
}

func newFakeChannels() *fakeChannels {
	return &fakeChannels{
		open:    make(map[string]string),
		openErr: make(map[string]error),
	}
}

func (f *fakeChannels) Open(ctx context.Context, url, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.openErr[url]; err != nil {
		return err
	}
	f.open[url] = name
	return nil
}

func (f *fakeChannels) Close(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.open, url)
	f.closed = append(f.closed, url)
}

func (f *fakeChannels) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.open)
}

func TestStartOpensChannelOnAcceptance(t *testing.T) {
	channels := newFakeChannels()
	fake := &fakeAPI{
		startOutcome: &api.DownloadOutcome{
			TaskID:  "t1",
			History: &models.HistoryEntry{URL: "http://host/game.zip", Status: "downloading"},
		},
	}
	o := NewOrchestrator(fake, channels, nil)

	err := o.Start(context.Background(), "snes", "Game", "http://host/game.zip")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if channels.open["http://host/game.zip"] != "Game" {
		t.Errorf("channel not opened: %v", channels.open)
	}
	if id, ok := o.TaskID("http://host/game.zip"); !ok || id != "t1" {
		t.Errorf("task id not recorded: %q %v", id, ok)
	}
}

func TestStartRejectionMutatesNothing(t *testing.T) {
	channels := newFakeChannels()
	fake := &fakeAPI{startErr: errors.New("boom")}
	o := NewOrchestrator(fake, channels, nil)

	if err := o.Start(context.Background(), "snes", "Game", "http://host/game.zip"); err == nil {
		t.Fatal("expected error")
	}
	if channels.openCount() != 0 {
		t.Error("no channel may be registered on failure")
	}
	if _, ok := o.TaskID("http://host/game.zip"); ok {
		t.Error("no task id may be recorded on failure")
	}
}

func TestStartBatchPartialFailure(t *testing.T) {
	channels := newFakeChannels()
	fake := &fakeAPI{
		batchFn: func(reqs []api.DownloadRequest) ([]api.DownloadOutcome, error) {
			outcomes := make([]api.DownloadOutcome, len(reqs))
			for i, r := range reqs {
				if i == 1 {
					outcomes[i] = api.DownloadOutcome{Error: "quota exceeded"}
					continue
				}
				outcomes[i] = api.DownloadOutcome{
					TaskID:  "t",
					History: &models.HistoryEntry{URL: r.URL, Status: "downloading"},
				}
			}
			return outcomes, nil
		},
	}
	o := NewOrchestrator(fake, channels, nil)

	items := []BatchItem{
		{Platform: "snes", GameName: "A", URL: "http://host/a.zip"},
		{Platform: "snes", GameName: "B", URL: "http://host/b.zip"},
		{Platform: "snes", GameName: "C", URL: "http://host/c.zip"},
		{Platform: "snes", GameName: "D", URL: "http://host/d.zip"},
	}
	result, err := o.StartBatch(context.Background(), items)
	if err != nil {
		t.Fatalf("StartBatch failed: %v", err)
	}

	if len(result.Started) != 3 {
		t.Errorf("expected 3 started, got %d", len(result.Started))
	}
	if len(result.Failures) != 1 || result.Failures[0].Item.GameName != "B" {
		t.Errorf("expected one failure for B, got %v", result.Failures)
	}
	if channels.openCount() != 3 {
		t.Errorf("expected 3 open channels, got %d", channels.openCount())
	}
}

func TestStartBatchDerivesArchiveFlag(t *testing.T) {
	var seen []api.DownloadRequest
	fake := &fakeAPI{
		batchFn: func(reqs []api.DownloadRequest) ([]api.DownloadOutcome, error) {
			seen = reqs
			outcomes := make([]api.DownloadOutcome, len(reqs))
			for i, r := range reqs {
				outcomes[i] = api.DownloadOutcome{TaskID: "t", History: &models.HistoryEntry{URL: r.URL}}
			}
			return outcomes, nil
		},
	}
	o := NewOrchestrator(fake, newFakeChannels(), nil)

	o.StartBatch(context.Background(), []BatchItem{
		{Platform: "snes", GameName: "A", URL: "http://host/a.zip"},
		{Platform: "snes", GameName: "B", URL: "http://host/b.iso"},
	})

	if !seen[0].IsArchive || seen[1].IsArchive {
		t.Errorf("archive flags wrong: %+v", seen)
	}
}

func TestCancelClosesLocalChannelFirst(t *testing.T) {
	channels := newFakeChannels()
	fake := &fakeAPI{cancelErr: errors.New("server unreachable")}
	o := NewOrchestrator(fake, channels, nil)
	o.rememberTask("http://host/a.zip", "t9")

	err := o.Cancel(context.Background(), "http://host/a.zip")
	if err == nil {
		t.Fatal("expected cancel request error")
	}
	// Even with the server unreachable the local channel must be closed.
	if len(channels.closed) != 1 || channels.closed[0] != "http://host/a.zip" {
		t.Errorf("local channel not closed: %v", channels.closed)
	}
	if len(fake.cancelCalls) != 1 || fake.cancelCalls[0].TaskID != "t9" {
		t.Errorf("cancel should carry the recorded task id: %v", fake.cancelCalls)
	}
}

func TestRedownloadURLMismatchIsError(t *testing.T) {
	channels := newFakeChannels()
	fake := &fakeAPI{
		redownload: &api.DownloadOutcome{
			TaskID:  "t1",
			History: &models.HistoryEntry{URL: "http://host/other.zip", GameName: "Game"},
		},
	}
	o := NewOrchestrator(fake, channels, nil)

	err := o.Redownload(context.Background(), "http://host/game.zip")
	if !errors.Is(err, ErrURLMismatch) {
		t.Fatalf("expected ErrURLMismatch, got %v", err)
	}
	if channels.openCount() != 0 {
		t.Error("mismatch must not open a channel")
	}
}

func TestRedownloadOpensChannelWithHistoryName(t *testing.T) {
	channels := newFakeChannels()
	fake := &fakeAPI{
		redownload: &api.DownloadOutcome{
			TaskID:  "t1",
			History: &models.HistoryEntry{URL: "http://host/game.zip", GameName: "Game From History"},
		},
	}
	o := NewOrchestrator(fake, channels, nil)

	if err := o.Redownload(context.Background(), "http://host/game.zip"); err != nil {
		t.Fatalf("Redownload failed: %v", err)
	}
	if channels.open["http://host/game.zip"] != "Game From History" {
		t.Errorf("channel name should come from history: %v", channels.open)
	}
}

func TestStartRejectedOutcomeMessage(t *testing.T) {
	fake := &fakeAPI{startOutcome: &api.DownloadOutcome{Error: "disk full"}}
	o := NewOrchestrator(fake, newFakeChannels(), nil)

	err := o.Start(context.Background(), "snes", "Game", "http://host/game.zip")
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("rejection detail should be surfaced, got %v", err)
	}
}
