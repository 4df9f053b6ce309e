package models

// Platform is one system in the remote catalog. Identity is ID; entries are
// replaced wholesale on each refresh, never patched.
type Platform struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Folder   string `json:"folder"`
	ImageURL string `json:"image_url,omitempty"`
}

// Game is a single downloadable item. Identity is URL, which doubles as the
// download key for jobs and progress channels.
type Game struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Size      string `json:"size,omitempty"`
	Platform  string `json:"platform,omitempty"`
	Completed bool   `json:"completed,omitempty"`
}

// HistoryEntry is a persisted server-side record of a download. History is
// the source of truth for completed membership; the client's completed-set
// is derived from it.
type HistoryEntry struct {
	URL       string `json:"url"`
	GameName  string `json:"game_name"`
	Platform  string `json:"platform"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp,omitempty"`
	IsArchive bool   `json:"is_archive,omitempty"`
}

// NormalizedStatus returns the entry's status in the canonical vocabulary.
func (h HistoryEntry) NormalizedStatus() Status {
	return NormalizeStatus(h.Status)
}
