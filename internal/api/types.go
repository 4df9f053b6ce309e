package api

import "github.com/romdeck/romdeck/internal/models"

// DownloadRequest is the payload for starting one download job.
type DownloadRequest struct {
	Platform  string `json:"platform"`
	GameName  string `json:"game_name"`
	URL       string `json:"url"`
	IsArchive bool   `json:"is_archive"`
}

// BatchRequest carries multiple download intents in one call. Each item is
// independently accepted or rejected by the server.
type BatchRequest struct {
	Downloads []DownloadRequest `json:"downloads"`
}

// DownloadOutcome is the server's answer for one download intent. For
// rejected batch items Error is non-empty and History is absent.
type DownloadOutcome struct {
	TaskID  string               `json:"task_id,omitempty"`
	History *models.HistoryEntry `json:"history,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// Accepted reports whether the server accepted this intent and produced a
// history record for it.
func (o DownloadOutcome) Accepted() bool {
	return o.Error == "" && o.History != nil
}

// BatchResponse is the per-item outcome list for a batch submission.
type BatchResponse struct {
	Tasks []DownloadOutcome `json:"tasks"`
}

// CancelRequest asks the server to cancel a job by task id and/or URL.
// At least one of the two must be set.
type CancelRequest struct {
	TaskID string `json:"task_id,omitempty"`
	URL    string `json:"url,omitempty"`
}

// RedownloadRequest re-triggers a job for a URL already present in history.
type RedownloadRequest struct {
	URL string `json:"url"`
}

// ServerStatus is the readiness probe response.
type ServerStatus struct {
	Sources  bool   `json:"sources"`
	GamesDir bool   `json:"games_dir"`
	RomsDir  string `json:"roms_dir"`
	SavesDir string `json:"saves_dir"`
}

// OnefichierStatus reports whether a 1fichier API key is configured on the
// server (the key itself is never returned).
type OnefichierStatus struct {
	Present bool `json:"present"`
	Length  int  `json:"length"`
}

type okResponse struct {
	OK bool `json:"ok"`
}
