package models

// Job is the client-side representation of one in-flight server download,
// keyed by source URL. At most one Job exists per URL at any time; the job
// is created when the server accepts a start request and destroyed when its
// progress channel reports a terminal status or closes.
type Job struct {
	URL     string
	Name    string
	Percent int
	Status  Status
	Speed   float64 // bytes/sec as reported by the server
}

// ProgressUpdate is one frame from a per-job progress channel. Field names
// follow the server's WebSocket payload.
type ProgressUpdate struct {
	URL        string  `json:"url"`
	GameName   string  `json:"game_name"`
	Platform   string  `json:"platform"`
	Status     string  `json:"status"`
	Percent    int     `json:"percent"`
	Speed      float64 `json:"speed"`
	Downloaded int64   `json:"downloaded_size"`
	Total      int64   `json:"total_size"`
	Message    string  `json:"message"`
}

// NormalizedStatus returns the frame's status in the canonical vocabulary.
func (u ProgressUpdate) NormalizedStatus() Status {
	return NormalizeStatus(u.Status)
}
