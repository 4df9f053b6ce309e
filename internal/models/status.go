// Package models defines the data types shared by the romdeck client:
// catalog entries, history records, in-flight jobs and job statuses.
package models

import "strings"

// Status is the canonical job status vocabulary used by the client.
// The server reports a mix of spellings (legacy French labels, casing
// variants); everything is normalized to one of these before branching.
type Status string

const (
	StatusDownloading Status = "downloading"
	StatusExtracting  Status = "extracting"
	StatusCompleted   Status = "completed"
	StatusError       Status = "error"
	StatusCanceled    Status = "canceled"
	StatusUnknown     Status = "unknown"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further progress events are expected for a
// job in this status. Unknown is never terminal.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusCanceled
}

// NormalizeStatus maps the heterogeneous upstream status spellings to the
// canonical vocabulary. Unrecognized values map to StatusUnknown.
func NormalizeStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "download_ok", "completed", "done":
		return StatusCompleted
	case "erreur", "error", "failed":
		return StatusError
	case "extracting":
		return StatusExtracting
	case "téléchargement", "telechargement", "downloading":
		return StatusDownloading
	case "canceled", "cancelled":
		return StatusCanceled
	default:
		return StatusUnknown
	}
}
