package models

import (
	"net/url"
	"path"
	"strings"
)

// archiveExtensions is the set of file extensions the server should extract
// after download.
var archiveExtensions = map[string]bool{
	".zip": true,
	".rar": true,
}

// IsArchiveURL reports whether the URL's file extension marks it as an
// archive. Query strings and fragments are ignored; matching is
// case-insensitive.
func IsArchiveURL(raw string) bool {
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		p = u.Path
	}
	return archiveExtensions[strings.ToLower(path.Ext(p))]
}
