package survey

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	driveIDParam = regexp.MustCompile(`id=([a-zA-Z0-9_-]+)`)
	driveFileID  = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)
)

const driveThumbnail = "https://drive.google.com/thumbnail?id=%s&sz=w400"

// ParseURLs splits a comma-separated upload cell, trimming entries and
// dropping empty ones.
func ParseURLs(cell string) []string {
	var out []string
	for _, u := range strings.Split(cell, ",") {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// DriveThumbnail rewrites a Google Drive share link ("open?id=" or
// "/file/d/") into a direct thumbnail link. Other URLs are returned as-is.
func DriveThumbnail(url string) string {
	for _, re := range []*regexp.Regexp{driveIDParam, driveFileID} {
		if m := re.FindStringSubmatch(url); m != nil {
			return fmt.Sprintf(driveThumbnail, m[1])
		}
	}
	return url
}

// Thumbnails maps DriveThumbnail over urls.
func Thumbnails(urls []string) []string {
	if len(urls) == 0 {
		return nil
	}
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = DriveThumbnail(u)
	}
	return out
}
