// Package upload publishes written reports to remote object storage.
package upload

import (
	"context"
	"strings"
)

// Uploader uploads a written report to remote storage.
type Uploader interface {
	// Preflight verifies that the remote storage is reachable and writable.
	// Writes a small test object to the bucket to fail fast on misconfiguration.
	Preflight(ctx context.Context) error

	// Upload uploads the report file at localPath under the run marker and
	// returns the object URI, e.g. s3://bucket/reports/<marker>/junit.xml.
	Upload(ctx context.Context, marker, localPath string) (string, error)
}

// ParseObjectURI splits an s3://bucket/key URI. It reports false for
// anything that is not an S3 object URI.
func ParseObjectURI(uri string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(uri, "s3://")
	if !found {
		return "", "", false
	}

	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}

	return bucket, key, true
}
