// Package archivestore uploads exported archives to an S3-compatible
// object store and mints download URLs for them.
package archivestore

import "context"

// Store is the upload contract the export service depends on.
type Store interface {
	Put(ctx context.Context, archiveID, path string, content []byte) error
	GetURL(ctx context.Context, archiveID, path string) (string, error)
}
