// Package export serves archive requests: it assembles the file bundle
// for the requested phases and, when an object store is configured,
// uploads it and swaps the synthetic handle for a real download URL.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	enginearchive "consultify/internal/engine/archive"
	"consultify/internal/engine/conversation"
	"consultify/internal/gateway/repository/archivestore"
)

// SessionReader decouples the export service from the wizard service.
type SessionReader interface {
	GetSession(sessionID string) (*conversation.Session, error)
}

type Service struct {
	asm      *enginearchive.Assembler
	sessions SessionReader
	uploads  archivestore.Store // optional
}

func New(asm *enginearchive.Assembler, sessions SessionReader, uploads archivestore.Store) *Service {
	return &Service{asm: asm, sessions: sessions, uploads: uploads}
}

// Export assembles a fresh archive. A missing or unreadable session
// does not fail the export; the archive simply carries no
// session-generated files. Upload failures degrade to a partial archive
// with an embedded error note, never a failed export.
func (s *Service) Export(ctx context.Context, sessionID string, phases []int) (conversation.Archive, error) {
	var sess *conversation.Session
	if sessionID != "" {
		loaded, err := s.sessions.GetSession(sessionID)
		if err != nil {
			log.Printf("export: session %s unavailable, exporting templates only: %v", sessionID, err)
		} else {
			sess = loaded
		}
	}

	ar := s.asm.Assemble(phases, sess)
	if s.uploads == nil {
		return ar, nil
	}

	if err := s.upload(ctx, ar); err != nil {
		log.Printf("export: upload for archive %s failed: %v", ar.ID, err)
		return enginearchive.WithErrorNote(ar, err), nil
	}
	if url, err := s.uploads.GetURL(ctx, ar.ID, manifestPath); err == nil && url != "" {
		ar.DownloadHandle = url
	}
	return ar, nil
}

const manifestPath = "manifest.json"

func (s *Service) upload(ctx context.Context, ar conversation.Archive) error {
	for _, f := range ar.Files {
		if err := s.uploads.Put(ctx, ar.ID, f.Path, []byte(f.Content)); err != nil {
			return fmt.Errorf("upload %s: %w", f.Path, err)
		}
	}
	manifest, err := json.MarshalIndent(ar, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := s.uploads.Put(ctx, ar.ID, manifestPath, manifest); err != nil {
		return fmt.Errorf("upload manifest: %w", err)
	}
	return nil
}
