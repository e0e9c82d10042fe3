// Package storage defines the design-directory file abstraction.
package storage

import "time"

// DesignMeta is the lightweight listing entry for one design file.
type DesignMeta struct {
	Path      string
	Checksum  string
	UpdatedAt time.Time
}

// Provider is the interface for design-file operations.
type Provider interface {
	// List returns metadata for every design file under dir (relative
	// to the designs root).
	List(dir string) ([]DesignMeta, error)
	// Read returns the raw bytes of the file at path (relative to the
	// designs root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the designs
	// root).
	Write(path string, content []byte) error
}
