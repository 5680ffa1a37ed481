package loader

import (
	"context"
	"fmt"
)

// SourceKind tells which record format a source holds.
type SourceKind string

const (
	SourceKindEmails   SourceKind = "emails"
	SourceKindCalendar SourceKind = "calendar"
)

// SourceFile is an input file of communication records. The content is
// retrieved through the associated FileLoader.
type SourceFile struct {
	ID     string
	Path   string
	Kind   SourceKind
	Loader FileLoader
}

// NewSourceFileParams defines the input parameters for creating a
// SourceFile.
type NewSourceFileParams struct {
	ID     string
	Path   string
	Loader FileLoader
}

// NewEmailSource creates a SourceFile holding email threads: a JSON array
// of thread objects.
func NewEmailSource(params NewSourceFileParams) SourceFile {
	return SourceFile{
		ID:     params.ID,
		Path:   params.Path,
		Kind:   SourceKindEmails,
		Loader: params.Loader,
	}
}

// NewCalendarSource creates a SourceFile holding a calendar export: a JSON
// object with an "events" array.
func NewCalendarSource(params NewSourceFileParams) SourceFile {
	return SourceFile{
		ID:     params.ID,
		Path:   params.Path,
		Kind:   SourceKindCalendar,
		Loader: params.Loader,
	}
}

// GetBytes retrieves the raw content of the file using its Loader.
//
// Example:
//
//	data, err := file.GetBytes(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
func (f *SourceFile) GetBytes(ctx context.Context) ([]byte, error) {
	if f.Loader == nil {
		return nil, fmt.Errorf("source %q has no loader", f.Path)
	}
	return f.Loader.GetFileBytes(ctx, *f)
}

// FileLoader defines the interface for loading the contents of a
// SourceFile. Implementations may load files from disk, cloud storage, or
// other sources.
type FileLoader interface {
	GetFileBytes(ctx context.Context, file SourceFile) ([]byte, error)
}

// CacheKey returns the key loaders cache file contents under.
func CacheKey(file SourceFile) string {
	return file.ID + ":" + file.Path
}
