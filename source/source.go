package source

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrAuthenticationMissing is returned when no source-control credential is
// available or the host rejects the one we hold.
var ErrAuthenticationMissing = errors.New("source credential missing")

// Entry is one file in a repository listing. IsText reports whether the path
// looks like embeddable text by name; binary content is left out of
// ingestion.
type Entry struct {
	Path   string
	Size   int64
	IsText bool
}

// Fetcher lists and fetches repository files from a source-control host.
type Fetcher interface {
	ListEntries(ctx context.Context, owner string, repo string) ([]Entry, error)
	FetchContent(ctx context.Context, owner string, repo string, path string) (string, error)
}

var textExtensions = newSet(
	".bash", ".c", ".cc", ".cfg", ".conf", ".cpp", ".cs", ".css", ".go",
	".graphql", ".h", ".hpp", ".html", ".ini", ".java", ".js", ".json",
	".jsx", ".kt", ".lua", ".md", ".mod", ".php", ".pl", ".proto", ".py",
	".rb", ".rs", ".rst", ".scala", ".scss", ".sh", ".sql", ".sum",
	".swift", ".tf", ".toml", ".ts", ".tsx", ".txt", ".xml", ".yaml", ".yml",
)

var textFilenames = newSet(
	"dockerfile", "makefile", "license", "readme", ".gitignore", ".env",
)

func newSet(keys ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}

	return set
}

// IsTextPath reports whether p names a file worth chunking, judged by its
// basename and extension.
func IsTextPath(p string) bool {
	base := strings.ToLower(path.Base(p))
	if _, ok := textFilenames[base]; ok {
		return true
	}

	_, ok := textExtensions[path.Ext(base)]
	return ok
}
