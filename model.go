package ctxmemgem

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/RKBobe/CtxMemGem/embedding"
	"github.com/RKBobe/CtxMemGem/source/github"
	"github.com/RKBobe/CtxMemGem/synthesis"
	"github.com/RKBobe/CtxMemGem/vector"
)

var (
	ErrVectorStoreNotSet = errors.New("vector store not set")
	ErrEmbedderNotSet    = errors.New("embedder not set")
	ErrSourceNotSet      = errors.New("source fetcher not set")
	ErrSynthesizerNotSet = errors.New("synthesizer not set")
	ErrInvalidRepository = errors.New("invalid repository reference")
	ErrEmptyQuestion     = errors.New("empty question")
)

const (
	DefaultTopK         = 5
	DefaultMaxFileBytes = 1 << 20
)

type Config struct {
	Chunk        ChunkConfig      `yaml:"chunk"`
	Retrieval    RetrievalConfig  `yaml:"retrieval"`
	MaxFileBytes int64            `yaml:"maxFileBytes"`
	Vector       vector.Config    `yaml:"vector"`
	Embedding    embedding.Config `yaml:"embedding"`
	GitHub       github.Config    `yaml:"github"`
	Synthesis    synthesis.Config `yaml:"synthesis"`
}

type ChunkConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type RetrievalConfig struct {
	TopK int `yaml:"topK"`
}

type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	str := d.Duration().String()
	return json.Marshal(str)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	// Parse the string duration
	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() ([]byte, error) {
	str := d.Duration().String()
	return yaml.Marshal(str)
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	// Parse the string duration
	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

// CollectionName derives the index collection for an owner/repo pair. Runs
// outside [A-Za-z0-9_-] are replaced so the name is safe for stores that key
// files or index names by it.
func CollectionName(owner, repo string) string {
	return sanitize(owner) + "-" + sanitize(repo)
}

func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '-', r == '_':
			b.WriteRune(r)

		default:
			b.WriteRune('-')
		}
	}

	return b.String()
}

// chunkID keys a stored chunk by its file path and window ordinal. Re-ingest
// replaces the whole collection, so ids only need to be unique within one
// ingestion run.
func chunkID(path string, index int) string {
	return path + "-" + strconv.Itoa(index)
}

// IngestReport summarizes one ingestion run. FilesSkipped counts files that
// contributed no chunks: binary or oversized content, empty files, and files
// whose fetch or embedding failed (those also appear in Files with the
// error).
type IngestReport struct {
	Owner        string       `json:"owner"`
	Repository   string       `json:"repository"`
	Collection   string       `json:"collection"`
	Files        []FileResult `json:"files"`
	ChunksStored int          `json:"chunks_stored"`
	FilesSkipped int          `json:"files_skipped"`
	Took         Duration     `json:"took"`
}

type FileResult struct {
	Path   string `json:"path"`
	Chunks int    `json:"chunks"`
	Error  string `json:"error,omitempty"`
}

type Answer struct {
	Collection string   `json:"collection"`
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Context    []string `json:"context"`
}
