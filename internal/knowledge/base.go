package knowledge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/support-console/backend/internal/metrics"
	"github.com/support-console/backend/internal/storage/models"
	"github.com/support-console/backend/internal/storage/sqlite"
	"github.com/support-console/backend/internal/store"
	"github.com/support-console/backend/pkg/logger"
)

var (
	ErrUnsupportedDocument = errors.New("unsupported document type")
	ErrEmptyDocument       = errors.New("document is empty")
	ErrNoDocuments         = errors.New("no documents uploaded")
	ErrBuildInProgress     = errors.New("knowledge base build already running")
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeHTML = "text/html"
)

type Stats struct {
	TotalDocuments int        `json:"total_documents"`
	TotalChunks    int        `json:"total_chunks"`
	IndexBytes     int64      `json:"index_bytes"`
	IndexSize      string     `json:"index_size"`
	LastUpdated    *time.Time `json:"last_updated,omitempty"`
	LastUpdatedAgo string     `json:"last_updated_ago,omitempty"`
}

type Document struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Size        string    `json:"size"`
	Chunks      int       `json:"chunks"`
	UploadedAt  time.Time `json:"uploaded_at"`
	Uploaded    string    `json:"uploaded"`
}

// State is what the knowledge slice publishes.
type State struct {
	Documents int   `json:"documents"`
	Building  bool  `json:"building"`
	Stats     Stats `json:"stats"`
}

// Base is the local knowledge base: uploaded files on disk, their
// catalogue and chunks in SQLite.
type Base struct {
	db        *sqlite.Client
	dir       string
	processor *Processor
	state     *store.Slice[State]

	buildMu sync.Mutex
}

func NewBase(db *sqlite.Client, dir string, hub *store.Hub) (*Base, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create document directory: %w", err)
	}
	b := &Base{
		db:        db,
		dir:       dir,
		processor: NewProcessor(),
		state:     store.NewSlice(hub, store.SliceKnowledge, State{}),
	}
	if err := b.publish(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Base) State() State {
	return b.state.Get()
}

// Upload stores a PDF or HTML document. The extension picks the kind
// and the content has to agree with it.
func (b *Base) Upload(name string, data []byte) (*Document, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	contentType, err := detect(name, data)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	path := filepath.Join(b.dir, id+strings.ToLower(filepath.Ext(name)))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write document: %w", err)
	}

	doc := &models.KnowledgeDocument{
		ID:          id,
		Name:        name,
		ContentType: contentType,
		Path:        path,
		SizeBytes:   int64(len(data)),
		UploadedAt:  time.Now(),
	}
	if err := b.db.InsertDocument(doc); err != nil {
		os.Remove(path)
		return nil, err
	}

	logger.Info("Document uploaded",
		zap.String("doc_id", id),
		zap.String("name", name),
		zap.Int64("size_bytes", doc.SizeBytes))

	if err := b.publish(); err != nil {
		logger.Warn("Failed to refresh knowledge state", zap.Error(err))
	}

	view := toDocument(*doc)
	return &view, nil
}

func detect(name string, data []byte) (string, error) {
	sniffed := http.DetectContentType(data)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		if sniffed == contentTypePDF {
			return contentTypePDF, nil
		}
	case ".html", ".htm":
		if strings.HasPrefix(sniffed, "text/") {
			return contentTypeHTML, nil
		}
	}
	return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedDocument, name, sniffed)
}

func (b *Base) Documents() ([]Document, error) {
	docs, err := b.db.ListDocuments()
	if err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toDocument(doc))
	}
	return out, nil
}

func toDocument(doc models.KnowledgeDocument) Document {
	return Document{
		ID:          doc.ID,
		Name:        doc.Name,
		ContentType: doc.ContentType,
		SizeBytes:   doc.SizeBytes,
		Size:        humanize.Bytes(uint64(doc.SizeBytes)),
		Chunks:      doc.Chunks,
		UploadedAt:  doc.UploadedAt,
		Uploaded:    doc.UploadedAt.Format("2006-01-02"),
	}
}

// Build re-chunks every catalogued document and records a build. Only
// one build runs at a time.
func (b *Base) Build(ctx context.Context) (*Stats, error) {
	if !b.buildMu.TryLock() {
		return nil, ErrBuildInProgress
	}
	defer b.buildMu.Unlock()

	docs, err := b.db.ListDocuments()
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	b.state.Update(func(s State) State {
		s.Building = true
		return s
	})
	defer func() {
		if err := b.publish(); err != nil {
			logger.Warn("Failed to refresh knowledge state", zap.Error(err))
		}
	}()

	start := time.Now()
	totalChunks := 0
	var estimatedBytes int64
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("build cancelled: %w", err)
		}
		n, estimated, err := b.process(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to process %s: %w", doc.Name, err)
		}
		totalChunks += n
		estimatedBytes += estimated
	}

	chunkBytes, err := b.db.ChunkBytes()
	if err != nil {
		return nil, err
	}

	build := &models.KnowledgeBuild{
		TotalDocuments: len(docs),
		TotalChunks:    totalChunks,
		IndexBytes:     chunkBytes + estimatedBytes,
		BuiltAt:        time.Now(),
	}
	if err := b.db.InsertBuild(build); err != nil {
		return nil, err
	}

	logger.Info("Knowledge base built",
		zap.Int("documents", build.TotalDocuments),
		zap.Int("chunks", build.TotalChunks),
		zap.Duration("duration", time.Since(start)))

	stats := statsFrom(build)
	return &stats, nil
}

// process returns the chunk count and, for documents whose text is not
// extracted, an estimate of the index bytes they account for.
func (b *Base) process(doc models.KnowledgeDocument) (int, int64, error) {
	switch doc.ContentType {
	case contentTypeHTML:
		raw, err := os.ReadFile(doc.Path)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to read document: %w", err)
		}
		_, text, err := b.processor.ExtractHTML(string(raw))
		if err != nil {
			return 0, 0, err
		}
		chunks := b.processor.ChunkText(text)
		if err := b.db.ReplaceChunks(doc.ID, chunks, len(chunks)); err != nil {
			return 0, 0, err
		}
		return len(chunks), 0, nil
	default:
		n := b.processor.EstimateChunks(doc.SizeBytes)
		if err := b.db.ReplaceChunks(doc.ID, nil, n); err != nil {
			return 0, 0, err
		}
		return n, int64(n * b.processor.chunkSize), nil
	}
}

func (b *Base) Stats() (*Stats, error) {
	build, err := b.db.LatestBuild()
	if err != nil {
		return nil, err
	}
	stats := statsFrom(build)
	return &stats, nil
}

func statsFrom(build *models.KnowledgeBuild) Stats {
	if build == nil {
		return Stats{IndexSize: humanize.Bytes(0)}
	}
	builtAt := build.BuiltAt
	return Stats{
		TotalDocuments: build.TotalDocuments,
		TotalChunks:    build.TotalChunks,
		IndexBytes:     build.IndexBytes,
		IndexSize:      humanize.Bytes(uint64(build.IndexBytes)),
		LastUpdated:    &builtAt,
		LastUpdatedAgo: humanize.Time(builtAt),
	}
}

func (b *Base) publish() error {
	count, err := b.db.CountDocuments()
	if err != nil {
		return err
	}
	stats, err := b.Stats()
	if err != nil {
		return err
	}
	metrics.KnowledgeDocuments.Set(float64(count))
	b.state.Set(State{Documents: count, Stats: *stats})
	return nil
}
