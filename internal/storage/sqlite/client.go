package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/support-console/backend/internal/storage/models"
	"github.com/support-console/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping() error {
	return c.db.Ping()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		content_type TEXT NOT NULL,
		path TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		chunks INTEGER NOT NULL DEFAULT 0,
		uploaded_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_uploaded ON documents(uploaded_at);

	CREATE TABLE IF NOT EXISTS document_chunks (
		id TEXT PRIMARY KEY,
		doc_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		text TEXT NOT NULL,
		FOREIGN KEY (doc_id) REFERENCES documents(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_doc ON document_chunks(doc_id);

	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		total_documents INTEGER NOT NULL,
		total_chunks INTEGER NOT NULL,
		index_bytes INTEGER NOT NULL,
		built_at INTEGER NOT NULL
	);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertDocument(doc *models.KnowledgeDocument) error {
	query := `
		INSERT INTO documents (id, name, content_type, path, size_bytes, chunks, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		doc.ID,
		doc.Name,
		doc.ContentType,
		doc.Path,
		doc.SizeBytes,
		doc.Chunks,
		doc.UploadedAt.UnixNano(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	logger.Debug("Document inserted", zap.String("doc_id", doc.ID), zap.String("name", doc.Name))
	return nil
}

func (c *Client) GetDocument(id string) (*models.KnowledgeDocument, error) {
	query := `SELECT id, name, content_type, path, size_bytes, chunks, uploaded_at FROM documents WHERE id = ?`

	doc, err := scanDocument(c.db.QueryRow(query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns the catalogue newest first.
func (c *Client) ListDocuments() ([]models.KnowledgeDocument, error) {
	query := `SELECT id, name, content_type, path, size_bytes, chunks, uploaded_at FROM documents ORDER BY uploaded_at DESC, rowid DESC`

	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := []models.KnowledgeDocument{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*models.KnowledgeDocument, error) {
	var doc models.KnowledgeDocument
	var uploadedAt int64
	if err := row.Scan(&doc.ID, &doc.Name, &doc.ContentType, &doc.Path, &doc.SizeBytes, &doc.Chunks, &uploadedAt); err != nil {
		return nil, err
	}
	doc.UploadedAt = time.Unix(0, uploadedAt)
	return &doc, nil
}

// ReplaceChunks swaps the stored chunks of a document and updates its
// chunk count. Documents whose text is not extracted pass only count.
func (c *Client) ReplaceChunks(docID string, chunks []string, count int) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM document_chunks WHERE doc_id = ?`, docID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO document_chunks (id, doc_id, chunk_index, text) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for i, text := range chunks {
		chunkID := fmt.Sprintf("%s_chunk_%d", docID, i)
		if _, err := stmt.Exec(chunkID, docID, i, text); err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	if _, err := tx.Exec(`UPDATE documents SET chunks = ? WHERE id = ?`, count, docID); err != nil {
		return fmt.Errorf("failed to update chunk count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}

	logger.Debug("Chunks stored", zap.String("doc_id", docID), zap.Int("chunks", count))
	return nil
}

func (c *Client) GetChunks(docID string) ([]string, error) {
	rows, err := c.db.Query(`SELECT text FROM document_chunks WHERE doc_id = ? ORDER BY chunk_index`, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks: %w", err)
	}
	defer rows.Close()

	var chunks []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, text)
	}
	return chunks, rows.Err()
}

// ChunkBytes is the total stored chunk text size.
func (c *Client) ChunkBytes() (int64, error) {
	var total sql.NullInt64
	if err := c.db.QueryRow(`SELECT SUM(LENGTH(text)) FROM document_chunks`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum chunk sizes: %w", err)
	}
	return total.Int64, nil
}

func (c *Client) InsertBuild(build *models.KnowledgeBuild) error {
	result, err := c.db.Exec(
		`INSERT INTO builds (total_documents, total_chunks, index_bytes, built_at) VALUES (?, ?, ?, ?)`,
		build.TotalDocuments,
		build.TotalChunks,
		build.IndexBytes,
		build.BuiltAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert build: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read build id: %w", err)
	}
	build.ID = int(id)
	return nil
}

// LatestBuild returns nil when nothing has been built yet.
func (c *Client) LatestBuild() (*models.KnowledgeBuild, error) {
	query := `SELECT id, total_documents, total_chunks, index_bytes, built_at FROM builds ORDER BY id DESC LIMIT 1`

	var build models.KnowledgeBuild
	var builtAt int64
	err := c.db.QueryRow(query).Scan(&build.ID, &build.TotalDocuments, &build.TotalChunks, &build.IndexBytes, &builtAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest build: %w", err)
	}
	build.BuiltAt = time.Unix(0, builtAt)
	return &build, nil
}

func (c *Client) CountDocuments() (int, error) {
	var count int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}
