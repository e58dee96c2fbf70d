package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikhilbhutani/knowledgebase/internal/apperr"
	"github.com/nikhilbhutani/knowledgebase/internal/models"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const documentColumns = `id, owner_id, title, type, source, content_kind, content_text,
	pdf_base64, pdf_mime_type, pdf_file_name, pdf_file_size, last_updated, created_at`

type contentColumns struct {
	kind     string
	text     string
	base64   string
	mimeType string
	fileName string
	fileSize int64
}

func splitContent(c models.Content) contentColumns {
	if !c.IsPDF() {
		return contentColumns{kind: string(models.ContentText), text: c.Text}
	}
	return contentColumns{
		kind:     string(models.ContentPDF),
		text:     c.PDF.TextContent,
		base64:   c.PDF.Base64,
		mimeType: c.PDF.MimeType,
		fileName: c.PDF.FileName,
		fileSize: c.PDF.FileSize,
	}
}

func (cc contentColumns) content() models.Content {
	if models.ContentKind(cc.kind) != models.ContentPDF {
		return models.TextContent(cc.text)
	}
	return models.PDFDocumentContent(models.PDFContent{
		TextContent: cc.text,
		Base64:      cc.base64,
		MimeType:    cc.mimeType,
		FileName:    cc.fileName,
		FileSize:    cc.fileSize,
	})
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var (
		d     models.Document
		owner *string
		cc    contentColumns
	)
	err := row.Scan(&d.ID, &owner, &d.Title, &d.Type, &d.Source, &cc.kind, &cc.text,
		&cc.base64, &cc.mimeType, &cc.fileName, &cc.fileSize, &d.LastUpdated, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	if owner != nil {
		d.OwnerID = *owner
	}
	d.Content = cc.content()
	return &d, nil
}

func nullableOwner(owner string) *string {
	if owner == "" {
		return nil
	}
	return &owner
}

func (s *PostgresStore) Create(ctx context.Context, doc *models.Document) error {
	cc := splitContent(doc.Content)
	_, err := s.db.Exec(ctx,
		`INSERT INTO documents (`+documentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		doc.ID, nullableOwner(doc.OwnerID), doc.Title, doc.Type, doc.Source, cc.kind, cc.text,
		cc.base64, cc.mimeType, cc.fileName, cc.fileSize, doc.LastUpdated, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	doc, err := scanDocument(s.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) List(ctx context.Context, f ListFilter) ([]models.Document, error) {
	limit := f.Limit
	if limit <= 0 || limit > PageSize {
		limit = PageSize
	}

	query := `SELECT ` + documentColumns + ` FROM documents WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if f.OwnerID != "" {
		query += fmt.Sprintf(" AND owner_id = $%d", argIdx)
		args = append(args, f.OwnerID)
		argIdx++
	}
	if f.Type != "" {
		query += fmt.Sprintf(" AND type = $%d", argIdx)
		args = append(args, f.Type)
		argIdx++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func (s *PostgresStore) Update(ctx context.Context, doc *models.Document) error {
	cc := splitContent(doc.Content)
	tag, err := s.db.Exec(ctx,
		`UPDATE documents SET title = $2, content_kind = $3, content_text = $4, pdf_base64 = $5,
		        pdf_mime_type = $6, pdf_file_name = $7, pdf_file_size = $8, last_updated = $9
		 WHERE id = $1`,
		doc.ID, doc.Title, cc.kind, cc.text, cc.base64, cc.mimeType, cc.fileName, cc.fileSize, doc.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM documents WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM documents").Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}
