package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"
	"rentacar-backend/internal/repository"
)

type documentRepository struct {
	db DBTX
}

func NewDocumentRepository(db DBTX) repository.DocumentRepository {
	return &documentRepository{db: db}
}

const documentColumns = `d.id, d.user_id, d.name, d.storage_key, d.type, d.status, d.verified, d.created_at, u.name`

const documentSelect = `SELECT ` + documentColumns + ` FROM documents d JOIN users u ON u.id = d.user_id`

func scanDocument(row interface{ Scan(...any) error }, d *domain.Document) error {
	return row.Scan(&d.ID, &d.UserID, &d.Name, &d.StorageKey, &d.Type, &d.Status, &d.Verified, &d.CreatedAt, &d.UserName)
}

func (r *documentRepository) Create(ctx context.Context, d *domain.Document) error {
	logger.EnterMethod("documentRepository.Create", "userID", d.UserID, "type", d.Type)

	query := `INSERT INTO documents (user_id, name, storage_key, type, status, verified, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	d.CreatedAt = time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query, d.UserID, d.Name, d.StorageKey, d.Type, d.Status, d.Verified, d.CreatedAt).Scan(&d.ID)
	if err != nil {
		logger.ExitMethodWithError("documentRepository.Create", err, "userID", d.UserID)
		return fmt.Errorf("insert document: %w", err)
	}

	logger.ExitMethod("documentRepository.Create", "documentID", d.ID)
	return nil
}

func (r *documentRepository) GetByID(ctx context.Context, id int64) (*domain.Document, error) {
	d := &domain.Document{}
	if err := scanDocument(r.db.QueryRowContext(ctx, documentSelect+` WHERE d.id = $1`, id), d); err != nil {
		return nil, notFound(err, "document", id)
	}
	return d, nil
}

func (r *documentRepository) GetByStorageKey(ctx context.Context, key string) (*domain.Document, error) {
	d := &domain.Document{}
	if err := scanDocument(r.db.QueryRowContext(ctx, documentSelect+` WHERE d.storage_key = $1`, key), d); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.Error{Kind: domain.ErrorKindNotFound, Code: "NOT_FOUND", Message: "file not found"}
		}
		return nil, err
	}
	return d, nil
}

func (r *documentRepository) UpdateStatus(ctx context.Context, d *domain.Document) error {
	res, err := r.db.ExecContext(ctx, `UPDATE documents SET status=$1, verified=$2 WHERE id=$3`, d.Status, d.Verified, d.ID)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return requireAffected(res, "document", d.ID)
}

func (r *documentRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return requireAffected(res, "document", id)
}

func (r *documentRepository) List(ctx context.Context, filter domain.DocumentFilter, page domain.PageRequest) ([]domain.Document, int64, error) {
	b := &queryBuilder{}
	if filter.UserID != nil {
		b.add("d.user_id = $%d", *filter.UserID)
	}
	if filter.Status != "" {
		b.add("d.status = $%d", filter.Status)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM documents d`+b.clause(), b.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	suffix, args := b.page(page)
	rows, err := r.db.QueryContext(ctx, documentSelect+b.clause()+` ORDER BY d.created_at DESC, d.id DESC`+suffix, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var d domain.Document
		if err := scanDocument(rows, &d); err != nil {
			return nil, 0, err
		}
		docs = append(docs, d)
	}
	return docs, total, rows.Err()
}
