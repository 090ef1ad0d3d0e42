package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/logger"
	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/port"
	mediaService "github.com/fhuszti/property-media-ms-go/internal/usecase/media"
	"github.com/fhuszti/property-media-ms-go/internal/uuid"
)

const mediaItemColumns = `id, property_id, kind, source_url, original_filename, mime_type, size_bytes, stored_key, status,
        retry_count, error_message, completed_at, order_position, description, metadata, created_at, updated_at`

const insertMediaItemQuery = `
      INSERT INTO media_items
        (id, property_id, kind, source_url, original_filename, mime_type, size_bytes, status, retry_count, order_position, description, created_at, updated_at)
      VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type MediaItemRepository struct {
	db  *sql.DB
	now func() time.Time
}

// compile-time check: *MediaItemRepository must satisfy port.MediaItemRepository
var _ port.MediaItemRepository = (*MediaItemRepository)(nil)

func NewMediaItemRepository(db *sql.DB) *MediaItemRepository {
	return &MediaItemRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *MediaItemRepository) CreatePending(ctx context.Context, item *model.MediaItem) error {
	logger.Debugf(ctx, "creating database record for media #%s of property #%d...", item.ID, item.ParentID)
	return r.insert(ctx, r.db, item)
}

func (r *MediaItemRepository) insert(ctx context.Context, ex execer, item *model.MediaItem) error {
	now := r.now()
	item.Status = model.UploadStatusPending
	item.RetryCount = 0
	item.CreatedAt = now
	item.UpdatedAt = now

	_, err := ex.ExecContext(ctx, insertMediaItemQuery,
		item.ID, item.ParentID, item.Kind, item.SourceURL,
		item.OriginalFilename, item.MimeType, item.SizeBytes,
		item.Status, item.RetryCount, item.OrderPosition, item.Description,
		item.CreatedAt, item.UpdatedAt,
	)
	return err
}

// ReplaceForParent returns the stored keys of the rows it removed so the caller
// can drop their objects once the swap is committed.
func (r *MediaItemRepository) ReplaceForParent(ctx context.Context, parentID int64, kinds []model.MediaKind, items []*model.MediaItem) (superseded []string, err error) {
	logger.Infof(ctx, "replacing %v media of property #%d with %d new items...", kinds, parentID, len(items))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			superseded = nil
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				logger.Errorf(ctx, "❌  rollback failed: %v", rbErr)
			}
		}
	}()

	if len(kinds) > 0 {
		args := make([]any, 0, len(kinds)+1)
		args = append(args, parentID)
		for _, k := range kinds {
			args = append(args, k)
		}
		where := fmt.Sprintf(`property_id = ? AND kind IN (%s)`, placeholders(len(kinds)))

		if superseded, err = storedKeys(ctx, tx, where, args); err != nil {
			return nil, err
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM media_items WHERE `+where, args...); err != nil {
			return nil, err
		}
	}

	for _, item := range items {
		if err = r.insert(ctx, tx, item); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return superseded, nil
}

func storedKeys(ctx context.Context, tx *sql.Tx, where string, args []any) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT stored_key FROM media_items WHERE `+where+` AND stored_key IS NOT NULL`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r *MediaItemRepository) MarkUploading(ctx context.Context, id uuid.UUID) error {
	logger.Debugf(ctx, "claiming media #%s for upload...", id)

	const query = `
      UPDATE media_items
      SET status = 'uploading', error_message = NULL
      WHERE id = ? AND status IN ('pending', 'retrying')
    `
	return r.execOne(ctx, mediaService.ErrNotClaimable, query, id)
}

func (r *MediaItemRepository) MarkCompleted(ctx context.Context, id uuid.UUID, storedKey string, meta model.Metadata) error {
	logger.Debugf(ctx, "marking media #%s as completed at %q...", id, storedKey)

	const query = `
      UPDATE media_items
      SET status = 'completed', stored_key = ?, mime_type = ?, size_bytes = ?, metadata = ?, completed_at = ?, error_message = NULL
      WHERE id = ? AND status = 'uploading'
    `
	return r.execOne(ctx, mediaService.ErrInvalidTransition, query,
		storedKey, meta.MimeType, meta.SizeBytes, meta, r.now(), id,
	)
}

func (r *MediaItemRepository) MarkFailed(ctx context.Context, id uuid.UUID, from model.UploadStatus, errorDetail string) error {
	return r.markErrored(ctx, id, from, model.UploadStatusFailed, errorDetail)
}

func (r *MediaItemRepository) MarkRetrying(ctx context.Context, id uuid.UUID, from model.UploadStatus, errorDetail string) error {
	return r.markErrored(ctx, id, from, model.UploadStatusRetrying, errorDetail)
}

// markErrored only moves a row that is still in the status the caller last saw.
func (r *MediaItemRepository) markErrored(ctx context.Context, id uuid.UUID, from, to model.UploadStatus, errorDetail string) error {
	logger.Debugf(ctx, "marking media #%s as %s (was %s)...", id, to, from)

	const query = `
      UPDATE media_items
      SET status = ?, error_message = ?, stored_key = NULL, completed_at = NULL
      WHERE id = ? AND status = ? AND status <> 'completed'
    `
	return r.execOne(ctx, mediaService.ErrInvalidTransition, query,
		to, model.TruncateErrorMessage(errorDetail), id, from,
	)
}

func (r *MediaItemRepository) IncrementRetry(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE media_items SET retry_count = retry_count + 1 WHERE id = ?`
	return r.execOne(ctx, mediaService.ErrMediaNotFound, query, id)
}

// execOne runs a single-row update and returns notAffected when no row matched.
func (r *MediaItemRepository) execOne(ctx context.Context, notAffected error, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notAffected
	}
	return nil
}

func (r *MediaItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.MediaItem, error) {
	logger.Debugf(ctx, "fetching media #%s from the database...", id)

	query := `SELECT ` + mediaItemColumns + ` FROM media_items WHERE id = ?`
	item, err := scanMediaItem(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, mediaService.ErrMediaNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *MediaItemRepository) ListByParent(ctx context.Context, parentID int64) ([]*model.MediaItem, error) {
	query := `SELECT ` + mediaItemColumns + ` FROM media_items WHERE property_id = ? ORDER BY kind, order_position, created_at`
	return r.list(ctx, query, parentID)
}

func (r *MediaItemRepository) ListFailedByParent(ctx context.Context, parentID int64) ([]*model.MediaItem, error) {
	query := `SELECT ` + mediaItemColumns + ` FROM media_items WHERE property_id = ? AND status = 'failed' ORDER BY created_at`
	return r.list(ctx, query, parentID)
}

func (r *MediaItemRepository) list(ctx context.Context, query string, args ...any) ([]*model.MediaItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := make([]*model.MediaItem, 0)
	for rows.Next() {
		item, err := scanMediaItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMediaItem(s scanner) (*model.MediaItem, error) {
	var item model.MediaItem
	if err := s.Scan(
		&item.ID, &item.ParentID, &item.Kind, &item.SourceURL,
		&item.OriginalFilename, &item.MimeType, &item.SizeBytes,
		&item.StoredKey, &item.Status, &item.RetryCount, &item.ErrorMessage,
		&item.CompletedAt, &item.OrderPosition, &item.Description,
		&item.Metadata, &item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &item, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
