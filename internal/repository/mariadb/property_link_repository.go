package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/logger"
	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/port"
)

type PropertyLinkRepository struct {
	db  *sql.DB
	now func() time.Time
}

// compile-time check: *PropertyLinkRepository must satisfy port.PropertyLinkRepository
var _ port.PropertyLinkRepository = (*PropertyLinkRepository)(nil)

func NewPropertyLinkRepository(db *sql.DB) *PropertyLinkRepository {
	return &PropertyLinkRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// ReplaceForParent swaps every link of one kind for the given ones in a single transaction.
func (r *PropertyLinkRepository) ReplaceForParent(ctx context.Context, parentID int64, kind model.MediaKind, links []*model.PropertyLink) (err error) {
	logger.Infof(ctx, "replacing %s links of property #%d with %d new ones...", kind, parentID, len(links))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				logger.Errorf(ctx, "❌  rollback failed: %v", rbErr)
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM property_links WHERE property_id = ? AND kind = ?`, parentID, kind); err != nil {
		return err
	}

	const insert = `
      INSERT INTO property_links (id, property_id, kind, url, order_position, created_at)
      VALUES (?, ?, ?, ?, ?, ?)
    `
	now := r.now()
	for _, l := range links {
		l.ParentID = parentID
		l.Kind = kind
		l.CreatedAt = now
		if _, err = tx.ExecContext(ctx, insert, l.ID, l.ParentID, l.Kind, l.URL, l.OrderPosition, l.CreatedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *PropertyLinkRepository) ListByParent(ctx context.Context, parentID int64) ([]*model.PropertyLink, error) {
	const query = `
      SELECT id, property_id, kind, url, order_position, created_at
      FROM property_links
      WHERE property_id = ?
      ORDER BY kind, order_position
    `
	rows, err := r.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	links := make([]*model.PropertyLink, 0)
	for rows.Next() {
		var l model.PropertyLink
		if err := rows.Scan(&l.ID, &l.ParentID, &l.Kind, &l.URL, &l.OrderPosition, &l.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return links, nil
}
