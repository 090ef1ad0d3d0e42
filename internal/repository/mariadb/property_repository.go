package mariadb

import (
	"context"
	"database/sql"

	"github.com/fhuszti/property-media-ms-go/internal/port"
)

// PropertyRepository reads the properties table owned by the listing backend.
type PropertyRepository struct {
	db *sql.DB
}

// compile-time check: *PropertyRepository must satisfy port.PropertyRepository
var _ port.PropertyRepository = (*PropertyRepository)(nil)

func NewPropertyRepository(db *sql.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

func (r *PropertyRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM properties WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
