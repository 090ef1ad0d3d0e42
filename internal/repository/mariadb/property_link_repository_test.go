package mariadb

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/uuid"
)

func newLinkRepo(t *testing.T) (*PropertyLinkRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("unexpected error when opening stub database: %s", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	repo := NewPropertyLinkRepository(sqlDB)
	repo.now = func() time.Time { return fixedNow }
	return repo, mock
}

func TestPropertyLinkRepository_ReplaceForParent(t *testing.T) {
	repo, mock := newLinkRepo(t)
	links := []*model.PropertyLink{
		{ID: uuid.NewUUID(), URL: "https://youtu.be/a", OrderPosition: 0},
		{ID: uuid.NewUUID(), URL: "https://youtu.be/b", OrderPosition: 1},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM property_links WHERE property_id = ? AND kind = ?`)).
		WithArgs(int64(4), "video").
		WillReturnResult(sqlmock.NewResult(0, 3))
	for _, l := range links {
		mock.ExpectExec("INSERT INTO property_links").
			WithArgs(l.ID, int64(4), "video", l.URL, l.OrderPosition, fixedNow).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	if err := repo.ReplaceForParent(context.Background(), 4, model.MediaKindVideo, links); err != nil {
		t.Fatalf("ReplaceForParent() returned unexpected error: %v", err)
	}
	for _, l := range links {
		if l.ParentID != 4 || l.Kind != model.MediaKindVideo {
			t.Errorf("link not stamped with parent/kind: %+v", l)
		}
	}
	expectationsMet(t, mock)
}

func TestPropertyLinkRepository_ReplaceForParent_DeleteError(t *testing.T) {
	repo, mock := newLinkRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM property_links").WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	err := repo.ReplaceForParent(context.Background(), 4, model.MediaKindTour360, nil)
	if err == nil || err.Error() != "lock wait timeout" {
		t.Fatalf("expected lock error, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestPropertyLinkRepository_ListByParent(t *testing.T) {
	repo, mock := newLinkRepo(t)
	id := uuid.NewUUID()

	mock.ExpectQuery("SELECT id, property_id, kind, url, order_position, created_at").
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "property_id", "kind", "url", "order_position", "created_at"}).
			AddRow(idBytes(t, id), int64(4), "tour360", "https://my.matterport.com/x", 0, fixedNow))

	links, err := repo.ListByParent(context.Background(), 4)
	if err != nil {
		t.Fatalf("ListByParent() returned unexpected error: %v", err)
	}
	if len(links) != 1 || links[0].ID != id || links[0].Kind != model.MediaKindTour360 {
		t.Errorf("links = %+v", links)
	}
	expectationsMet(t, mock)
}
