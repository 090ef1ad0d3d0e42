package integration

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/repository/mariadb"
	mediaSvc "github.com/fhuszti/property-media-ms-go/internal/usecase/media"
	"github.com/fhuszti/property-media-ms-go/internal/uuid"
	"github.com/fhuszti/property-media-ms-go/test/testutil"
)

func pendingItem(parentID int64, kind model.MediaKind, order int) *model.MediaItem {
	return &model.MediaItem{
		ID:               uuid.NewUUID(),
		ParentID:         parentID,
		Kind:             kind,
		OriginalFilename: "photo.jpg",
		OrderPosition:    order,
	}
}

func TestLedgerIntegration_Lifecycle(t *testing.T) {
	ctx := context.Background()
	testDB, repo := setupLedger(t)
	parentID := testutil.InsertProperty(t, testDB.DB)

	item := pendingItem(parentID, model.MediaKindImage, 0)
	if err := repo.CreatePending(ctx, item); err != nil {
		t.Fatalf("CreatePending: %v", err)
	}

	if err := repo.MarkUploading(ctx, item.ID); err != nil {
		t.Fatalf("MarkUploading: %v", err)
	}
	if err := repo.MarkUploading(ctx, item.ID); !errors.Is(err, mediaSvc.ErrNotClaimable) {
		t.Fatalf("second claim = %v; want ErrNotClaimable", err)
	}

	if err := repo.IncrementRetry(ctx, item.ID); err != nil {
		t.Fatalf("IncrementRetry: %v", err)
	}
	if err := repo.MarkRetrying(ctx, item.ID, model.UploadStatusFailed, "manual retry requested"); !errors.Is(err, mediaSvc.ErrInvalidTransition) {
		t.Fatalf("MarkRetrying from failed on an uploading row = %v; want ErrInvalidTransition", err)
	}
	if err := repo.MarkRetrying(ctx, item.ID, model.UploadStatusUploading, "circuit breaker is open"); err != nil {
		t.Fatalf("MarkRetrying: %v", err)
	}
	if err := repo.MarkUploading(ctx, item.ID); err != nil {
		t.Fatalf("claim after retrying: %v", err)
	}

	meta := model.Metadata{SizeBytes: 42, MimeType: "image/jpeg", Width: 10, Height: 5}
	if err := repo.MarkCompleted(ctx, item.ID, "test/properties/1/images/photo_x.jpg", meta); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	got, err := repo.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != model.UploadStatusCompleted || got.StoredKey == nil || got.CompletedAt == nil {
		t.Errorf("completed row = %+v", got)
	}
	if got.ErrorMessage != nil {
		t.Errorf("error message should be cleared, got %q", *got.ErrorMessage)
	}
	if got.RetryCount != 1 {
		t.Errorf("retry count = %d; want 1", got.RetryCount)
	}
	if got.Metadata.Width != 10 || got.Metadata.Height != 5 {
		t.Errorf("metadata = %+v", got.Metadata)
	}

	if err := repo.MarkFailed(ctx, item.ID, model.UploadStatusUploading, "late failure"); !errors.Is(err, mediaSvc.ErrInvalidTransition) {
		t.Errorf("MarkFailed on completed = %v; want ErrInvalidTransition", err)
	}
}

func TestLedgerIntegration_ErrorMessageTruncated(t *testing.T) {
	ctx := context.Background()
	testDB, repo := setupLedger(t)
	parentID := testutil.InsertProperty(t, testDB.DB)

	item := pendingItem(parentID, model.MediaKindAttachment, 0)
	if err := repo.CreatePending(ctx, item); err != nil {
		t.Fatalf("CreatePending: %v", err)
	}
	if err := repo.MarkFailed(ctx, item.ID, model.UploadStatusPending, strings.Repeat("x", 5000)); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	got, err := repo.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ErrorMessage == nil || len(*got.ErrorMessage) != model.MaxErrorMessageLength {
		t.Errorf("error message length = %v; want %d", got.ErrorMessage, model.MaxErrorMessageLength)
	}
}

func TestLedgerIntegration_ReplaceForParent(t *testing.T) {
	ctx := context.Background()
	testDB, repo := setupLedger(t)
	parentID := testutil.InsertProperty(t, testDB.DB)
	otherID := testutil.InsertProperty(t, testDB.DB)

	seed := []*model.MediaItem{
		pendingItem(parentID, model.MediaKindImage, 0),
		pendingItem(parentID, model.MediaKindImage, 1),
		pendingItem(parentID, model.MediaKindAttachment, 0),
		pendingItem(otherID, model.MediaKindImage, 0),
	}
	for _, it := range seed {
		if err := repo.CreatePending(ctx, it); err != nil {
			t.Fatalf("CreatePending: %v", err)
		}
	}

	if err := repo.MarkUploading(ctx, seed[0].ID); err != nil {
		t.Fatalf("MarkUploading: %v", err)
	}
	const oldKey = "test/properties/1/images/old_x.webp"
	if err := repo.MarkCompleted(ctx, seed[0].ID, oldKey, model.Metadata{SizeBytes: 1, MimeType: "image/webp"}); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	fresh := pendingItem(parentID, model.MediaKindImage, 0)
	superseded, err := repo.ReplaceForParent(ctx, parentID, []model.MediaKind{model.MediaKindImage}, []*model.MediaItem{fresh})
	if err != nil {
		t.Fatalf("ReplaceForParent: %v", err)
	}
	if len(superseded) != 1 || superseded[0] != oldKey {
		t.Errorf("superseded = %v; want [%s]", superseded, oldKey)
	}

	items, err := repo.ListByParent(ctx, parentID)
	if err != nil {
		t.Fatalf("ListByParent: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d; want 2 (new image + untouched attachment)", len(items))
	}
	ids := map[uuid.UUID]bool{items[0].ID: true, items[1].ID: true}
	if !ids[fresh.ID] || !ids[seed[2].ID] {
		t.Errorf("unexpected rows after replace: %v", ids)
	}

	others, err := repo.ListByParent(ctx, otherID)
	if err != nil {
		t.Fatalf("ListByParent(other): %v", err)
	}
	if len(others) != 1 {
		t.Errorf("other property rows = %d; want 1", len(others))
	}

	// a failing insert rolls the delete back
	dup := pendingItem(parentID, model.MediaKindImage, 0)
	dup.ID = seed[2].ID
	if _, err := repo.ReplaceForParent(ctx, parentID, []model.MediaKind{model.MediaKindImage}, []*model.MediaItem{dup}); err == nil {
		t.Fatal("expected duplicate key error")
	}
	if _, err := repo.GetByID(ctx, fresh.ID); err != nil {
		t.Errorf("row deleted despite rollback: %v", err)
	}
}

func TestLedgerIntegration_ListFailedAndLinks(t *testing.T) {
	ctx := context.Background()
	testDB, repo := setupLedger(t)
	parentID := testutil.InsertProperty(t, testDB.DB)

	ok := pendingItem(parentID, model.MediaKindImage, 0)
	bad := pendingItem(parentID, model.MediaKindImage, 1)
	for _, it := range []*model.MediaItem{ok, bad} {
		if err := repo.CreatePending(ctx, it); err != nil {
			t.Fatalf("CreatePending: %v", err)
		}
	}
	if err := repo.MarkFailed(ctx, bad.ID, model.UploadStatusPending, "boom"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	failed, err := repo.ListFailedByParent(ctx, parentID)
	if err != nil {
		t.Fatalf("ListFailedByParent: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != bad.ID {
		t.Errorf("failed = %+v; want only %s", failed, bad.ID)
	}

	props := mariadb.NewPropertyRepository(testDB.DB)
	if exists, err := props.Exists(ctx, parentID); err != nil || !exists {
		t.Errorf("Exists(%d) = %v, %v", parentID, exists, err)
	}
	if exists, err := props.Exists(ctx, parentID+1000); err != nil || exists {
		t.Errorf("Exists(unknown) = %v, %v", exists, err)
	}

	links := mariadb.NewPropertyLinkRepository(testDB.DB)
	videos := []*model.PropertyLink{
		{ID: uuid.NewUUID(), ParentID: parentID, Kind: model.MediaKindVideo, URL: "https://videos.example.com/1", OrderPosition: 1},
		{ID: uuid.NewUUID(), ParentID: parentID, Kind: model.MediaKindVideo, URL: "https://videos.example.com/0", OrderPosition: 0},
	}
	if err := links.ReplaceForParent(ctx, parentID, model.MediaKindVideo, videos); err != nil {
		t.Fatalf("links.ReplaceForParent: %v", err)
	}
	if err := links.ReplaceForParent(ctx, parentID, model.MediaKindVideo, videos[1:]); err != nil {
		t.Fatalf("links.ReplaceForParent (second): %v", err)
	}
	got, err := links.ListByParent(ctx, parentID)
	if err != nil {
		t.Fatalf("links.ListByParent: %v", err)
	}
	if len(got) != 1 || got[0].URL != "https://videos.example.com/0" {
		t.Errorf("links = %+v", got)
	}
}
