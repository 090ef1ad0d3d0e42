package media

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fhuszti/property-media-ms-go/internal/mock"
	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/port"
)

type submitFixture struct {
	repo  *mock.MediaItemRepo
	props *mock.PropertyRepo
	stash *mock.BufferStash
	tasks *mock.Dispatcher
	cache *mock.StatusCache
	store *mock.ObjectStore
	svc   port.BatchSubmitter
}

func newSubmitFixture(items ...*model.MediaItem) *submitFixture {
	f := &submitFixture{
		repo:  newLedger(items...),
		props: &mock.PropertyRepo{IDs: map[int64]bool{testParentID: true}},
		stash: &mock.BufferStash{},
		tasks: &mock.Dispatcher{},
		cache: &mock.StatusCache{},
		store: &mock.ObjectStore{},
	}
	f.svc = NewBatchSubmitter(f.repo, f.props, f.stash, f.tasks, f.cache, f.store)
	return f
}

func imageBuffer(name string) model.MediaSpec {
	return model.MediaSpec{
		Kind:   model.MediaKindImage,
		Source: model.BufferSource{Data: []byte("bytes of " + name), MimeType: "image/png", Filename: name},
	}
}

func TestSubmitBatch_Success(t *testing.T) {
	f := newSubmitFixture()
	specs := []model.MediaSpec{
		imageBuffer("a.png"),
		imageBuffer("b.png"),
		{Kind: model.MediaKindAttachment, Source: model.RemoteSource{URL: "https://example.com/files/plan.pdf"}, OrderPosition: 2},
	}

	items, err := f.svc.SubmitBatch(context.Background(), port.SubmitBatchInput{ParentID: testParentID, Items: specs})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items; want 3", len(items))
	}
	for i, it := range items {
		if it.Status != model.UploadStatusPending || it.ParentID != testParentID || it.ID.IsNil() {
			t.Errorf("item %d = %+v", i, it)
		}
		if f.repo.Get(it.ID) == nil {
			t.Errorf("item %d not persisted", i)
		}
	}
	if items[2].SourceURL == nil || items[2].OriginalFilename != "plan.pdf" || items[2].OrderPosition != 2 {
		t.Errorf("remote item = %+v", items[2])
	}
	if len(f.stash.Buffers) != 2 {
		t.Errorf("stashed %d buffers; want 2", len(f.stash.Buffers))
	}
	if _, ok := f.stash.Buffers[items[2].ID]; ok {
		t.Error("remote items must not be stashed")
	}
	if len(f.tasks.Enqueued) != 3 {
		t.Fatalf("enqueued %d tasks; want 3", len(f.tasks.Enqueued))
	}
	for i, e := range f.tasks.Enqueued {
		if e.ID != items[i].ID || e.Attempt != 0 || e.Delay != 0 {
			t.Errorf("task %d = %+v", i, e)
		}
	}
	if len(f.cache.Invalidated) != 1 {
		t.Errorf("invalidated = %v", f.cache.Invalidated)
	}
}

func TestSubmitBatch_Replace(t *testing.T) {
	var old []*model.MediaItem
	for i := 0; i < 5; i++ {
		old = append(old, newItem(model.MediaKindImage, model.UploadStatusCompleted, ""))
	}
	keep := newItem(model.MediaKindAttachment, model.UploadStatusCompleted, "")
	f := newSubmitFixture(append(old, keep)...)

	_, err := f.svc.SubmitBatch(context.Background(), port.SubmitBatchInput{
		ParentID: testParentID,
		Items:    []model.MediaSpec{imageBuffer("a.png"), imageBuffer("b.png")},
		Replace:  true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	list, _ := f.repo.ListByParent(context.Background(), testParentID)
	images := 0
	for _, it := range list {
		if it.Kind == model.MediaKindImage {
			images++
		}
	}
	if images != 2 {
		t.Errorf("images after replace = %d; want 2", images)
	}
	if f.repo.Get(keep.ID) == nil {
		t.Error("attachments must survive an images-only replace")
	}
	if len(f.repo.ReplacedKinds) != 1 || f.repo.ReplacedKinds[0] != model.MediaKindImage {
		t.Errorf("replaced kinds = %v", f.repo.ReplacedKinds)
	}
	if len(f.store.RemoveKeys) != 0 {
		t.Errorf("removed = %v; the replaced rows had no stored object", f.store.RemoveKeys)
	}
}

func TestSubmitBatch_ReplaceRemovesSupersededObjects(t *testing.T) {
	stored := func(key string) *model.MediaItem {
		it := newItem(model.MediaKindImage, model.UploadStatusCompleted, "")
		it.StoredKey = &key
		return it
	}
	oldA := stored("properties/42/images/a_1.webp")
	oldB := stored("properties/42/images/b_2.webp")
	pending := newItem(model.MediaKindImage, model.UploadStatusPending, "https://example.com/c.png")
	attachment := newItem(model.MediaKindAttachment, model.UploadStatusCompleted, "")
	attachmentKey := "properties/42/attachments/plan_3.pdf"
	attachment.StoredKey = &attachmentKey

	f := newSubmitFixture(oldA, oldB, pending, attachment)
	f.store.RemoveErr = errors.New("store down")

	items, err := f.svc.SubmitBatch(context.Background(), port.SubmitBatchInput{
		ParentID: testParentID,
		Items:    []model.MediaSpec{imageBuffer("new.png")},
		Replace:  true,
	})
	if err != nil {
		t.Fatalf("a failed cleanup must not fail the batch: %v", err)
	}
	if len(items) != 1 || len(f.tasks.Enqueued) != 1 {
		t.Errorf("items = %d, enqueued = %d; want 1/1", len(items), len(f.tasks.Enqueued))
	}
	want := []string{"properties/42/images/a_1.webp", "properties/42/images/b_2.webp"}
	if strings.Join(f.store.RemoveKeys, ",") != strings.Join(want, ",") {
		t.Errorf("removed = %v; want %v", f.store.RemoveKeys, want)
	}
}

func TestSubmitBatch_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		spec model.MediaSpec
	}{
		{"video kind", model.MediaSpec{Kind: model.MediaKindVideo, Source: model.RemoteSource{URL: "https://youtu.be/x"}}},
		{"nil source", model.MediaSpec{Kind: model.MediaKindImage}},
		{"empty buffer", model.MediaSpec{Kind: model.MediaKindImage, Source: model.BufferSource{Filename: "a.png"}}},
		{"relative url", model.MediaSpec{Kind: model.MediaKindImage, Source: model.RemoteSource{URL: "/img/a.png"}}},
		{"ftp url", model.MediaSpec{Kind: model.MediaKindImage, Source: model.RemoteSource{URL: "ftp://host/a.png"}}},
		{"nil pointer source", model.MediaSpec{Kind: model.MediaKindImage, Source: (*model.RemoteSource)(nil)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newSubmitFixture()
			_, err := f.svc.SubmitBatch(context.Background(), port.SubmitBatchInput{
				ParentID: testParentID,
				Items:    []model.MediaSpec{imageBuffer("ok.png"), tc.spec},
			})
			if !errors.Is(err, ErrInvalidMediaSpec) {
				t.Fatalf("error = %v; want ErrInvalidMediaSpec", err)
			}
			if len(f.repo.Items) != 0 || len(f.stash.Buffers) != 0 || len(f.tasks.Enqueued) != 0 {
				t.Error("nothing may be persisted for an invalid batch")
			}
		})
	}
}

func TestSubmitBatch_EmptyBatch(t *testing.T) {
	f := newSubmitFixture()
	if _, err := f.svc.SubmitBatch(context.Background(), port.SubmitBatchInput{ParentID: testParentID}); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("error = %v; want ErrEmptyBatch", err)
	}
}

func TestSubmitBatch_ParentNotFound(t *testing.T) {
	f := newSubmitFixture()
	_, err := f.svc.SubmitBatch(context.Background(), port.SubmitBatchInput{ParentID: 7, Items: []model.MediaSpec{imageBuffer("a.png")}})
	if !errors.Is(err, ErrParentNotFound) {
		t.Fatalf("error = %v; want ErrParentNotFound", err)
	}
	if len(f.repo.Items) != 0 {
		t.Error("no rows may be created for a missing property")
	}
}

func TestSubmitBatch_PersistFailureDropsStash(t *testing.T) {
	f := newSubmitFixture()
	f.repo.CreateErr = errors.New("db down")

	_, err := f.svc.SubmitBatch(context.Background(), port.SubmitBatchInput{ParentID: testParentID, Items: []model.MediaSpec{imageBuffer("a.png")}})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(f.stash.Buffers) != 0 || len(f.stash.Deleted) != 1 {
		t.Errorf("stash not cleaned up: buffers %d, deleted %v", len(f.stash.Buffers), f.stash.Deleted)
	}
	if len(f.tasks.Enqueued) != 0 {
		t.Error("nothing may be scheduled when rows were not persisted")
	}
}

func TestSubmitBatch_StashFailure(t *testing.T) {
	f := newSubmitFixture()
	f.stash.PutErr = errors.New("redis down")

	_, err := f.svc.SubmitBatch(context.Background(), port.SubmitBatchInput{ParentID: testParentID, Items: []model.MediaSpec{imageBuffer("a.png")}})
	if err == nil || !strings.Contains(err.Error(), "redis down") {
		t.Fatalf("error = %v", err)
	}
	if len(f.repo.Items) != 0 {
		t.Error("no rows may be created when the upload could not be stashed")
	}
}

func TestSubmitBatch_DispatchFailureMarksFailed(t *testing.T) {
	f := newSubmitFixture()
	f.tasks.Err = errors.New("queue full")

	items, err := f.svc.SubmitBatch(context.Background(), port.SubmitBatchInput{ParentID: testParentID, Items: []model.MediaSpec{imageBuffer("a.png")}})
	if err != nil {
		t.Fatalf("dispatch errors must not reach the caller, got %v", err)
	}
	got := f.repo.Get(items[0].ID)
	if got.Status != model.UploadStatusFailed || !strings.Contains(*got.ErrorMessage, "queue full") {
		t.Errorf("row = %s %v", got.Status, got.ErrorMessage)
	}
	if items[0].Status != model.UploadStatusFailed {
		t.Errorf("returned item status = %s", items[0].Status)
	}
}
