package media

import (
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/keybuilder"
	"github.com/fhuszti/property-media-ms-go/internal/mock"
	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/port"
	"github.com/fhuszti/property-media-ms-go/internal/uuid"
)

const testParentID int64 = 42

var testKeys = keybuilder.New(false, 100)

func newLedger(items ...*model.MediaItem) *mock.MediaItemRepo {
	repo := mock.NewMediaItemRepo(items...)
	repo.NotFoundErr = ErrMediaNotFound
	repo.NotClaimableErr = ErrNotClaimable
	repo.TransitionErr = ErrInvalidTransition
	return repo
}

func newItem(kind model.MediaKind, status model.UploadStatus, sourceURL string) *model.MediaItem {
	item := &model.MediaItem{
		ID:               uuid.NewUUID(),
		ParentID:         testParentID,
		Kind:             kind,
		Status:           status,
		OriginalFilename: "photo.jpg",
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
	if sourceURL != "" {
		item.SourceURL = &sourceURL
	}
	return item
}

func withError(item *model.MediaItem, msg string, retries int) *model.MediaItem {
	item.ErrorMessage = &msg
	item.RetryCount = retries
	return item
}

type processorFixture struct {
	repo  *mock.MediaItemRepo
	stash *mock.BufferStash
	res   *mock.Resolver
	tr    *mock.Transformer
	store *mock.ObjectStore
	tasks *mock.Dispatcher
	cache *mock.StatusCache
	met   *mock.Metrics
	svc   port.ItemProcessor
}

func newProcessorFixture(items ...*model.MediaItem) *processorFixture {
	f := &processorFixture{
		repo:  newLedger(items...),
		stash: &mock.BufferStash{},
		res:   &mock.Resolver{},
		tr:    &mock.Transformer{},
		store: &mock.ObjectStore{},
		tasks: &mock.Dispatcher{},
		cache: &mock.StatusCache{},
		met:   &mock.Metrics{},
	}
	f.svc = NewItemProcessor(ItemProcessorDeps{
		Repo:        f.repo,
		Stash:       f.stash,
		Resolver:    f.res,
		Transformer: f.tr,
		Keys:        testKeys,
		Store:       f.store,
		Tasks:       f.tasks,
		Cache:       f.cache,
		Metrics:     f.met,
	}, 3, FixedRetryDelay(time.Minute))
	return f
}
