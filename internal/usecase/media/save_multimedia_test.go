package media

import (
	"context"
	"errors"
	"testing"

	"github.com/fhuszti/property-media-ms-go/internal/mock"
	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/port"
)

type fakeSubmitter struct {
	in     port.SubmitBatchInput
	called bool
	err    error
}

func (f *fakeSubmitter) SubmitBatch(ctx context.Context, in port.SubmitBatchInput) ([]*model.MediaItem, error) {
	f.called = true
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	items := make([]*model.MediaItem, len(in.Items))
	for i, spec := range in.Items {
		items[i] = newItem(spec.Kind, model.UploadStatusPending, "")
	}
	return items, nil
}

func newSaver(sub port.BatchSubmitter, links *mock.PropertyLinkRepo) port.MultimediaSaver {
	return NewMultimediaSaver(&mock.PropertyRepo{IDs: map[int64]bool{testParentID: true}}, links, sub, &mock.StatusCache{})
}

func TestSaveMultimedia_Success(t *testing.T) {
	sub := &fakeSubmitter{}
	links := &mock.PropertyLinkRepo{}
	svc := newSaver(sub, links)

	out, err := svc.SaveMultimedia(context.Background(), port.SaveMultimediaInput{
		ParentID: testParentID,
		Uploads:  []model.MediaSpec{imageBuffer("a.png")},
		Videos:   []port.LinkSpec{{URL: "https://youtu.be/abc", OrderPosition: 1}},
		Tours360: []port.LinkSpec{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sub.called || !sub.in.Replace || sub.in.ParentID != testParentID {
		t.Errorf("submit input = %+v", sub.in)
	}
	if len(out.Items) != 1 || len(out.Links) != 1 {
		t.Fatalf("output = %d items, %d links", len(out.Items), len(out.Links))
	}
	if l := out.Links[0]; l.Kind != model.MediaKindVideo || l.URL != "https://youtu.be/abc" || l.OrderPosition != 1 {
		t.Errorf("link = %+v", l)
	}
	if links.ReplaceCalls != 2 {
		t.Errorf("replace calls = %d; want 2 (videos and an emptied tour list)", links.ReplaceCalls)
	}
	if tours, ok := links.Links[model.MediaKindTour360]; !ok || len(tours) != 0 {
		t.Errorf("tours = %v", tours)
	}
}

func TestSaveMultimedia_LinksOnly(t *testing.T) {
	sub := &fakeSubmitter{}
	cache := &mock.StatusCache{}
	svc := NewMultimediaSaver(&mock.PropertyRepo{IDs: map[int64]bool{testParentID: true}}, &mock.PropertyLinkRepo{}, sub, cache)

	out, err := svc.SaveMultimedia(context.Background(), port.SaveMultimediaInput{
		ParentID: testParentID,
		Tours360: []port.LinkSpec{{URL: "https://tour.example.com/1"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.called {
		t.Error("pipeline must not run without uploads")
	}
	if len(out.Items) != 0 || len(out.Links) != 1 {
		t.Errorf("output = %+v", out)
	}
	if len(cache.Invalidated) != 1 || cache.Invalidated[0] != testParentID {
		t.Errorf("invalidated = %v; saved links must drop the cached status", cache.Invalidated)
	}
}

func TestSaveMultimedia_Errors(t *testing.T) {
	tests := []struct {
		name    string
		in      port.SaveMultimediaInput
		sub     *fakeSubmitter
		links   *mock.PropertyLinkRepo
		wantErr error
	}{
		{
			name:    "nothing to save",
			in:      port.SaveMultimediaInput{ParentID: testParentID},
			wantErr: ErrEmptyBatch,
		},
		{
			name:    "invalid link",
			in:      port.SaveMultimediaInput{ParentID: testParentID, Videos: []port.LinkSpec{{URL: "not a url"}}},
			wantErr: ErrInvalidMediaSpec,
		},
		{
			name:    "unknown property",
			in:      port.SaveMultimediaInput{ParentID: 9, Videos: []port.LinkSpec{}},
			wantErr: ErrParentNotFound,
		},
		{
			name:    "submit error",
			in:      port.SaveMultimediaInput{ParentID: testParentID, Uploads: []model.MediaSpec{imageBuffer("a.png")}},
			sub:     &fakeSubmitter{err: ErrInvalidMediaSpec},
			wantErr: ErrInvalidMediaSpec,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sub := tc.sub
			if sub == nil {
				sub = &fakeSubmitter{}
			}
			links := tc.links
			if links == nil {
				links = &mock.PropertyLinkRepo{}
			}
			_, err := newSaver(sub, links).SaveMultimedia(context.Background(), tc.in)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("error = %v; want %v", err, tc.wantErr)
			}
			if links.ReplaceCalls != 0 {
				t.Error("links must not be written when the request is rejected")
			}
		})
	}
}

func TestSaveMultimedia_LinkWriteError(t *testing.T) {
	links := &mock.PropertyLinkRepo{ReplaceErr: errors.New("db down")}
	_, err := newSaver(&fakeSubmitter{}, links).SaveMultimedia(context.Background(), port.SaveMultimediaInput{
		ParentID: testParentID,
		Videos:   []port.LinkSpec{{URL: "https://youtu.be/abc"}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
}
