package media

import (
	"context"
	"fmt"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/api_context"
	"github.com/fhuszti/property-media-ms-go/internal/logger"
	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/port"
	"github.com/fhuszti/property-media-ms-go/internal/uuid"
)

type multimediaSaverSrv struct {
	props     port.PropertyRepository
	links     port.PropertyLinkRepository
	submitter port.BatchSubmitter
	cache     port.StatusCache
	now       func() time.Time
}

func NewMultimediaSaver(
	props port.PropertyRepository,
	links port.PropertyLinkRepository,
	submitter port.BatchSubmitter,
	cache port.StatusCache,
) port.MultimediaSaver {
	return &multimediaSaverSrv{props: props, links: links, submitter: submitter, cache: cache, now: time.Now}
}

// SaveMultimedia replaces the media of a property. Videos and 360 tours are
// stored right away; images and attachments go through the upload pipeline.
// A nil link slice leaves that kind untouched, an empty one clears it.
func (s *multimediaSaverSrv) SaveMultimedia(ctx context.Context, in port.SaveMultimediaInput) (*port.SaveMultimediaOutput, error) {
	if len(in.Uploads) == 0 && in.Videos == nil && in.Tours360 == nil {
		return nil, ErrEmptyBatch
	}
	for i, l := range append(append([]port.LinkSpec{}, in.Videos...), in.Tours360...) {
		if err := validateRemote(model.RemoteSource{URL: l.URL}); err != nil {
			return nil, fmt.Errorf("link %d: %w", i, err)
		}
	}

	ctx = api_context.WithPropertyID(ctx, in.ParentID)
	exists, err := s.props.Exists(ctx, in.ParentID)
	if err != nil {
		return nil, fmt.Errorf("could not check property #%d: %w", in.ParentID, err)
	}
	if !exists {
		return nil, ErrParentNotFound
	}

	out := &port.SaveMultimediaOutput{Items: []*model.MediaItem{}, Links: []*model.PropertyLink{}}
	if len(in.Uploads) > 0 {
		items, err := s.submitter.SubmitBatch(ctx, port.SubmitBatchInput{
			ParentID: in.ParentID,
			Items:    in.Uploads,
			Replace:  true,
		})
		if err != nil {
			return nil, err
		}
		out.Items = items
	}

	for _, group := range []struct {
		kind  model.MediaKind
		specs []port.LinkSpec
	}{
		{model.MediaKindVideo, in.Videos},
		{model.MediaKindTour360, in.Tours360},
	} {
		if group.specs == nil {
			continue
		}
		links := s.buildLinks(in.ParentID, group.kind, group.specs)
		if err := s.links.ReplaceForParent(ctx, in.ParentID, group.kind, links); err != nil {
			return nil, fmt.Errorf("could not save %s links: %w", group.kind, err)
		}
		out.Links = append(out.Links, links...)
	}
	if in.Videos != nil || in.Tours360 != nil {
		// status reports carry the links too
		if err := s.cache.InvalidateStatus(ctx, in.ParentID); err != nil {
			logger.Warnf(ctx, "⚠️  could not invalidate upload status cache: %v", err)
		}
	}

	logger.Infof(ctx, "✅  multimedia saved for property #%d: %d upload(s), %d link(s)", in.ParentID, len(out.Items), len(out.Links))
	return out, nil
}

func (s *multimediaSaverSrv) buildLinks(parentID int64, kind model.MediaKind, specs []port.LinkSpec) []*model.PropertyLink {
	now := s.now().UTC()
	links := make([]*model.PropertyLink, 0, len(specs))
	for _, spec := range specs {
		links = append(links, &model.PropertyLink{
			ID:            uuid.NewUUID(),
			ParentID:      parentID,
			Kind:          kind,
			URL:           spec.URL,
			OrderPosition: spec.OrderPosition,
			CreatedAt:     now,
		})
	}
	return links
}
