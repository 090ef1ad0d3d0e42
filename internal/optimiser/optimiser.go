package optimiser

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"

	"github.com/fhuszti/property-media-ms-go/internal/logger"
	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/port"

	"github.com/ledongthuc/pdf"
	_ "golang.org/x/image/webp"
)

const webpQuality = 80

type Optimiser struct {
	enabled bool
	webpEnc WebPEncoder
	pdfOpt  PDFOptimizer
}

// compile-time check: *Optimiser must satisfy port.MediaTransformer
var _ port.MediaTransformer = (*Optimiser)(nil)

// NewOptimiser returns a transformer; when enabled is false Transform is the identity.
func NewOptimiser(enabled bool, webpEnc WebPEncoder, pdfOpt PDFOptimizer) *Optimiser {
	logger.Info(context.Background(), "initialising optimiser...", "enabled", enabled)
	return &Optimiser{
		enabled: enabled,
		webpEnc: webpEnc,
		pdfOpt:  pdfOpt,
	}
}

// Transform returns an optimised copy of in, or in itself when nothing was changed. Behavior:
//   - Images (JPEG, PNG, WebP): convert to lossy WebP @ quality=80, extension rewritten to .webp.
//   - PDFs (application/pdf): run pdfcpu optimize to strip unused objects.
//   - Everything else: returned untouched.
func (o *Optimiser) Transform(in *model.ResolvedMedia) (*model.ResolvedMedia, error) {
	if !o.enabled || in == nil {
		return in, nil
	}

	switch in.MimeType {
	case "image/jpeg", "image/png", "image/webp":
		img, _, err := o.webpEnc.Decode(bytes.NewReader(in.Data))
		if err != nil {
			return nil, fmt.Errorf("optimiser: failed to decode image: %w", err)
		}

		buf := &bytes.Buffer{}
		if err := o.webpEnc.Encode(img, webpQuality, buf); err != nil {
			return nil, fmt.Errorf("optimiser: failed to encode WebP: %w", err)
		}
		return &model.ResolvedMedia{
			Data:     buf.Bytes(),
			MimeType: "image/webp",
			Filename: withExtension(in.Filename, ".webp"),
		}, nil

	case "application/pdf":
		buf := &bytes.Buffer{}
		if err := o.pdfOpt.Optimize(bytes.NewReader(in.Data), buf); err != nil {
			return nil, fmt.Errorf("optimiser: pdfcpu optimization failed: %w", err)
		}
		return &model.ResolvedMedia{
			Data:     buf.Bytes(),
			MimeType: in.MimeType,
			Filename: in.Filename,
		}, nil

	default:
		return in, nil
	}
}

// Inspect extracts metadata from the bytes about to be stored.
// Failures only cost the type-specific fields, size and mime are always set.
func (o *Optimiser) Inspect(mimeType string, data []byte) model.Metadata {
	meta := model.Metadata{SizeBytes: int64(len(data)), MimeType: mimeType}

	switch {
	case strings.HasPrefix(mimeType, "image/") && mimeType != "image/svg+xml":
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			logger.Warnf(context.Background(), "⚠️  could not read image dimensions: %v", err)
			return meta
		}
		meta.Width = cfg.Width
		meta.Height = cfg.Height

	case mimeType == "application/pdf":
		n, err := pageCount(data)
		if err != nil {
			logger.Warnf(context.Background(), "⚠️  could not read pdf page count: %v", err)
			return meta
		}
		meta.PageCount = n
	}
	return meta
}

func pageCount(data []byte) (n int, err error) {
	// the pdf reader panics on some malformed trailers
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("error opening pdf reader: %w", err)
	}
	return reader.NumPage(), nil
}

func withExtension(filename, ext string) string {
	return strings.TrimSuffix(filename, path.Ext(filename)) + ext
}
