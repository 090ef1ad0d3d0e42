package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/logger"
	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/port"
	"github.com/fhuszti/property-media-ms-go/internal/uuid"
)

const (
	DefaultMimeType  = "application/octet-stream"
	DefaultUserAgent = "property-media-ms/1.0"
)

var preferredExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/svg+xml":   ".svg",
	"application/pdf": ".pdf",
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
}

type HTTPFetcher struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
}

// compile-time check: *HTTPFetcher must satisfy port.MediaResolver
var _ port.MediaResolver = (*HTTPFetcher)(nil)

// NewHTTPFetcher builds a resolver whose downloads are bounded by timeout and maxBytes.
func NewHTTPFetcher(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		maxBytes:  maxBytes,
		userAgent: DefaultUserAgent,
	}
}

func (f *HTTPFetcher) Resolve(ctx context.Context, src model.MediaSource, itemID uuid.UUID) (*model.ResolvedMedia, error) {
	switch s := src.(type) {
	case model.BufferSource:
		return &model.ResolvedMedia{Data: s.Data, MimeType: s.MimeType, Filename: s.Filename}, nil
	case *model.BufferSource:
		return &model.ResolvedMedia{Data: s.Data, MimeType: s.MimeType, Filename: s.Filename}, nil
	case model.RemoteSource:
		return f.download(ctx, s.URL, itemID)
	case *model.RemoteSource:
		return f.download(ctx, s.URL, itemID)
	default:
		return nil, &FetchError{Kind: KindUnknown, Err: fmt.Errorf("unsupported media source %T", src)}
	}
}

func (f *HTTPFetcher) download(ctx context.Context, rawURL string, itemID uuid.UUID) (*model.ResolvedMedia, error) {
	logger.Debugf(ctx, "downloading %q...", rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindUnknown, URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: classify(err), URL: rawURL, Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Warnf(ctx, "could not close response body of %q: %v", rawURL, cerr)
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &FetchError{Kind: KindNotFound, StatusCode: resp.StatusCode, URL: rawURL}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Kind: KindHTTPError, StatusCode: resp.StatusCode, URL: rawURL}
	}

	var body io.Reader = resp.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &FetchError{Kind: classify(err), URL: rawURL, Err: err}
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, &FetchError{Kind: KindUnknown, URL: rawURL, Err: fmt.Errorf("body exceeds %d bytes", f.maxBytes)}
	}

	mimeType := ExtractContentType(resp.Header.Get("Content-Type"))
	return &model.ResolvedMedia{
		Data:     data,
		MimeType: mimeType,
		Filename: FilenameFromURL(rawURL, mimeType, itemID),
	}, nil
}

func classify(err error) ErrorKind {
	var netErr net.Error
	var urlErr *url.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindNetworkError
	case errors.As(err, &netErr):
		return KindNetworkError
	case errors.As(err, &urlErr):
		return KindNetworkError
	case errors.Is(err, io.ErrUnexpectedEOF):
		return KindNetworkError
	default:
		return KindUnknown
	}
}

// ExtractContentType returns the media type of a Content-Type header without parameters.
func ExtractContentType(header string) string {
	if header == "" {
		return DefaultMimeType
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		mt = strings.TrimSpace(strings.SplitN(header, ";", 2)[0])
	}
	if mt == "" {
		return DefaultMimeType
	}
	return strings.ToLower(mt)
}

// FilenameFromURL takes the last path segment of rawURL, or the item id when there is none,
// and adds an extension derived from mimeType when the name lacks one.
func FilenameFromURL(rawURL, mimeType string, itemID uuid.UUID) string {
	name := ""
	if u, err := url.Parse(rawURL); err == nil {
		name = path.Base(u.Path)
	}
	if name == "." || name == "/" || name == "" {
		name = itemID.String()
	}
	if path.Ext(name) == "" {
		name += ExtensionForMimeType(mimeType)
	}
	return name
}

func ExtensionForMimeType(mimeType string) string {
	if ext, ok := preferredExtensions[mimeType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
