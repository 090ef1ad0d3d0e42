package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/fhuszti/property-media-ms-go/internal/api_context"
	"github.com/fhuszti/property-media-ms-go/internal/logger"
	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/port"
	"github.com/fhuszti/property-media-ms-go/internal/validation"
)

// UploadLimits are enforced on save-multimedia before anything is persisted.
type UploadLimits struct {
	MaxFileBytes     int64
	MaxFilesPerField int
}

const multipartMemory = 32 << 20

type mediaEntryRequest struct {
	URL           string  `json:"url" validate:"omitempty,url"`
	FileURL       string  `json:"file_url" validate:"omitempty,url"`
	OrderPosition *int    `json:"order_position" validate:"omitempty,min=0"`
	Order         *int    `json:"order" validate:"omitempty,min=0"`
	Description   *string `json:"description" validate:"omitempty,max=500"`
}

func (e mediaEntryRequest) sourceURL() string {
	if e.URL != "" {
		return e.URL
	}
	return e.FileURL
}

type linkEntryRequest struct {
	URL           string `json:"url" validate:"required,url"`
	OrderPosition *int   `json:"order_position" validate:"omitempty,min=0"`
	Order         *int   `json:"order" validate:"omitempty,min=0"`
}

type SaveMultimediaRequest struct {
	Images        []mediaEntryRequest `json:"images" validate:"omitempty,dive"`
	Attached      []mediaEntryRequest `json:"attached" validate:"omitempty,dive"`
	Videos        []linkEntryRequest  `json:"videos" validate:"omitempty,dive"`
	Multimedia360 []linkEntryRequest  `json:"multimedia360" validate:"omitempty,dive"`
}

type SaveMultimediaResponse struct {
	Message string                `json:"message"`
	Items   []*model.MediaItem    `json:"items"`
	Links   []*model.PropertyLink `json:"links"`
}

// badRequestError is a client mistake detected while reading the form.
type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, a ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, a...)}
}

// SaveMultimediaHandler accepts a multipart form (or a JSON body for URL-only
// requests) and hands the media of a property over to the upload pipeline.
func SaveMultimediaHandler(svc port.MultimediaSaver, limits UploadLimits) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parentID, ok := api_context.PropertyIDFromContext(r.Context())
		if !ok {
			WriteError(w, http.StatusBadRequest, "ID is required", nil)
			return
		}

		maxBody := limits.MaxFileBytes*int64(2*limits.MaxFilesPerField) + multipartMemory
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)

		var (
			req   SaveMultimediaRequest
			files map[string][]*multipart.FileHeader
		)
		if isJSONRequest(r) {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeBodyError(w, fmt.Errorf("invalid JSON: %w", err))
				return
			}
		} else {
			if err := r.ParseMultipartForm(multipartMemory); err != nil {
				writeBodyError(w, fmt.Errorf("invalid multipart form: %w", err))
				return
			}
			defer func() { _ = r.MultipartForm.RemoveAll() }()
			if err := decodeFormFields(r.MultipartForm.Value, &req); err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), nil)
				return
			}
			files = r.MultipartForm.File
		}

		if errs := validation.ValidateStruct(req); errs != nil {
			errsJSON, err := validation.ErrorsToJson(errs)
			if err != nil {
				WriteError(w, http.StatusInternalServerError, "Validation error (could not encode details)", fmt.Errorf("encoding validation errors: %w", err))
				return
			}
			RespondRawJSON(w, http.StatusBadRequest, []byte(errsJSON))
			logger.Warnf(r.Context(), "❌  Validation failed: %s", errsJSON)
			return
		}

		in := port.SaveMultimediaInput{
			ParentID: parentID,
			Videos:   toLinkSpecs(req.Videos),
			Tours360: toLinkSpecs(req.Multimedia360),
		}
		for _, field := range []struct {
			name    string
			kind    model.MediaKind
			entries []mediaEntryRequest
		}{
			{"images", model.MediaKindImage, req.Images},
			{"attached", model.MediaKindAttachment, req.Attached},
		} {
			specs, err := buildMediaSpecs(field.name, field.kind, field.entries, filesFor(files, field.name), limits)
			if err != nil {
				var bad *badRequestError
				if errors.As(err, &bad) {
					WriteError(w, http.StatusBadRequest, bad.msg, nil)
					return
				}
				WriteError(w, http.StatusInternalServerError, "Could not read uploaded files", err)
				return
			}
			in.Uploads = append(in.Uploads, specs...)
		}

		out, err := svc.SaveMultimedia(r.Context(), in)
		if err != nil {
			writeServiceError(w, "Could not save multimedia", err)
			return
		}

		RespondJSON(w, http.StatusAccepted, SaveMultimediaResponse{
			Message: fmt.Sprintf("%d upload(s) queued, %d link(s) saved", len(out.Items), len(out.Links)),
			Items:   out.Items,
			Links:   out.Links,
		})
		logger.Infof(r.Context(), "✅  Accepted multimedia for property #%d", parentID)
	}
}

func isJSONRequest(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && ct == "application/json"
}

func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large", err)
		return
	}
	WriteError(w, http.StatusBadRequest, "Invalid request", err)
}

// decodeFormFields reads the JSON-encoded array fields of the multipart form.
// A missing field stays nil; "[]" yields an empty slice.
func decodeFormFields(values map[string][]string, req *SaveMultimediaRequest) error {
	for _, f := range []struct {
		name string
		dst  any
	}{
		{"images", &req.Images},
		{"attached", &req.Attached},
		{"videos", &req.Videos},
		{"multimedia360", &req.Multimedia360},
	} {
		raw, ok := values[f.name]
		if !ok || len(raw) == 0 || strings.TrimSpace(raw[0]) == "" {
			continue
		}
		if err := json.Unmarshal([]byte(raw[0]), f.dst); err != nil {
			return fmt.Errorf("field %q must be a JSON array", f.name)
		}
	}
	return nil
}

func filesFor(files map[string][]*multipart.FileHeader, field string) []*multipart.FileHeader {
	if files == nil {
		return nil
	}
	return append(files[field], files[field+"[]"]...)
}

// buildMediaSpecs pairs metadata entries with uploaded files. Entries that
// carry a URL become remote sources; the others take the files in order.
func buildMediaSpecs(field string, kind model.MediaKind, entries []mediaEntryRequest, files []*multipart.FileHeader, limits UploadLimits) ([]model.MediaSpec, error) {
	if limits.MaxFilesPerField > 0 && len(files) > limits.MaxFilesPerField {
		return nil, badRequest("too many files in %q: %d (max %d)", field, len(files), limits.MaxFilesPerField)
	}

	var specs []model.MediaSpec
	next := 0
	for i, e := range entries {
		spec := model.MediaSpec{Kind: kind, OrderPosition: orderOf(e.OrderPosition, e.Order, i), Description: e.Description}
		if u := e.sourceURL(); u != "" {
			spec.Source = model.RemoteSource{URL: u}
		} else {
			if next >= len(files) {
				return nil, badRequest("%s[%d] has neither a URL nor a matching file", field, i)
			}
			src, err := readUpload(field, files[next], limits)
			if err != nil {
				return nil, err
			}
			next++
			spec.Source = src
		}
		specs = append(specs, spec)
	}

	for ; next < len(files); next++ {
		src, err := readUpload(field, files[next], limits)
		if err != nil {
			return nil, err
		}
		specs = append(specs, model.MediaSpec{Kind: kind, Source: src, OrderPosition: len(specs)})
	}
	return specs, nil
}

func readUpload(field string, fh *multipart.FileHeader, limits UploadLimits) (model.BufferSource, error) {
	if !validation.IsAllowedFilename(fh.Filename) {
		return model.BufferSource{}, badRequest("file %q in %q has a forbidden extension", fh.Filename, field)
	}
	if limits.MaxFileBytes > 0 && fh.Size > limits.MaxFileBytes {
		return model.BufferSource{}, badRequest("file %q in %q exceeds %d bytes", fh.Filename, field, limits.MaxFileBytes)
	}

	f, err := fh.Open()
	if err != nil {
		return model.BufferSource{}, fmt.Errorf("open %q: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return model.BufferSource{}, fmt.Errorf("read %q: %w", fh.Filename, err)
	}
	if len(data) == 0 {
		return model.BufferSource{}, badRequest("file %q in %q is empty", fh.Filename, field)
	}

	return model.BufferSource{
		Data:     data,
		MimeType: detectMimeType(fh, data),
		Filename: filepath.Base(fh.Filename),
	}, nil
}

func detectMimeType(fh *multipart.FileHeader, data []byte) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(fh.Filename))); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}

func orderOf(position, order *int, fallback int) int {
	switch {
	case position != nil:
		return *position
	case order != nil:
		return *order
	default:
		return fallback
	}
}

func toLinkSpecs(in []linkEntryRequest) []port.LinkSpec {
	if in == nil {
		return nil
	}
	out := make([]port.LinkSpec, 0, len(in))
	for i, l := range in {
		out = append(out, port.LinkSpec{URL: l.URL, OrderPosition: orderOf(l.OrderPosition, l.Order, i)})
	}
	return out
}
