package api

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/fhuszti/property-media-ms-go/internal/api_context"
)

const testPropertyID int64 = 42

type testFile struct {
	field, name, contentType string
	data                     []byte
}

// multipartBody builds a form with the given JSON fields and files.
func multipartBody(t *testing.T, fields map[string]string, files ...testFile) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		if f.contentType != "" {
			h.Set("Content-Type", f.contentType)
		}
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

// newPropertyRequest builds a request as it looks after WithPropertyID ran.
func newPropertyRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(api_context.WithPropertyID(req.Context(), testPropertyID))
}

func withoutPropertyID(req *http.Request) *http.Request {
	return req.WithContext(context.Background())
}
