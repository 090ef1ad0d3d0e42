package keybuilder

import (
	"strings"
	"testing"

	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/uuid"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in       string
		wantBase string
		wantExt  string
	}{
		{"My Photo!!.JPG", "my-photo", "jpg"},
		{"  spaced   out  name .png", "spaced-out-name", "png"},
		{"under_score__name.jpeg", "under-score-name", "jpeg"},
		{"--leading-and-trailing--.pdf", "leading-and-trailing", "pdf"},
		{"multi.dot.name.tar.gz", "multi-dot-name-tar", "gz"},
		{"!!!.png", FallbackBasename, "png"},
		{"", FallbackBasename, ""},
		{".jpg", "jpg", ""},
		{"noext", "noext", ""},
		{"C:\\Users\\me\\Désktop Pic.PNG", "dsktop-pic", "png"},
		{"../../etc/passwd", "passwd", ""},
		{"x." + strings.Repeat("a", 80), "x", "aaaaaaaaaa"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			base, ext := Sanitize(tc.in)
			if base != tc.wantBase || ext != tc.wantExt {
				t.Errorf("Sanitize(%q) = (%q, %q); want (%q, %q)", tc.in, base, ext, tc.wantBase, tc.wantExt)
			}
		})
	}
}

func TestBuildKey(t *testing.T) {
	id := uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")

	tests := []struct {
		name    string
		builder Builder
		kind    model.MediaKind
		file    string
		want    string
	}{
		{
			name:    "non production prefix",
			builder: New(false, 0),
			kind:    model.MediaKindImage,
			file:    "My Photo!!.JPG",
			want:    "localhost/properties/42/images/my-photo_0f8fad5b-d9cb-469f-a165-70867728950e.jpg",
		},
		{
			name:    "production has no prefix",
			builder: New(true, 0),
			kind:    model.MediaKindAttachment,
			file:    "Contract Final.pdf",
			want:    "properties/42/attachments/contract-final_0f8fad5b-d9cb-469f-a165-70867728950e.pdf",
		},
		{
			name:    "no extension",
			builder: New(true, 0),
			kind:    model.MediaKindImage,
			file:    "blob",
			want:    "properties/42/images/blob_0f8fad5b-d9cb-469f-a165-70867728950e",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.builder.BuildKey(42, tc.kind, tc.file, id)
			if got != tc.want {
				t.Errorf("BuildKey() = %q; want %q", got, tc.want)
			}
		})
	}
}

func TestBuildKey_MaxLengthTruncatesBasenameOnly(t *testing.T) {
	id := uuid.NewUUID()
	b := New(false, DefaultMaxLength)
	long := strings.Repeat("very-long-name-", 20) + ".jpeg"

	key := b.BuildKey(123456, model.MediaKindImage, long, id)

	if len(key) > DefaultMaxLength {
		t.Errorf("len(key) = %d; want <= %d (%q)", len(key), DefaultMaxLength, key)
	}
	if !strings.HasSuffix(key, "_"+id.String()+".jpeg") {
		t.Errorf("key %q lost its suffix or extension", key)
	}
	if !strings.HasPrefix(key, "localhost/properties/123456/images/very-long-name") {
		t.Errorf("key %q has an unexpected prefix", key)
	}
	base := strings.TrimSuffix(strings.TrimPrefix(key, "localhost/properties/123456/images/"), "_"+id.String()+".jpeg")
	if strings.HasSuffix(base, "-") {
		t.Errorf("truncated basename %q ends with a separator", base)
	}
}

func TestBuildKey_LongExtensionStaysWithinMaxLength(t *testing.T) {
	id := uuid.NewUUID()
	b := New(false, DefaultMaxLength)

	key := b.BuildKey(42, model.MediaKindAttachment, "x."+strings.Repeat("b", 80), id)

	if len(key) > DefaultMaxLength {
		t.Errorf("len(key) = %d; want <= %d (%q)", len(key), DefaultMaxLength, key)
	}
	if !strings.HasSuffix(key, "x_"+id.String()+"."+strings.Repeat("b", MaxExtLength)) {
		t.Errorf("key %q; want the basename kept and the extension capped", key)
	}
}

func TestBuildKey_TinyBudgetKeepsOneChar(t *testing.T) {
	id := uuid.NewUUID()
	b := Builder{ParentScope: "properties", MaxLength: 10}

	key := b.BuildKey(1, model.MediaKindImage, "photo.png", id)
	want := "properties/1/images/p_" + id.String() + ".png"
	if key != want {
		t.Errorf("key = %q; want %q", key, want)
	}
}

func TestBuildKey_UniquePerItem(t *testing.T) {
	b := New(true, DefaultMaxLength)
	k1 := b.BuildKey(7, model.MediaKindImage, "My Photo!!.JPG", uuid.NewUUID())
	k2 := b.BuildKey(7, model.MediaKindImage, "My Photo!!.JPG", uuid.NewUUID())
	if k1 == k2 {
		t.Errorf("keys for different items collide: %q", k1)
	}
}

func TestBuildKey_Deterministic(t *testing.T) {
	id := uuid.NewUUID()
	b := New(false, DefaultMaxLength)
	if b.BuildKey(7, model.MediaKindImage, "a.png", id) != b.BuildKey(7, model.MediaKindImage, "a.png", id) {
		t.Error("same inputs must give the same key")
	}
}
