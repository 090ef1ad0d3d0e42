package keybuilder

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/fhuszti/property-media-ms-go/internal/model"
	"github.com/fhuszti/property-media-ms-go/internal/port"
	"github.com/fhuszti/property-media-ms-go/internal/uuid"
)

const (
	FallbackBasename   = "file"
	DefaultParentScope = "properties"
	NonProdPrefix      = "localhost"
	DefaultMaxLength   = 100
	MaxExtLength       = 10
)

var (
	disallowedBase = regexp.MustCompile(`[^a-z0-9 _-]+`)
	separators     = regexp.MustCompile(`[\s_-]+`)
	disallowedExt  = regexp.MustCompile(`[^a-z0-9]+`)
)

// Sanitize splits filename into a lowercase hyphenated basename and a bare extension
// of at most MaxExtLength characters.
// The basename falls back to FallbackBasename when nothing usable is left.
func Sanitize(filename string) (base, ext string) {
	filename = strings.ToLower(strings.TrimSpace(path.Base(strings.ReplaceAll(filename, "\\", "/"))))

	rawExt := path.Ext(filename)
	rawBase := strings.TrimSuffix(filename, rawExt)
	if rawBase == "" {
		// dotfile such as ".jpg" has no extension, only a name
		rawBase, rawExt = rawExt, ""
	}

	ext = disallowedExt.ReplaceAllString(strings.TrimPrefix(rawExt, "."), "")
	if len(ext) > MaxExtLength {
		ext = ext[:MaxExtLength]
	}

	base = strings.ReplaceAll(rawBase, ".", " ")
	base = disallowedBase.ReplaceAllString(base, "")
	base = separators.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")
	if base == "" {
		base = FallbackBasename
	}
	return base, ext
}

// Builder computes keys shaped as <env-prefix>/<parent-scope>/<parentId>/<kind-folder>/<name>_<id>.<ext>.
type Builder struct {
	// EnvPrefix is omitted when empty.
	EnvPrefix   string
	ParentScope string
	// MaxLength bounds the whole key; only the basename is shortened to fit. 0 means unbounded.
	MaxLength int
}

// compile-time check: Builder must satisfy port.KeyBuilder
var _ port.KeyBuilder = Builder{}

// New returns the builder for the given environment: production keys carry no prefix.
func New(production bool, maxLength int) Builder {
	b := Builder{ParentScope: DefaultParentScope, MaxLength: maxLength}
	if !production {
		b.EnvPrefix = NonProdPrefix
	}
	return b
}

func (b Builder) BuildKey(parentID int64, kind model.MediaKind, filename string, itemID uuid.UUID) string {
	base, ext := Sanitize(filename)

	scope := b.ParentScope
	if scope == "" {
		scope = DefaultParentScope
	}
	parts := make([]string, 0, 5)
	if b.EnvPrefix != "" {
		parts = append(parts, b.EnvPrefix)
	}
	parts = append(parts, scope, strconv.FormatInt(parentID, 10), kind.Folder())
	dir := strings.Join(parts, "/") + "/"

	suffix := "_" + itemID.String()
	if ext != "" {
		suffix += "." + ext
	}

	if b.MaxLength > 0 {
		budget := b.MaxLength - len(dir) - len(suffix)
		if budget < 1 {
			budget = 1
		}
		if len(base) > budget {
			base = strings.TrimRight(base[:budget], "-")
			if base == "" {
				base = FallbackBasename[:1]
			}
		}
	}

	return dir + base + suffix
}
