package validation

import (
	"encoding/json"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/fhuszti/property-media-ms-go/internal/uuid"
	"github.com/go-playground/validator/v10"
)

// AllowedExtensions are the file extensions accepted at the upload boundary.
var AllowedExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true, "svg": true,
	"mp4": true, "mov": true, "avi": true,
	"pdf": true, "doc": true, "docx": true, "xls": true, "xlsx": true,
}

// IsAllowedFilename reports whether the filename carries an allowed extension.
func IsAllowedFilename(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	return AllowedExtensions[ext]
}

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Tell the validator to use the JSON tag as the “field name”
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		// Grab the value of `json:"foo,omitempty"`
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			// fallback to the Go field name or skip
			return fld.Name
		}
		return name
	})

	validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
		if id, ok := v.Interface().(uuid.UUID); ok {
			if id.IsNil() {
				return ""
			}
			return id.String()
		}
		return nil
	}, uuid.UUID{})

	_ = validate.RegisterValidation("allowed_ext", func(fl validator.FieldLevel) bool {
		return IsAllowedFilename(fl.Field().String())
	})
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func ErrorsToJson(validationErrs error) (string, error) {
	errsMap := make(map[string]string)
	for _, fieldErr := range validationErrs.(validator.ValidationErrors) {
		errsMap[fieldErr.Field()] = fieldErr.Tag()
	}

	errsJson, err := json.Marshal(errsMap)
	if err != nil {
		return "", err
	}
	return string(errsJson), nil
}
