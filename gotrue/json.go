package gotrue

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/json-iterator/go/extra"
)

var errEmptyBody = errors.New("empty body")

// Serializer converts request values to JSON and JSON responses back to values.
type Serializer interface {
	Serialize(v any) (string, error)
	Deserialize(data string, v any) error
}

// JSONSerializer is the default Serializer. Untagged exported fields use snake_case
// keys on the wire, unknown keys are ignored, and struct fields tagged
// validate:"required" must be present after decoding.
type JSONSerializer struct {
	api      jsoniter.API
	validate *validator.Validate
}

func NewJSONSerializer() *JSONSerializer {
	api := jsoniter.Config{
		EscapeHTML:             true,
		SortMapKeys:            true,
		ValidateJsonRawMessage: true,
	}.Froze()
	api.RegisterExtension(&snakeCaseExtension{})

	return &JSONSerializer{
		api:      api,
		validate: validator.New(),
	}
}

func (s *JSONSerializer) Serialize(v any) (string, error) {
	return s.api.MarshalToString(v)
}

func (s *JSONSerializer) Deserialize(data string, v any) error {
	target := strings.TrimPrefix(fmt.Sprintf("%T", v), "*")

	if strings.TrimSpace(data) == "" {
		return &DeserializationError{Target: target, Err: errEmptyBody}
	}
	if err := s.api.UnmarshalFromString(data, v); err != nil {
		return &DeserializationError{Target: target, Err: err}
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Kind() == reflect.Struct {
		if err := s.validate.Struct(v); err != nil {
			return &DeserializationError{Target: target, Err: err}
		}
	}
	return nil
}

// snakeCaseExtension renames untagged exported fields, e.g. AccessToken -> access_token.
// Initialisms are split per letter (ID -> i_d), so such fields need an explicit tag.
type snakeCaseExtension struct {
	jsoniter.DummyExtension
}

func (e *snakeCaseExtension) UpdateStructDescriptor(sd *jsoniter.StructDescriptor) {
	for _, binding := range sd.Fields {
		name := binding.Field.Name()
		if !unicode.IsUpper([]rune(name)[0]) {
			continue
		}
		if tag, ok := binding.Field.Tag().Lookup("json"); ok {
			if wire, _, _ := strings.Cut(tag, ","); wire != "" {
				continue
			}
		}
		wire := extra.LowerCaseWithUnderscores(name)
		binding.ToNames = []string{wire}
		binding.FromNames = []string{wire}
	}
}
