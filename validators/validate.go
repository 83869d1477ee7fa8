package validators

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	// report fields under their request names
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"form", "json", "query"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return field.Name
	})
	return v
}

// Struct validates req and returns a field -> message map, or nil when valid.
// A field without an entry in messages gets a generic text.
func Struct(req interface{}, messages map[string]string) map[string]string {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"request": "Invalid request!"}
	}

	errs := make(map[string]string, len(fieldErrors))
	for _, fe := range fieldErrors {
		field := fe.Field()
		if _, seen := errs[field]; seen {
			continue
		}
		if msg, ok := messages[field]; ok {
			errs[field] = msg
		} else {
			errs[field] = fmt.Sprintf("%s is invalid!", field)
		}
	}
	return errs
}

// ParamID parses a positive numeric route parameter.
func ParamID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
