package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// BindingItems converts a gin binding failure into validation items located
// under loc (body, query or form).
func BindingItems(loc string, err error) []ValidationItem {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		items := make([]ValidationItem, 0, len(verrs))
		for _, fe := range verrs {
			items = append(items, ValidationItem{
				Loc:  []string{loc, fe.Field()},
				Msg:  fieldMessage(fe),
				Type: fieldType(fe),
			})
		}
		return items
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []ValidationItem{{
			Loc:  []string{loc, typeErr.Field},
			Msg:  fmt.Sprintf("value is not a valid %s", typeErr.Type.Kind()),
			Type: "type_error",
		}}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return []ValidationItem{{
			Loc:  []string{loc},
			Msg:  "request body is not valid JSON",
			Type: "value_error.jsondecode",
		}}
	}

	return []ValidationItem{{
		Loc:  []string{loc},
		Msg:  err.Error(),
		Type: "value_error",
	}}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "min":
		return fmt.Sprintf("ensure this value has at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("ensure this value has at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("ensure this value is greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("ensure this value is less than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed on the %q rule", fe.Tag())
	}
}

func fieldType(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "value_error.missing"
	case "min":
		return "value_error.any_str.min_length"
	case "max":
		return "value_error.any_str.max_length"
	default:
		return "value_error." + strings.ToLower(fe.Tag())
	}
}

// JSONTagName makes validator report fields by their wire name.
func JSONTagName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}
