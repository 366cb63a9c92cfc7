package server

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/valyala/fastjson"
)

type joinRequest struct {
	Name string `validate:"required"`
}

type messageRequest struct {
	To   string `validate:"required"`
	Text string `validate:"required"`
	Type string `validate:"required,oneof=message private_message"`
}

// fieldReader extracts typed fields from a parsed JSON body, collecting a
// violation for every field carrying the wrong type. Missing and null fields
// read as zero values and are left for the struct validator to report, so the
// final violation list covers the complete set of broken fields at once.
type fieldReader struct {
	v          *fastjson.Value
	violations []string
	badType    map[string]bool
}

func newFieldReader(v *fastjson.Value) *fieldReader {
	return &fieldReader{
		v:       v,
		badType: make(map[string]bool),
	}
}

func (fr *fieldReader) String(field string) string {
	value := fr.v.Get(field)
	if value == nil || value.Type() == fastjson.TypeNull {
		return ""
	}

	if value.Type() != fastjson.TypeString {
		fr.violations = append(fr.violations, `"`+field+`" must be a string`)
		fr.badType[field] = true
		return ""
	}

	b, _ := value.StringBytes()
	return string(b)
}

// Violations runs the struct validator over req and merges its findings with
// the type violations collected while reading fields. Fields already flagged
// with a type violation are skipped to avoid double reporting.
func (fr *fieldReader) Violations(validate *validator.Validate, req interface{}) []string {
	violations := fr.violations

	err := validate.Struct(req)
	if err == nil {
		return violations
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		violations = append(violations, err.Error())
		return violations
	}

	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		if fr.badType[field] {
			continue
		}

		switch fe.Tag() {
		case "required":
			violations = append(violations, `"`+field+`" is required`)
		case "oneof":
			violations = append(violations, `"`+field+`" must be one of [`+fe.Param()+`]`)
		default:
			violations = append(violations, `"`+field+`" is invalid`)
		}
	}

	return violations
}
