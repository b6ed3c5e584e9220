package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/ru"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	ru_translations "github.com/go-playground/validator/v10/translations/ru"

	"recipebox/internal/domain"
)

const maxJSONBody = 1 << 20

// errBadRequest означает, что тело запроса не удалось разобрать.
var errBadRequest = errors.New("некорректное тело запроса")

type validatorSvc struct {
	validate *validator.Validate
	trans    ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *validatorSvc
)

func validation() *validatorSvc {
	vOnce.Do(func() {
		loc := ru.New()
		uni := ut.New(loc, loc)
		trans, _ := uni.GetTranslator("ru")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			if tag == "" || tag == "-" {
				return fld.Name
			}
			return tag
		})
		_ = ru_translations.RegisterDefaultTranslations(v, trans)
		vSvc = &validatorSvc{validate: v, trans: trans}
	})
	return vSvc
}

// validateStruct проверяет DTO и превращает ошибки validator в *domain.ValidationError.
func validateStruct(dst any) error {
	svc := validation()
	err := svc.validate.Struct(dst)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &domain.ValidationError{}
	for _, fe := range fieldErrs {
		out.Add(fe.Field(), fe.Translate(svc.trans))
	}
	return out
}

// decodeJSON читает тело запроса в dst и валидирует его.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errBadRequest
	}
	return validateStruct(dst)
}
