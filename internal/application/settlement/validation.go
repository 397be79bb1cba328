package settlement

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/liquorledger/backend/internal/domain/shared"
)

// inputValidator checks the same `binding` tags gin checks at the HTTP edge,
// so callers that bypass HTTP get identical rules.
var inputValidator = newInputValidator()

func newInputValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateInput runs tag validation and reports every failing field in one ValidationError
func validateInput(input interface{}) error {
	err := inputValidator.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return shared.NewValidationError(err.Error())
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		_, field, _ := strings.Cut(fe.Namespace(), ".")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return shared.NewValidationError("Invalid input: " + strings.Join(msgs, "; "))
}

// parseOptionalDate parses a YYYY-MM-DD filter bound, returning nil for an empty string
func parseOptionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := shared.ParseBusinessDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func newFilter(page, pageSize int, orderBy, orderDir, search string) shared.Filter {
	return shared.Filter{
		Page:     page,
		PageSize: pageSize,
		OrderBy:  orderBy,
		OrderDir: orderDir,
		Search:   strings.TrimSpace(search),
		Filters:  make(map[string]interface{}),
	}.Normalize()
}

func dateRangeFilter(in DateRangeFilter) (shared.Filter, error) {
	if err := validateInput(in); err != nil {
		return shared.Filter{}, err
	}
	filter := newFilter(in.Page, in.PageSize, in.OrderBy, in.OrderDir, in.Search)
	from, err := parseOptionalDate(in.From)
	if err != nil {
		return shared.Filter{}, err
	}
	to, err := parseOptionalDate(in.To)
	if err != nil {
		return shared.Filter{}, err
	}
	if from != nil {
		filter.Filters["from"] = *from
	}
	if to != nil {
		filter.Filters["to"] = *to
	}
	return filter, nil
}
