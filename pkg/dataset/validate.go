package dataset

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/macroviewer/pkg/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Violation is one broken rule of the real-data contract.
type Violation struct {
	Field string // namespaced field, e.g. "Dataset.Nodes[3].GDPUsd"
	Rule  string // validator tag that failed, e.g. "gt"
	Param string
	Value any
}

func (v Violation) String() string {
	if v.Param != "" {
		return fmt.Sprintf("%s: failed %s=%s (got %v)", v.Field, v.Rule, v.Param, v.Value)
	}
	return fmt.Sprintf("%s: failed %s (got %v)", v.Field, v.Rule, v.Value)
}

// ValidationError lists every violation found by [Validate].
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	lines := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		lines = append(lines, v.String())
	}
	return fmt.Sprintf("%d contract violation(s): %s", len(e.Violations), strings.Join(lines, "; "))
}

// Validate checks a normalized dataset against the strict real-data
// contract: positive GDP, no XX placeholder codes, no estimated values,
// 1 to 10 rows per producer list, links with distinct two-letter endpoints.
//
// The engine never calls Validate; normalization already made the dataset
// safe to render. It exists for the validate command and for --strict
// loading, where a snapshot that needed repairs should fail loudly.
func Validate(d *Dataset) error {
	if d == nil {
		return errors.New(errors.ErrCodeDatasetMissing, "dataset is absent")
	}
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Wrap(errors.ErrCodeInternal, err, "validate dataset")
	}
	out := &ValidationError{Violations: make([]Violation, 0, len(verrs))}
	for _, fe := range verrs {
		out.Violations = append(out.Violations, Violation{
			Field: fe.Namespace(),
			Rule:  fe.Tag(),
			Param: fe.Param(),
			Value: fe.Value(),
		})
	}
	return errors.Wrap(errors.ErrCodeInvalidDataset, out, "dataset violates the real-data contract")
}

// Violations extracts the violation list from an error returned by
// [Validate]. It returns nil for any other error.
func Violations(err error) []Violation {
	var ve *ValidationError
	if stderrors.As(err, &ve) {
		return ve.Violations
	}
	return nil
}
