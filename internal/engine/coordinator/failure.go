package coordinator

import (
	"errors"

	"go.trai.ch/hotload/internal/core/domain"
)

// classify maps err onto the failure taxonomy. fallback is used when err
// carries no known sentinel.
func classify(err error, fallback domain.FailureKind) domain.FailureKind {
	switch {
	case errors.Is(err, domain.ErrTranslationFailed):
		return domain.FailureTranslation
	case errors.Is(err, domain.ErrClassResolution):
		return domain.FailureClassResolution
	case errors.Is(err, domain.ErrEntryPointArity):
		return domain.FailureEntryPointArity
	case errors.Is(err, domain.ErrEvaluationFailed):
		return domain.FailureEvaluation
	default:
		return fallback
	}
}

// deepestCause follows the error chain to its innermost error. For joined
// errors the last branch is followed, which by convention carries the detail
// while earlier branches name the category.
func deepestCause(err error) error {
	for {
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			errs := u.Unwrap()
			if len(errs) == 0 {
				return err
			}
			err = errs[len(errs)-1]
		case interface{ Unwrap() error }:
			next := u.Unwrap()
			if next == nil {
				return err
			}
			err = next
		default:
			return err
		}
	}
}

// describeFailure builds the report for err. The position comes from the
// first error in the tree that knows its location, else from line.
func describeFailure(err error, kind domain.FailureKind, program domain.SourceProgram, line int) *domain.Failure {
	f := &domain.Failure{
		Kind:    kind,
		Message: deepestCause(err).Error(),
		Line:    line,
	}

	var located domain.Located
	if errors.As(err, &located) {
		if l, c := located.Location(); l > 0 {
			f.Line, f.Column = l, c
		}
	}
	if f.Line > 0 {
		f.SourceLine = program.Line(f.Line)
	}
	return f
}
