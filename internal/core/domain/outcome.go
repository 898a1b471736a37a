package domain

// OutcomeKind classifies how a run ended.
type OutcomeKind uint8

const (
	// OutcomeSuccess means the entry point was invoked and returned.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeFailure means the run failed with a reportable error.
	OutcomeFailure
	// OutcomeCancelled means the run was stopped between forms. Nothing is reported.
	OutcomeCancelled
)

// String returns the lowercase name of the kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// FailureKind maps a failure onto the error taxonomy.
type FailureKind uint8

const (
	// FailureInternal covers I/O and other infrastructure errors.
	FailureInternal FailureKind = iota
	// FailureTranslation means the native compiler failed for a class.
	FailureTranslation
	// FailureClassResolution means an expected class could not be loaded.
	FailureClassResolution
	// FailureEntryPointArity means no invocation shape matched the entry point.
	FailureEntryPointArity
	// FailureEvaluation means the generated program itself threw.
	FailureEvaluation
)

// String returns the lowercase name of the kind.
func (k FailureKind) String() string {
	switch k {
	case FailureTranslation:
		return "translation"
	case FailureClassResolution:
		return "class-resolution"
	case FailureEntryPointArity:
		return "entry-point-arity"
	case FailureEvaluation:
		return "evaluation"
	default:
		return "internal"
	}
}

// Failure is the structured report handed to the hosting surface.
// Line and Column are 1-based; zero means unknown.
type Failure struct {
	Kind       FailureKind
	Message    string
	Line       int
	Column     int
	SourceLine string
}

// Outcome is the result of a run.
type Outcome struct {
	Kind    OutcomeKind
	Result  any
	Failure *Failure
	// Err is the underlying error for failures, kept for logging.
	Err error
	// FromCache reports whether the run was served from a complete cache entry.
	FromCache bool
}

// Located is implemented by diagnostic errors that know where in the source they happened.
type Located interface {
	Location() (line, column int)
}

// LocatedError attaches a source position to an error.
type LocatedError struct {
	Line   int
	Column int
	Err    error
}

// Error implements the error interface.
func (e *LocatedError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *LocatedError) Unwrap() error {
	return e.Err
}

// Location implements Located.
func (e *LocatedError) Location() (line, column int) {
	return e.Line, e.Column
}
