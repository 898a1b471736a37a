package ports

import (
	"context"
	"iter"

	"go.trai.ch/hotload/internal/core/domain"
)

// Frontend is the upstream language reader and compiler.
type Frontend interface {
	// Forms yields the top-level forms of program in source order.
	// A read error ends the sequence.
	Forms(program domain.SourceProgram) iter.Seq2[Form, error]
}

// Form is a single top-level form. Evaluating or compiling it may define classes
// through the supplied ClassDefiner.
type Form interface {
	// Line is the 1-based source line the form starts on.
	Line() int
	// Eval compiles and executes the form.
	Eval(ctx context.Context, definer ClassDefiner) error
	// Compile emits the form's classes without executing anything.
	Compile(ctx context.Context, definer ClassDefiner) error
}

// ClassDefiner receives every class the frontend emits.
type ClassDefiner interface {
	// DefineClass is called once per generated class.
	DefineClass(ctx context.Context, name string, bytecode []byte) (Class, error)
	// Loader returns the currently active loader.
	Loader() Loader
}
