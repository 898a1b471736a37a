package enginetest

import (
	"context"
	"errors"
	"iter"
	"strings"

	"go.trai.ch/hotload/internal/core/domain"
	"go.trai.ch/hotload/internal/core/ports"
	"go.trai.ch/zerr"
)

// Frontend implements ports.Frontend for the line based test language.
type Frontend struct {
	// AfterEval, if set, is called after each form evaluates successfully.
	AfterEval func(line int)
}

// Forms implements ports.Frontend.
func (f *Frontend) Forms(program domain.SourceProgram) iter.Seq2[ports.Form, error] {
	return func(yield func(ports.Form, error) bool) {
		for i, raw := range strings.Split(program.Text, "\n") {
			text := strings.TrimSpace(raw)
			if text == "" || strings.HasPrefix(text, ";") {
				continue
			}
			line := i + 1
			if msg, ok := strings.CutPrefix(text, "read-error "); ok {
				yield(nil, &domain.LocatedError{Line: line, Column: 1, Err: errors.New(msg)})
				return
			}
			if !yield(&form{frontend: f, line: line, text: text}, nil) {
				return
			}
		}
	}
}

type form struct {
	frontend *Frontend
	line     int
	text     string
}

func (f *form) Line() int {
	return f.line
}

func (f *form) Eval(ctx context.Context, definer ports.ClassDefiner) error {
	if err := f.run(ctx, definer, true); err != nil {
		return err
	}
	if f.frontend.AfterEval != nil {
		f.frontend.AfterEval(f.line)
	}
	return nil
}

func (f *form) Compile(ctx context.Context, definer ports.ClassDefiner) error {
	return f.run(ctx, definer, false)
}

func (f *form) run(ctx context.Context, definer ports.ClassDefiner, execute bool) error {
	verb, rest, _ := strings.Cut(f.text, " ")
	switch verb {
	case "def":
		if _, err := ParseDef(f.text); err != nil {
			return &domain.LocatedError{Line: f.line, Column: 1, Err: err}
		}
		name := strings.Fields(rest)[0]
		_, err := definer.DefineClass(ctx, name, []byte(f.text))
		return err
	case "call":
		if !execute {
			return nil
		}
		c, err := definer.Loader().Resolve(strings.TrimSpace(rest))
		if err != nil {
			return err
		}
		_, err = c.Invoke(ctx)
		return err
	case "throw":
		if !execute {
			return nil
		}
		return &domain.LocatedError{Line: f.line, Column: len(verb) + 2, Err: errors.New(rest)}
	default:
		return &domain.LocatedError{
			Line:   f.line,
			Column: 1,
			Err:    zerr.With(zerr.New("unknown form"), "form", verb),
		}
	}
}
