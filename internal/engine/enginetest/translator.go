package enginetest

import (
	"context"
	"errors"
	"sync"

	"go.trai.ch/hotload/internal/core/domain"
	"go.trai.ch/zerr"
)

// Translator is an in-memory ports.Translator that counts calls per class.
type Translator struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
}

// NewTranslator creates a translator.
func NewTranslator() *Translator {
	return &Translator{calls: make(map[string]int), fail: make(map[string]error)}
}

// Fail makes translating className return err wrapped in domain.ErrTranslationFailed.
func (t *Translator) Fail(className string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fail[className] = err
}

// Translate implements ports.Translator.
func (t *Translator) Translate(ctx context.Context, class domain.GeneratedClass) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.calls[class.Name]++
	if err := t.fail[class.Name]; err != nil {
		return nil, errors.Join(domain.ErrTranslationFailed, zerr.With(zerr.Wrap(err, "translator failed"), "class", class.Name))
	}
	return append([]byte(NativePrefix), class.Bytecode...), nil
}

// Calls returns how many times className was translated.
func (t *Translator) Calls(className string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls[className]
}

// Total returns the number of translations performed.
func (t *Translator) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.calls {
		n += c
	}
	return n
}
