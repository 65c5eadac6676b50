package transform

import (
	"context"
	"regexp"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/teleskop/fieldbridge/errors"
	"github.com/teleskop/fieldbridge/schema"
)

// CustomEvaluator evaluates CUSTOM formulas in a sandboxed Go interpreter
// (yaegi). A formula is a single Go expression with two names in scope:
//
//	src — the source field's value (interface{})
//	rec — the whole record (map[string]interface{})
//
// The formula prelude imports strings, strconv and fmt; nothing else is
// reachable, and formulas containing their own import clauses are
// rejected outright. Evaluation failures of any shape — parse errors,
// panics, timeouts — come back as ordinary errors, never as an exception
// that could abort the surrounding batch.
type CustomEvaluator struct {
	timeout time.Duration
}

// DefaultCustomTimeout bounds a single formula evaluation
const DefaultCustomTimeout = 5 * time.Second

// NewCustomEvaluator creates an evaluator with the given per-formula
// timeout. A non-positive timeout uses DefaultCustomTimeout.
func NewCustomEvaluator(timeout time.Duration) *CustomEvaluator {
	if timeout <= 0 {
		timeout = DefaultCustomTimeout
	}
	return &CustomEvaluator{timeout: timeout}
}

// formulaPrelude wraps a formula into an interpretable file. The blank
// assignments keep the whitelisted imports referenced even when the
// formula uses none of them.
const formulaPrelude = `package formula

import (
	"fmt"
	"strconv"
	"strings"
)

var (
	_ = fmt.Sprint
	_ = strconv.Itoa
	_ = strings.TrimSpace
)

func Eval(src interface{}, rec map[string]interface{}) interface{} {
	return `

// importToken matches the import keyword as its own word, so field names
// like rec["importance"] pass while smuggled import clauses do not.
var importToken = regexp.MustCompile(`\bimport\b`)

// Eval evaluates the formula against src and record.
func (e *CustomEvaluator) Eval(ctx context.Context, formula string, src interface{}, record schema.Record) (interface{}, error) {
	if importToken.MatchString(formula) {
		return nil, errors.New("formula may not declare imports")
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type evalResult struct {
		value interface{}
		err   error
	}
	resultCh := make(chan evalResult, 1)

	// The interpreter is not goroutine-safe, so each evaluation gets a
	// fresh instance; formulas are small enough that this is cheap.
	go func() {
		value, err := evalOnce(formula, src, record)
		resultCh <- evalResult{value, err}
	}()

	select {
	case res := <-resultCh:
		return res.value, res.err
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "formula evaluation timed out")
	}
}

// evalOnce compiles and runs one formula in a fresh interpreter,
// converting panics into errors.
func evalOnce(formula string, src interface{}, record schema.Record) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("formula panicked: %v", r)
		}
	}()

	i := interp.New(interp.Options{})
	if useErr := i.Use(stdlib.Symbols); useErr != nil {
		return nil, errors.Wrap(useErr, "failed to load interpreter symbols")
	}

	code := formulaPrelude + formula + "\n}\n"
	if _, evalErr := i.Eval(code); evalErr != nil {
		return nil, errors.Wrap(evalErr, "formula did not compile")
	}

	fnValue, evalErr := i.Eval("formula.Eval")
	if evalErr != nil {
		return nil, errors.Wrap(evalErr, "formula entry point missing")
	}

	fn, ok := fnValue.Interface().(func(interface{}, map[string]interface{}) interface{})
	if !ok {
		return nil, errors.New("formula has unexpected signature")
	}

	return fn(src, map[string]interface{}(record)), nil
}
