package registry

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/specialistvlad/pipegrid/internal/ctxlog"
	"github.com/specialistvlad/pipegrid/internal/runner"
	"github.com/specialistvlad/pipegrid/internal/table"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	inputsType  = reflect.TypeOf((*runner.Inputs)(nil))
	tableType   = reflect.TypeOf((*table.Table)(nil))
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Validate checks that every registered runner has a callable Fn whose
// argument type matches what NewInput produces.
func (r *Registry) Validate(ctx context.Context) error {
	var errs []string
	for _, name := range r.Names() {
		if err := checkRunner(r.runners[name]); err != nil {
			errs = append(errs, fmt.Sprintf("runner '%s': %v", name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	ctxlog.FromContext(ctx).Debug("Registry validated.", "runners", len(r.runners))
	return nil
}

func checkRunner(rr *RegisteredRunner) error {
	if rr == nil || rr.NewInput == nil || rr.Fn == nil {
		return errors.New("NewInput and Fn are required")
	}
	fn := reflect.TypeOf(rr.Fn)
	if fn.Kind() != reflect.Func {
		return fmt.Errorf("Fn must be a function, got %s", fn)
	}
	if fn.NumIn() != 3 || fn.In(0) != contextType || fn.In(1) != inputsType {
		return fmt.Errorf("Fn must accept (context.Context, *runner.Inputs, *T), got %s", fn)
	}
	if fn.NumOut() != 2 || fn.Out(0) != tableType || fn.Out(1) != errorType {
		return fmt.Errorf("Fn must return (*table.Table, error), got %s", fn)
	}
	input := reflect.TypeOf(rr.NewInput())
	if input == nil || input.Kind() != reflect.Pointer || input.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("NewInput must return a pointer to a struct, got %v", input)
	}
	if fn.In(2) != input {
		return fmt.Errorf("Fn takes %s but NewInput returns %s", fn.In(2), input)
	}
	return nil
}

// Call invokes the runner's Fn. args must come from NewInput.
func (rr *RegisteredRunner) Call(ctx context.Context, in *runner.Inputs, args any) (*table.Table, error) {
	out := reflect.ValueOf(rr.Fn).Call([]reflect.Value{
		reflect.ValueOf(ctx),
		reflect.ValueOf(in),
		reflect.ValueOf(args),
	})
	var err error
	if e := out[1].Interface(); e != nil {
		err = e.(error)
	}
	tbl, _ := out[0].Interface().(*table.Table)
	return tbl, err
}
