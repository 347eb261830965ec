package vklife

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDestroyed is returned when an operation uses an object that was
// destroyed, or invalidated by a reset or destroy of its pool.
var ErrDestroyed = errors.New("vklife: object destroyed")

// CreationError reports a native create call that did not return SUCCESS.
type CreationError struct {
	Object  ObjectType
	Result  Result
	Message string
}

func (e *CreationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "vklife: create %s failed", e.Object)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	fmt.Fprintf(&b, " (%s)", e.Result.Error())
	return b.String()
}

func (e *CreationError) Unwrap() error {
	return e.Result
}

// AllocationError reports a failed allocation of pool sub-objects.
type AllocationError struct {
	Object ObjectType
	Count  int
	Result Result
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("vklife: allocate %d %s(s) failed (%s)", e.Count, e.Object, e.Result.Error())
}

func (e *AllocationError) Unwrap() error {
	return e.Result
}

// InvalidArgumentError reports an argument rejected before any native call.
type InvalidArgumentError struct {
	Op     string
	Arg    string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	var b strings.Builder
	b.WriteString("vklife: ")
	b.WriteString(e.Op)
	b.WriteString(": invalid argument")
	if e.Arg != "" {
		b.WriteString(" ")
		b.WriteString(e.Arg)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

func invalidArg(op, arg, reason string) *InvalidArgumentError {
	return &InvalidArgumentError{Op: op, Arg: arg, Reason: reason}
}

func creationError(object ObjectType, result Result, format string, args ...any) *CreationError {
	return &CreationError{
		Object:  object,
		Result:  result,
		Message: fmt.Sprintf(format, args...),
	}
}

// check converts a native status into an error, treating only SUCCESS as success.
func check(result Result) error {
	if result != SUCCESS {
		return result
	}
	return nil
}
