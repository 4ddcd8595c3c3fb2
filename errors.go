package fogsim

// errors.go holds the error types reported while building and running a
// deployment experiment.  Construction errors abort the run before any
// event is scheduled; UnroutableTupleError is only ever counted.

import (
	"errors"
	"fmt"
)

// InvalidTopologyError reports a structural problem with the device tree
type InvalidTopologyError struct {
	Device string
	Reason string
}

func (e *InvalidTopologyError) Error() string {
	if len(e.Device) == 0 {
		return "invalid topology: " + e.Reason
	}
	return fmt.Sprintf("invalid topology at device %s: %s", e.Device, e.Reason)
}

// UnknownModuleError reports a reference to a module that was never added
type UnknownModuleError struct {
	Module string
	Where  string
}

func (e *UnknownModuleError) Error() string {
	return fmt.Sprintf("unknown module %s referenced by %s", e.Module, e.Where)
}

// InvalidEdgeError reports an application edge (or selectivity, or loop)
// whose shape is inconsistent with the rest of the application
type InvalidEdgeError struct {
	Src, Dst string
	Reason   string
}

func (e *InvalidEdgeError) Error() string {
	return fmt.Sprintf("invalid edge %s -> %s: %s", e.Src, e.Dst, e.Reason)
}

// UnplaceableModuleError reports that a placement strategy could not find
// a device for the module
type UnplaceableModuleError struct {
	Module   string
	Strategy string
	Reason   string
}

func (e *UnplaceableModuleError) Error() string {
	return fmt.Sprintf("%s placement cannot place module %s: %s", e.Strategy, e.Module, e.Reason)
}

// UnroutableTupleError describes a tuple dropped at run time
type UnroutableTupleError struct {
	TupleID   int
	TupleType string
	Reason    string
}

func (e *UnroutableTupleError) Error() string {
	return fmt.Sprintf("tuple %d of type %s unroutable: %s", e.TupleID, e.TupleType, e.Reason)
}

// ReportErrs gathers the non-nil errors of a list into a single error.
// Useful when we don't want to check each of a sequence of errors
// before proceeding.  nil is returned if every error in the list is nil.
// The typed errors remain reachable through errors.As
func ReportErrs(errs []error) error {
	kept := make([]error, 0)
	for _, err := range errs {
		if err != nil {
			kept = append(kept, err)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	if len(kept) == 1 {
		return kept[0]
	}
	return errors.Join(kept...)
}
