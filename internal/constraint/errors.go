package constraint

import "errors"

// errAssertTolerance is returned when Check2 is invoked with a non-positive
// per-axis tolerance, violating spec.md §4.2 step 2's assertion.
var errAssertTolerance = errors.New("constraint: per-axis tolerance must be positive")
