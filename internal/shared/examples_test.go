package shared_test

import (
	"errors"
	"fmt"

	"rxsched/internal/shared"
)

// Example_wrap demonstrates adding context while preserving the
// original error.
func Example_wrap() {
	original := errors.New("connection refused")
	err := shared.Wrap(original, "save run history")

	fmt.Println(err.Error())
	fmt.Println("contains original:", errors.Is(err, original))

	// Output:
	// save run history: connection refused
	// contains original: true
}

// Example_markKind demonstrates classifying a third-party error into
// the domain taxonomy.
func Example_markKind() {
	driverErr := errors.New("pq: connection reset")
	err := shared.MarkKind(driverErr, shared.KindDependencyFailure)

	fmt.Println("kind:", shared.KindOf(err))
	fmt.Println("contains original:", errors.Is(err, driverErr))

	// Output:
	// kind: DependencyFailure
	// contains original: true
}
