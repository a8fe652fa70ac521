package tickrt_test

import (
	"fmt"
	"time"

	"tickrt"
)

// Demonstrates the deferred call queue and the timer engine driven by a
// deterministic tick source.
func Example() {
	tick := tickrt.NewManualTickSource()
	rt, err := tickrt.New(tickrt.WithTickSource(tick))
	if err != nil {
		panic(err)
	}
	defer rt.Shutdown()

	// Deferred calls run when the host drains, never inline.
	if _, err := rt.Enqueue(func(ctx any, _ tickrt.ID) {
		fmt.Println("deferred:", ctx)
	}, "hello"); err != nil {
		panic(err)
	}

	// Timers queue their callback on expiry.
	if _, err := rt.TimerAdd(5*time.Millisecond, func(ctx any, _ tickrt.ID) {
		fmt.Println("timer:", ctx)
	}, "world"); err != nil {
		panic(err)
	}

	tick.Advance(5 * time.Millisecond)

	for rt.DrainOne() {
	}

	// Output:
	// deferred: hello
	// timer: world
}
