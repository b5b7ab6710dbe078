package observe_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/blockpress/observe"
)

func ExampleNewObserver() {
	cfg := observe.Config{
		ServiceName: "blockpress",
		Version:     "1.0.0",
		Tracing:     observe.TracingConfig{Enabled: true, Exporter: "none"},
		Metrics:     observe.MetricsConfig{Enabled: false},
		Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
	}

	ctx := context.Background()
	obs, err := observe.NewObserver(ctx, cfg)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	defer func() {
		_ = obs.Shutdown(ctx)
	}()

	fmt.Println("Observer created successfully")
	// Output:
	// Observer created successfully
}

func ExampleNewObserver_validation() {
	_, err := observe.NewObserver(context.Background(), observe.Config{})
	if errors.Is(err, observe.ErrMissingServiceName) {
		fmt.Println("Caught: missing service name")
	}
	// Output:
	// Caught: missing service name
}

func ExampleBlockMeta_SpanName() {
	meta := observe.BlockMeta{Name: "core/latest-posts", Dynamic: true}
	fmt.Println(meta.SpanName())
	// Output:
	// block.render.core.latest-posts
}

func ExampleDoingItWrong() {
	rec := observe.NewRecorder()
	observe.DoingItWrong(context.Background(), rec, "Registry.Register",
		"Block type names must contain a namespace prefix.")

	for _, n := range rec.Notices() {
		fn, _ := n.Field("function")
		notice, _ := n.Field("notice")
		fmt.Println(fn, "-", notice)
	}
	// Output:
	// Registry.Register - Block type names must contain a namespace prefix.
}
