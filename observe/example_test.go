package observe_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonwraymond/graphcache/observe"
)

func ExampleMiddleware_Run() {
	var buf bytes.Buffer
	mw := observe.NewMiddleware(nil, nil, observe.NewLoggerWithWriter("debug", &buf))

	_ = mw.Run(context.Background(), observe.OpMeta{Op: "read_node", NodeID: "n1"}, func(ctx context.Context) error {
		return nil
	})

	var entry map[string]any
	_ = json.Unmarshal(buf.Bytes(), &entry)
	fmt.Println(entry["msg"], entry["cache.op"], entry["cache.node_id"])
	// Output:
	// cache operation completed read_node n1
}

func ExampleOpMeta_SpanName() {
	fmt.Println(observe.OpMeta{Op: "hydrate"}.SpanName())
	// Output:
	// graphcache.hydrate
}
