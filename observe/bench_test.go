package observe

import (
	"context"
	"io"
	"testing"
)

func BenchmarkMiddleware_Nop(b *testing.B) {
	mw := NopMiddleware()
	meta := OpMeta{Op: "read_node", CacheKey: "k"}
	ctx := context.Background()
	fn := func(context.Context) error { return nil }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = mw.Run(ctx, meta, fn)
	}
}

func BenchmarkLogger_Info(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard).With(OpMeta{Op: "write_field", CacheKey: "k"})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info(ctx, "persisted", Field{Key: "bytes", Value: 128})
	}
}
