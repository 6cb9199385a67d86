package config_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/graphcache/config"
)

func ExampleLoad() {
	cfg, err := config.Load(context.Background(), "")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	key, _ := cfg.CacheKey()
	fmt.Println(cfg.Storage.Driver, key, cfg.Cache.Persist)
	// Output:
	// memory __RelayCacheManager__ field_write
}

func ExampleParseSecretRef() {
	provider, ref, ok := config.ParseSecretRef("secretref:env:GRAPHCACHE_SEAL_SECRET")
	fmt.Println(provider, ref, ok)
	// Output:
	// env GRAPHCACHE_SEAL_SECRET true
}
