package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/graphcache/codec"
)

// withCache opens the runtime, waits for hydration, runs fn and closes the
// runtime, flushing any pending writes.
func withCache(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, rt *runtime) error) (err error) {
	ctx := cmd.Context()
	rt, err := openRuntime(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := rt.waitHydrated(ctx); err != nil {
		return err
	}
	return fn(ctx, rt)
}

type inspectResult struct {
	CacheKey       string `json:"cache_key"`
	Driver         string `json:"driver"`
	PersistPolicy  string `json:"persist_policy"`
	Records        int    `json:"records"`
	RootCalls      int    `json:"root_calls"`
	Dirty          bool   `json:"dirty"`
	HydrationError string `json:"hydration_error,omitempty"`
}

func newInspectCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show the cache key, backend and record counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCache(cmd, opts, func(ctx context.Context, rt *runtime) error {
				stats, err := rt.cache.Stats(ctx)
				if err != nil {
					return err
				}
				res := inspectResult{
					CacheKey:      stats.CacheKey,
					Driver:        rt.stack.Name,
					PersistPolicy: rt.cache.PersistPolicy().String(),
					Records:       stats.Records,
					RootCalls:     stats.RootCalls,
					Dirty:         stats.Dirty,
				}
				if herr := rt.cache.HydrationErr(); herr != nil {
					res.HydrationError = herr.Error()
				}
				text := fmt.Sprintf("key=%s driver=%s persist=%s records=%d root_calls=%d",
					res.CacheKey, res.Driver, res.PersistPolicy, res.Records, res.RootCalls)
				if res.HydrationError != "" {
					text += " hydration_error=" + res.HydrationError
				}
				return newPrinter(opts, cmd).print(text, res)
			})
		},
	}
}

func newGetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <node-id>",
		Short: "Print one node's record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, opts, func(ctx context.Context, rt *runtime) error {
				rec, ok, err := rt.cache.ReadNode(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("node %q not cached", args[0])
				}
				// Records may be cyclic; the codec turns cycles into back-references.
				data, err := codec.Marshal(map[string]any(rec))
				if err != nil {
					return err
				}
				return newPrinter(opts, cmd).print(string(data), json.RawMessage(data))
			})
		},
	}
}

func newRootCallCommand(opts *rootOptions) *cobra.Command {
	var setID string
	cmd := &cobra.Command{
		Use:   "root <call-name> [arg-value]",
		Short: "Resolve a root call to a node id, or point it at one with --set",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, value := args[0], ""
			if len(args) == 2 {
				value = args[1]
			}
			return withCache(cmd, opts, func(ctx context.Context, rt *runtime) error {
				if setID != "" {
					if err := rt.cache.WriteRootCall(ctx, name, value, setID); err != nil {
						return err
					}
				}
				id, ok, err := rt.cache.ReadRootCall(ctx, name, value)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("root call %s(%q) not cached", name, value)
				}
				return newPrinter(opts, cmd).print(id, map[string]string{"name": name, "value": value, "node_id": id})
			})
		},
	}
	cmd.Flags().StringVar(&setID, "set", "", "point the root call at this node id")
	return cmd
}

func newSetCommand(opts *rootOptions) *cobra.Command {
	var typeName string
	cmd := &cobra.Command{
		Use:   "set <node-id> <field> <json-value>",
		Short: "Write one field of a node and persist the cache",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := codec.Unmarshal([]byte(args[2]))
			if err != nil {
				return fmt.Errorf("value must be JSON: %w", err)
			}
			return withCache(cmd, opts, func(ctx context.Context, rt *runtime) error {
				if err := rt.cache.WriteField(ctx, args[0], args[1], value, typeName); err != nil {
					return err
				}
				return newPrinter(opts, cmd).print("ok", map[string]string{"node_id": args[0], "field": args[1]})
			})
		},
	}
	cmd.Flags().StringVar(&typeName, "type", "", "type name for a newly created node")
	return cmd
}

func newClearCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the persisted snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCache(cmd, opts, func(ctx context.Context, rt *runtime) error {
				if err := rt.cache.ClearStorage(ctx); err != nil {
					return fmt.Errorf("cache cleared in memory, snapshot not removed: %w", err)
				}
				return newPrinter(opts, cmd).print("cleared", map[string]bool{"cleared": true})
			})
		},
	}
}
