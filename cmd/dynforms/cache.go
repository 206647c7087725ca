package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-dynforms/pkg/cache"
	"github.com/goliatone/go-dynforms/pkg/session"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear cached form progress",
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the cached selection, answers and comments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStorage(cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		sess := session.New(session.WithStorage(store), session.WithLogger(logger))
		defer sess.Close(cmd.Context())

		snap, ok := sess.Peek(cmd.Context())
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "No cached progress.")
			return nil
		}
		payload, err := json.MarshalIndent(map[string]any{
			cache.KeySelection: snap.FormID,
			cache.KeyResponses: snap.Responses,
			cache.KeyComments:  snap.Comments,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(payload))
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cached progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStorage(cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		for _, key := range cache.Keys {
			if err := store.Delete(cmd.Context(), key); err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
		return nil
	},
}
