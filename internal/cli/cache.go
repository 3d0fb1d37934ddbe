package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/positivef/verifycache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the verification cache",
}

// withCache opens the cache for the current linter and mode, runs fn and
// closes the cache.
func withCache(cmd *cobra.Command, fn func(c *verifycache.Cache) error) error {
	e, err := loadEnv(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	c, err := e.openCache()
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			e.logger.Warn("closing cache", "error", err)
		}
	}()
	return fn(c)
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(c *verifycache.Cache) error {
			return printJSON(cmd.OutOrStdout(), c.Stats())
		})
	},
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached entries, least recently used first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(c *verifycache.Cache) error {
			return printJSON(cmd.OutOrStdout(), c.Entries())
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all cached results",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(c *verifycache.Cache) error {
			c.Clear()
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
			return nil
		})
	},
}

var cacheValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Drop entries for deleted, modified or expired files",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(c *verifycache.Cache) error {
			return printJSON(cmd.OutOrStdout(), c.ValidateIntegrity())
		})
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate <path>...",
	Short: "Forget cached results for specific files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(c *verifycache.Cache) error {
			for _, p := range args {
				c.Invalidate(p)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Invalidated %d path(s).\n", len(args))
			return nil
		})
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(c *verifycache.Cache) error {
			n := c.PruneExpired()
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d expired entr(ies).\n", n)
			return nil
		})
	},
}

func init() {
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheValidateCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)
	cacheCmd.AddCommand(cachePruneCmd)
}
