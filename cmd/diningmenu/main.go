// Command diningmenu prints campus dining locations and menus as JSON and keeps
// their snapshots fresh.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/japaniel/diningmenu/pkg/catalog"
	"github.com/japaniel/diningmenu/pkg/config"
	"github.com/japaniel/diningmenu/pkg/refresh"
	"github.com/japaniel/diningmenu/pkg/snapshot"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root, cleanup := newRootCmd()
	defer cleanup()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

// newRootCmd builds the command tree. cleanup releases whatever the invoked
// command opened.
func newRootCmd() (root *cobra.Command, cleanup func()) {
	var (
		configPath string
		a          *app
	)

	root = &cobra.Command{
		Use:           "diningmenu",
		Short:         "Campus dining locations and menus",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			a, err = newApp(cmd.Context(), cfg)
			return err
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file")

	appRef := func() *app { return a }
	root.AddCommand(
		newLocationsCmd(appRef),
		newMenuCmd(appRef),
		newRefreshCmd(appRef),
		newScheduleCmd(appRef),
		newStatusCmd(appRef),
	)

	cleanup = func() {
		if a != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			a.close(ctx)
		}
	}
	return root, cleanup
}

func newLocationsCmd(a func() *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "locations",
		Short: "List dining locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeJSON(cmd.OutOrStdout(), a().resolver.Locations(cmd.Context(), force))
		},
	}
	cmd.Flags().BoolVar(&force, "refresh", false, "skip the cache and snapshot and fetch live")
	return cmd
}

func newMenuCmd(a func() *app) *cobra.Command {
	var (
		force bool
		name  string
		now   bool
	)
	cmd := &cobra.Command{
		Use:   "menu <location-id>",
		Short: "Print a location's menu",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := a()
			items := env.resolver.MenuItemsFor(cmd.Context(), args[0], name, force)
			if now {
				items = catalog.ServedAt(items, time.Now().In(env.cfg.Schedule.Location()))
			}
			return writeJSON(cmd.OutOrStdout(), items)
		},
	}
	cmd.Flags().BoolVar(&force, "refresh", false, "skip the cache and snapshot and fetch live")
	cmd.Flags().StringVar(&name, "name", "", "location name used to address the menu page")
	cmd.Flags().BoolVar(&now, "now", false, "only items served in the current meal period")
	return cmd
}

func newRefreshCmd(a func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh every location and menu once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sum, err := a().runner().Run(cmd.Context(), "manual")
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), sum)
		},
	}
}

func newScheduleCmd(a func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run scheduled refreshes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env := a()
			s, err := refresh.NewScheduler(env.runner(), env.cfg.Schedule)
			if err != nil {
				return err
			}
			return s.Start(cmd.Context())
		},
	}
}

type statusEntry struct {
	Kind          snapshot.Kind `json:"kind"`
	LocationID    string        `json:"locationId,omitempty"`
	LastRefreshed *time.Time    `json:"lastRefreshed"`
}

func newStatusCmd(a func() *app) *cobra.Command {
	var documents bool
	cmd := &cobra.Command{
		Use:   "status [location-id]",
		Short: "Show when snapshots were last refreshed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := a()
			ctx := cmd.Context()
			if documents {
				names, err := env.store.Documents(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), names)
			}

			entry := func(kind snapshot.Kind, id string) statusEntry {
				e := statusEntry{Kind: kind, LocationID: id}
				if ts, ok := env.resolver.LastRefreshed(ctx, kind, id); ok {
					e.LastRefreshed = &ts
				}
				return e
			}

			if len(args) == 1 {
				return writeJSON(cmd.OutOrStdout(), []statusEntry{entry(snapshot.KindMenuItems, args[0])})
			}

			locs, ok := env.store.LoadLocations(ctx)
			if !ok || len(locs) == 0 {
				locs = catalog.FallbackLocations(env.cfg.BaseURL, env.cfg.SiteName)
			}
			out := []statusEntry{entry(snapshot.KindLocations, "")}
			for _, l := range locs {
				out = append(out, entry(snapshot.KindMenuItems, l.ID))
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&documents, "documents", false, "list the stored snapshot documents instead")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
