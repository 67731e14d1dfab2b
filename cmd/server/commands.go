package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"hauntsim/server/internal/app"
	"hauntsim/server/internal/config"
	"hauntsim/server/internal/evidence"
	"hauntsim/server/internal/telemetry"
)

type runFlags struct {
	configPath string
	hunters    []string
	seed       int64
	listen     string
	jsonLog    string
	reportJSON string
	ghostType  string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hauntsim",
		Short:         "Ghost hunters and a ghost wander a haunted house until the case is solved",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newGhostsCmd(), newLayoutCmd(), newSchemaCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one investigation and print the final report",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := telemetry.WrapLogger(log.New(cmd.ErrOrStderr(), "", log.LstdFlags))
			settings, err := loadSettings(cmd, flags, logger)
			if err != nil {
				return err
			}
			_, err = app.Run(cmd.Context(), app.Config{
				Logger:     logger,
				Settings:   settings,
				Stdout:     cmd.OutOrStdout(),
				ReportJSON: flags.reportJSON,
			})
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&flags.configPath, "config", "c", "", "YAML configuration file")
	f.StringArrayVar(&flags.hunters, "hunter", nil, "hunter as name:id, repeatable; replaces configured hunters")
	f.Int64Var(&flags.seed, "seed", 0, "random seed; 0 seeds from the clock")
	f.StringVar(&flags.listen, "listen", "", "serve the spectator feed and metrics on this address")
	f.StringVar(&flags.jsonLog, "json-log", "", "write every event as JSON lines to this file")
	f.StringVar(&flags.reportJSON, "report-json", "", "write the report as JSON to this file, - for stdout")
	f.StringVar(&flags.ghostType, "ghost-type", "", "fix the ghost type instead of drawing one")
	return cmd
}

// loadSettings layers command line flags over the file and environment.
func loadSettings(cmd *cobra.Command, flags runFlags, logger telemetry.Logger) (config.Config, error) {
	settings, err := config.Load(flags.configPath, logger)
	if err != nil {
		return settings, err
	}
	f := cmd.Flags()
	if f.Changed("hunter") {
		hunters, err := config.ParseHunters(flags.hunters)
		if err != nil {
			return settings, err
		}
		settings.Hunters = hunters
	}
	if f.Changed("seed") {
		settings.Seed = flags.seed
	}
	if f.Changed("listen") {
		settings.Listen = flags.listen
	}
	if f.Changed("json-log") {
		settings.Logging.JSON.FilePath = flags.jsonLog
		settings.Logging = settings.Logging.WithSink("json")
	}
	if f.Changed("ghost-type") {
		settings.Ghost.Type = flags.ghostType
	}
	if err := settings.Validate(); err != nil {
		return settings, fmt.Errorf("invalid flags: %w", err)
	}
	return settings, nil
}

func newGhostsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ghosts",
		Short: "List every ghost type and the evidence it leaves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, g := range evidence.AllGhostTypes() {
				if _, err := fmt.Fprintf(out, "%-12s %s\n", g, g.Evidence()); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newLayoutCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the room graph a run would use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(configPath, telemetry.WrapLogger(log.New(cmd.ErrOrStderr(), "", 0)))
			if err != nil {
				return err
			}
			layout, err := settings.HouseLayout()
			if err != nil {
				return err
			}
			neighbours := make(map[string][]string, len(layout.Rooms))
			for _, edge := range layout.Edges {
				neighbours[edge[0]] = append(neighbours[edge[0]], edge[1])
				neighbours[edge[1]] = append(neighbours[edge[1]], edge[0])
			}
			out := cmd.OutOrStdout()
			for _, room := range layout.Rooms {
				marker := ""
				if room == layout.Exit {
					marker = " (exit)"
				}
				fmt.Fprintf(out, "%s%s: %s\n", room, marker, strings.Join(neighbours[room], ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	return cmd
}

func newSchemaCmd() *cobra.Command {
	var layout bool
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schema := config.Schema()
			if layout {
				schema = config.LayoutSchema()
			}
			return config.WriteSchema(cmd.OutOrStdout(), schema)
		},
	}
	cmd.Flags().BoolVar(&layout, "layout", false, "describe layout files instead")
	return cmd
}
