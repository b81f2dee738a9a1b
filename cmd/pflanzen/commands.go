package main

import (
	"time"

	"github.com/spf13/cobra"

	"pflanzen/server"
)

type flags struct {
	configFile     string
	populate       bool
	startupTimeout time.Duration
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:   "pflanzen",
		Short: "Pflanzen - REST, GraphQL und HTML fuer den Pflanzenkatalog",
		Long: `Pflanzen verwaltet den Pflanzenkatalog mit optimistischer Nebenlaeufigkeitskontrolle.

Beispiele:
  pflanzen serve                       Server mit Standardkonfiguration starten
  pflanzen serve -c pflanzen.yaml      Server mit Konfigurationsdatei starten
  pflanzen populate                    Tabellen neu anlegen und Beispieldaten laden`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&f.configFile, "config", "c", "", "Konfigurationsdatei (YAML)")

	root.AddCommand(newServeCmd(f), newPopulateCmd(f))
	return root
}

func newServeCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "HTTP-Server starten",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := server.New(server.Options{ConfigPath: f.configFile, Populate: f.populate})
			return server.NewEngine(s,
				server.WithVersion(version),
				server.WithStartupTimeout(f.startupTimeout),
			).Start(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&f.populate, "populate", false, "Tabellen beim Start neu anlegen und Beispieldaten laden")
	cmd.Flags().DurationVar(&f.startupTimeout, "startup-timeout", 30*time.Second, "Hoechstdauer fuer Aufbau von Speicher und Diensten")
	return cmd
}

func newPopulateCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "populate",
		Short: "Tabellen neu anlegen und Beispieldaten laden",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return server.New(server.Options{ConfigPath: f.configFile}).Populate(cmd.Context())
		},
	}
}
