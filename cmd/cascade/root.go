package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time with -ldflags.
	Version = "0.1.0-dev"

	rootCmd = &cobra.Command{
		Use:   "cascade",
		Short: "Wayland display server for input inhibitor conformance tests",
		Long: `cascade is a small Wayland display server meant to be driven by a
conformance test harness. It advertises zwlr_input_inhibit_manager_v1 and
arbitrates which client, if any, holds exclusive input.`,
		SilenceUsage: true,
	}
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	nameStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(descriptorCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(protocolsCmd)
	rootCmd.AddCommand(versionCmd)
}
