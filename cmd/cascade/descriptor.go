package main

import (
	"encoding/json"
	"fmt"

	"deedles.dev/cascade/harness"
	"deedles.dev/cascade/internal/config"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var descriptorFormat string

var descriptorCmd = &cobra.Command{
	Use:   "descriptor",
	Short: "Print the integration descriptor",
	Long: `Print the integration descriptor that a server started with the same
flags and configuration would report: its version and the protocol
extensions it advertises.`,
	Args: cobra.NoArgs,
	RunE: runDescriptor,
}

func init() {
	config.AddFlags(descriptorCmd.Flags())
	descriptorCmd.Flags().StringVarP(&descriptorFormat, "format", "f", "text", "output format: text|json|toml")
}

func runDescriptor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.New(), cmd.Flags())
	if err != nil {
		return err
	}
	desc := harness.DescriptorFor(cfg)

	out := cmd.OutOrStdout()
	switch descriptorFormat {
	case "json":
		e := json.NewEncoder(out)
		e.SetIndent("", "  ")
		return e.Encode(desc)

	case "toml":
		return toml.NewEncoder(out).Encode(desc)

	case "text":
		fmt.Fprintf(out, "%v %v\n", titleStyle.Render("integration version"), desc.Version)
		if len(desc.Extensions) == 0 {
			fmt.Fprintln(out, dimStyle.Render("no extensions"))
		}
		for _, ext := range desc.Extensions {
			fmt.Fprintf(out, "%v %v\n", nameStyle.Render(ext.Name), dimStyle.Render(fmt.Sprintf("v%v", ext.Version)))
		}
		return nil

	default:
		return fmt.Errorf("unknown format %q", descriptorFormat)
	}
}
