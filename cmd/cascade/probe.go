package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"deedles.dev/cascade/client"
	"deedles.dev/cascade/wire"
	"github.com/spf13/cobra"
)

var (
	probeSocket  string
	probeInhibit bool
	probeHold    time.Duration
	probeTimeout time.Duration
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Connect to a server and list its globals",
	Long: `Connect to a Wayland server as a client and list the globals that it
advertises. With --inhibit, also try to take exclusive input and report
whether the server granted it.`,
	Args: cobra.NoArgs,
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().StringVarP(&probeSocket, "socket", "s", "", "socket name or path (default: $WAYLAND_DISPLAY)")
	probeCmd.Flags().BoolVar(&probeInhibit, "inhibit", false, "request an input inhibitor")
	probeCmd.Flags().DurationVar(&probeHold, "hold", 0, "how long to hold the inhibitor before releasing it")
	probeCmd.Flags().DurationVar(&probeTimeout, "timeout", 5*time.Second, "timeout for each round trip")
}

func dialProbe() (*client.Display, error) {
	if probeSocket == "" {
		return client.Dial()
	}
	return client.DialPath(wire.ResolveSocket(probeSocket))
}

func runProbe(cmd *cobra.Command, args []string) error {
	display, err := dialProbe()
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer display.Close()

	roundTrip := func() error {
		ctx, cancel := context.WithTimeout(cmd.Context(), probeTimeout)
		defer cancel()
		return display.RoundTrip(ctx)
	}

	r := display.GetRegistry()
	if err := roundTrip(); err != nil {
		return fmt.Errorf("get globals: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("globals"))
	for _, g := range r.Globals() {
		fmt.Fprintf(out, "  %3d %v %v\n", g.Name, nameStyle.Render(g.Interface), dimStyle.Render(fmt.Sprintf("v%v", g.Version)))
	}

	if !probeInhibit {
		return nil
	}

	m, err := client.BindInhibitManager(r)
	if err != nil {
		return err
	}
	inh := m.GetInhibitor()
	if err := roundTrip(); err != nil {
		var perr *client.ProtocolError
		if errors.As(err, &perr) {
			fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("inhibitor refused: %v", perr.Message)))
		}
		return err
	}
	fmt.Fprintln(out, titleStyle.Render("input inhibited"))

	if probeHold > 0 {
		select {
		case <-time.After(probeHold):
		case <-cmd.Context().Done():
		}
	}

	inh.Destroy()
	if err := roundTrip(); err != nil {
		return fmt.Errorf("release inhibitor: %w", err)
	}
	fmt.Fprintln(out, dimStyle.Render("input released"))
	return nil
}
