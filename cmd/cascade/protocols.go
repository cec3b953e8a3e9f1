package main

import (
	"fmt"
	"io"
	"strings"

	"deedles.dev/cascade/inhibitor"
	"deedles.dev/cascade/protocol"
	"github.com/spf13/cobra"
)

var protocolsCmd = &cobra.Command{
	Use:   "protocols [file.xml...]",
	Short: "Describe protocol definitions",
	Long: `Describe the interfaces, requests, events, and enums of the protocols
that cascade implements, or of the given protocol XML files.`,
	RunE: runProtocols,
}

func runProtocols(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		proto, err := inhibitor.Protocol()
		if err != nil {
			return err
		}
		printProtocol(cmd.OutOrStdout(), proto)
		return nil
	}

	for _, path := range args {
		proto, err := protocol.LoadFile(path)
		if err != nil {
			return fmt.Errorf("load %v: %w", path, err)
		}
		printProtocol(cmd.OutOrStdout(), proto)
	}
	return nil
}

func printProtocol(w io.Writer, proto protocol.Protocol) {
	fmt.Fprintln(w, titleStyle.Render(proto.Name))
	for _, i := range proto.Interfaces {
		fmt.Fprintf(w, "  %v %v\n", nameStyle.Render(i.Name), dimStyle.Render(fmt.Sprintf("v%v", i.Version)))
		if i.Description.Summary != "" {
			fmt.Fprintf(w, "    %v\n", dimStyle.Render(i.Description.Summary))
		}
		printOps(w, "request", i.Requests)
		printOps(w, "event", i.Events)
		for _, e := range i.Enums {
			for _, entry := range e.Entries {
				fmt.Fprintf(w, "    enum %v.%v = %v\n", e.Name, entry.Name, entry.Value)
			}
		}
	}
}

func printOps(w io.Writer, kind string, ops []protocol.Op) {
	for opcode, op := range ops {
		args := make([]string, 0, len(op.Args))
		for _, arg := range op.Args {
			t := arg.Type
			if arg.Interface != "" {
				t += "<" + arg.Interface + ">"
			}
			args = append(args, arg.Name+" "+t)
		}

		var destructor string
		if op.IsDestructor() {
			destructor = dimStyle.Render(" (destructor)")
		}
		fmt.Fprintf(w, "    %v %d %v(%v)%v\n", kind, opcode, op.Name, strings.Join(args, ", "), destructor)
	}
}
