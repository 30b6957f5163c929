package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/satoru2478-wq/v-calls/internal/config"
	"github.com/satoru2478-wq/v-calls/internal/ui"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vcall [address]",
		Short: "Two-party audio call over a signaling relay",
		Long: `vcall starts or joins a direct audio call negotiated through a v-calls relay.

Without an address it starts a new call and prints the link to share.
With an address (a link carrying ?room= or a bare room id) it joins that call.
Lines typed on stdin are sent as chat; /mute and /unmute toggle your audio,
/hangup ends the call.

Examples:
  vcall
  vcall http://localhost:8080/?room=3f9c1a7b2e4d
  vcall --record remote.ogg 3f9c1a7b2e4d`,
		Args:    cobra.MaximumNArgs(1),
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadPeer(cmd.Flags())
			if err != nil {
				return err
			}
			address := ""
			if len(args) == 1 {
				address = args[0]
			}
			return runCall(cmd.Context(), cfg, address, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.String("relay", "", "relay WebSocket URL (default ws://localhost:8080/ws)")
	f.String("share-base", "", "base of the link printed for the other side")
	f.StringSlice("ice", nil, "ICE server URLs")
	f.Int("buffer-limit", 0, "max remote candidates held before the remote description")
	f.String("audio", "", "Ogg/Opus file to send instead of silence")
	f.String("record", "", "write the remote audio to this Ogg file")
	f.String("log-level", "", "debug, info, warn or error")
	f.String("config", "", "peer config file")
	return cmd
}

func Execute() {
	cmd := newRootCmd()
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.ErrorStyle.Render(ui.IconError+" "+err.Error()))
		os.Exit(1)
	}
}
