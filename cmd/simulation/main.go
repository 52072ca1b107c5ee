package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type options struct {
	wsURL   string
	apiURL  string
	token   string
	script  string
	verbose bool
}

func main() {
	var opts options

	root := &cobra.Command{
		Use:   "simulation",
		Short: "Terminal client for the move quote intake chat",
		Long: `Connects to the intake WebSocket and forwards each input line.

Plain lines are chat messages. Commands:
  /opt <text>               pick a quick option
  /pick <from|to> <n>       select address candidate n
  /none <from|to>           reject all candidates
  /confirm <from|to> [no]   confirm (or refuse) the selected address
  /upload <path>            upload a photo and stage the recognized items
  /items                    confirm the staged item list
  /submit [email] [phone]   submit the quote
  /reset, /ping, /quit`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	root.Flags().StringVar(&opts.wsURL, "ws", "ws://localhost:3000/api/ws/chat", "intake WebSocket endpoint")
	root.Flags().StringVar(&opts.apiURL, "api", "http://localhost:3000/api", "REST base URL for uploads")
	root.Flags().StringVar(&opts.token, "token", "", "session token to resume")
	root.Flags().StringVar(&opts.script, "script", "", "read input lines from a file instead of stdin")
	root.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "print raw frames")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
