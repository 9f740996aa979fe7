// Command mockgateway runs an in-memory mail API server for local
// development of the webmail client. Any email/password pair logs in.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/webmail/internal/mockapi"
)

var addr string

var rootCmd = &cobra.Command{
	Use:   "mockgateway",
	Short: "In-memory mail API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv := mockapi.New()
		log.Printf("mock mail API listening on %s", addr)
		return srv.Router().Run(addr)
	},
}

func init() {
	defaultAddr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		defaultAddr = ":" + port
	}
	rootCmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
