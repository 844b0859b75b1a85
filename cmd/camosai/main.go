// Command camosai is the entry point for the Camos documentation assistant.
// It provides a CLI (via Cobra) for ingestion and one-shot questions, and an
// HTTP server exposing the chat, FAQ, and question-board API.
package main

import (
	"fmt"
	"os"

	"github.com/camoslabs/camosai/cmd/camosai/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
