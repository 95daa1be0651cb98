// Command talkline is a terminal client for the TalkLine chat server.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	host := flag.String("host", "", "server host[:port] to connect to on startup")
	flag.Parse()

	network := NewNetwork()
	if *host != "" {
		if err := network.Connect(*host); err != nil {
			fmt.Fprintf(os.Stderr, "connect %s: %v\n", *host, err)
			os.Exit(1)
		}
	}

	p := tea.NewProgram(initialModel(network), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
