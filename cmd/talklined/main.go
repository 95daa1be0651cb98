// Command talklined runs the TalkLine chat server.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/talkline/talkline/pkg/server"
)

func main() {
	configPath := flag.String("config", "~/.talkline/server.toml", "path to config file")
	port := flag.Int("port", 0, "TCP port to listen on (overrides config)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := server.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	serverCfg := cfg.ToServerConfig()
	if *port != 0 {
		serverCfg.TCPPort = *port
	}

	// A bare positional argument also supplies the port.
	if flag.NArg() > 0 {
		p, err := strconv.Atoi(flag.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid port %q\n", flag.Arg(0))
			os.Exit(2)
		}
		serverCfg.TCPPort = p
	}

	srv := server.NewServer(serverCfg)
	if *debug {
		srv.EnableDebugLogging()
	}

	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	if err := srv.Stop(); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
}
