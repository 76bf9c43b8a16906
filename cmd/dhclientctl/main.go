package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/veesix-networks/dhclient/pkg/config"
	"github.com/veesix-networks/dhclient/pkg/control"
)

var (
	socketPath = flag.String("s", config.DefaultControlSocket, "dhclientd control socket")
	format     = flag.String("o", string(FormatCLI), "Output format: cli, json or yaml")
	timeout    = flag.Duration("t", 5*time.Second, "Reply timeout")
)

func main() {
	flag.Parse()

	outFormat, err := ParseFormat(*format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	client := control.NewClient(*socketPath, *timeout)
	cli := NewCLI(client, *socketPath, outFormat, os.Stdout)

	if flag.NArg() > 0 {
		if err := cli.processCommand(strings.Join(flag.Args(), " ")); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cli.Stop()
		os.Exit(0)
	}()

	if err := cli.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
