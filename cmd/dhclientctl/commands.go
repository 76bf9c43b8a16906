package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/veesix-networks/dhclient/pkg/control"
)

const defaultHistoryLimit = 20

var interfaceArg = &Argument{Name: "interface", Description: "Interface name, all when omitted", Type: ArgOptional}

func RegisterCommands(tree *CommandTree) {
	tree.AddRoot([]string{"show"}, "Display client information")

	tree.AddCommand([]string{"show", "status"},
		"Display lease state per interface",
		cmdShowStatus,
		interfaceArg,
	)

	tree.AddCommand([]string{"show", "history"},
		"Display recent lease events",
		cmdShowHistory,
		interfaceArg,
		&Argument{Name: "limit", Description: "Number of entries", Type: ArgOptional},
	)

	tree.AddCommand([]string{"show", "log-levels"},
		"Display the daemon log level and component overrides",
		cmdShowLogLevels,
	)

	tree.AddCommand([]string{"log-level"},
		"Set the log level of one daemon component",
		cmdLogLevel,
		&Argument{Name: "component", Description: "Logger name, such as dhclient or transport", Type: ArgUserInput},
		&Argument{Name: "level", Description: "debug, info, warn, error or default", Type: ArgUserInput},
	)

	tree.AddCommand([]string{"release"},
		"Release the lease and stop the client",
		controlCommand(control.CommandRelease),
		interfaceArg,
	)

	tree.AddCommand([]string{"renew"},
		"Renew the lease now, or restart a stopped client",
		controlCommand(control.CommandRenew),
		interfaceArg,
	)

	tree.AddCommand([]string{"stop"},
		"Stop the client without releasing the lease",
		controlCommand(control.CommandStop),
		interfaceArg,
	)

	tree.AddCommand([]string{"help"},
		"Display available commands",
		cmdHelp,
	)
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func cmdShowStatus(_ context.Context, cli *CLI, args []string) error {
	clients, err := cli.client.Status(argAt(args, 0))
	if err != nil {
		return err
	}
	return cli.print(clients)
}

func cmdShowHistory(_ context.Context, cli *CLI, args []string) error {
	limit := defaultHistoryLimit
	if s := argAt(args, 1); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid limit %q", s)
		}
		limit = n
	}

	ifname := argAt(args, 0)
	if ifname == "all" {
		ifname = ""
	}
	entries, err := cli.client.History(ifname, limit)
	if err != nil {
		return err
	}
	return cli.print(entries)
}

func cmdShowLogLevels(_ context.Context, cli *CLI, _ []string) error {
	levels, err := cli.client.LogLevel("", "")
	if err != nil {
		return err
	}
	return cli.print(levels)
}

func cmdLogLevel(_ context.Context, cli *CLI, args []string) error {
	levels, err := cli.client.LogLevel(args[0], args[1])
	if err != nil {
		return err
	}
	return cli.print(levels)
}

func controlCommand(command string) CommandHandler {
	return func(_ context.Context, cli *CLI, args []string) error {
		ifname := argAt(args, 0)
		if err := cli.client.Command(command, ifname); err != nil {
			return err
		}
		target := ifname
		if target == "" {
			target = "all interfaces"
		}
		fmt.Fprintf(cli.out, "%s: ok (%s)\n", command, target)
		return nil
	}
}

func cmdHelp(_ context.Context, cli *CLI, _ []string) error {
	cli.tree.ShowHelp(cli.out, "")
	return nil
}
