package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/veesix-networks/dhclient/pkg/control"
	"github.com/veesix-networks/dhclient/pkg/version"
)

// Controller is the part of *control.Client the shell uses.
type Controller interface {
	Status(ifname string) ([]control.ClientStatus, error)
	Command(command, ifname string) error
	History(ifname string, limit int) ([]control.HistoryEntry, error)
	LogLevel(component, level string) (*control.LogLevels, error)
}

type CLI struct {
	client      Controller
	socketPath  string
	format      OutputFormat
	out         io.Writer
	rl          *readline.Instance
	running     bool
	tree        *CommandTree
	currentLine string
}

func NewCLI(client Controller, socketPath string, format OutputFormat, out io.Writer) *CLI {
	cli := &CLI{
		client:     client,
		socketPath: socketPath,
		format:     format,
		out:        out,
		running:    true,
		tree:       NewCommandTree(),
	}
	RegisterCommands(cli.tree)
	return cli
}

func (c *CLI) Run() error {
	var err error
	c.rl, err = readline.NewEx(&readline.Config{
		Prompt:              getPrompt(),
		HistoryFile:         os.ExpandEnv("$HOME/.dhclientctl_history"),
		AutoComplete:        c.buildCompleter(),
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		FuncFilterInputRune: c.filterInputWithHelp,
		Listener:            c,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer c.rl.Close()
	c.out = c.rl.Stdout()

	c.printBanner()

	for c.running {
		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					break
				}
				continue
			} else if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := c.processCommand(line); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	return nil
}

func (c *CLI) Stop() {
	c.running = false
}

func (c *CLI) printBanner() {
	fmt.Fprintln(c.out, version.Full("dhclientctl"))
	fmt.Fprintf(c.out, "Connected to: %s\n", c.socketPath)
	fmt.Fprintln(c.out, "Type '?' for available commands, 'exit' to leave")
	fmt.Fprintln(c.out)
}

func (c *CLI) OnChange(line []rune, pos int, key rune) (newLine []rune, newPos int, ok bool) {
	c.currentLine = string(line)
	return nil, 0, false
}

func (c *CLI) filterInputWithHelp(r rune) (rune, bool) {
	if r == '?' {
		fmt.Fprint(c.out, "?\n")
		c.tree.ShowHelp(c.out, c.currentLine)
		c.rl.Write([]byte(c.currentLine))
		return 0, false
	}
	return filterInput(r)
}

func (c *CLI) processCommand(line string) error {
	if line == "exit" || line == "quit" {
		c.running = false
		return nil
	}

	if strings.HasSuffix(line, "?") {
		c.tree.ShowHelp(c.out, strings.TrimSuffix(line, "?"))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return c.tree.Execute(ctx, c, line)
}

func (c *CLI) print(data any) error {
	out, err := Format(data, c.format)
	if err != nil {
		return err
	}
	_, err = io.WriteString(c.out, out)
	return err
}
