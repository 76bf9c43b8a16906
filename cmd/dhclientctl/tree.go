package main

import (
	"context"
	"fmt"
	"io"
	"strings"
)

type CommandHandler func(ctx context.Context, cli *CLI, args []string) error

type ArgumentType int

const (
	ArgUserInput ArgumentType = iota
	ArgOptional
)

type Argument struct {
	Name        string
	Description string
	Type        ArgumentType
}

type CommandNode struct {
	Name        string
	Description string
	Handler     CommandHandler
	Children    []*CommandNode
	Arguments   []*Argument
}

type CommandTree struct {
	root *CommandNode
}

func NewCommandTree() *CommandTree {
	return &CommandTree{
		root: &CommandNode{Name: "root"},
	}
}

// AddRoot names an intermediate node so help can describe it.
func (t *CommandTree) AddRoot(path []string, description string) {
	node := t.walk(path)
	if node.Description == "" {
		node.Description = description
	}
}

func (t *CommandTree) AddCommand(path []string, description string, handler CommandHandler, args ...*Argument) {
	node := t.walk(path)
	node.Description = description
	node.Handler = handler
	node.Arguments = args
}

func (t *CommandTree) walk(path []string) *CommandNode {
	current := t.root
	for _, part := range path {
		next := current.child(part)
		if next == nil {
			next = &CommandNode{Name: part}
			current.Children = append(current.Children, next)
		}
		current = next
	}
	return current
}

func (n *CommandNode) child(name string) *CommandNode {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (t *CommandTree) Execute(ctx context.Context, cli *CLI, input string) error {
	tokens := strings.Fields(input)
	if len(tokens) == 0 {
		return nil
	}

	current := t.root
	argStart := 0
	for i, token := range tokens {
		next := current.child(token)
		if next == nil {
			break
		}
		current = next
		argStart = i + 1
	}

	if current.Handler == nil {
		if argStart == 0 {
			return fmt.Errorf("unrecognized command")
		}
		return fmt.Errorf("incomplete command")
	}

	args := tokens[argStart:]
	if err := validateArguments(current, args); err != nil {
		return err
	}
	return current.Handler(ctx, cli, args)
}

func validateArguments(cmd *CommandNode, args []string) error {
	var required []string
	for _, arg := range cmd.Arguments {
		if arg.Type == ArgUserInput {
			required = append(required, arg.Name)
		}
	}

	if len(args) < len(required) {
		if len(required) == 1 {
			return fmt.Errorf("%s required", required[0])
		}
		return fmt.Errorf("missing required arguments: %s", strings.Join(required, ", "))
	}
	if len(args) > len(cmd.Arguments) {
		return fmt.Errorf("unexpected argument %q", args[len(cmd.Arguments)])
	}
	return nil
}

// GetCompletions lists the command words that can follow input.
func (t *CommandTree) GetCompletions(input string) []string {
	tokens := strings.Fields(input)
	endsWithSpace := len(input) > 0 && input[len(input)-1] == ' '

	prefix := ""
	if !endsWithSpace && len(tokens) > 0 {
		prefix = tokens[len(tokens)-1]
		tokens = tokens[:len(tokens)-1]
	}

	current := t.root
	for _, token := range tokens {
		next := current.child(token)
		if next == nil {
			return nil
		}
		current = next
	}

	var completions []string
	for _, child := range current.Children {
		if strings.HasPrefix(child.Name, prefix) {
			completions = append(completions, child.Name)
		}
	}
	return completions
}

func (t *CommandTree) ShowHelp(w io.Writer, input string) {
	current := t.root
	depth := 0
	tokens := strings.Fields(input)
	for _, token := range tokens {
		next := current.child(token)
		if next == nil {
			break
		}
		current = next
		depth++
	}

	fmt.Fprintln(w)
	if len(current.Children) > 0 {
		for _, child := range current.Children {
			if child.Description != "" {
				fmt.Fprintf(w, "  %-20s %s\n", child.Name, child.Description)
			} else {
				fmt.Fprintf(w, "  %s\n", child.Name)
			}
		}
		fmt.Fprintln(w)
		return
	}

	used := len(tokens) - depth
	if current.Handler != nil && used < len(current.Arguments) {
		arg := current.Arguments[used]
		fmt.Fprintf(w, "  <%s>%s %s\n", arg.Name, strings.Repeat(" ", max(1, 19-len(arg.Name))), arg.Description)
		if arg.Type == ArgOptional {
			fmt.Fprintln(w, "  <cr>")
		}
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintln(w, "  <cr>")
	fmt.Fprintln(w)
}
