package main

import (
	"github.com/chzyer/readline"
)

func (c *CLI) buildCompleter() readline.AutoCompleter {
	return &treeCompleter{tree: c.tree}
}

type treeCompleter struct {
	tree *CommandTree
}

func (tc *treeCompleter) Do(line []rune, pos int) (newLine [][]rune, length int) {
	input := string(line[:pos])
	completions := tc.tree.GetCompletions(input)
	if len(completions) == 0 {
		return nil, 0
	}

	start := pos
	for start > 0 && line[start-1] != ' ' {
		start--
	}
	partial := string(line[start:pos])

	result := make([][]rune, len(completions))
	for i, comp := range completions {
		result[i] = []rune(comp[len(partial):] + " ")
	}
	return result, len(partial)
}

func filterInput(r rune) (rune, bool) {
	switch r {
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func getPrompt() string {
	return "dhclient> "
}
