package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/veesix-networks/dhclient/pkg/control"
)

type OutputFormat string

const (
	FormatCLI  OutputFormat = "cli"
	FormatJSON OutputFormat = "json"
	FormatYAML OutputFormat = "yaml"
)

func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatCLI, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format: %s", s)
}

func Format(data any, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data); err != nil {
			return "", err
		}
		return buf.String(), nil
	case FormatYAML:
		out, err := yaml.Marshal(data)
		if err != nil {
			return "", err
		}
		return string(out), nil
	case FormatCLI:
		return formatCLI(data)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatCLI(data any) (string, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	switch v := data.(type) {
	case []control.ClientStatus:
		fmt.Fprintln(w, "INTERFACE\tSTATE\tADDRESS\tSERVER\tRENEWAL\tEXPIRY\tBACKUPS")
		for _, s := range v {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
				s.Interface, s.State, dash(s.Address), dash(s.ServerID),
				formatTime(s.Renewal), formatTime(s.Expiry), s.Backups)
		}
	case []control.HistoryEntry:
		fmt.Fprintln(w, "TIME\tINTERFACE\tREASON\tADDRESS\tSERVER\tEXPIRY")
		for _, e := range v {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				formatTime(e.Time), e.Interface, e.Reason, dash(e.Address),
				dash(e.ServerID), formatTime(e.Expiry))
		}
	case *control.LogLevels:
		fmt.Fprintln(w, "COMPONENT\tLEVEL")
		fmt.Fprintf(w, "%s\t%s\n", "(default)", v.Default)
		names := make([]string, 0, len(v.Components))
		for name := range v.Components {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "%s\t%s\n", name, v.Components[name])
		}
	default:
		out, err := yaml.Marshal(data)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}

	if err := w.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
