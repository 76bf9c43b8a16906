package hook

import (
	"strings"
)

const (
	PrefixOld   = "old_"
	PrefixNew   = "new_"
	PrefixAlias = "alias_"
)

// Env is the ordered variable set handed to a hook. Setting a variable
// twice keeps its first position and the last value.
type Env struct {
	names  []string
	values map[string]string
}

func NewEnv(reason Reason) *Env {
	e := &Env{values: make(map[string]string)}
	e.Set("reason", string(reason))
	return e
}

// VarName maps an option name to its variable name.
func VarName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

func (e *Env) Set(name, value string) {
	if _, ok := e.values[name]; !ok {
		e.names = append(e.names, name)
	}
	e.values[name] = value
}

func (e *Env) Add(prefix, name, value string) {
	e.Set(prefix+VarName(name), value)
}

func (e *Env) Get(name string) (string, bool) {
	v, ok := e.values[name]
	return v, ok
}

func (e *Env) Reason() Reason {
	return Reason(e.values["reason"])
}

// WithPrefix returns the variables starting with prefix, prefix removed.
func (e *Env) WithPrefix(prefix string) map[string]string {
	out := make(map[string]string)
	for _, name := range e.names {
		if rest, ok := strings.CutPrefix(name, prefix); ok {
			out[rest] = e.values[name]
		}
	}
	return out
}

// Environ renders the variables as name=value pairs in insertion order.
func (e *Env) Environ() []string {
	out := make([]string, 0, len(e.names))
	for _, name := range e.names {
		out = append(out, name+"="+e.values[name])
	}
	return out
}
