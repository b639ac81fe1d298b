// Package unit registers the transformation units that can be invoked across
// the host boundary.
package unit

import (
	"sort"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/transfer"
)

// Unit is a named transformation with a single entry point.
type Unit struct {
	Name      string
	Transform transfer.TransformFunc
}

// Receive is the entry point invoked once per message with the length of the
// pending input.
func (u Unit) Receive(h transfer.Host, length int) transfer.Outcome {
	return transfer.Serve(h, length, u.Transform)
}

var registry = map[string]Unit{
	"emojify":      {Name: "emojify", Transform: Emojify},
	"json2msgpack": {Name: "json2msgpack", Transform: JSONToMsgPack},
	"nginx-parser": {Name: "nginx-parser", Transform: NginxParser},
	"agent-emoji":  {Name: "agent-emoji", Transform: AgentEmoji},
	"status-emoji": {Name: "status-emoji", Transform: StatusEmoji},
	"reverse":      {Name: "reverse", Transform: Reverse},
}

// Lookup returns the unit registered under name.
func Lookup(name string) (Unit, bool) {
	u, ok := registry[name]
	return u, ok
}

// Names returns the registered unit names in lexical order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
