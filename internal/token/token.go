// Package token generates the sentinel strings used to delimit gnuplot
// command output on an otherwise unstructured stream.
//
// Every process instance owns one Generator. Tokens embed the instance id
// and a monotonically increasing counter, so two commands never share a
// token pair, even when issued concurrently or from two instances running
// in the same program.
package token

import (
	"fmt"
	"sync/atomic"
)

// instanceIDs hands out ids for process instances. Shared across the
// program so tokens from simultaneously-running instances never collide.
var instanceIDs atomic.Int64

// NextInstanceID returns a program-unique id for a new process instance.
// The first instance gets id 1.
func NextInstanceID() int64 {
	return instanceIDs.Add(1)
}

// Pair is the begin/done token pair delimiting one command batch.
type Pair struct {
	Begin string
	Done  string
}

// Generator produces unique tokens for one process instance.
// Safe for concurrent use; the counter is a single shared atomic,
// not per-caller state.
type Generator struct {
	instanceID int64
	counter    atomic.Int64
}

// NewGenerator creates a Generator for the given process instance id.
func NewGenerator(instanceID int64) *Generator {
	return &Generator{instanceID: instanceID}
}

// InstanceID returns the owning process instance id.
func (g *Generator) InstanceID() int64 {
	return g.instanceID
}

// Next returns the next counter value. Values start at 0 and never repeat
// for the lifetime of the generator.
func (g *Generator) Next() int64 {
	return g.counter.Add(1) - 1
}

// CommandPair returns a fresh begin/done token pair for one command batch.
func (g *Generator) CommandPair() Pair {
	n := g.Next()
	return Pair{
		Begin: fmt.Sprintf("<gnuplotting-%d-%d>", g.instanceID, n),
		Done:  fmt.Sprintf("<gnuplotting-%d-%d-done>", g.instanceID, n),
	}
}

// Event returns a fresh token for the named terminal event.
func (g *Generator) Event(name string) string {
	return fmt.Sprintf("<gnuplotting-%d-%s-%d>", g.instanceID, name, g.Next())
}
