// Package namespace mirrors variables and functions defined in a running
// gnuplot session as an explicit name-to-definition mapping with
// define/undefine/get operations.
package namespace

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Context is the command surface the namespace drives. Both the process
// driver and the file backend satisfy it.
type Context interface {
	// Cmd evaluates a command with the backend's default timeout and
	// returns its output.
	Cmd(command string, inlineData ...string) (string, error)

	// CmdTimeout evaluates a command with an explicit timeout; a zero
	// timeout means fire-and-forget.
	CmdTimeout(timeout time.Duration, command string, inlineData ...string) (string, error)
}

// Kind tags what a name is bound to.
type Kind int

const (
	// Variable is a scalar gnuplot variable.
	Variable Kind = iota

	// Function is a gnuplot function definition.
	Function
)

func (k Kind) String() string {
	switch k {
	case Variable:
		return "variable"
	case Function:
		return "function"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is one namespace binding.
type Value struct {
	Kind Kind

	// Args and Body describe a Function binding.
	Args []string
	Body string
}

// Namespace tracks the names this program has defined in the session.
// Safe for concurrent use.
type Namespace struct {
	ctx Context

	mu    sync.Mutex
	names map[string]Value
}

// New creates an empty namespace over ctx.
func New(ctx Context) *Namespace {
	return &Namespace{
		ctx:   ctx,
		names: make(map[string]Value),
	}
}

// DefineVar binds name to a scalar value in the session.
func (n *Namespace) DefineVar(name string, value any) error {
	if name == "" {
		return fmt.Errorf("namespace: empty variable name")
	}
	if _, err := n.ctx.Cmd(fmt.Sprintf("%s = %v", name, value)); err != nil {
		return err
	}

	n.mu.Lock()
	n.names[name] = Value{Kind: Variable}
	n.mu.Unlock()
	return nil
}

// DefineFunc binds name to a function with the given argument list and
// body, e.g. DefineFunc("f", []string{"x"}, "x + 1") for f(x) = x + 1.
func (n *Namespace) DefineFunc(name string, args []string, body string) error {
	if name == "" || body == "" {
		return fmt.Errorf("namespace: function needs a name and a body")
	}
	def := fmt.Sprintf("%s(%s) = %s", name, strings.Join(args, ", "), body)
	if _, err := n.ctx.Cmd(def); err != nil {
		return err
	}

	n.mu.Lock()
	n.names[name] = Value{Kind: Function, Args: args, Body: body}
	n.mu.Unlock()
	return nil
}

// Get returns the binding for name, if this namespace defined it.
func (n *Namespace) Get(name string) (Value, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.names[name]
	return v, ok
}

// Names returns the defined names in sorted order.
func (n *Namespace) Names() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	names := make([]string, 0, len(n.names))
	for name := range n.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Undefine removes name from the session and the mapping.
func (n *Namespace) Undefine(name string) error {
	if _, err := n.ctx.Cmd("undefine " + name); err != nil {
		return err
	}

	n.mu.Lock()
	delete(n.names, name)
	n.mu.Unlock()
	return nil
}

// Clear undefines every tracked name without waiting for replies. Used
// during shutdown, where the pipe may already be closed; write errors
// are ignored so teardown stays idempotent.
func (n *Namespace) Clear() {
	n.mu.Lock()
	names := make([]string, 0, len(n.names))
	for name := range n.names {
		names = append(names, name)
	}
	n.names = make(map[string]Value)
	n.mu.Unlock()

	for _, name := range names {
		n.ctx.CmdTimeout(0, "undefine "+name)
	}
}

// EvalVar evaluates a variable in the session and parses the reply into
// an int64, float64 or string. Returns nil if the variable does not
// exist or produced no output.
func (n *Namespace) EvalVar(name string) (any, error) {
	return n.eval(name, name)
}

// CallFunc evaluates a function call in the session. The existence guard
// checks gnuplot's GPFUN_ shadow variable for the definition.
func (n *Namespace) CallFunc(name string, args ...any) (any, error) {
	strs := make([]string, len(args))
	for i, a := range args {
		strs[i] = fmt.Sprintf("%v", a)
	}
	expr := fmt.Sprintf("%s(%s)", name, strings.Join(strs, ", "))
	return n.eval("GPFUN_"+name, expr)
}

// eval prints an expression guarded by an existence check, so asking for
// an undefined name yields no output instead of a process error.
func (n *Namespace) eval(guard, expr string) (any, error) {
	out, err := n.ctx.Cmd(fmt.Sprintf(`if(exists("%s")) printerr %s`, guard, expr))
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return parseScalar(out), nil
}

// parseScalar converts gnuplot's textual reply to the closest Go type.
func parseScalar(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
