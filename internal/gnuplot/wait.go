package gnuplot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/drakk3/gnuplotting/internal/future"
)

// Wait blocks until the given terminal events occur, in order, with
// timeout applied per event. Each event is announced by binding a
// one-shot trigger that makes gnuplot print a unique token, then waiting
// for that token on the output stream.
//
// Events are waited strictly in list order: an event that fires before
// its predecessor is being waited for is not observed. This is an
// intentional limitation of the token protocol, not a bug.
//
// With no events and a positive timeout, Wait simply sleeps for that
// long. With no events and no positive timeout it returns a
// bad-argument error. Only works with mouse-capable terminals, as it
// relies on gnuplot's bind command.
func (p *Process) Wait(events []Event, timeout time.Duration) error {
	if len(events) == 0 {
		if timeout > 0 {
			time.Sleep(timeout)
			return nil
		}
		return fmt.Errorf("%w: timeout must be > 0 when waiting without events", ErrBadArgument)
	}

	// Save the addressed terminal; restored whatever happens below.
	if _, err := p.CmdTimeout(NoWait, "set term push"); err != nil {
		return err
	}
	defer p.CmdTimeout(NoWait, "set term pop")

	for _, evt := range events {
		if err := p.waitEvent(evt, timeout); err != nil {
			return err
		}
	}
	return nil
}

func (p *Process) waitEvent(evt Event, timeout time.Duration) error {
	termName, termID := splitTarget(evt.Target)
	tok := p.gen.Event(evt.Name)
	bind := "bind " + evt.Name

	// Address the target window. refresh forces it to the front; raise
	// is not reliable.
	if _, err := p.CmdTimeout(NoWait, strings.TrimSpace(fmt.Sprintf("set term %s %s", termName, termID))); err != nil {
		return err
	}
	if _, err := p.CmdTimeout(NoWait, "refresh"); err != nil {
		return err
	}

	if _, err := p.CmdTimeout(NoWait, fmt.Sprintf(`%s 'printerr "%s"'`, bind, tok)); err != nil {
		return err
	}
	// The trigger is unregistered even on timeout so it cannot leak
	// into later commands.
	defer p.CmdTimeout(NoWait, bind+` ""`)

	p.logger.Debug("waiting_event", "target", evt.Target, "event", evt.Name, "token", tok)

	_, err := p.worker.Request("", tok, timeout)
	if err != nil {
		if errors.Is(err, future.ErrTimeout) {
			return &TimeoutError{
				Cause:   fmt.Sprintf("waiting for %s event on %s", evt.Name, evt.Target),
				Timeout: timeout,
			}
		}
		return err
	}
	return nil
}

// splitTarget splits "qt_1" into ("qt", "1"); a bare "qt" yields an
// empty id.
func splitTarget(target string) (name, id string) {
	name, id, _ = strings.Cut(target, "_")
	return name, id
}
