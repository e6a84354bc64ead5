package mediator

import (
	"context"
	"fmt"
	"io"

	"github.com/effective-security/esagent/invoker"
)

// Callback receives conversation loop events.
type Callback interface {
	OnRunStart(ctx context.Context, agent string, input string)
	OnRunEnd(ctx context.Context, agent string, answer string)
	OnRunError(ctx context.Context, agent string, err error)
	OnToolStart(ctx context.Context, tool string, args string)
	OnToolEnd(ctx context.Context, tool string, res invoker.Result)
	OnToolNotFound(ctx context.Context, tool string)
}

// NoopCallback does nothing.
type NoopCallback struct{}

func NewNoopCallback() *NoopCallback {
	return &NoopCallback{}
}

var _ Callback = (*NoopCallback)(nil)

func (l *NoopCallback) OnRunStart(ctx context.Context, agent string, input string)     {}
func (l *NoopCallback) OnRunEnd(ctx context.Context, agent string, answer string)      {}
func (l *NoopCallback) OnRunError(ctx context.Context, agent string, err error)        {}
func (l *NoopCallback) OnToolStart(ctx context.Context, tool string, args string)      {}
func (l *NoopCallback) OnToolEnd(ctx context.Context, tool string, res invoker.Result) {}
func (l *NoopCallback) OnToolNotFound(ctx context.Context, tool string)                {}

// PrinterCallback is a callback handler that prints to the Writer.
type PrinterCallback struct {
	Out io.Writer
}

func NewPrinterCallback(out io.Writer) *PrinterCallback {
	return &PrinterCallback{Out: out}
}

var _ Callback = (*PrinterCallback)(nil)

func (l *PrinterCallback) OnRunStart(ctx context.Context, agent string, input string) {
	fmt.Fprintf(l.Out, "Agent Start: %s\n", agent)
	fmt.Fprintf(l.Out, "Input: %s\n", input)
}

func (l *PrinterCallback) OnRunEnd(ctx context.Context, agent string, answer string) {
	fmt.Fprintf(l.Out, "Agent End: %s\n", agent)
	if answer != "" {
		fmt.Fprintln(l.Out, answer)
	}
}

func (l *PrinterCallback) OnRunError(ctx context.Context, agent string, err error) {
	fmt.Fprintf(l.Out, "Agent Error: %s: %s\n", agent, err.Error())
}

func (l *PrinterCallback) OnToolStart(ctx context.Context, tool string, args string) {
	fmt.Fprintf(l.Out, "Tool Start: %s\n", tool)
	if args != "" {
		fmt.Fprintf(l.Out, "Arguments: %s\n", args)
	}
}

func (l *PrinterCallback) OnToolEnd(ctx context.Context, tool string, res invoker.Result) {
	fmt.Fprintf(l.Out, "Tool End: %s: %s\n", tool, res.Kind)
}

func (l *PrinterCallback) OnToolNotFound(ctx context.Context, tool string) {
	fmt.Fprintf(l.Out, "Tool Not Found: %s\n", tool)
}
