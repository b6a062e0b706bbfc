package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/kompox/aksgraph/engine"
)

var (
	createColor  = color.New(color.FgGreen)
	updateColor  = color.New(color.FgYellow)
	replaceColor = color.New(color.FgMagenta)
	deleteColor  = color.New(color.FgRed)
	sameColor    = color.New(color.FgHiBlack)
	failColor    = color.New(color.FgRed, color.Bold)
	headingColor = color.New(color.FgHiWhite, color.Bold)
)

func opStyle(op engine.Op) (string, *color.Color) {
	switch op {
	case engine.OpCreate:
		return "+", createColor
	case engine.OpUpdate:
		return "~", updateColor
	case engine.OpReplace:
		return "+-", replaceColor
	case engine.OpDelete:
		return "-", deleteColor
	case engine.OpRead:
		return ">", sameColor
	default:
		return " ", sameColor
	}
}

// renderPlan prints the steps of plan, a summary and the planned outputs.
func renderPlan(w io.Writer, plan *engine.Plan) {
	headingColor.Fprintf(w, "Previewing stack %s\n\n", plan.Graph.Stack())
	for _, s := range plan.Steps {
		sym, c := opStyle(s.Op)
		c.Fprintf(w, "  %-2s %-50s %s\n", sym, s.Type, s.URN.Name())
		if s.Diff != nil && (s.Op == engine.OpUpdate || s.Op == engine.OpReplace) {
			if len(s.Diff.Replaces) > 0 {
				c.Fprintf(w, "       replaces: %s\n", strings.Join(s.Diff.Replaces, ", "))
			}
			c.Fprintf(w, "       changes:  %s\n", strings.Join(s.Diff.Changes, ", "))
		}
	}

	counts := plan.Counts()
	var parts []string
	for _, op := range []engine.Op{engine.OpCreate, engine.OpUpdate, engine.OpReplace, engine.OpDelete, engine.OpSame} {
		if n := counts[op]; n > 0 {
			label := "to " + string(op)
			if op == engine.OpSame {
				label = "unchanged"
			}
			parts = append(parts, fmt.Sprintf("%d %s", n, label))
		}
	}
	fmt.Fprintf(w, "\nResources: %s\n", strings.Join(parts, ", "))
	if !plan.HasChanges() {
		fmt.Fprintln(w, "No changes.")
	}

	if len(plan.Outputs) > 0 {
		headingColor.Fprintln(w, "\nOutputs:")
		renderOutputs(w, plan.Outputs)
	}
}

// renderOutputs prints outputs sorted by name. Secret and unknown values
// render as their markers.
func renderOutputs(w io.Writer, outs map[string]any) {
	keys := make([]string, 0, len(outs))
	for k := range outs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %v\n", k, outs[k])
	}
}

// progressObserver renders engine events as they arrive.
type progressObserver struct {
	mu sync.Mutex
	w  io.Writer
}

func newProgressObserver(w io.Writer) *progressObserver {
	return &progressObserver{w: w}
}

func (o *progressObserver) OnEvent(ev engine.Event) {
	if ev.Step == nil || ev.Op == engine.OpSame || ev.Op == engine.OpRead {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	sym, c := opStyle(ev.Op)
	name := ev.Step.URN.Name()
	switch ev.Type {
	case engine.EventStepStarted:
		c.Fprintf(o.w, "  %-2s %s %s ...\n", sym, ev.Step.Type, name)
	case engine.EventStepDone:
		c.Fprintf(o.w, "  %-2s %s %s %sd (%.1fs)\n", sym, ev.Step.Type, name, ev.Op, ev.Elapsed.Seconds())
	case engine.EventStepFailed:
		failColor.Fprintf(o.w, "  !! %s %s failed: %v\n", ev.Step.Type, name, ev.Err)
	case engine.EventStepSkipped:
		sameColor.Fprintf(o.w, "     %s %s skipped\n", ev.Step.Type, name)
	}
}

