// Package trace reads and writes YAML event traces and replays them through
// the lifecycle model.
//
// A trace is a YAML sequence of flat events:
//
//	- {kind: CreateWindow, window: 1, descriptor: {title: demo, width: 640, height: 480, mode: windowed}}
//	- {kind: WindowCreated, window: 1}
//	- {kind: WindowResized, window: 1, width: 800, height: 600}
package trace

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/winstate/internal/event"
)

// Load reads a trace file.
func Load(path string) ([]event.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes a trace. name prefixes error positions.
func Parse(data []byte, name string) ([]event.Event, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: failed to parse yaml: %w", name, err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%s:%d:%d: trace must be a sequence of events", name, root.Line, root.Column)
	}

	events := make([]event.Event, 0, len(root.Content))
	for i, item := range root.Content {
		var w event.Wire
		if err := item.Decode(&w); err != nil {
			return nil, fmt.Errorf("%s:%d:%d: event %d: %w", name, item.Line, item.Column, i, err)
		}
		ev, err := event.FromWire(w)
		if err != nil {
			return nil, fmt.Errorf("%s:%d:%d: event %d: %w", name, item.Line, item.Column, i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// Write encodes events as a trace.
func Write(w io.Writer, events []event.Event) error {
	for _, ev := range events {
		if err := writeOne(w, ev); err != nil {
			return err
		}
	}
	return nil
}

// writeOne appends ev as one sequence item. Concatenated items form a
// single valid sequence, so a trace can be appended to while it grows.
func writeOne(w io.Writer, ev event.Event) error {
	wire, err := event.ToWire(ev)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal([]event.Wire{wire})
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", ev.Kind(), err)
	}
	_, err = w.Write(data)
	return err
}
