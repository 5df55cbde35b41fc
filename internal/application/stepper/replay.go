package stepper

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/penwyp/go-flight-stepper/internal/core/model"
	"github.com/penwyp/go-flight-stepper/internal/util"
)

// ActionCall names an action and the raw request payload it is called with.
type ActionCall struct {
	Name string
	Args string
}

// ParseActionCall parses "name" or "name:args".
func ParseActionCall(s string) (ActionCall, error) {
	name, args, _ := strings.Cut(s, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return ActionCall{}, errors.New("action name is empty")
	}
	return ActionCall{Name: name, Args: args}, nil
}

// ReplayOptions drives a non-interactive replay.
type ReplayOptions struct {
	Actions []ActionCall
	Steps   int  // rows to release; negative releases everything
	Skip    bool // release one whole entry per step instead of one row
}

// ReplayResult is the timeline state after a replay.
type ReplayResult struct {
	Entries     []model.EntryView
	Received    [][]byte
	Cursor      int
	TotalChunks int
	Steps       int
}

// Replay loads the render response, appends the requested actions, releases
// rows and waits for every consumer to catch up.
func Replay(ctx context.Context, producer Producer, config Config, opts ReplayOptions) (*ReplayResult, error) {
	session, err := NewSession(producer, config)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	if err := session.Restart(ctx); err != nil {
		return nil, err
	}
	if err := session.WaitBuffered(ctx); err != nil {
		return nil, err
	}
	for _, call := range opts.Actions {
		if err := session.AddAction(ctx, call.Name, call.Args); err != nil {
			return nil, err
		}
	}

	steps := 0
	for opts.Steps < 0 || steps < opts.Steps {
		var moved bool
		if opts.Skip {
			moved = session.SkipEntry() > 0
		} else {
			moved = session.Step()
		}
		if !moved {
			break
		}
		steps++
	}

	if err := session.Settle(ctx); err != nil {
		return nil, fmt.Errorf("wait for consumers: %w", err)
	}

	snap := session.Timeline().Snapshot()
	result := &ReplayResult{
		Entries:     session.Views(),
		Cursor:      snap.Cursor,
		TotalChunks: snap.TotalChunks,
		Steps:       steps,
	}
	for i := range result.Entries {
		result.Received = append(result.Received, session.Received(i))
	}

	util.LogInfo("replay finished",
		util.F("steps", steps),
		util.F("cursor", result.Cursor),
		util.F("total", result.TotalChunks))
	return result, nil
}
