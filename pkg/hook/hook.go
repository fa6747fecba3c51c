// Package hook runs user supplied shell commands before and after an extraction run.
package hook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/paulschiretz/pgl-gunzip/pkg/hints"
	"github.com/paulschiretz/pgl-gunzip/pkg/plog"
)

var ErrNothingToExecute = hints.New("nothing to execute")
var ErrDisabled = hints.New("hook execution is disabled")

type HookExecutor struct {
	// commandContext allows mocking os/exec for testing hooks.
	commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd
}

// NewHookExecutor creates a HookExecutor. Pass exec.CommandContext outside of tests.
func NewHookExecutor(commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd) *HookExecutor {
	return &HookExecutor{
		commandContext: commandContext,
	}
}

// RunPreHook runs the plan's pre-extract commands in order.
func (e *HookExecutor) RunPreHook(ctx context.Context, hookName string, p *Plan) error {
	if !p.Enabled {
		return ErrDisabled
	}
	if len(p.PreHookCommands) == 0 {
		return ErrNothingToExecute
	}
	plog.Info(fmt.Sprintf("Running pre-%s hook commands", hookName))
	return e.runCommands(ctx, p.PreHookCommands, p)
}

// RunPostHook runs the plan's post-extract commands in order.
func (e *HookExecutor) RunPostHook(ctx context.Context, hookName string, p *Plan) error {
	if !p.Enabled {
		return ErrDisabled
	}
	if len(p.PostHookCommands) == 0 {
		return ErrNothingToExecute
	}
	plog.Info(fmt.Sprintf("Running post-%s hook commands", hookName))
	return e.runCommands(ctx, p.PostHookCommands, p)
}

func (e *HookExecutor) runCommands(ctx context.Context, commands []string, p *Plan) error {
	for _, hookCommand := range commands {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if p.DryRun {
			plog.Info("[DRY RUN] Executing command", "command", hookCommand)
			continue
		}
		plog.Info("Executing command", "command", hookCommand)

		cmd := e.createCommand(ctx, hookCommand)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			// A canceled context kills the process group, report the cancellation instead of the exit status.
			if errors.Is(ctx.Err(), context.Canceled) {
				return context.Canceled
			}
			if p.FailFast {
				return fmt.Errorf("command '%s' failed: %w", hookCommand, err)
			}
			plog.Warn("Hook command failed", "command", hookCommand, "error", err)
		}
	}
	return nil
}
