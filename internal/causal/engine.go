package causal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"golang.org/x/sync/errgroup"
)

// Engine — внешний причинный движок: принимает одно событие, возвращает NDJSON.
// Повторная отправка того же события должна давать тот же ответ.
type Engine interface {
	Process(ctx context.Context, ev Event) ([]byte, error)
}

// ErrEngineUnavailable — движок не настроен.
var ErrEngineUnavailable = errors.New("causal engine is not configured")

// ProcessEngine запускает движок отдельным процессом на каждое событие:
// событие пишется в stdin, ответ читается из stdout.
type ProcessEngine struct {
	Path    string
	Args    []string
	Timeout time.Duration
}

func NewProcessEngine(command []string, timeout time.Duration) *ProcessEngine {
	if len(command) == 0 {
		return &ProcessEngine{Timeout: timeout}
	}
	return &ProcessEngine{Path: command[0], Args: command[1:], Timeout: timeout}
}

func (e *ProcessEngine) Process(ctx context.Context, ev Event) ([]byte, error) {
	if e.Path == "" {
		return nil, ErrEngineUnavailable
	}
	input, err := ev.Encode()
	if err != nil {
		return nil, err
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.Path, e.Args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start engine %s: %w", e.Path, err)
	}

	var out bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		defer stdin.Close()
		_, err := stdin.Write(input)
		return err
	})
	g.Go(func() error {
		_, err := out.ReadFrom(stdout)
		return err
	})
	ioErr := g.Wait()
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("engine %s (vote event %d): %w: %s", e.Path, ev.VoteEventID, err, bytes.TrimSpace(stderr.Bytes()))
	}
	if ioErr != nil {
		return nil, fmt.Errorf("engine %s i/o: %w", e.Path, ioErr)
	}
	return out.Bytes(), nil
}
