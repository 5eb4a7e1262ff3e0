package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// CommandCapture records by spawning a command-line recorder (sox's rec,
// arecord) that writes raw 16-bit mono PCM to stdout.
type CommandCapture struct {
	program string
	args    []string
	logger  *slog.Logger

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewCommandCapture builds a capture for program. When args is empty the
// arguments are derived from the program name; otherwise every "{rate}" in
// args is replaced by the sample rate.
func NewCommandCapture(program string, args []string, logger *slog.Logger) *CommandCapture {
	if program == "" {
		program = "rec"
	}
	return &CommandCapture{
		program: program,
		args:    args,
		logger:  logger,
	}
}

func (c *CommandCapture) Name() string {
	return "command"
}

func (c *CommandCapture) Start(ctx context.Context, sampleRate int) (io.ReadCloser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd != nil {
		return nil, fmt.Errorf("%s already running", c.program)
	}

	cmd := exec.CommandContext(ctx, c.program, c.buildArgs(sampleRate)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", c.program, err)
	}

	c.cmd = cmd
	c.logger.Info("recorder started", "program", c.program, "sampleRate", sampleRate)
	return stdout, nil
}

func (c *CommandCapture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd == nil {
		return nil
	}

	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	if err := c.cmd.Wait(); err != nil {
		c.logger.Debug("recorder exited", "program", c.program, "error", err)
	}
	c.cmd = nil
	return nil
}

func (c *CommandCapture) buildArgs(sampleRate int) []string {
	rate := strconv.Itoa(sampleRate)

	if len(c.args) > 0 {
		args := make([]string, len(c.args))
		for i, a := range c.args {
			args[i] = strings.ReplaceAll(a, "{rate}", rate)
		}
		return args
	}

	switch filepath.Base(c.program) {
	case "arecord":
		return []string{"-q", "-r", rate, "-c", "1", "-f", "S16_LE", "-t", "raw"}
	case "sox":
		return []string{"-q", "-d", "-r", rate, "-c", "1", "-b", "16", "-e", "signed-integer", "-t", "raw", "-"}
	default:
		return []string{"-q", "-r", rate, "-c", "1", "-b", "16", "-e", "signed-integer", "-t", "raw", "-"}
	}
}
