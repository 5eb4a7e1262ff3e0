package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// CommandPlayer plays audio files through an external player such as
// mpg123 or afplay. The file path is appended to the command.
type CommandPlayer struct {
	program string
	args    []string
}

func NewCommandPlayer(command []string) *CommandPlayer {
	if len(command) == 0 {
		command = []string{"mpg123", "-q"}
	}
	return &CommandPlayer{
		program: command[0],
		args:    command[1:],
	}
}

func (p *CommandPlayer) Play(ctx context.Context, path string) error {
	args := append(append([]string{}, p.args...), path)
	cmd := exec.CommandContext(ctx, p.program, args...)

	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("running %s: %w: %s", p.program, err, bytes.TrimSpace(out))
	}
	return nil
}
