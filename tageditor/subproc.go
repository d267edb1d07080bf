package tageditor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/google/shlex"
)

func init() {
	Register("subproc", NewSubproc)
}

type Subproc struct {
	command string
	args    []string
}

func NewSubproc(conf string) (Subproc, error) {
	parts, err := shlex.Split(conf)
	if err != nil {
		return Subproc{}, err
	}
	if len(parts) == 0 {
		return Subproc{}, fmt.Errorf("no command provided")
	}
	return Subproc{command: parts[0], args: parts[1:]}, nil
}

const (
	markerCover = "<cover>"
	markerFiles = "<files>"
)

func (s Subproc) WriteCover(ctx context.Context, mediaPath, coverPath string) error {
	var args []string
	for _, arg := range s.args {
		switch arg {
		case markerFiles:
			args = append(args, mediaPath)
		default:
			// the cover may be part of a larger arg, like metaflac's picture spec
			args = append(args, strings.ReplaceAll(arg, markerCover, coverPath))
		}
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.command, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("run cmd: %w: %s", err, msg)
		}
		return fmt.Errorf("run cmd: %w", err)
	}
	return nil
}

func (s Subproc) Available() bool {
	_, err := exec.LookPath(s.command)
	return err == nil
}

func (s Subproc) String() string {
	args := fmt.Sprintf("%q", append([]string{s.command}, s.args...))
	args = strings.TrimPrefix(args, "[")
	args = strings.TrimSuffix(args, "]")
	return fmt.Sprintf("subproc (%s)", args)
}
