package audio

import (
	"context"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/harunnryd/voxlate/pkg/errorsx"
)

// Player plays one utterance. Bytes written to the returned writer are PCM;
// Close waits for playback to drain. Cancelling ctx stops playback.
type Player interface {
	Start(ctx context.Context, sampleRate int) (io.WriteCloser, error)
}

// FFplayPlayer pipes PCM into an ffplay child process.
type FFplayPlayer struct {
	Path string
}

func NewFFplayPlayer(path string) *FFplayPlayer {
	if strings.TrimSpace(path) == "" {
		path = DefaultFFplay
	}
	return &FFplayPlayer{Path: path}
}

func (p *FFplayPlayer) Start(ctx context.Context, sampleRate int) (io.WriteCloser, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if _, err := exec.LookPath(p.Path); err != nil {
		return nil, errorsx.Newf(errorsx.ReasonUnsupported, "audio: %s not found: %w", p.Path, err)
	}
	cmd := exec.CommandContext(ctx, p.Path, playbackArgs(sampleRate)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errorsx.Newf(errorsx.ReasonSynthesisFailed, "audio: open ffplay stdin: %w", err)
	}
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, errorsx.Newf(errorsx.ReasonSynthesisFailed, "audio: start ffplay: %w", err)
	}
	return &processWriter{cmd: cmd, stdin: stdin}, nil
}

func playbackArgs(sampleRate int) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostats",
		"-nodisp",
		"-autoexit",
		"-f", "s16le",
		"-ch_layout", "mono",
		"-ar", strconv.Itoa(sampleRate),
		"-i", "-",
	}
}

type processWriter struct {
	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
	done  bool
	err   error
}

func (w *processWriter) Write(b []byte) (int, error) {
	return w.stdin.Write(b)
}

// Close ends the input and waits for ffplay to exit.
func (w *processWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return w.err
	}
	w.done = true
	_ = w.stdin.Close()
	w.err = w.cmd.Wait()
	return w.err
}

// DiscardPlayer swallows audio. Used when no speaker is configured.
type DiscardPlayer struct{}

func (DiscardPlayer) Start(context.Context, int) (io.WriteCloser, error) {
	return nopWriteCloser{}, nil
}

type nopWriteCloser struct{}

func (nopWriteCloser) Write(b []byte) (int, error) { return len(b), nil }
func (nopWriteCloser) Close() error                { return nil }

var (
	_ Player = (*FFplayPlayer)(nil)
	_ Player = DiscardPlayer{}
)
