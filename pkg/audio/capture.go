// Package audio moves raw PCM between the machine's audio devices and the
// speech providers by driving ffmpeg and ffplay as child processes.
package audio

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/harunnryd/voxlate/pkg/errorsx"
)

const (
	DefaultSampleRate = 16000
	DefaultFFmpeg     = "ffmpeg"
	DefaultFFplay     = "ffplay"
)

// Source opens a stream of 16-bit little endian mono PCM.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

type MicConfig struct {
	// FFmpegPath defaults to "ffmpeg" from PATH.
	FFmpegPath string
	// Format is the ffmpeg input format (pulse, alsa, avfoundation, dshow).
	Format string
	// Device is the ffmpeg input device.
	Device     string
	SampleRate int
	// Command replaces ffmpeg with a shell command that writes PCM to stdout.
	Command string
}

// MicSource captures the default microphone.
type MicSource struct {
	cfg MicConfig
}

func NewMicSource(cfg MicConfig) *MicSource {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if strings.TrimSpace(cfg.FFmpegPath) == "" {
		cfg.FFmpegPath = DefaultFFmpeg
	}
	return &MicSource{cfg: cfg}
}

func (m *MicSource) SampleRate() int { return m.cfg.SampleRate }

// Open starts the capture process. A missing ffmpeg binary or an
// unsupported platform fails with reason unsupported.
func (m *MicSource) Open(ctx context.Context) (io.ReadCloser, error) {
	name, args, err := m.command(runtime.GOOS)
	if err != nil {
		return nil, err
	}
	if _, err := exec.LookPath(name); err != nil {
		return nil, errorsx.Newf(errorsx.ReasonUnsupported, "audio: %s not found: %w", name, err)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errorsx.Newf(errorsx.ReasonCaptureError, "audio: open capture stdout: %w", err)
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, errorsx.Newf(errorsx.ReasonCaptureError, "audio: start capture: %w", err)
	}
	return &processReader{cmd: cmd, stdout: stdout}, nil
}

func (m *MicSource) command(goos string) (string, []string, error) {
	if cmd := strings.TrimSpace(m.cfg.Command); cmd != "" {
		return "/bin/sh", []string{"-c", cmd}, nil
	}
	format, device := m.cfg.Format, m.cfg.Device
	if format == "" || device == "" {
		defFormat, defDevice, err := defaultInput(goos)
		if err != nil {
			return "", nil, err
		}
		if format == "" {
			format = defFormat
		}
		if device == "" {
			device = defDevice
		}
	}
	return m.cfg.FFmpegPath, []string{
		"-hide_banner", "-loglevel", "error",
		"-f", format, "-i", device,
		"-ac", "1", "-ar", strconv.Itoa(m.cfg.SampleRate),
		"-f", "s16le", "-",
	}, nil
}

func defaultInput(goos string) (string, string, error) {
	switch goos {
	case "darwin":
		return "avfoundation", ":0", nil
	case "linux":
		return "pulse", "default", nil
	case "windows":
		return "dshow", "audio=default", nil
	default:
		return "", "", errorsx.Newf(errorsx.ReasonUnsupported, "audio: mic capture not implemented for %s", goos)
	}
}

type processReader struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

func (p *processReader) Read(b []byte) (int, error) {
	return p.stdout.Read(b)
}

func (p *processReader) Close() error {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	_ = p.cmd.Wait()
	return nil
}

var _ Source = (*MicSource)(nil)

func (m *MicSource) String() string {
	name, args, err := m.command(runtime.GOOS)
	if err != nil {
		return fmt.Sprintf("mic(%v)", err)
	}
	return name + " " + strings.Join(args, " ")
}
