package audio

import (
	"context"
	"io"
	"runtime"
	"strings"
	"testing"

	"github.com/harunnryd/voxlate/pkg/errorsx"
)

func TestMicCommandDefaults(t *testing.T) {
	m := NewMicSource(MicConfig{})
	name, args, err := m.command("linux")
	if err != nil {
		t.Fatalf("command: %v", err)
	}
	joined := strings.Join(args, " ")
	if name != "ffmpeg" || !strings.Contains(joined, "-f pulse -i default") || !strings.Contains(joined, "-ar 16000") {
		t.Fatalf("unexpected command %s %s", name, joined)
	}
	if _, _, err := m.command("plan9"); !errorsx.HasReason(err, errorsx.ReasonUnsupported) {
		t.Fatalf("expected unsupported platform, got %v", err)
	}
}

func TestMicCommandOverride(t *testing.T) {
	m := NewMicSource(MicConfig{Command: "arecord -q -f S16_LE -r 16000 -c 1 -t raw"})
	name, args, err := m.command("plan9")
	if err != nil {
		t.Fatalf("override should not depend on platform: %v", err)
	}
	if name != "/bin/sh" || args[0] != "-c" || !strings.HasPrefix(args[1], "arecord") {
		t.Fatalf("unexpected override %s %v", name, args)
	}
}

func TestMicMissingBinaryIsUnsupported(t *testing.T) {
	m := NewMicSource(MicConfig{FFmpegPath: "voxlate-no-such-ffmpeg", Format: "pulse", Device: "default"})
	_, err := m.Open(context.Background())
	if !errorsx.HasReason(err, errorsx.ReasonUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
}

func TestMicCommandStreamsStdout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	m := NewMicSource(MicConfig{Command: "printf pcm"})
	r, err := m.Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	b, _ := io.ReadAll(r)
	_ = r.Close()
	if string(b) != "pcm" {
		t.Fatalf("expected pcm, got %q", b)
	}
}

func TestPlaybackArgs(t *testing.T) {
	joined := strings.Join(playbackArgs(22050), " ")
	if !strings.Contains(joined, "-ar 22050") || !strings.HasSuffix(joined, "-i -") {
		t.Fatalf("unexpected args %s", joined)
	}
}

func TestDiscardPlayer(t *testing.T) {
	w, err := DiscardPlayer{}.Start(context.Background(), 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if n, _ := w.Write([]byte{1, 2}); n != 2 {
		t.Fatalf("expected full write")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
