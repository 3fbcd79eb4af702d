package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/harunnryd/voxlate/pkg/errorsx"
	"github.com/harunnryd/voxlate/pkg/pipeline"
	"github.com/harunnryd/voxlate/pkg/runner"
	"github.com/spf13/cobra"
)

const replHelp = `commands:
  once              listen for one utterance
  live              listen continuously
  stop              stop listening
  toggle            switch continuous listening on or off
  say <text>        translate typed text and speak it
  speak [text]      replay the last translation, or speak text
  target <code>     change the target language
  input <code>      change the spoken language
  state             show the current state
  history [n]       show the newest n exchanges
  help              show this help
  quit              leave`

func newLiveCmd(a *app) *cobra.Command {
	var startLive bool
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Interactive session driven by typed commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			engine, err := a.newEngine(cmd.Context(), cmd, cfg, runner.Hooks{})
			if err != nil {
				return err
			}
			defer engine.Close()

			r := newREPL(engine.Controller(), cmd.OutOrStdout())
			if startLive {
				if err := r.execute(cmd.Context(), "live"); err != nil {
					r.printf("error: %v\n", err)
				}
			}
			return r.run(cmd.Context(), cmd.InOrStdin())
		},
	}
	cmd.Flags().BoolVar(&startLive, "start", false, "start continuous listening immediately")
	return cmd
}

var errQuit = errors.New("quit")

// repl maps typed lines onto Controller operations and prints updates.
type repl struct {
	ctrl *pipeline.Controller

	mu  sync.Mutex
	out io.Writer
}

func newREPL(ctrl *pipeline.Controller, out io.Writer) *repl {
	r := &repl{ctrl: ctrl, out: out}
	ctrl.AddListener(pipeline.ListenerFuncs{
		StateChange: func(c pipeline.StateChange) {
			r.printf("[%s]\n", c.To)
		},
		Update: r.onUpdate,
	})
	return r
}

func (r *repl) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

func (r *repl) onUpdate(u pipeline.Update) {
	switch u.Kind {
	case pipeline.UpdateTranscript:
		r.printf("heard: %s\n", u.Transcript)
	case pipeline.UpdateTranslation:
		r.printf("%s: %s\n", u.Target, u.Translation)
	case pipeline.UpdateLanguage:
		r.printf("target=%s input=%s\n", u.Target, u.Input)
	case pipeline.UpdateHistory:
		r.printf("history cleared\n")
	case pipeline.UpdateError:
		if u.ErrorKind == errorsx.KindUnsupported {
			r.printf("speech capture is not available here, type with \"say\"\n")
			return
		}
		r.printf("error (%s): %s\n", u.ErrorKind, u.Error)
	}
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	r.printf("%s\n", replHelp)
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	for {
		r.printf("> ")
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := r.execute(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				r.printf("error: %v\n", err)
			}
		}
	}
}

func (r *repl) execute(ctx context.Context, line string) error {
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)
	switch strings.ToLower(verb) {
	case "":
		return nil
	case "once":
		return r.ctrl.StartOnce()
	case "live":
		return r.ctrl.StartLive()
	case "stop":
		return r.ctrl.Stop()
	case "toggle":
		return r.ctrl.ToggleLive()
	case "say":
		if rest == "" {
			return errors.New("say needs text")
		}
		_, err := r.ctrl.Translate(ctx, rest, true)
		return err
	case "speak":
		return r.ctrl.Speak(rest)
	case "target":
		return r.ctrl.SetTargetLanguage(rest)
	case "input":
		return r.ctrl.SetInputLanguage(rest)
	case "state":
		st := r.ctrl.State()
		r.printf("mode=%s target=%s input=%s history=%d\n", st.Mode, st.Target, st.Input, st.HistoryLen)
		if st.Translation != "" {
			r.printf("last: %s -> %s\n", st.Transcript, st.Translation)
		}
		return nil
	case "history":
		n := 10
		if rest != "" {
			if _, err := fmt.Sscan(rest, &n); err != nil || n <= 0 {
				return fmt.Errorf("bad count %q", rest)
			}
		}
		entries := r.ctrl.History()
		if len(entries) > n {
			entries = entries[:n]
		}
		for _, ex := range entries {
			r.printf("%d [%s] %s -> %s\n", ex.ID, ex.TargetLanguage, ex.SourceText, ex.TranslatedText)
		}
		return nil
	case "help", "?":
		r.printf("%s\n", replHelp)
		return nil
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q", verb)
	}
}
