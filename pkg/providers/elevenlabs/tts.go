package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/harunnryd/voxlate/pkg/adapters/tts"
	"github.com/harunnryd/voxlate/pkg/audio"
	"github.com/harunnryd/voxlate/pkg/errorsx"
	"github.com/harunnryd/voxlate/pkg/logging"
	"github.com/harunnryd/voxlate/pkg/resilience"
)

const defaultBaseURL = "wss://api.elevenlabs.io"

type Config struct {
	APIKey string
	// VoiceID is the default voice.
	VoiceID string
	// Voices maps a BCP-47 locale to a voice id.
	Voices       map[string]string
	ModelID      string
	OutputFormat string
	BaseURL      string
}

// Synthesizer speaks one utterance per stream-input websocket.
type Synthesizer struct {
	cfg        Config
	player     audio.Player
	sampleRate int
	logger     *slog.Logger
}

func New(cfg Config, player audio.Player, logger *slog.Logger) *Synthesizer {
	if cfg.ModelID == "" {
		cfg.ModelID = "eleven_multilingual_v2"
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "pcm_16000"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if player == nil {
		player = audio.DiscardPlayer{}
	}
	return &Synthesizer{
		cfg:        cfg,
		player:     player,
		sampleRate: sampleRateOf(cfg.OutputFormat),
		logger:     logging.NewComponentLogger(logger, "elevenlabs_tts"),
	}
}

func (s *Synthesizer) Name() string { return "elevenlabs" }

// Voices lists the configured locale voices followed by the default voice.
func (s *Synthesizer) Voices(context.Context) ([]tts.Voice, error) {
	locales := make([]string, 0, len(s.cfg.Voices))
	for locale := range s.cfg.Voices {
		locales = append(locales, locale)
	}
	sort.Strings(locales)
	out := make([]tts.Voice, 0, len(locales)+1)
	for _, locale := range locales {
		id := s.cfg.Voices[locale]
		out = append(out, tts.Voice{ID: id, Name: locale, Locale: locale, Default: id == s.cfg.VoiceID})
	}
	if s.cfg.VoiceID != "" {
		out = append(out, tts.Voice{ID: s.cfg.VoiceID, Name: "default", Default: true})
	}
	return out, nil
}

func (s *Synthesizer) Speak(ctx context.Context, u tts.Utterance) error {
	text := strings.TrimSpace(u.Text)
	if text == "" {
		return nil
	}
	voiceID := s.cfg.VoiceID
	if u.Voice != nil && u.Voice.ID != "" {
		voiceID = u.Voice.ID
	}
	if s.cfg.APIKey == "" || voiceID == "" {
		return errorsx.New(errorsx.ReasonSynthesisFailed, "elevenlabs: missing api key or voice")
	}

	endpoint, err := s.buildURL(voiceID)
	if err != nil {
		return err
	}
	dialer := websocket.Dialer{Proxy: http.ProxyFromEnvironment}
	conn, resp, err := dialer.DialContext(ctx, endpoint, http.Header{
		"xi-api-key": []string{s.cfg.APIKey},
	})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			return errorsx.Wrap(resilience.RateLimitFromResponse("elevenlabs", resp, resp.Status), errorsx.ReasonSynthesisConnect)
		}
		return errorsx.Newf(errorsx.ReasonSynthesisConnect, "elevenlabs: dial: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	out, err := s.player.Start(ctx, s.sampleRate)
	if err != nil {
		return err
	}

	var wmu sync.Mutex
	send := func(payload map[string]any) error {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		wmu.Lock()
		defer wmu.Unlock()
		return conn.WriteMessage(websocket.TextMessage, b)
	}

	if err := send(map[string]any{
		"text": " ",
		"voice_settings": map[string]any{
			"stability":        0.5,
			"similarity_boost": 0.8,
		},
	}); err != nil {
		_ = out.Close()
		return errorsx.Newf(errorsx.ReasonSynthesisFailed, "elevenlabs: init: %w", err)
	}
	_ = send(map[string]any{"text": text + " ", "flush": true})
	_ = send(map[string]any{"text": ""})

	s.logger.Debug("speech_streaming",
		slog.String("voice_id", voiceID),
		slog.String("locale", u.Locale),
		slog.Int("chars", len(text)))

	readErr := s.readAudio(conn, out)
	closeErr := out.Close()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if readErr != nil {
		return errorsx.Wrap(readErr, errorsx.ReasonSynthesisFailed)
	}
	return closeErr
}

func (s *Synthesizer) readAudio(conn *websocket.Conn, out io.Writer) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("elevenlabs: read: %w", err)
		}
		var msg struct {
			Audio   *string `json:"audio"`
			IsFinal bool    `json:"isFinal"`
			Error   string  `json:"error"`
			Message string  `json:"message"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("elevenlabs_unparsed_message", slog.Int("bytes", len(data)))
			continue
		}
		if msg.Error != "" {
			return fmt.Errorf("elevenlabs: %s: %s", msg.Error, msg.Message)
		}
		if msg.Audio != nil && *msg.Audio != "" {
			raw, err := base64.StdEncoding.DecodeString(*msg.Audio)
			if err != nil {
				return fmt.Errorf("elevenlabs: decode audio: %w", err)
			}
			if _, err := out.Write(raw); err != nil {
				return fmt.Errorf("elevenlabs: playback: %w", err)
			}
		}
		if msg.IsFinal {
			return nil
		}
	}
}

func (s *Synthesizer) buildURL(voiceID string) (string, error) {
	base, err := url.Parse(strings.TrimRight(s.cfg.BaseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("elevenlabs: base url: %w", err)
	}
	base.Path += "/v1/text-to-speech/" + url.PathEscape(voiceID) + "/stream-input"
	q := url.Values{}
	q.Set("model_id", s.cfg.ModelID)
	q.Set("output_format", s.cfg.OutputFormat)
	q.Set("optimize_streaming_latency", "4")
	base.RawQuery = q.Encode()
	return base.String(), nil
}

// sampleRateOf reads the rate from formats like pcm_16000.
func sampleRateOf(format string) int {
	if i := strings.LastIndex(format, "_"); i >= 0 {
		if n, err := strconv.Atoi(format[i+1:]); err == nil && n > 0 {
			return n
		}
	}
	return audio.DefaultSampleRate
}

var _ tts.Synthesizer = (*Synthesizer)(nil)
