// Package deepgram streams linear16 PCM over a websocket to the Deepgram
// live-transcription endpoint.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/kirillkom/dash-voice/internal/transcription"
)

const (
	defaultListenURL  = "wss://api.deepgram.com/v1/listen"
	defaultModel      = "nova-2"
	defaultSampleRate = 16000

	// Per-word boost applied to the configured vocabulary.
	keywordBoost = 2
)

// AudioSource yields float32 sample frames for the session duration. Stop
// releases the underlying capture resources and closes the frame channel.
type AudioSource interface {
	Start(ctx context.Context) (<-chan []float32, error)
	Stop()
}

// TokenSource provides the short-lived client credential carried in the
// websocket subprotocol.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type Config struct {
	ListenURL  string
	Model      string
	SampleRate int
	Keywords   []string
}

func (c Config) withDefaults() Config {
	if c.ListenURL == "" {
		c.ListenURL = defaultListenURL
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.SampleRate <= 0 {
		c.SampleRate = defaultSampleRate
	}
	return c
}

// Client is the cloud transcription.Source. One Client runs one session.
type Client struct {
	cfg      Config
	tokens   TokenSource
	audio    AudioSource
	handlers transcription.Handlers

	conn    *websocket.Conn
	cancel  context.CancelFunc
	cleanup sync.Once
}

func NewClient(cfg Config, tokens TokenSource, audio AudioSource, handlers transcription.Handlers) *Client {
	return &Client{
		cfg:      cfg.withDefaults(),
		tokens:   tokens,
		audio:    audio,
		handlers: handlers,
	}
}

// Start acquires the client token before touching the audio source, so an
// unavailable provider fails fast without claiming the microphone.
func (c *Client) Start(ctx context.Context) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("transcription token: %w", err)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	frames, err := c.audio.Start(sessionCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("start audio source: %w", err)
	}

	wsConfig, err := websocket.NewConfig(listenURL(c.cfg), "http://localhost")
	if err != nil {
		c.release()
		return fmt.Errorf("websocket config: %w", err)
	}
	wsConfig.Protocol = []string{"token", token}

	conn, err := websocket.DialConfig(wsConfig)
	if err != nil {
		c.release()
		return fmt.Errorf("dial deepgram: %w", err)
	}
	c.conn = conn

	go c.writeLoop(frames)
	go c.readLoop()
	return nil
}

// Stop sends the close sentinel and releases the session. Safe to call more
// than once; OnEnd still fires exactly once via the read loop teardown.
func (c *Client) Stop() {
	c.release()
}

func (c *Client) writeLoop(frames <-chan []float32) {
	for frame := range frames {
		if err := websocket.Message.Send(c.conn, pcm16le(frame)); err != nil {
			slog.Warn("deepgram_audio_send_failed", "error", err)
			return
		}
	}
}

func (c *Client) readLoop() {
	defer func() {
		c.release()
		c.handlers.OnEnd()
	}()

	for {
		var raw []byte
		if err := websocket.Message.Receive(c.conn, &raw); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
				c.handlers.OnError(fmt.Errorf("deepgram receive: %w", err))
			}
			return
		}
		c.dispatch(raw)
	}
}

func (c *Client) dispatch(raw []byte) {
	var msg struct {
		Type    string `json:"type"`
		IsFinal bool   `json:"is_final"`
		Channel struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channel"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		slog.Warn("deepgram_message_decode_failed", "error", err)
		return
	}
	if msg.Type != "Results" || len(msg.Channel.Alternatives) == 0 {
		return
	}

	alt := msg.Channel.Alternatives[0]
	if alt.Transcript == "" {
		return
	}
	c.handlers.OnResult(transcription.Result{
		Text:       alt.Transcript,
		Final:      msg.IsFinal,
		Confidence: alt.Confidence,
	})
}

// release runs the teardown exactly once regardless of which exit path gets
// there first: explicit stop, read error, or provider-initiated close.
func (c *Client) release() {
	c.cleanup.Do(func() {
		if c.conn != nil {
			if err := websocket.JSON.Send(c.conn, map[string]string{"type": "CloseStream"}); err != nil {
				slog.Debug("deepgram_close_sentinel_failed", "error", err)
			}
			_ = c.conn.Close()
		}
		c.audio.Stop()
		if c.cancel != nil {
			c.cancel()
		}
	})
}

func listenURL(cfg Config) string {
	params := url.Values{}
	params.Set("model", cfg.Model)
	params.Set("punctuate", "true")
	params.Set("smart_format", "true")
	params.Set("interim_results", "true")
	params.Set("endpointing", "300")
	params.Set("utterance_end_ms", "1500")
	params.Set("encoding", "linear16")
	params.Set("sample_rate", strconv.Itoa(cfg.SampleRate))
	params.Set("channels", "1")
	for _, kw := range cfg.Keywords {
		params.Add("keywords", fmt.Sprintf("%s:%d", kw, keywordBoost))
	}
	return cfg.ListenURL + "?" + params.Encode()
}
