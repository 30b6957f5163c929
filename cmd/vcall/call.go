package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/satoru2478-wq/v-calls/internal/adapters/media"
	"github.com/satoru2478-wq/v-calls/internal/adapters/rtc"
	sig "github.com/satoru2478-wq/v-calls/internal/adapters/signal"
	"github.com/satoru2478-wq/v-calls/internal/app/negotiation"
	"github.com/satoru2478-wq/v-calls/internal/config"
	"github.com/satoru2478-wq/v-calls/internal/core"
	"github.com/satoru2478-wq/v-calls/internal/domain"
	"github.com/satoru2478-wq/v-calls/internal/logging"
	"github.com/satoru2478-wq/v-calls/internal/ui"
)

const (
	hangupCommand = "/hangup"
	muteCommand   = "/mute"
	unmuteCommand = "/unmute"
)

type call struct {
	session    *domain.Session
	cfg        *config.PeerConfig
	transports core.TransportFactory
	in         io.Reader
	console    *ui.Console
}

func runCall(ctx context.Context, cfg *config.PeerConfig, address string, in io.Reader, out io.Writer) error {
	logging.Init(cfg.LogLevel)

	var (
		session *domain.Session
		err     error
	)
	if address == "" {
		session, err = domain.NewSession("")
	} else {
		session, err = domain.SessionFromAddress(address)
	}
	if err != nil {
		return err
	}

	factory, err := rtc.NewFactory(rtc.Options{ICEServers: cfg.ICEServers})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &call{session: session, cfg: cfg, transports: factory, in: in, console: ui.NewConsole(out)}
	return c.run(ctx)
}

func (c *call) source() core.MediaSource {
	if c.cfg.AudioFile != "" {
		return media.OggFile{Path: c.cfg.AudioFile}
	}
	return media.Silence{}
}

func (c *call) run(ctx context.Context) error {
	logger := log.With().Str("module", "vcall").Str("room", string(c.session.Room())).Logger()

	if c.session.Initiator() {
		link, err := c.session.ShareURL(c.cfg.ShareBase)
		if err != nil {
			return err
		}
		c.console.Invite(string(c.session.Room()), link)
	} else {
		c.console.Joining(string(c.session.Room()))
	}

	client, err := sig.Dial(ctx, c.cfg.RelayURL, sig.Options{})
	if err != nil {
		return err
	}
	defer client.Close()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var recordings sync.WaitGroup
	ncfg := negotiation.DefaultConfig()
	if c.cfg.CandidateBufferLimit > 0 {
		ncfg.BufferLimit = c.cfg.CandidateBufferLimit
	}
	engine := negotiation.New(negotiation.Deps{
		Session:    c.session,
		Signal:     client,
		Media:      c.source(),
		Transports: c.transports,
		Handlers: negotiation.Handlers{
			OnPhase: c.console.Phase,
			OnError: c.console.Error,
			OnChat:  c.console.Chat,
			OnRemoteTrack: func(track *webrtc.TrackRemote) {
				if c.cfg.Record == "" {
					return
				}
				recordings.Add(1)
				go func() {
					defer recordings.Done()
					c.record(track)
				}()
			},
		},
	}, ncfg)

	go func() {
		err := client.Run(ctx, engine.Deliver)
		if errors.Is(err, sig.ErrTransportLoss) {
			c.console.Warning("relay connection lost; the call continues without signaling")
		}
	}()
	go c.readInput(engine)

	engine.Start()
	err = engine.Run(ctx)
	recordings.Wait()
	logger.Info().Msg("call finished")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *call) record(track *webrtc.TrackRemote) {
	rec, err := media.NewRecorder(c.cfg.Record, track.Codec().Channels)
	if err != nil {
		c.console.Error(err)
		return
	}
	if err := rec.Record(track); err != nil {
		log.Warn().Err(err).Str("module", "vcall").Msg("recording stopped")
	}
	if err := rec.Close(); err != nil {
		c.console.Error(fmt.Errorf("close recording: %w", err))
		return
	}
	c.console.Info("remote audio saved to " + c.cfg.Record)
}

// readInput turns stdin lines into chat until /hangup or EOF. /mute and
// /unmute toggle the local audio.
func (c *call) readInput(engine *negotiation.Engine) {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == hangupCommand:
			engine.Hangup()
			return
		case line == muteCommand, line == unmuteCommand:
			c.setMic(engine, line == unmuteCommand)
		default:
			engine.SendChat(line)
		}
	}
}

func (c *call) setMic(engine *negotiation.Engine, on bool) {
	live := engine.SetMicEnabled(on)
	switch {
	case !live:
		c.console.Warning("no audio yet; the setting applies once the call starts")
	case on:
		c.console.Info("microphone on")
	default:
		c.console.Info("microphone muted")
	}
}
