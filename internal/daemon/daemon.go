package daemon

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leonardotrapani/speechcoach/internal/bus"
	"github.com/leonardotrapani/speechcoach/internal/coach"
	"github.com/leonardotrapani/speechcoach/internal/config"
	"github.com/leonardotrapani/speechcoach/internal/jobs"
	"github.com/leonardotrapani/speechcoach/internal/notify"
	"github.com/leonardotrapani/speechcoach/internal/render"
	"github.com/leonardotrapani/speechcoach/internal/tts"
)

const purgeInterval = time.Minute

// Daemon owns the microphone and serves control commands over the unix socket.
type Daemon struct {
	coach  *coach.Coach
	cache  *tts.Cache
	config *config.Manager

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a daemon around c. cache and mgr may be nil.
func New(c *coach.Coach, cache *tts.Cache, mgr *config.Manager) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		coach:  c,
		cache:  cache,
		config: mgr,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()
	defer d.coach.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("Received signal %v, shutting down gracefully", sig)
			d.cancel()
		case <-d.ctx.Done():
		}
	}()

	if d.cache != nil {
		go d.cache.Run(d.ctx, purgeInterval)
	}

	if d.config != nil {
		d.config.OnReload(d.applyConfig)
		if err := d.config.StartWatching(d.ctx); err != nil {
			log.Printf("Config watching disabled: %v", err)
		} else {
			defer d.config.Stop()
		}
	}

	// Close the listener when context is done
	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	log.Printf("Daemon started, listening on socket")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				log.Printf("Shutdown requested")
				return nil
			}
			log.Printf("Accept error: %v", err)
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

// Stop asks Run to return.
func (d *Daemon) Stop() {
	d.cancel()
}

func (d *Daemon) applyConfig(cfg *config.Config) {
	messenger := cfg.Messenger()
	d.coach.Apply(cfg.ToCoachOptions(), messenger)
	messenger.Send(notify.MsgConfigReloaded, "")
	log.Printf("Daemon: configuration reloaded (language=%s)", cfg.UI.Language)
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Printf("Client read error: %v", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	cmd, arg, err := bus.ParseCommand(line)
	if err != nil {
		fmt.Fprint(c, "ERR empty\n")
		return
	}

	switch cmd {
	case bus.CmdToggle:
		status, err := d.coach.Toggle(d.ctx)
		if err != nil {
			log.Printf("Toggle failed: %v", err)
			fmt.Fprintf(c, "ERR %s\n", oneLine(render.UserMessage(err)))
			return
		}
		fmt.Fprintf(c, "STATUS status=%s\n", status)
	case bus.CmdReference:
		d.coach.SetReference(arg)
		if d.coach.Reference() == "" {
			fmt.Fprint(c, "OK reference cleared\n")
		} else {
			fmt.Fprint(c, "OK reference set\n")
		}
	case bus.CmdStatus:
		fmt.Fprintln(c, d.statusLine())
	case bus.CmdCancel:
		d.coach.Cancel()
		fmt.Fprint(c, "OK cancelled\n")
	case bus.CmdVersion:
		fmt.Fprintf(c, "STATUS proto=%s\n", bus.ProtoVer)
	case bus.CmdQuit:
		fmt.Fprint(c, "OK quitting\n")
		d.cancel()
	default:
		log.Printf("Unknown command: %c", cmd)
		fmt.Fprintf(c, "ERR unknown=%q\n", cmd)
	}
}

// statusLine reports the coach state; quoted values may contain spaces.
func (d *Daemon) statusLine() string {
	line := fmt.Sprintf("STATUS status=%s elapsed=%d language=%s reference=%q",
		d.coach.Status(), d.coach.Elapsed(), d.coach.Language(), d.coach.Reference())

	tj := d.coach.TranscriptionJob()
	line += fmt.Sprintf(" transcription=%s", tj.State)
	if tj.State.IsPolling() {
		line += fmt.Sprintf(" transcription_progress=%d", tj.Progress)
	}
	if tj.State == jobs.Completed && tj.HasResult {
		line += fmt.Sprintf(" transcript=%q", tj.Result)
	}
	if tj.State == jobs.Failed {
		line += fmt.Sprintf(" transcription_error=%q", tj.Message())
	}

	pj := d.coach.PronunciationJob()
	line += fmt.Sprintf(" pronunciation=%s", pj.State)
	if pj.State.IsPolling() {
		line += fmt.Sprintf(" pronunciation_progress=%d", pj.Progress)
	}
	if pj.State == jobs.Completed && pj.HasResult {
		line += fmt.Sprintf(" score=%.1f errors=%d", pj.Result.OverallScore, len(pj.Result.PronunciationErrors))
	}
	if pj.State == jobs.Failed {
		line += fmt.Sprintf(" pronunciation_error=%q", pj.Message())
	}
	return line
}

func oneLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' || s[i] == '\r' {
			return s[:i]
		}
	}
	return s
}
