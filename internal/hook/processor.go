package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/watchfire-io/hookwatch/internal/broadcast"
	"github.com/watchfire-io/hookwatch/internal/config"
	"github.com/watchfire-io/hookwatch/internal/models"
	"github.com/watchfire-io/hookwatch/internal/notify"
	"github.com/watchfire-io/hookwatch/internal/permission"
	"github.com/watchfire-io/hookwatch/internal/registry"
	"github.com/watchfire-io/hookwatch/internal/transcript"
	"github.com/watchfire-io/hookwatch/internal/usage"
)

// MaxEventSize bounds the event read from stdin.
const MaxEventSize = 1 << 20

// Options holds the collaborators of a Processor. Stats and Capture are
// optional.
type Options struct {
	Settings    *models.Settings
	Registry    *registry.Store
	Gateway     *permission.Gateway
	Archiver    *transcript.Archiver
	Stats       *usage.Recorder
	Capture     *Capture
	Notifier    notify.Notifier
	Broadcaster broadcast.Broadcaster
	Clock       func() time.Time
}

// Processor dispatches hook events to the registry and the gateway.
type Processor struct {
	settings *models.Settings
	registry *registry.Store
	gateway  *permission.Gateway
	archiver *transcript.Archiver
	stats    *usage.Recorder
	capture  *Capture
	notifier notify.Notifier
	bc       broadcast.Broadcaster
	now      func() time.Time
}

// New creates a processor.
func New(opts Options) *Processor {
	p := &Processor{
		settings: opts.Settings,
		registry: opts.Registry,
		gateway:  opts.Gateway,
		archiver: opts.Archiver,
		stats:    opts.Stats,
		capture:  opts.Capture,
		notifier: opts.Notifier,
		bc:       opts.Broadcaster,
		now:      opts.Clock,
	}
	if p.settings == nil {
		p.settings = models.NewSettings()
	}
	if p.notifier == nil {
		p.notifier = notify.Nop{}
	}
	if p.bc == nil {
		p.bc = broadcast.Nop{}
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Default wires a processor against ~/.hookwatch.
func Default(settings *models.Settings) (*Processor, error) {
	bc, err := broadcast.Default()
	if err != nil {
		return nil, err
	}
	reg, err := registry.Default(registry.WithBroadcaster(bc))
	if err != nil {
		return nil, err
	}
	permDir, err := config.GlobalPermissionDir()
	if err != nil {
		return nil, err
	}
	archiver, err := transcript.DefaultArchiver()
	if err != nil {
		return nil, err
	}
	stats, err := usage.DefaultRecorder()
	if err != nil {
		return nil, err
	}

	gw := permission.New(permDir, permission.Options{
		PollInterval: settings.Permissions.PollInterval(),
		MaxWait:      settings.Permissions.MaxWait(),
		Orphaned:     ParentExited,
	}, bc)

	var notifier notify.Notifier = notify.Nop{}
	if settings.Notifications.Enabled {
		notifier = notify.NewDesktop()
	}

	var capture *Capture
	if settings.Debug.Capture {
		path, err := config.GlobalEventsFile()
		if err != nil {
			return nil, err
		}
		capture = NewCapture(path, settings.Debug.CaptureSize)
	}

	return New(Options{
		Settings:    settings,
		Registry:    reg,
		Gateway:     gw,
		Archiver:    archiver,
		Stats:       stats,
		Capture:     capture,
		Notifier:    notifier,
		Broadcaster: bc,
	}), nil
}

// Process handles one event read from stdin and writes the hook response to
// stdout. Empty or undecodable input is ignored. The returned error is for
// diagnostics only; callers still exit successfully.
func (p *Processor) Process(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	data, err := io.ReadAll(io.LimitReader(stdin, MaxEventSize))
	if err != nil {
		return fmt.Errorf("failed to read event: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		log.Printf("ignoring undecodable event: %v", err)
		return nil
	}

	if p.capture != nil {
		if err := p.capture.Append(data); err != nil {
			log.Printf("debug capture failed: %v", err)
		}
	}

	defer p.bc.Signal()
	return p.dispatch(ctx, &ev, stdout)
}

func (p *Processor) dispatch(ctx context.Context, ev *Event, stdout io.Writer) error {
	if ev.SessionID == "" && ev.HookEventName != EventPreToolUse {
		return nil
	}

	switch ev.HookEventName {
	case EventSessionStart:
		return p.handleSessionStart(ev)
	case EventUserPromptSubmit:
		return p.handlePromptSubmit(ev)
	case EventPreToolUse:
		return p.handlePreToolUse(ev, stdout)
	case EventPermissionRequest:
		return p.handlePermissionRequest(ctx, ev, stdout)
	case EventPostToolUse:
		return p.handlePostToolUse(ev)
	case EventStop:
		return p.handleStop(ev)
	case EventSessionEnd:
		return p.handleSessionEnd(ev)
	default:
		log.Printf("ignoring event %q", ev.HookEventName)
		return nil
	}
}

func (p *Processor) handleSessionStart(ev *Event) error {
	if err := p.registry.UpsertStart(ev.SessionID, ev.Cwd, ev.TranscriptPath); err != nil {
		return err
	}
	if ev.TranscriptPath != "" && config.FileExists(ev.TranscriptPath) {
		// Resumed sessions already have history.
		if _, err := p.archive(ev); err != nil {
			log.Printf("archive on start failed for %s: %v", ev.SessionID, err)
		}
	}
	return nil
}

func (p *Processor) handlePromptSubmit(ev *Event) error {
	prompt := ev.Prompt
	return p.registry.UpdateStatus(ev.SessionID, registry.Update{
		Status:        models.SessionStatusRunning,
		Prompt:        &prompt,
		Reorder:       true,
		ResetDuration: true,
	})
}

func (p *Processor) handlePreToolUse(ev *Event, stdout io.Writer) error {
	if !p.settings.Permissions.Interactive && p.settings.Notifications.Enabled &&
		p.settings.Notifications.NotifiesFor(ev.ToolName) {
		p.notify(fmt.Sprintf("%s needs you", p.sessionName(ev)), ev.ToolName)
	}
	return writeJSON(stdout, map[string]bool{"allow": true})
}

func (p *Processor) handlePermissionRequest(ctx context.Context, ev *Event, stdout io.Writer) error {
	if err := p.registry.UpdateStatus(ev.SessionID, registry.Update{Status: models.SessionStatusPermission}); err != nil {
		return err
	}

	name := p.sessionName(ev)
	if !p.settings.Permissions.Interactive {
		if p.settings.Notifications.Enabled {
			p.notify(fmt.Sprintf("%s needs permission", name), ev.ToolName)
		}
		return nil
	}

	questions := ev.Questions()
	id, err := p.gateway.SubmitRequest(ev.SessionID, ev.ToolName, ev.Cwd, questions)
	if err != nil {
		return errors.Join(err, p.resume(ev.SessionID))
	}
	if p.settings.Notifications.Enabled {
		msg := ev.ToolName
		if n := len(questions); n > 0 {
			msg = fmt.Sprintf("%s: %d question(s)", ev.ToolName, n)
		}
		p.notify(fmt.Sprintf("%s needs permission", name), msg)
	}

	resp, err := p.gateway.WaitForResponse(ctx, id)
	if err != nil || resp == nil {
		// Cancelled or abandoned: the external tool shows its own prompt.
		if err != nil {
			log.Printf("permission request %s: %v", id, err)
		}
		return p.resume(ev.SessionID)
	}

	payload, err := permission.PayloadFor(resp)
	if err != nil {
		return err
	}
	if _, err := stdout.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("failed to write decision: %w", err)
	}
	return nil
}

// handlePostToolUse treats any pending request of the session as resolved by
// the external tool. Nothing correlates the tool use with a specific request,
// so this is a best-effort cleanup.
func (p *Processor) handlePostToolUse(ev *Event) error {
	err := p.resume(ev.SessionID)
	if _, derr := p.gateway.DeletePending(ev.SessionID); derr != nil {
		err = errors.Join(err, derr)
	}
	return err
}

func (p *Processor) handleStop(ev *Event) error {
	if err := p.registry.UpdateStatus(ev.SessionID, registry.Update{
		Status:  models.SessionStatusFinished,
		Reorder: true,
	}); err != nil {
		return err
	}
	if ev.TranscriptPath == "" {
		return nil
	}

	archive, err := p.archive(ev)
	if err != nil {
		return err
	}
	if p.stats != nil {
		total := transcript.Analyze(archive.Entries).Total()
		if err := p.stats.Record(ev.SessionID, projectName(ev.Cwd), total, p.now()); err != nil {
			log.Printf("failed to record usage for %s: %v", ev.SessionID, err)
		}
	}
	return nil
}

func (p *Processor) handleSessionEnd(ev *Event) error {
	var errs []error
	if _, err := p.gateway.DeletePending(ev.SessionID); err != nil {
		errs = append(errs, err)
	}

	rec, ok := p.registry.Get(ev.SessionID)
	switch {
	case !ok:
	case rec.LastPrompt == "":
		errs = append(errs, p.registry.Delete(ev.SessionID))
	default:
		errs = append(errs, p.registry.UpdateStatus(ev.SessionID, registry.Update{Status: models.SessionStatusEnded}))
	}
	return errors.Join(errs...)
}

// archive writes the transcript archive and copies its summary into the record.
func (p *Processor) archive(ev *Event) (*models.Archive, error) {
	archive, err := p.archiver.Archive(ev.SessionID, ev.TranscriptPath)
	if err != nil {
		return nil, err
	}
	prompt, response := archive.Summary.LastPrompt, archive.Summary.LastResponse
	if err := p.registry.UpdateArchiveSummary(ev.SessionID, &prompt, &response); err != nil {
		return archive, err
	}
	return archive, nil
}

func (p *Processor) resume(sessionID string) error {
	return p.registry.UpdateStatus(sessionID, registry.Update{Status: models.SessionStatusRunning})
}

func (p *Processor) notify(title, message string) {
	if err := p.notifier.Notify(title, message); err != nil {
		log.Printf("notification failed: %v", err)
	}
}

func (p *Processor) sessionName(ev *Event) string {
	if rec, ok := p.registry.Get(ev.SessionID); ok && rec.Name != "" {
		return rec.Name
	}
	if name := projectName(ev.Cwd); name != "" {
		return name
	}
	return "Session"
}

func projectName(cwd string) string {
	if cwd == "" {
		return ""
	}
	return filepath.Base(filepath.Clean(cwd))
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
