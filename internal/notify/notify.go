package notify

import (
	"fmt"
	"log"
	"os/exec"
)

const appName = "Speechcoach"

type MessageType int

const (
	MsgRecordingStarted MessageType = iota
	MsgRecordingEnded
	MsgTranscribing
	MsgAnalyzing
	MsgJobCompleted
	MsgJobFailed
	MsgOperationCancelled
	MsgConfigReloaded
	MsgPlaybackBlocked
)

// MessageDef is a user-visible message with its config key and defaults.
type MessageDef struct {
	Type         MessageType
	ConfigKey    string
	DefaultTitle string
	DefaultBody  string
	IsError      bool
}

var MessageDefs = []MessageDef{
	{MsgRecordingStarted, "recording_started", appName, "Recording Started", false},
	{MsgRecordingEnded, "recording_ended", appName, "Recording Ended", false},
	{MsgTranscribing, "transcribing", appName, "Transcribing...", false},
	{MsgAnalyzing, "analyzing", appName, "Analyzing pronunciation...", false},
	{MsgJobCompleted, "job_completed", appName, "Result ready", false},
	{MsgJobFailed, "job_failed", appName + " Error", "Processing failed", true},
	{MsgOperationCancelled, "operation_cancelled", appName, "Operation Cancelled", false},
	{MsgConfigReloaded, "config_reloaded", appName, "Config Reloaded", false},
	{MsgPlaybackBlocked, "playback_blocked", appName + " Error", "Audio playback was blocked", true},
}

type Message struct {
	Title   string
	Body    string
	IsError bool
}

// DefaultMessages returns every message with its default text.
func DefaultMessages() map[MessageType]Message {
	msgs := make(map[MessageType]Message, len(MessageDefs))
	for _, def := range MessageDefs {
		msgs[def.Type] = Message{Title: def.DefaultTitle, Body: def.DefaultBody, IsError: def.IsError}
	}
	return msgs
}

type Notifier interface {
	RecordingStarted()
	RecordingEnded()
	Transcribing()
	Analyzing()
	Aborted()
	Error(msg string)
	Notify(title, message string)
	Send(msg Message)
}

// New returns the notifier for a notifications.type value.
func New(kind string) Notifier {
	switch kind {
	case "desktop":
		return Desktop{}
	case "log":
		return Log{}
	default:
		return Nop{}
	}
}

type Desktop struct{}

func (d Desktop) RecordingStarted() { d.Notify(appName, "Recording Started") }
func (d Desktop) RecordingEnded()   { d.Notify(appName, "Recording Ended") }
func (d Desktop) Transcribing()     { d.Notify(appName, "Transcribing...") }
func (d Desktop) Analyzing()        { d.Notify(appName, "Analyzing pronunciation...") }
func (d Desktop) Aborted()          { d.Notify(appName, "Operation Aborted") }

func (Desktop) Error(msg string) {
	cmd := exec.Command("notify-send", "-a", appName, "-u", "critical", appName+" Error", msg)
	if err := cmd.Run(); err != nil {
		log.Printf("Failed to send error notification: %v", err)
	}
}

func (Desktop) Notify(title, message string) {
	cmd := exec.Command("notify-send", "-a", appName, title, message)
	if err := cmd.Run(); err != nil {
		log.Printf("Failed to send notification: %v", err)
	}
}

func (d Desktop) Send(msg Message) {
	if msg.IsError {
		d.Error(msg.Body)
		return
	}
	d.Notify(msg.Title, msg.Body)
}

// Log writes notifications to the standard logger.
type Log struct{}

func (l Log) RecordingStarted() { l.Notify(appName, "Recording Started") }
func (l Log) RecordingEnded()   { l.Notify(appName, "Recording Ended") }
func (l Log) Transcribing()     { l.Notify(appName, "Transcribing...") }
func (l Log) Analyzing()        { l.Notify(appName, "Analyzing pronunciation...") }
func (l Log) Aborted()          { l.Notify(appName, "Operation Aborted") }

func (Log) Error(msg string) {
	log.Printf("%s Error: %s", appName, msg)
}

func (Log) Notify(title, message string) {
	log.Printf("%s: %s", title, message)
}

func (l Log) Send(msg Message) {
	if msg.IsError {
		l.Error(msg.Body)
		return
	}
	l.Notify(msg.Title, msg.Body)
}

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) RecordingStarted()            {}
func (Nop) RecordingEnded()              {}
func (Nop) Transcribing()                {}
func (Nop) Analyzing()                   {}
func (Nop) Aborted()                     {}
func (Nop) Error(msg string)             {}
func (Nop) Notify(title, message string) {}
func (Nop) Send(msg Message)             {}

// Messenger sends configured messages by type.
type Messenger struct {
	Notifier Notifier
	messages map[MessageType]Message
}

// NewMessenger uses defaults for any type missing from messages.
func NewMessenger(n Notifier, messages map[MessageType]Message) *Messenger {
	resolved := DefaultMessages()
	for t, m := range messages {
		resolved[t] = m
	}
	return &Messenger{Notifier: n, messages: resolved}
}

// Send delivers message t, appending detail (e.g. a server failure reason) to its body.
func (m *Messenger) Send(t MessageType, detail string) {
	msg, ok := m.messages[t]
	if !ok {
		return
	}
	if detail != "" {
		msg.Body = fmt.Sprintf("%s: %s", msg.Body, detail)
	}
	m.Notifier.Send(msg)
}
