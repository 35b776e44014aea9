package tui

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/speechcoach/internal/config"
	"github.com/leonardotrapani/speechcoach/internal/notify"
)

const (
	messagesBack  = "back"
	messagesReset = "reset"
	messagesTest  = "test"
)

// editNotifications edits whether and how status changes are announced.
func editNotifications(cfg *config.Config) error {
	enabled := cfg.Notifications.Enabled
	kind := cfg.Notifications.Type
	if kind == "" || kind == "none" {
		kind = "desktop"
	}
	customize := false

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable notifications?").
				Description("Announce recording, job results and playback problems").
				Value(&enabled),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Delivery").
				Options(
					huh.NewOption("Desktop (notify-send)", "desktop"),
					huh.NewOption("Daemon log only", "log"),
				).
				Value(&kind),
			huh.NewConfirm().
				Title("Customize message text?").
				Affirmative("Yes").
				Negative("No, keep current").
				Value(&customize),
		).WithHideFunc(func() bool { return !enabled }),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Notifications.Enabled = enabled
	if !enabled {
		cfg.Notifications.Type = "none"
		return nil
	}
	cfg.Notifications.Type = kind

	if customize {
		return editNotificationMessages(cfg)
	}
	return nil
}

func messageMenuOptions(cfg *config.Config) []huh.Option[string] {
	options := make([]huh.Option[string], 0, len(notify.MessageDefs)+3)
	for _, def := range notify.MessageDefs {
		options = append(options, huh.NewOption(messageOptionLabel(cfg, def), def.ConfigKey))
	}
	return append(options,
		huh.NewOption("Send a test notification", messagesTest),
		huh.NewOption("Reset all to defaults", messagesReset),
		huh.NewOption("Back", messagesBack),
	)
}

func editNotificationMessages(cfg *config.Config) error {
	for {
		var selected string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Notification messages").
					Description("Pick a message to edit").
					Options(messageMenuOptions(cfg)...).
					Value(&selected),
			),
		).WithTheme(getTheme())

		if err := form.Run(); err != nil {
			return err
		}

		switch selected {
		case messagesBack:
			return nil
		case messagesReset:
			cfg.Notifications.Messages = config.MessagesConfig{}
		case messagesTest:
			cfg.Messenger().Send(notify.MsgJobCompleted, "test from speechcoach configure")
		default:
			if err := editSingleMessage(cfg, selected); err != nil {
				return err
			}
		}
	}
}

// messageOptionLabel shows the effective body, cut to 30 runes.
func messageOptionLabel(cfg *config.Config, def notify.MessageDef) string {
	body := def.DefaultBody
	custom := false
	if mc := cfg.Notifications.Messages.Lookup(def.ConfigKey); mc != nil && mc.Body != "" {
		body = mc.Body
		custom = true
	}
	if r := []rune(body); len(r) > 30 {
		body = string(r[:30]) + "..."
	}
	label := fmt.Sprintf("%s: %q", def.ConfigKey, body)
	if custom {
		label += " *"
	}
	return label
}

func findMessageDef(key string) (notify.MessageDef, bool) {
	for _, d := range notify.MessageDefs {
		if d.ConfigKey == key {
			return d, true
		}
	}
	return notify.MessageDef{}, false
}

// storedOverride keeps only the parts that differ from the default, so
// untouched messages follow future default changes.
func storedOverride(def notify.MessageDef, title, body string) config.MessageConfig {
	var mc config.MessageConfig
	if title != def.DefaultTitle {
		mc.Title = title
	}
	if body != def.DefaultBody {
		mc.Body = body
	}
	return mc
}

func editSingleMessage(cfg *config.Config, key string) error {
	def, ok := findMessageDef(key)
	mc := cfg.Notifications.Messages.Lookup(key)
	if !ok || mc == nil {
		return fmt.Errorf("unknown message %q", key)
	}

	title, body := def.DefaultTitle, def.DefaultBody
	if mc.Title != "" {
		title = mc.Title
	}
	if mc.Body != "" {
		body = mc.Body
	}

	var fields []huh.Field
	// error notifications always use the fixed error title
	if !def.IsError {
		fields = append(fields, huh.NewInput().
			Title("Title").
			Placeholder(def.DefaultTitle).
			Value(&title))
	}
	fields = append(fields, huh.NewInput().
		Title("Body").
		Description("Default: "+def.DefaultBody).
		Placeholder(def.DefaultBody).
		Value(&body))

	if err := huh.NewForm(huh.NewGroup(fields...)).WithTheme(getTheme()).Run(); err != nil {
		return err
	}

	*mc = storedOverride(def, title, body)
	return nil
}
