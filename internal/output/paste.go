package output

import (
	"context"
	"strings"
	"time"
)

const (
	pasteSettle  = 40 * time.Millisecond
	restoreDelay = 120 * time.Millisecond
)

// hyprShortcut is the chord sent to the active window on Hyprland.
const hyprShortcut = "CTRL,V"

// typeTools maps direct-typing methods to their argv.
var typeTools = map[Method]Tool{
	MethodYdotool: {Name: "ydotool", Argv: []string{"ydotool", "type", textArg}},
	MethodWtype:   {Name: "wtype", Argv: []string{"wtype", textArg}},
}

// pasteCascade lists the paste simulators in the order they are tried. Key
// injectors come first; desktop IPC paths are gated on the running session.
func (d *Deliverer) pasteCascade() []Tool {
	return []Tool{
		{Name: "ydotool", Argv: []string{"ydotool", "key", "29:1", "47:1", "47:0", "29:0"}},
		{Name: "wtype", Argv: []string{"wtype", "-M", "ctrl", "-P", "v", "-m", "ctrl", "-p", "v"}},
		{Name: "xdotool", Argv: []string{"xdotool", "key", "ctrl+v"}},
		{
			Name: "klipper",
			Argv: []string{"qdbus", "org.kde.klipper", "/klipper", "org.kde.klipper.klipper.invokeAction", "paste"},
			When: func(getenv func(string) string) bool {
				return strings.EqualFold(strings.TrimSpace(getenv("XDG_CURRENT_DESKTOP")), "KDE")
			},
		},
		{
			Name: "hyprctl",
			When: func(getenv func(string) string) bool {
				return strings.TrimSpace(getenv("HYPRLAND_INSTANCE_SIGNATURE")) != ""
			},
			Dispatch: func(ctx context.Context) error {
				return d.hypr.Paste(ctx, hyprShortcut)
			},
		},
	}
}

// paste simulates Ctrl+V and reports the method that worked. Failure is
// not an error: the text is already on the clipboard.
func (d *Deliverer) paste(ctx context.Context) (string, bool) {
	if err := d.sleep(ctx, pasteSettle); err != nil {
		return "", false
	}
	name, err := runFirst(ctx, d.runner, d.getenv, d.pasters, "")
	if err != nil {
		d.log().Warn("all paste methods failed; text remains in the clipboard for manual paste", "error", err.Error())
		return "", false
	}
	return name, true
}
