package indicator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rbright/voce/internal/proc"
)

const (
	notifyDest  = "org.freedesktop.Notifications"
	notifyPath  = "/org/freedesktop/Notifications"
	notifyIface = "org.freedesktop.Notifications"
)

// desktopNotify sends a freedesktop notification over the session bus via
// busctl and returns the id the server assigned.
func desktopNotify(ctx context.Context, r proc.Runner, appName string, replaceID uint32, summary string, timeoutMS int) (uint32, error) {
	res, err := r.Run(ctx, proc.Command{Name: "busctl", Args: []string{
		"--user", "call", notifyDest, notifyPath, notifyIface,
		"Notify", "susssasa{sv}i",
		appName,
		strconv.FormatUint(uint64(replaceID), 10),
		"", summary, "",
		"0", // actions
		"0", // hints
		strconv.Itoa(timeoutMS),
	}})
	if err != nil {
		return 0, fmt.Errorf("desktop notify: %w", err)
	}

	out := strings.TrimSpace(string(res.Stdout))
	fields := strings.Fields(out)
	if len(fields) < 2 || fields[0] != "u" {
		return 0, fmt.Errorf("desktop notify invalid response: %q", out)
	}
	id, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("desktop notify parse id %q: %w", fields[1], err)
	}
	return uint32(id), nil
}

func desktopDismiss(ctx context.Context, r proc.Runner, id uint32) error {
	_, err := r.Run(ctx, proc.Command{Name: "busctl", Args: []string{
		"--user", "call", notifyDest, notifyPath, notifyIface,
		"CloseNotification", "u", strconv.FormatUint(uint64(id), 10),
	}})
	if err != nil {
		return fmt.Errorf("desktop dismiss: %w", err)
	}
	return nil
}
