// Package hypr wraps the hyprctl calls voce makes on Hyprland: targeted
// paste shortcuts and on-screen notifications.
package hypr

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rbright/voce/internal/proc"
)

// DefaultColor is the notification accent used when none is given.
const DefaultColor = "rgb(89b4fa)"

// ActiveWindow contains the fields needed for paste dispatch targeting.
type ActiveWindow struct {
	Address      string `json:"address"`
	Class        string `json:"class"`
	InitialClass string `json:"initialClass"`
}

// Client runs hyprctl through a proc.Runner.
type Client struct {
	runner proc.Runner
}

func NewClient(runner proc.Runner) *Client {
	if runner == nil {
		runner = proc.Exec{}
	}
	return &Client{runner: runner}
}

// Available reports whether hyprctl is on PATH.
func (c *Client) Available() bool {
	return proc.Has(c.runner, "hyprctl")
}

// ActiveWindow fetches and validates the focused window.
func (c *Client) ActiveWindow(ctx context.Context) (ActiveWindow, error) {
	output, err := c.output(ctx, "-j", "activewindow")
	if err != nil {
		return ActiveWindow{}, err
	}

	var window ActiveWindow
	if err := json.Unmarshal(output, &window); err != nil {
		return ActiveWindow{}, fmt.Errorf("decode hyprctl activewindow json: %w", err)
	}
	window.Address = strings.TrimSpace(window.Address)
	window.Class = strings.TrimSpace(window.Class)
	window.InitialClass = strings.TrimSpace(window.InitialClass)
	if window.Address == "" {
		return ActiveWindow{}, fmt.Errorf("hyprctl activewindow returned empty address")
	}
	return window, nil
}

// SendShortcut sends a literal sendshortcut payload.
func (c *Client) SendShortcut(ctx context.Context, shortcut string) error {
	shortcut = strings.TrimSpace(shortcut)
	if shortcut == "" {
		return fmt.Errorf("sendshortcut requires a non-empty payload")
	}
	_, err := c.output(ctx, "--quiet", "dispatch", "sendshortcut", shortcut)
	return err
}

// Paste sends shortcut (for example "CTRL,V") to the active window. The
// window lookup is retried briefly since focus can lag a just-closed popup.
func (c *Client) Paste(ctx context.Context, shortcut string) error {
	window, err := c.activeWindowWithRetry(ctx, 5, 10*time.Millisecond)
	if err != nil {
		return err
	}
	payload, err := BuildShortcut(shortcut, window.Address)
	if err != nil {
		return err
	}
	return c.SendShortcut(ctx, payload)
}

// Notify shows a Hyprland notification.
func (c *Client) Notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if strings.TrimSpace(color) == "" {
		color = DefaultColor
	}
	_, err := c.output(ctx,
		"--quiet", "dispatch", "notify",
		strconv.Itoa(icon), strconv.Itoa(timeoutMS), color, text,
	)
	return err
}

// DismissNotify dismisses active Hyprland notifications.
func (c *Client) DismissNotify(ctx context.Context) error {
	_, err := c.output(ctx, "--quiet", "dispatch", "dismissnotify")
	return err
}

// BuildShortcut targets shortcut at a window address.
func BuildShortcut(shortcut string, windowAddress string) (string, error) {
	shortcut = strings.TrimSpace(shortcut)
	if shortcut == "" {
		return "", fmt.Errorf("paste shortcut cannot be empty")
	}
	address := strings.TrimSpace(windowAddress)
	if address == "" {
		return "", fmt.Errorf("active window address is required")
	}
	return fmt.Sprintf("%s,address:%s", shortcut, address), nil
}

func (c *Client) activeWindowWithRetry(ctx context.Context, attempts int, delay time.Duration) (ActiveWindow, error) {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		window, err := c.ActiveWindow(ctx)
		if err == nil {
			return window, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ActiveWindow{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	return ActiveWindow{}, fmt.Errorf("resolve active window: %w", lastErr)
}

func (c *Client) output(ctx context.Context, args ...string) ([]byte, error) {
	res, err := c.runner.Run(ctx, proc.Command{Name: "hyprctl", Args: args})
	if err != nil {
		return nil, fmt.Errorf("hyprctl %v: %w", args, err)
	}
	return res.Stdout, nil
}
