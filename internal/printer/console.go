package printer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/funnyzak/reqwatch/internal/view"
	"github.com/funnyzak/reqwatch/pkg/i18n"
)

// consoleHelp lists the line commands understood in plain and json modes.
const consoleHelp = "commands: f <url> filter · u show all · c clear · q quit"

// Console turns stdin lines into gestures for the plain and json modes.
//
//	f /hook    filter on /hook (a URL cell click)
//	u          back to all URLs (the URL header click)
//	c          clear
//	q          quit
//
// With confirmation enabled the line following c answers the clear prompt.
type Console struct {
	in      io.Reader
	out     io.Writer
	loc     i18n.Localizer
	quit    func()
	confirm bool
	answers chan string
}

// NewConsole creates a console reading in and writing prompts to out. quit is
// called on the q command.
func NewConsole(in io.Reader, out io.Writer, loc i18n.Localizer, confirm bool, quit func()) *Console {
	return &Console{
		in:      in,
		out:     out,
		loc:     loc,
		quit:    quit,
		confirm: confirm,
		answers: make(chan string, 1),
	}
}

// Gestures starts reading lines. The channel is closed at the end of input
// or when ctx ends.
func (c *Console) Gestures(ctx context.Context) <-chan view.Gesture {
	out := make(chan view.Gesture)
	go func() {
		defer close(out)
		defer close(c.answers)

		expectAnswer := false
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if expectAnswer {
				expectAnswer = false
				select {
				case c.answers <- line:
				case <-ctx.Done():
					return
				}
				continue
			}

			g, ok := c.parse(line)
			if !ok {
				continue
			}
			select {
			case out <- g:
			case <-ctx.Done():
				return
			}
			expectAnswer = c.confirm && g.Kind == view.GestureClickClear
		}
	}()
	return out
}

func (c *Console) parse(line string) (view.Gesture, bool) {
	if line == "" {
		return view.Gesture{}, false
	}
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "f", "filter":
		if arg != "" {
			return view.ClickURL(arg), true
		}
	case "u", "all", "unfilter":
		return view.ClickHeader(), true
	case "c", "clear":
		return view.ClickClear(), true
	case "q", "quit", "exit":
		if c.quit != nil {
			c.quit()
		}
		return view.Gesture{}, false
	}
	fmt.Fprintln(c.out, consoleHelp)
	return view.Gesture{}, false
}

// Confirm implements view.Prompter. Only y or yes accepts; the end of input
// declines.
func (c *Console) Confirm(ctx context.Context) (bool, error) {
	fmt.Fprint(c.out, c.loc.T(keyPromptClear))

	select {
	case line, ok := <-c.answers:
		if !ok {
			return false, nil
		}
		switch strings.ToLower(line) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
