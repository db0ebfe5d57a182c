package wizard

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/kevinmichaelchen/delta/internal/models"
)

// ErrAborted is returned when input ends before the wizard finishes.
var ErrAborted = errors.New("wizard aborted")

// readLine returns the next trimmed line. A final line without a newline is
// still returned; ErrAborted only comes once nothing is left.
func (w *Wizard) readLine() (string, error) {
	line, err := w.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(w.out)
			return "", ErrAborted
		}
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (w *Wizard) promptText(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(w.out, "%s [%s]: ", color.New(color.Bold).Sprint(label), def)
	} else {
		fmt.Fprintf(w.out, "%s: ", color.New(color.Bold).Sprint(label))
	}

	answer, err := w.readLine()
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// promptSelect prints options numbered from 1 and returns the chosen index.
func (w *Wizard) promptSelect(label string, options []string, def int) (int, error) {
	fmt.Fprintln(w.out, color.New(color.Bold).Sprint(label))
	for i, opt := range options {
		fmt.Fprintf(w.out, "  %d) %s\n", i+1, opt)
	}

	for {
		answer, err := w.promptText("Choose", strconv.Itoa(def+1))
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		w.warn(fmt.Sprintf("Enter a number between 1 and %d.", len(options)))
	}
}

func (w *Wizard) promptPositiveInt(label string, def int) (int, error) {
	for {
		answer, err := w.promptText(label, strconv.Itoa(def))
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n > 0 {
			return n, nil
		}
		w.warn("Enter a positive whole number.")
	}
}

func (w *Wizard) promptDate(label string, def time.Time) (time.Time, error) {
	for {
		answer, err := w.promptText(label, def.Format(models.DateLayout))
		if err != nil {
			return time.Time{}, err
		}
		t, err := time.Parse(models.DateLayout, answer)
		if err == nil {
			return t, nil
		}
		w.warn("Use the YYYY-MM-DD format.")
	}
}

func (w *Wizard) warn(msg string) {
	fmt.Fprintln(w.out, color.New(color.FgYellow).Sprint(msg))
}

// panel prints body under a colored title bar.
func (w *Wizard) panel(title, body string, c *color.Color) {
	bar := strings.Repeat("─", max(0, 48-len(title)))
	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, c.Sprintf("╭─ %s %s", title, bar))
	for _, line := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
		fmt.Fprintf(w.out, "%s %s\n", c.Sprint("│"), line)
	}
	fmt.Fprintln(w.out, c.Sprint("╰"+strings.Repeat("─", 51)))
	fmt.Fprintln(w.out)
}
