package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/venkytv/event-creator/pkg/creator"
)

// RunInteractive reads event descriptions line by line until EOF or an empty line
func (a *App) RunInteractive(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)

	ask := func(prompt string) (string, bool) {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			return "", false
		}
		return scanner.Text(), true
	}

	fmt.Fprintln(out, "Describe an event, e.g. \"Lunch with Sam tomorrow at 12:30\". Empty line quits.")

	for ctx.Err() == nil {
		line, ok := ask("> ")
		if !ok || strings.TrimSpace(line) == "" {
			break
		}

		a.machine.UpdateText(line)
		if err := a.machine.ParseEvent(ctx); err != nil {
			return err
		}

		event, err := a.loadedEvent()
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			a.machine.Reset()
			continue
		}
		if err := a.printEvent(out, event, false); err != nil {
			return err
		}

		answer, ok := ask("Add to calendar? [y/N] ")
		for ok && isYes(answer) {
			err := a.confirm(ctx, out)
			if err == nil {
				break
			}
			fmt.Fprintf(out, "Error: %v\n", err)

			// only a calendar error keeps the event for another attempt
			if _, failed := a.machine.State().(creator.CalendarError); !failed {
				break
			}
			answer, ok = ask("Retry? [y/N] ")
		}

		a.machine.Reset()
		if !ok {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	a.notePendingReminders(out)
	return nil
}
