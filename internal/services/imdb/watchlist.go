package imdb

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// ToggleState tracks where a watchlist button interaction stands.
type ToggleState int

const (
	ToggleUnknown ToggleState = iota
	ToggleClicked
	ToggleConfirmed
	ToggleTimedOut
)

func (s ToggleState) String() string {
	switch s {
	case ToggleClicked:
		return "clicked"
	case ToggleConfirmed:
		return "confirmed"
	case ToggleTimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// togglePage is the slice of browser behavior the toggle loop needs. The
// chromedp driver implements it against the live page; tests use a fake.
type togglePage interface {
	// InDesiredState reports whether the button already shows the state
	// the caller wants.
	InDesiredState(ctx context.Context) (bool, error)
	// Click presses the watchlist button once.
	Click(ctx context.Context) error
}

const maxToggleClicks = 2

// Vars so tests can shrink the waits.
var (
	toggleConfirmWait = 3 * time.Second
	togglePollEvery   = 250 * time.Millisecond
)

// toggleWatchlist drives the watchlist button until the page confirms the
// desired state. The page sometimes swallows the first click, so a second
// attempt is made before giving up. Returns the terminal state reached.
func toggleWatchlist(ctx context.Context, page togglePage, logger *logrus.Logger) (ToggleState, error) {
	state := ToggleUnknown

	for clicks := 0; clicks < maxToggleClicks; clicks++ {
		done, err := page.InDesiredState(ctx)
		if err != nil {
			return state, err
		}
		if done {
			return ToggleConfirmed, nil
		}

		if err := page.Click(ctx); err != nil {
			return state, err
		}
		state = ToggleClicked

		confirmed, err := waitForToggle(ctx, page)
		if err != nil {
			return state, err
		}
		if confirmed {
			return ToggleConfirmed, nil
		}
		logger.WithField("clicks", clicks+1).Debug("Watchlist toggle not confirmed, retrying")
	}

	return ToggleTimedOut, nil
}

func waitForToggle(ctx context.Context, page togglePage) (bool, error) {
	deadline := time.Now().Add(toggleConfirmWait)
	for {
		done, err := page.InDesiredState(ctx)
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(togglePollEvery):
		}
	}
}
