package stream

import (
	"fmt"

	"github.com/BeatGlow/netdisplay"
)

// Stage of a session reported to the Reporter.
type Stage uint8

// Stages.
const (
	Connected Stage = iota
	Sending
	WaitingReady
	Proceeding
	Shown
	Skipped
	Failed
	Stopped
)

func (s Stage) String() string {
	switch s {
	case Connected:
		return "connected"
	case Sending:
		return "sending"
	case WaitingReady:
		return "waiting for ready"
	case Proceeding:
		return "proceeding"
	case Shown:
		return "shown"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

func stageOf(phase netdisplay.Phase) Stage {
	switch phase {
	case netdisplay.AwaitingReady:
		return WaitingReady
	case netdisplay.Proceeding:
		return Proceeding
	default:
		return Sending
	}
}

// Event is a progress report for one playlist entry or for the session.
type Event struct {
	Stage Stage

	// Slot is the playlist index, -1 for session events.
	Slot int

	// Ref is the image reference of the slot.
	Ref string

	// Err is set for Skipped and Failed.
	Err error
}

// String formats the event for display.
func (e Event) String() string {
	switch {
	case e.Stage == Skipped:
		return fmt.Sprintf("Image %d skipped: %v", e.Slot+1, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("Streaming %s: %v", e.Stage, e.Err)
	case e.Slot < 0:
		return fmt.Sprintf("Streaming %s", e.Stage)
	default:
		return fmt.Sprintf("Image %d (%s): %s", e.Slot+1, e.Ref, e.Stage)
	}
}

// Reporter receives progress events. It is called from the session goroutine.
type Reporter func(Event)
