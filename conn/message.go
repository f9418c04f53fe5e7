package conn

// Message is a control message exchanged with a panel on the same channel as the pixel data.
type Message uint8

// Control messages.
const (
	// Unknown is any text or binary message outside the protocol alphabet.
	Unknown Message = iota

	// Ready is sent by a panel once it buffered the current frame ("K").
	Ready

	// Proceed tells a panel to show its buffered frame ("P").
	Proceed
)

// ParseMessage maps a text payload to a Message.
func ParseMessage(text string) Message {
	switch text {
	case "K":
		return Ready
	case "P":
		return Proceed
	default:
		return Unknown
	}
}

// Text is the wire representation of m.
func (m Message) Text() string {
	switch m {
	case Ready:
		return "K"
	case Proceed:
		return "P"
	default:
		return ""
	}
}

func (m Message) String() string {
	switch m {
	case Ready:
		return "ready"
	case Proceed:
		return "proceed"
	default:
		return "unknown"
	}
}
