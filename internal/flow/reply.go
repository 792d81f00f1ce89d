package flow

// ReplyKind selects how the presentation layer delivers a reply.
type ReplyKind int

const (
	// ReplySend sends a new message.
	ReplySend ReplyKind = iota
	// ReplyPhoto sends Photo with Text as caption.
	ReplyPhoto
	// ReplyEdit replaces text and keyboard of the message that carried the callback.
	ReplyEdit
	// ReplyEditKeyboard replaces only the keyboard of that message.
	ReplyEditKeyboard
	// ReplyNotice is a short acknowledgement; shown as a toast for callbacks.
	ReplyNotice
)

// Format selects message markup.
type Format int

const (
	FormatPlain Format = iota
	FormatMarkdownV2
)

// Button is an inline button. Token is opaque to the presentation layer.
type Button struct {
	Label string
	Token string
}

// Keyboard describes either inline buttons, a reply menu, or menu removal.
type Keyboard struct {
	Inline [][]Button
	Menu   [][]string
	Remove bool
}

// Reply is one outbound message.
type Reply struct {
	Kind ReplyKind
	// To is the recipient; zero means the user who sent the event.
	To       int64
	Text     string
	Format   Format
	Keyboard *Keyboard
	Photo    []byte
}

func send(text string) Reply {
	return Reply{Kind: ReplySend, Text: text}
}

func sendWith(text string, kb *Keyboard) Reply {
	return Reply{Kind: ReplySend, Text: text, Keyboard: kb}
}

func notice(text string) Reply {
	return Reply{Kind: ReplyNotice, Text: text}
}

func edit(text string, kb *Keyboard) Reply {
	return Reply{Kind: ReplyEdit, Text: text, Keyboard: kb}
}

func editKeyboard(kb *Keyboard) Reply {
	return Reply{Kind: ReplyEditKeyboard, Keyboard: kb}
}
