package domain

// Sender identifies who produced a transcript entry. Its string form doubles as
// the class tag used by every display.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

func (s Sender) String() string {
	return string(s)
}

// TranscriptEntry is one message plus its sender tag.
type TranscriptEntry struct {
	Text   string `json:"text"`
	Sender Sender `json:"sender"`
}

func UserEntry(text string) TranscriptEntry {
	return TranscriptEntry{Text: text, Sender: SenderUser}
}

func BotEntry(text string) TranscriptEntry {
	return TranscriptEntry{Text: text, Sender: SenderBot}
}
