package engine

import "github.com/roach88/boni/internal/model"

// Message is one inbound chat message, already stripped of transport detail.
type Message struct {
	UserID      string
	ChatID      string
	Profile     model.Profile
	Text        string
	Attachments []Attachment
	IsBot       bool
}

// HasAttachment reports whether the message carries an image.
func (m Message) HasAttachment() bool { return len(m.Attachments) > 0 }

// Attachment is one resolution of an uploaded image.
type Attachment struct {
	FileID string
	Width  int
	Height int
	Size   int
}

// Largest returns the attachment with the most pixels, breaking ties by
// size in bytes. It returns false for an empty slice.
func Largest(atts []Attachment) (Attachment, bool) {
	if len(atts) == 0 {
		return Attachment{}, false
	}
	best := atts[0]
	for _, a := range atts[1:] {
		pa, pb := a.Width*a.Height, best.Width*best.Height
		if pa > pb || (pa == pb && a.Size > best.Size) {
			best = a
		}
	}
	return best, true
}

// Reply is one outbound message. Keyboard lists the labels offered as
// reply buttons, one per row; an empty keyboard leaves the client's
// keyboard unchanged.
type Reply struct {
	ChatID   string
	Text     string
	Keyboard []string
	Markdown bool
}
