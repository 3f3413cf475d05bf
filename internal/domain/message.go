package domain

import "time"

// InboundMessage is what the messaging gateway delivers: a sender phone and
// either text or an audio reference. The pipeline is agnostic to the
// transport that produced it.
type InboundMessage struct {
	From      string // raw phone identifier as delivered by the gateway
	Text      string
	AudioURL  string // non-empty when the message is a voice note
	MediaType string // content-type hint for the media, e.g. "audio/ogg"
	Timestamp time.Time
}

// IsAudio reports whether the message carries a voice note to transcribe.
func (m InboundMessage) IsAudio() bool { return m.AudioURL != "" }
