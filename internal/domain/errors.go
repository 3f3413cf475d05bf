package domain

import "errors"

// ErrAudioDecode marks a transcription failure caused by the audio format
// itself rather than the service. The pipeline turns it into a dedicated
// user message.
var ErrAudioDecode = errors.New("audio format not supported")
