// Package message defines the request and result types shared by every
// transport: MCP tools, REST handlers and gRPC methods all speak these.
package message

import "time"

// ReadAloudRequest is the input of the read_aloud tool.
// Pointer fields distinguish "unset" from an explicit zero.
type ReadAloudRequest struct {
	// Text is spoken verbatim. Required, non-blank.
	Text string `json:"text" jsonschema:"the text to convert to speech"`

	// Voice is an engine voice identifier; empty selects the engine default.
	Voice string `json:"voice,omitempty" jsonschema:"voice identifier as returned by list_voices"`

	// Rate is the speed multiplier, 0.1 to 10.0. Defaults to 1.0.
	Rate *float64 `json:"rate,omitempty" jsonschema:"speech rate multiplier from 0.1 to 10.0 (default 1.0)"`

	// Volume is the output level, 0.0 to 1.0. Defaults to 1.0.
	Volume *float64 `json:"volume,omitempty" jsonschema:"volume from 0.0 to 1.0 (default 1.0)"`

	// Play requests playback after generation. Defaults to true.
	Play *bool `json:"play,omitempty" jsonschema:"play the audio after generating it (default true)"`

	// Format is wav, mp3 or ogg. Defaults to wav.
	Format string `json:"format,omitempty" jsonschema:"output audio format: wav, mp3 or ogg (default wav)"`
}

// ReadAloudResult reports what a read_aloud call did.
type ReadAloudResult struct {
	Message string `json:"message"`

	// AudioFile is the bare file name in the output directory. AudioFile and
	// FileSize are set exactly when a file was produced, even an empty one.
	AudioFile string `json:"audioFile,omitempty"`
	FileSize  *int64 `json:"fileSize,omitempty"`

	Played bool `json:"played"`

	AvailableVoices []string `json:"availableVoices,omitempty"`
}

// ListVoicesRequest is the (empty) input of the list_voices tool.
type ListVoicesRequest struct{}

// VoicesResult lists the voices of the active engine. AvailableVoices is
// never nil so it encodes as [].
type VoicesResult struct {
	AvailableVoices []string `json:"availableVoices"`
}

// ListAudioRequest is the (empty) input of the list_audio_files tool.
type ListAudioRequest struct{}

// AudioFile describes one stored audio file.
type AudioFile struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
	Duration     *float64  `json:"duration,omitempty"`
	OriginalText string    `json:"originalText"`
	Format       string    `json:"format"`
}

// AudioListResult lists stored audio files, newest first.
type AudioListResult struct {
	Files []AudioFile `json:"files"`
}

// ErrorResult is the body transports return for a failed call.
type ErrorResult struct {
	Error string `json:"error"`
}
