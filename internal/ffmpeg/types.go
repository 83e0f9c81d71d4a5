package ffmpeg

import "time"

// MediaInfo contains metadata about a media file
type MediaInfo struct {
	FilePath     string
	Duration     time.Duration
	Width        int
	Height       int
	FPS          float64
	Bitrate      int64
	VideoCodec   string
	HasVideo     bool
	HasAudio     bool
	AudioCodec   string
	SampleRate   int
	AudioBitrate int64
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame      int
	FPS        float64
	Bitrate    string
	Time       string
	Speed      string
	Percentage float64
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
// Called periodically with progress information as the operation executes.
type ProgressFunc func(*Progress)

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler ProgressFunc
	LogHandler      func(line string)
	// Duration is the expected output length in seconds; when set, progress
	// percentage is derived from the encoded timestamp against it.
	Duration float64
}

// Default encoding settings
const (
	DefaultCRF        = 23
	DefaultPreset     = "medium"
	DefaultVideoCodec = "libx264"
	DefaultAudioCodec = "aac"
	AudioSampleRate   = 44100
)

// Encoding bundles the codec settings shared by every encoding operation.
type Encoding struct {
	VideoCodec string
	AudioCodec string
	CRF        int
	Preset     string
}

func (e Encoding) videoCodec() string {
	if e.VideoCodec == "" {
		return DefaultVideoCodec
	}
	return e.VideoCodec
}

func (e Encoding) audioCodec() string {
	if e.AudioCodec == "" {
		return DefaultAudioCodec
	}
	return e.AudioCodec
}

func (e Encoding) crf() int {
	if e.CRF == 0 {
		return DefaultCRF
	}
	return e.CRF
}

func (e Encoding) preset() string {
	if e.Preset == "" {
		return DefaultPreset
	}
	return e.Preset
}
