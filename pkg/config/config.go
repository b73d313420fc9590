package config

// Defaults for the embedding engine. Runtime values live in stego.Config,
// these are what the CLI and stego.Default fall back to.
const (
	// PRNG seed for frame selection in the whole-image DCT variant
	Seed = 42

	// whole-image DCT: payload is resized to Block x Block per channel,
	// channel planes sit side by side starting at coefficient (Origin, Origin).
	// Larger blocks add more energy and clip on mid-gray frames
	Block  = 8
	Origin = 1

	// row-wise DCT: one payload row per frame, max RowCount leading frames
	RowWidth = 64
	RowCount = 64

	// bit-plane defaults, frames are resized to FrameWidth x FrameHeight
	BitsPerChannel = 4
	BitsMin        = 1
	BitsMax        = 8
	FrameWidth     = 640
	FrameHeight    = 480

	// reconstruction post-processing
	SmoothSigma    = 0.5
	ClaheClipLimit = 2.0
	ClaheTiles     = 8

	// MPEG-4 Part 2 output
	Codec    = "mpeg4"
	CodecTag = "mp4v"
	// ffmpeg -q:v scale, 1 is the best quality mpeg4 can do
	CodecQuality = 1

	// video I/O backend: auto, ffmpeg, avi, gocv
	Backend = "auto"

	// Path
	PathFFmpeg  = "ffmpeg"
	PathFFprobe = "ffprobe"
	PathTestDir = "tmp/test"
)
