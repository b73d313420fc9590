package video

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/1F47E/go-stegoreel/pkg/logger"
)

// FFmpeg streams raw RGBA frames through ffmpeg processes, metadata comes
// from ffprobe.
type FFmpeg struct {
	ffmpeg  string
	ffprobe string
}

func NewFFmpeg(ffmpeg, ffprobe string) *FFmpeg {
	return &FFmpeg{ffmpeg: ffmpeg, ffprobe: ffprobe}
}

func (f *FFmpeg) Name() string {
	return "ffmpeg"
}

// Available reports whether both binaries can be found.
func (f *FFmpeg) Available() bool {
	if _, err := exec.LookPath(f.ffmpeg); err != nil {
		return false
	}
	_, err := exec.LookPath(f.ffprobe)
	return err == nil
}

type probeOutput struct {
	Streams []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
		NbFrames     string `json:"nb_frames"`
		NbReadFrames string `json:"nb_read_frames"`
	} `json:"streams"`
}

// Probe reads stream metadata. When the container does not declare a frame
// count the stream is decoded once to count frames.
func (f *FFmpeg) Probe(ctx context.Context, path string) (Info, error) {
	out, err := f.probe(ctx, path, false)
	if err != nil {
		return Info{}, err
	}
	s := out.Streams[0]
	info := Info{Width: s.Width, Height: s.Height}
	info.FPS = parseRate(s.AvgFrameRate)
	if info.FPS == 0 {
		info.FPS = parseRate(s.RFrameRate)
	}
	info.Frames, _ = strconv.Atoi(s.NbFrames)
	if info.Frames == 0 {
		out, err = f.probe(ctx, path, true)
		if err != nil {
			return Info{}, err
		}
		info.Frames, _ = strconv.Atoi(out.Streams[0].NbReadFrames)
	}
	return info, nil
}

func (f *FFmpeg) probe(ctx context.Context, path string, count bool) (*probeOutput, error) {
	args := []string{"-v", "error", "-select_streams", "v:0"}
	if count {
		args = append(args, "-count_frames")
	}
	args = append(args,
		"-show_entries", "stream=width,height,r_frame_rate,avg_frame_rate,nb_frames,nb_read_frames",
		"-of", "json", path)
	logger.Log.Debugf("Running ffprobe command: %s %s", f.ffprobe, strings.Join(args, " "))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.ffprobe, args...)
	cmd.Stderr = &stderr
	raw, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	var out probeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return nil, fmt.Errorf("no video stream in %s", path)
	}
	return &out, nil
}

// parseRate turns "30000/1001" or "25" into frames per second.
func parseRate(s string) float64 {
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

func (f *FFmpeg) Open(ctx context.Context, path string) (Decoder, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	info, err := f.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("bad frame size %dx%d in %s", info.Width, info.Height, path)
	}

	args := []string{"-v", "error", "-nostdin", "-i", path, "-map", "0:v:0", "-f", "rawvideo", "-pix_fmt", "rgba", "-"}
	logger.Log.Debugf("Running ffmpeg command: %s %s", f.ffmpeg, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, f.ffmpeg, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	d := &ffmpegDecoder{info: info, cmd: cmd, stdout: stdout}
	cmd.Stderr = &d.stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	d.r = bufio.NewReaderSize(stdout, info.Width*info.Height*4)
	return d, nil
}

type ffmpegDecoder struct {
	info    Info
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	r       *bufio.Reader
	stderr  bytes.Buffer
	done    bool
	exitErr error
}

func (d *ffmpegDecoder) Info() Info {
	return d.info
}

func (d *ffmpegDecoder) Read() (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, d.info.Width, d.info.Height))
	_, err := io.ReadFull(d.r, img.Pix)
	switch {
	case err == nil:
		return img, nil
	case errors.Is(err, io.EOF):
		// stdout closed, only a clean ffmpeg exit makes this the end of the stream
		if werr := d.wait(); werr != nil {
			return nil, fmt.Errorf("ffmpeg decode: %w: %v: %s", io.ErrUnexpectedEOF, werr, strings.TrimSpace(d.stderr.String()))
		}
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		// ffmpeg is gone at this point, stderr is safe to read after Close
		_ = d.Close()
		return nil, fmt.Errorf("truncated frame: %w: %s", err, strings.TrimSpace(d.stderr.String()))
	default:
		return nil, err
	}
}

// wait reaps ffmpeg after it closed stdout on its own and reports its exit status.
func (d *ffmpegDecoder) wait() error {
	if d.done {
		return d.exitErr
	}
	d.done = true
	d.exitErr = d.cmd.Wait()
	return d.exitErr
}

// Close stops ffmpeg even if the stream was not read to the end, extraction
// usually bails out early.
func (d *ffmpegDecoder) Close() error {
	if d.done {
		return nil
	}
	d.done = true
	_ = d.stdout.Close()
	if d.cmd.Process != nil {
		_ = d.cmd.Process.Kill()
	}
	_ = d.cmd.Wait()
	return nil
}

func (f *FFmpeg) Create(ctx context.Context, path string, info Info, opts EncodeOptions) (Encoder, error) {
	if info.Width <= 0 || info.Height <= 0 || info.FPS <= 0 {
		return nil, fmt.Errorf("bad output stream %s", info)
	}
	args := []string{
		"-v", "error", "-y",
		"-f", "rawvideo", "-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", info.Width, info.Height),
		"-r", strconv.FormatFloat(info.FPS, 'f', -1, 64),
		"-i", "-",
		"-an",
	}
	if opts.Codec != "" {
		args = append(args, "-c:v", opts.Codec)
	}
	if opts.Tag != "" {
		args = append(args, "-tag:v", opts.Tag)
	}
	if opts.Quality > 0 {
		args = append(args, "-q:v", strconv.Itoa(opts.Quality))
	}
	if opts.Codec == "mpeg4" {
		args = append(args, "-pix_fmt", "yuv420p")
	}
	args = append(args, path)
	logger.Log.Debugf("Running ffmpeg command: %s %s", f.ffmpeg, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, f.ffmpeg, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	e := &ffmpegEncoder{info: info, cmd: cmd, stdin: stdin}
	cmd.Stderr = &e.stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	return e, nil
}

type ffmpegEncoder struct {
	info   Info
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	closed bool
}

func (e *ffmpegEncoder) Write(frame *image.RGBA) error {
	b := frame.Bounds()
	if b.Dx() != e.info.Width || b.Dy() != e.info.Height {
		return fmt.Errorf("frame is %dx%d, stream is %dx%d", b.Dx(), b.Dy(), e.info.Width, e.info.Height)
	}
	row := e.info.Width * 4
	if frame.Stride == row {
		off := frame.PixOffset(b.Min.X, b.Min.Y)
		if _, err := e.stdin.Write(frame.Pix[off : off+row*e.info.Height]); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
		return nil
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := frame.PixOffset(b.Min.X, y)
		if _, err := e.stdin.Write(frame.Pix[off : off+row]); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
	}
	return nil
}

// Close flushes the stream and waits for ffmpeg to finalize the container.
func (e *ffmpegEncoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	_ = e.stdin.Close()
	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(e.stderr.String()))
	}
	return nil
}
