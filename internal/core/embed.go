package core

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/1F47E/go-stegoreel/internal/payload"
	"github.com/1F47E/go-stegoreel/internal/stego"
	"github.com/1F47E/go-stegoreel/internal/storage"
	"github.com/1F47E/go-stegoreel/internal/video"
	"github.com/1F47E/go-stegoreel/pkg/logger"
)

// 1. open the carrier, work out payload size and designated frames
// 2. load and resize the payload
// 3. copy frames to the staged output, embedding into the designated ones
// 4. rename the staged output into place
func (c *Core) Embed(videoPath, imagePath, outputPath string) (Result, error) {
	const op = "embed"
	log := logger.Log.WithFields(logrus.Fields{"scope": "core embed", "op": opID()})
	var res Result

	s, err := stego.New(c.opts.Stego)
	if err != nil {
		return res, opError(op, StageConfig, "", err)
	}

	dec, err := video.Open(c.ctx, c.opts.Backend, videoPath)
	if err != nil {
		return res, opError(op, StageOpen, videoPath, err)
	}
	defer dec.Close()

	src := dec.Info()
	if src.Frames <= 0 {
		return res, opError(op, StageOpen, videoPath, errors.New("video has no frames"))
	}
	info := c.frameInfo(src)
	log.Debugf("source %s, output %s, strategy %s", src, info, s.Name())

	pw, ph, err := s.Target(info)
	if err != nil {
		return res, opError(op, StageCapacity, videoPath, err)
	}
	designated, err := s.Designated(src.Frames)
	if err != nil {
		return res, opError(op, StageCapacity, videoPath, err)
	}
	res = Result{
		Path:         outputPath,
		Designated:   designated,
		RowsExpected: s.Frames(),
		RowsCovered:  len(designated),
	}
	if res.RowsCovered < res.RowsExpected {
		if c.opts.Stego.Strict {
			return res, opError(op, StageCapacity, videoPath,
				fmt.Errorf("%w: %d frames, payload needs %d", stego.ErrCapacity, src.Frames, res.RowsExpected))
		}
		res.Incomplete = true
		log.Warnf("video has %d frames, only %d of %d payload rows will be hidden", src.Frames, res.RowsCovered, res.RowsExpected)
	}

	pl, err := payload.LoadResized(imagePath, pw, ph)
	if err != nil {
		return res, opError(op, StageOpen, imagePath, err)
	}

	staged, err := storage.Stage(outputPath)
	if err != nil {
		return res, opError(op, StageWrite, outputPath, err)
	}
	defer staged.Discard()

	enc, err := video.Create(c.ctx, c.opts.Backend, outputPath, staged.Path, info, c.opts.Encode)
	if err != nil {
		return res, opError(op, StageWrite, outputPath, err)
	}
	closed := false
	defer func() {
		if !closed {
			_ = enc.Close()
		}
	}()

	last := designated[len(designated)-1]
	next, read := 0, 0
	for {
		frame, err := dec.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, opError(op, StageRead, videoPath, fmt.Errorf("frame %d: %w", read, err))
		}
		frame = fitFrame(frame, info.Width, info.Height)

		if next < len(designated) && designated[next] == read {
			log.Debugf("frame %d designated", read)
			if err := s.Embed(frame, read, pl); err != nil {
				return res, opError(op, StageCapacity, videoPath, err)
			}
			next++
		}
		if err := enc.Write(frame); err != nil {
			return res, opError(op, StageWrite, outputPath, fmt.Errorf("frame %d: %w", read, err))
		}
		read++
		c.report(min(float64(read)/float64(src.Frames)*100, 100))
	}
	if read <= last {
		return res, opError(op, StageRead, videoPath,
			fmt.Errorf("video ended after %d frames, before designated frame %d", read, last))
	}
	// the output has to keep every source frame
	if read < src.Frames {
		return res, opError(op, StageRead, videoPath,
			fmt.Errorf("video ended after %d of %d frames: %w", read, src.Frames, io.ErrUnexpectedEOF))
	}
	if read > src.Frames {
		log.Warnf("container reported %d frames, read %d", src.Frames, read)
	}

	closed = true
	if err := enc.Close(); err != nil {
		return res, opError(op, StageWrite, outputPath, err)
	}
	if err := staged.Commit(); err != nil {
		return res, opError(op, StageWrite, outputPath, err)
	}
	res.Frames = read
	c.report(100)
	log.Infof("hid %dx%d payload in %d of %d frames -> %s", pw, ph, len(designated), read, outputPath)
	return res, nil
}
