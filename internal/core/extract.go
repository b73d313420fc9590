package core

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/1F47E/go-stegoreel/internal/payload"
	"github.com/1F47E/go-stegoreel/internal/stego"
	"github.com/1F47E/go-stegoreel/internal/video"
	"github.com/1F47E/go-stegoreel/pkg/logger"
)

// Extract reads frames only up to the last designated one.
func (c *Core) Extract(videoPath, outputPath string) (Result, error) {
	const op = "extract"
	log := logger.Log.WithFields(logrus.Fields{"scope": "core extract", "op": opID()})
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
		log.Warnf("video has %d frames, rows past %d will be black", src.Frames, res.RowsCovered)
	}
	log.Debugf("source %s, strategy %s, %d designated frames", src, s.Name(), len(designated))

	out := stego.NewCanvas(pw, ph)
	read := 0
	for next := 0; next < len(designated); read++ {
		frame, err := dec.Read()
		if errors.Is(err, io.EOF) {
			return res, opError(op, StageRead, videoPath,
				fmt.Errorf("video ended after %d frames, before designated frame %d", read, designated[next]))
		}
		if err != nil {
			return res, opError(op, StageRead, videoPath, fmt.Errorf("frame %d: %w", read, err))
		}
		if designated[next] != read {
			continue
		}

		frame = fitFrame(frame, info.Width, info.Height)
		if err := s.Extract(frame, read, out); err != nil {
			return res, opError(op, StageCapacity, videoPath, err)
		}
		next++
		c.report(float64(next) / float64(len(designated)) * 100)
	}

	img, err := s.Finish(out)
	if err != nil {
		return res, opError(op, StageConfig, "", err)
	}
	if err := payload.Save(outputPath, img); err != nil {
		return res, opError(op, StageWrite, outputPath, err)
	}
	res.Frames = read
	log.Infof("recovered %dx%d payload from %d frames -> %s", pw, ph, len(designated), outputPath)
	return res, nil
}
