package core

import (
	"errors"
	"fmt"

	"github.com/1F47E/go-stegoreel/internal/stego"
)

// Stage names the step of an operation that failed.
type Stage string

const (
	StageConfig   Stage = "config"
	StageOpen     Stage = "open"
	StageRead     Stage = "read"
	StageCapacity Stage = "embed-capacity"
	StageWrite    Stage = "write"
)

var (
	ErrConfig     = errors.New("invalid settings")
	ErrSourceOpen = errors.New("cannot open source")
	ErrFrameRead  = errors.New("cannot read frame")
	ErrCapacity   = stego.ErrCapacity
	ErrWrite      = errors.New("cannot write output")
)

func (s Stage) sentinel() error {
	switch s {
	case StageConfig:
		return ErrConfig
	case StageOpen:
		return ErrSourceOpen
	case StageRead:
		return ErrFrameRead
	case StageCapacity:
		return ErrCapacity
	case StageWrite:
		return ErrWrite
	}
	return nil
}

// OpError is returned by Embed, Extract and Compare. It matches the sentinel
// of its stage with errors.Is and unwraps to the cause.
type OpError struct {
	Op    string
	Stage Stage
	Path  string
	Err   error
}

func (e *OpError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %s %s: %v", e.Op, e.Stage, e.Path, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func (e *OpError) Is(target error) bool {
	s := e.Stage.sentinel()
	return s != nil && target == s
}

func opError(op string, stage Stage, path string, err error) error {
	return &OpError{Op: op, Stage: stage, Path: path, Err: err}
}
