// Package storage stages output files. Every result is written under a
// hidden temp name next to its destination and only renamed into place once
// it is complete, so a failed run never leaves a usable looking file behind.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/1F47E/go-stegoreel/pkg/logger"
)

type Staged struct {
	// Path is where writers should put the data
	Path string
	// Final is the destination after Commit
	Final string
	done  bool
}

// Stage reserves a temp path in the destination directory. The extension of
// final is kept so tools that sniff the container from the name still work.
func Stage(final string) (*Staged, error) {
	if final == "" {
		return nil, errors.New("output path is required")
	}
	dir := filepath.Dir(final)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("Error creating output dir: %w", err)
	}
	ext := filepath.Ext(final)
	stem := strings.TrimSuffix(filepath.Base(final), ext)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s-%s%s", stem, uuid.NewString(), ext))
	return &Staged{Path: tmp, Final: final}, nil
}

// Commit moves the staged file onto the destination.
func (s *Staged) Commit() error {
	if s.done {
		return errors.New("staged file already finalized")
	}
	s.done = true
	if err := os.Rename(s.Path, s.Final); err != nil {
		_ = os.Remove(s.Path)
		return fmt.Errorf("cannot save %s: %w", s.Final, err)
	}
	logger.Scope("storage").Debugf("saved %s", s.Final)
	return nil
}

// Discard removes whatever was written to the staged path. Safe to call
// after Commit, it is a no-op then.
func (s *Staged) Discard() {
	if s.done {
		return
	}
	s.done = true
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Scope("storage").Warnf("cannot remove staged file %s: %v", s.Path, err)
	}
}

// CreateTempDir makes a scratch dir, used by the round trip test command.
func CreateTempDir(parent string) (string, error) {
	if parent != "" {
		if err := os.MkdirAll(parent, os.ModePerm); err != nil {
			return "", fmt.Errorf("Error creating temp dir: %w", err)
		}
	}
	return os.MkdirTemp(parent, "stegoreel-")
}
