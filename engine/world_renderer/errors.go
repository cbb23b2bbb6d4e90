package world_renderer

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyInitialized is returned by Init on a renderer that is already Ready.
	ErrAlreadyInitialized = errors.New("world renderer: already initialized")
	// ErrNotInitialized is returned by operations that need GPU resources before Init succeeded.
	ErrNotInitialized = errors.New("world renderer: not initialized")
	// ErrUseAfterDestroy is the panic value of every method called after Destroy.
	ErrUseAfterDestroy = errors.New("world renderer: use after destroy")
)

// State is the lifecycle state of a WorldRenderer.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateReady:
		return "Ready"
	case StateDestroyed:
		return "Destroyed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// FrameStage names the step of BuildAndRecordFrame that dropped a frame.
type FrameStage string

const (
	StageBuild  FrameStage = "build"
	StageSync   FrameStage = "sync"
	StagePack   FrameStage = "pack"
	StageRecord FrameStage = "record"
)

// FrameError reports a dropped frame. No render pass was recorded for it.
type FrameError struct {
	Stage FrameStage
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("world renderer: frame dropped at %s: %v", e.Stage, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}
