package link

import "errors"

var (
	// ErrNotReady indicates the session is not started.
	ErrNotReady = errors.New("link not ready")
	// ErrAlreadyStarted indicates Start/Run is called on a running session.
	ErrAlreadyStarted = errors.New("link already started")
	// ErrQueueFull indicates the data queue is full and the caller should
	// hold further data until TxResume.
	ErrQueueFull = errors.New("tx data queue full")
)
