//go:build !windows

package queue

// NewPlatformSource returns the inert source on platforms without MSMQ.
func NewPlatformSource() Source { return NewUnavailable() }
