package pebble

import "errors"

const (
	ErrInIteratorCreation = "failed to create iterator: %w"
	ErrIteratorValue      = "failed to read iterator value: %w"
)

var (
	ErrClosed    = errors.New("pebble: engine is closed")
	ErrBatchDone = errors.New("pebble: batch already committed or closed")
)
