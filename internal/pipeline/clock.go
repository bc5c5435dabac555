package pipeline

import "time"

// Clock supplies the processing timestamp stamped on transformed records.
type Clock interface {
	NowEpochSeconds() (int64, error)
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) NowEpochSeconds() (int64, error) {
	return time.Now().Unix(), nil
}

// FixedClock always reports the same instant.
type FixedClock int64

func (c FixedClock) NowEpochSeconds() (int64, error) {
	return int64(c), nil
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() (int64, error)

func (f ClockFunc) NowEpochSeconds() (int64, error) {
	return f()
}
