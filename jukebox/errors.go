package jukebox

import "errors"

// Error kinds returned by the public API. Callers can match them with
// errors.Is; most carry wrapped context about the failing operation.
var (
	// ErrInvalidArgument flags nil slices, mismatched lengths or unknown
	// method/decoder names.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotInitialized flags operations that require SetMusicStyle first.
	ErrNotInitialized = errors.New("music style not initialized")

	// ErrEstimationFailed flags input the Gaussian estimator rejected.
	ErrEstimationFailed = errors.New("gaussian estimation failed")

	// ErrFormatMismatch flags serialized state with a wrong version,
	// integer size, byte order or method name.
	ErrFormatMismatch = errors.New("serialized state format mismatch")

	// ErrDecodeFailed flags an audio decoder that produced no output.
	ErrDecodeFailed = errors.New("audio decoding failed")

	// ErrIOFailed flags stream read/write errors during (de)serialization.
	ErrIOFailed = errors.New("stream i/o failed")
)
