package blast

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code is the numeric result of a decompression, compatible with the
// return codes of the reference blast() decoder.
type Code int

const (
	CodeCorrupt        Code = -9
	CodeDistanceTooFar Code = -3
	CodeDictSize       Code = -2
	CodeLiteralFlag    Code = -1
	CodeOK             Code = 0
	CodeOutput         Code = 1
	CodeInput          Code = 2
)

var codeMessages = map[Code]string{
	CodeCorrupt:        "invalid code in compressed data",
	CodeDistanceTooFar: "distance is too far back",
	CodeDictSize:       "dictionary size not in 4..6",
	CodeLiteralFlag:    "literal flag not zero or one",
	CodeOK:             "successful decompression",
	CodeOutput:         "output error before completing decompression",
	CodeInput:          "ran out of input before completing decompression",
}

func (c Code) String() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}

	return fmt.Sprintf("unknown code %d", int(c))
}

// Error is returned for malformed or incomplete compressed data and for
// output failures. Two errors match under errors.Is when their codes match.
type Error struct {
	Code Code
	Err  error // underlying cause, if any
}

var (
	// ErrInputExhausted means the source ended before the end code.
	ErrInputExhausted = &Error{Code: CodeInput}
	// ErrSinkRejected means the destination failed to accept output.
	ErrSinkRejected = &Error{Code: CodeOutput}
	// ErrLiteralFlag means the first header byte was not 0 or 1.
	ErrLiteralFlag = &Error{Code: CodeLiteralFlag}
	// ErrDictSize means the second header byte was not in 4..6.
	ErrDictSize = &Error{Code: CodeDictSize}
	// ErrDistanceTooFar means a copy referenced bytes before the start of output.
	ErrDistanceTooFar = &Error{Code: CodeDistanceTooFar}
	// ErrCorrupt means no symbol matched within the maximum code length.
	ErrCorrupt = &Error{Code: CodeCorrupt}

	// ErrClosed is returned by reads after Close.
	ErrClosed = errors.New("blast: read after close")
	// ErrWindowSize is returned for windows smaller than the largest distance.
	ErrWindowSize = errors.Errorf("blast: window size must be at least %d bytes", MinWindowSize)
)

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("blast: %s (code %d): %v", e.Code, int(e.Code), e.Err)
	}

	return fmt.Sprintf("blast: %s (code %d)", e.Code, int(e.Code))
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Code == e.Code
}

// CodeOf returns the code carried by err. A nil error is CodeOK; errors that
// do not wrap an *Error (for example I/O failures of the source) report
// CodeInput, since decompression could not complete.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return CodeInput
}

func newError(code Code, cause error) *Error {
	return &Error{Code: code, Err: cause}
}
