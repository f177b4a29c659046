// Package apperr defines the error taxonomy shared by the storage core and
// its hosts.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnknownType   = errors.New("unknown directory type")
	ErrInvalid       = errors.New("invalid input")
)

// ConfigError reports an unusable directory configuration: an unknown
// storage type or format, a missing blueprint, a bad path template.
type ConfigError struct {
	Type string // directory type name, may be empty
	Msg  string
	Err  error
}

func (e *ConfigError) Error() string {
	msg := e.Msg
	if e.Type != "" {
		msg = fmt.Sprintf("%s: %s", e.Type, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %v", msg, e.Err)
	}
	return "config: " + msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Configf builds a ConfigError for the given directory type.
func Configf(typ, format string, args ...any) error {
	return &ConfigError{Type: typ, Msg: fmt.Sprintf(format, args...)}
}

// StorageError wraps a filesystem failure together with the offending path.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err in a StorageError unless it already is one.
func Storage(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Path: path, Err: err}
}

// DecodeError reports file content that is malformed for its format.
type DecodeError struct {
	Format string
	Path   string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("decode %s %s: %v", e.Format, e.Path, e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsConfig reports whether err is or wraps a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsStorage reports whether err is or wraps a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IsDecode reports whether err is or wraps a DecodeError.
func IsDecode(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
