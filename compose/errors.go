package compose

import "fmt"

// MissingFileError is returned when the compose file does not exist
type MissingFileError struct {
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("%s not found", e.Path)
}

// SchemaError is returned when the compose document does not have the
// structure the transformer needs. Nothing is written when it occurs.
type SchemaError struct {
	Path   string
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	msg := e.Reason
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// PortParseError describes a ports entry that did not yield a port.
// It never escapes InferPort; the entry is skipped.
type PortParseError struct {
	Entry string
	Err   error
}

func (e *PortParseError) Error() string {
	return fmt.Sprintf("invalid port entry %q: %v", e.Entry, e.Err)
}

func (e *PortParseError) Unwrap() error {
	return e.Err
}
