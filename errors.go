package aseprite

import "fmt"

// A FormatError reports that the input is not a valid Aseprite file.
type FormatError string

func (e FormatError) Error() string { return "aseprite: invalid format: " + string(e) }

// An UnsupportedError reports that the input uses a feature of the
// Aseprite format that this package does not decode.
type UnsupportedError struct {
	// What names the kind of record, such as "chunk type" or "cel type".
	What string

	// Type is the numeric value found in the file.
	Type uint16
}

func (e UnsupportedError) Error() string {
	return fmt.Sprintf("aseprite: unsupported %s 0x%04x", e.What, e.Type)
}

// An IOError reports a failure of the underlying byte source.
type IOError struct {
	// Offset is the cursor position at which the read failed.
	Offset int64
	Err    error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("aseprite: read error at offset %d: %v", e.Offset, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
