// Package directive writes the line-oriented linkage directives consumed
// by the host toolchain.
package directive

import (
	"fmt"
	"io"
	"strings"
)

// DefaultPrefix tags every directive line.
const DefaultPrefix = "uibuild"

// LinkMode selects how the native library is linked.
type LinkMode int

const (
	Static LinkMode = iota
	Dynamic
)

// ParseLinkMode accepts "static" and "dynamic" (also "dylib").
func ParseLinkMode(s string) (LinkMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "static", "":
		return Static, nil
	case "dynamic", "dylib":
		return Dynamic, nil
	}
	return Static, fmt.Errorf("unknown link mode %q (want static or dynamic)", s)
}

func (m LinkMode) String() string {
	if m == Dynamic {
		return "dylib"
	}
	return "static"
}

// Emitter writes directives of the form "<prefix>:<key>=<value>".
type Emitter struct {
	w      io.Writer
	prefix string
	err    error
}

// New returns an Emitter writing to w. An empty prefix means DefaultPrefix.
func New(w io.Writer, prefix string) *Emitter {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Emitter{w: w, prefix: prefix}
}

// LinkSearch adds dir to the native library search path.
func (e *Emitter) LinkSearch(dir string) {
	e.emit("link-search", "native="+dir)
}

// LinkLib links the named library with the given mode.
func (e *Emitter) LinkLib(mode LinkMode, name string) {
	e.emit("link-lib", mode.String()+"="+name)
}

// LinkArg passes a raw flag to the linker.
func (e *Emitter) LinkArg(flag string) {
	e.emit("link-arg", flag)
}

// CFlag passes a raw flag to the C compiler.
func (e *Emitter) CFlag(flag string) {
	e.emit("cflag", flag)
}

// Warning surfaces msg in the host build log.
func (e *Emitter) Warning(msg string) {
	// one directive per line
	e.emit("warning", strings.ReplaceAll(msg, "\n", " "))
}

// Err returns the first write error, if any.
func (e *Emitter) Err() error {
	return e.err
}

func (e *Emitter) emit(key, value string) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, "%s:%s=%s\n", e.prefix, key, value)
}
