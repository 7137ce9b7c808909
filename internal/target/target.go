// Package target classifies a target triple into the platform families
// that drive every platform-dependent decision of a build.
package target

import (
	"errors"
	"strings"
)

// ErrNoTriple is returned when no target triple is available.
var ErrNoTriple = errors.New("target triple is not set")

// Target is the platform family of a build.
type Target int

const (
	Other Target = iota
	// MSVC covers every triple using the Windows MSVC ABI.
	MSVC
	Apple
	Linux
)

// Substring markers, checked in this order.
const (
	markerMSVC  = "msvc"
	markerApple = "apple"
	markerLinux = "linux"
)

// Parse classifies triple. The MSVC marker wins over the Apple marker,
// which wins over the Linux marker.
func Parse(triple string) (Target, error) {
	triple = strings.TrimSpace(triple)
	if triple == "" {
		return Other, ErrNoTriple
	}
	switch {
	case strings.Contains(triple, markerMSVC):
		return MSVC, nil
	case strings.Contains(triple, markerApple):
		return Apple, nil
	case strings.Contains(triple, markerLinux):
		return Linux, nil
	}
	return Other, nil
}

func (t Target) IsApple() bool { return t == Apple }

func (t Target) IsMSVC() bool { return t == MSVC }

func (t Target) IsLinux() bool { return t == Linux }

// LibName returns the name under which the native library is linked.
// MSVC toolchains keep the "lib" prefix in the import library name.
func (t Target) LibName() string {
	if t.IsMSVC() {
		return "libui"
	}
	return "ui"
}

func (t Target) String() string {
	switch t {
	case MSVC:
		return "msvc"
	case Apple:
		return "apple"
	case Linux:
		return "linux"
	}
	return "other"
}
