package directive

import (
	"bytes"
	"errors"
	"testing"
)

func TestEmitter(t *testing.T) {
	var buf bytes.Buffer
	e := New(&buf, "")
	e.LinkSearch("/tmp/out/build/out")
	e.LinkLib(Static, "ui")
	e.LinkLib(Dynamic, "libui")
	e.LinkArg("-lgtk-3")
	e.CFlag("-I/usr/include/gtk-3.0")
	e.Warning("line one\nline two")

	want := "uibuild:link-search=native=/tmp/out/build/out\n" +
		"uibuild:link-lib=static=ui\n" +
		"uibuild:link-lib=dylib=libui\n" +
		"uibuild:link-arg=-lgtk-3\n" +
		"uibuild:cflag=-I/usr/include/gtk-3.0\n" +
		"uibuild:warning=line one line two\n"
	if got := buf.String(); got != want {
		t.Fatalf("output:\n%s\nwant:\n%s", got, want)
	}
	if err := e.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
}

func TestCustomPrefix(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "cargo").LinkSearch("lib")
	if got := buf.String(); got != "cargo:link-search=native=lib\n" {
		t.Fatalf("got %q", got)
	}
}

type failWriter struct{ n int }

func (w *failWriter) Write(p []byte) (int, error) {
	w.n++
	return 0, errors.New("closed")
}

func TestEmitterStopsOnWriteError(t *testing.T) {
	w := &failWriter{}
	e := New(w, "")
	e.LinkSearch("a")
	e.LinkSearch("b")
	if e.Err() == nil {
		t.Fatal("expected write error")
	}
	if w.n != 1 {
		t.Fatalf("writes after failure: %d", w.n)
	}
}

func TestParseLinkMode(t *testing.T) {
	tests := []struct {
		in      string
		want    LinkMode
		wantErr bool
	}{
		{"static", Static, false},
		{"", Static, false},
		{"Dynamic", Dynamic, false},
		{"dylib", Dynamic, false},
		{"shared", Static, true},
	}
	for _, tt := range tests {
		got, err := ParseLinkMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLinkMode(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLinkMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
