// Package link resolves the native library and emits the directives that
// link it into the host program.
package link

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/goplus/uibuild/internal/directive"
	"github.com/goplus/uibuild/internal/locate"
	"github.com/goplus/uibuild/internal/probe"
	"github.com/goplus/uibuild/internal/target"
)

// Resolver computes the artifact directory.
type Resolver interface {
	Resolve(ctx context.Context, static bool) (string, error)
}

// Linker is the final stage of a run.
type Linker struct {
	Target   target.Target
	Mode     directive.LinkMode
	Resolver Resolver
	Prober   probe.Prober
	Emitter  *directive.Emitter
	Logger   *log.Logger
}

// Result summarizes what was linked.
type Result struct {
	Dir     string
	LibName string
	Mode    directive.LinkMode
	Probed  []*probe.Library
}

func (l *Linker) Run(ctx context.Context) (*Result, error) {
	static := l.Mode == directive.Static
	dir, err := l.Resolver.Resolve(ctx, static)
	if err != nil {
		return nil, fmt.Errorf("locate native library: %w", err)
	}
	name := l.Target.LibName()
	l.checkArtifact(dir, name)

	res := &Result{Dir: dir, LibName: name, Mode: l.Mode}
	l.Emitter.LinkSearch(dir)
	if static {
		plan, err := probe.For(l.Target)
		if err != nil {
			return nil, err
		}
		libs, err := plan.Run(ctx, l.Prober)
		if err != nil {
			return nil, err
		}
		for _, lib := range libs {
			l.logger().Debug("probed system library", "package", lib.Name, "libs", lib.Libs)
			for _, f := range lib.CFlags {
				l.Emitter.CFlag(f)
			}
			for _, f := range lib.Libs {
				l.Emitter.LinkArg(f)
			}
		}
		res.Probed = libs
	}
	l.Emitter.LinkLib(l.Mode, name)
	if err := l.Emitter.Err(); err != nil {
		return nil, fmt.Errorf("write directives: %w", err)
	}
	l.logger().Info("linked native library", "dir", dir, "lib", name, "mode", l.Mode)
	return res, nil
}

func (l *Linker) checkArtifact(dir, name string) {
	found, err := locate.FindLibrary(dir, name)
	if err != nil {
		l.logger().Debug("artifact check failed", "dir", dir, "err", err)
		return
	}
	if len(found) == 0 {
		l.logger().Warn("no native library found in search path", "dir", dir, "lib", name)
	}
}

func (l *Linker) logger() *log.Logger {
	if l.Logger == nil {
		return log.Default()
	}
	return l.Logger
}
