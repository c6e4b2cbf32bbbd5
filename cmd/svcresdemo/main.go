// SPDX-License-Identifier: GPL-3.0-or-later

// Command svcresdemo resolves a logical path through a delegation table,
// dials the resulting endpoint, and prints the outcome. It exists to show
// how [svcres.BindingFactory], [svcres.FailFastFactory], and the connect
// pipeline compose into a single acquisition call.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"

	"github.com/bassosimone/svcres"
	"github.com/bassosimone/svcres/dtab"
)

func main() {
	var (
		path    = flag.String("path", "/svc/echo", "logical path to resolve")
		dentry  = flag.String("dentry", "/svc/echo=>/$/inet/127.0.0.1/7", "one dtab entry, prefix=>tree")
		network = flag.String("network", "tcp", "network passed to the dialer (tcp or udp)")
		verbose = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	base, err := parseDtab(*dentry)
	if err != nil {
		logger.Error("parseDtab", slog.Any("err", err))
		os.Exit(1)
	}

	cfg := svcres.NewConfig()
	cfg.Logger = logger
	cfg.BaseDtabProvider = svcres.ConstFunc(base)

	binding := svcres.NewBindingFactory(
		dtab.ParsePath(*path),
		cfg,
		newEndpointBuilder(cfg, *network, logger),
		svcres.NoopTracer,
	)
	defer binding.Close(context.Background())

	conn, err := binding.Acquire(ctx, svcres.Unit{})
	if err != nil {
		logger.Error("acquire", slog.Any("err", err))
		os.Exit(1)
	}
	defer conn.Close()

	fmt.Printf("connected: local=%s remote=%s\n", conn.LocalAddr(), conn.RemoteAddr())
}

// parseDtab turns a single "prefix=>tree" flag value into a one-entry
// [dtab.Dtab]. A real deployment would load this from a config file or a
// namerd-style service instead of a flag.
func parseDtab(s string) (dtab.Dtab, error) {
	for i := 0; i < len(s)-1; i++ {
		if s[i] == '=' && s[i+1] == '>' {
			prefix := dtab.ParsePath(s[:i])
			tree := dtab.Leaf(dtab.ParsePath(s[i+2:]))
			return dtab.Dtab{{Prefix: prefix, Tree: tree}}, nil
		}
	}
	return nil, fmt.Errorf("malformed dtab entry %q, want prefix=>tree", s)
}

// newEndpointBuilder returns the function [svcres.BindingFactory] calls on a
// cache miss to build the [svcres.Factory] for one resolved name: a
// [svcres.FailFastFactory] wrapping the connect/cancel-watch/observe pipeline
// bound to the name's first address.
func newEndpointBuilder(cfg *svcres.Config, network string, logger svcres.SLogger) func(*dtab.BoundName) (svcres.Factory[svcres.Unit, net.Conn], error) {
	return func(name *dtab.BoundName) (svcres.Factory[svcres.Unit, net.Conn], error) {
		if len(name.Addrs) == 0 {
			return nil, fmt.Errorf("bound name %s carries no addresses", name.ID.Render())
		}
		endpoint := svcres.NewEndpointFunc(name.Addrs[0])
		pipeline := svcres.Compose4(
			endpoint,
			svcres.NewConnectFunc(cfg, network, logger),
			svcres.NewCancelWatchFunc(),
			svcres.NewObserveConnFunc(cfg, logger),
		)
		dial := &pipelineFactory{pipeline: pipeline}
		return svcres.NewFailFastFactory[svcres.Unit, net.Conn](name.ID.Render(), dial, cfg), nil
	}
}

// pipelineFactory adapts a [svcres.Func] pipeline producing a [net.Conn] into
// a [svcres.Factory]: each Acquire call runs the pipeline from scratch, and
// IsAvailable always reports true since the pipeline carries no state of its
// own to report on between calls.
type pipelineFactory struct {
	pipeline svcres.Func[svcres.Unit, net.Conn]
}

var _ svcres.Factory[svcres.Unit, net.Conn] = (*pipelineFactory)(nil)

func (f *pipelineFactory) Acquire(ctx context.Context, conn svcres.Unit) (net.Conn, error) {
	return f.pipeline.Call(ctx, conn)
}

func (f *pipelineFactory) IsAvailable() bool { return true }

func (f *pipelineFactory) Close(ctx context.Context) error { return nil }
