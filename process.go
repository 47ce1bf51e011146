package xopen

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// Read-ahead is bounded at maxChunks * chunkSize.
	chunkSize = 64 * 1024
	maxChunks = 16

	maxStderrBytes = 32 * 1024

	// How long Close waits for the child after asking it to stop before
	// killing it outright.
	terminateGrace = 10 * time.Second
)

// cappedBuffer is an io.Writer that keeps only the first max bytes and
// silently discards the rest, so an arbitrarily chatty child process can
// never stall its stderr pipe.
type cappedBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func newCappedBuffer(max int) *cappedBuffer {
	return &cappedBuffer{max: max}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.max - len(b.buf); room > 0 {
		if len(p) < room {
			room = len(p)
		}
		b.buf = append(b.buf, p[:room]...)
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

// pipedStream runs one external (de)compression process for its entire
// lifetime and exposes it as a sequential byte stream.
//
// In read mode the child decompresses: its stdin is fed from the source and
// a drain goroutine moves its stdout into a bounded chunk queue that Read
// consumes. In write mode the child compresses: Write feeds its stdin and
// its stdout flows onward to the destination writer. In both modes stderr
// is drained into a capped buffer. This arrangement guarantees that no pipe
// is ever left unread while another is being filled.
//
// A pipedStream is not safe for concurrent use; it expects a single caller
// performing Read or Write calls followed by one Close.
type pipedStream struct {
	program string
	cmd     *exec.Cmd
	writing bool

	stdin io.WriteCloser // write mode only

	chunks chan []byte // read mode only; closed by the drain goroutine
	cur    []byte
	eof    bool

	drains *errgroup.Group
	stderr *cappedBuffer

	mu         sync.Mutex
	terminated bool
	closed     bool
	waitOnce   sync.Once
	waitErr    error
}

// startPipedReader spawns a decompressing child whose stdin comes from src.
// It blocks until the child has produced output or exited, so a tool that
// fails immediately (bad input, unsupported flag) surfaces its error here
// rather than on the first Read.
func startPipedReader(sel Selection, src io.Reader) (*pipedStream, error) {
	spec := sel.Engine.prog
	args := spec.decompressArgs(sel.Threads)
	cmd := exec.Command(spec.program, args...)
	cmd.Stdin = src

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	slog.Debug("xopen: starting process", "program", spec.program, "args", args, "mode", "read")
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &pipedStream{
		program: spec.program,
		cmd:     cmd,
		chunks:  make(chan []byte, maxChunks),
		drains:  new(errgroup.Group),
		stderr:  newCappedBuffer(maxStderrBytes),
	}
	p.drains.Go(p.stderrDrain(stderrPipe))
	p.drains.Go(p.stdoutDrain(stdout))

	// Wait for the first chunk or for process exit.
	chunk, ok := <-p.chunks
	if ok {
		p.cur = chunk
	} else {
		p.eof = true
		if err := p.wait(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// startPipedWriter spawns a compressing child whose stdout flows to dst.
func startPipedWriter(sel Selection, dst io.Writer) (*pipedStream, error) {
	spec := sel.Engine.prog
	args := spec.compressArgs(sel.Level, sel.Threads)
	cmd := exec.Command(spec.program, args...)
	cmd.Stdout = dst

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	slog.Debug("xopen: starting process", "program", spec.program, "args", args, "mode", "write")
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &pipedStream{
		program: spec.program,
		cmd:     cmd,
		writing: true,
		stdin:   stdin,
		drains:  new(errgroup.Group),
		stderr:  newCappedBuffer(maxStderrBytes),
	}
	p.drains.Go(p.stderrDrain(stderrPipe))
	return p, nil
}

func (p *pipedStream) stderrDrain(r io.Reader) func() error {
	return func() error {
		_, err := io.Copy(p.stderr, r)
		if err != nil && !errors.Is(err, fs.ErrClosed) {
			return err
		}
		return nil
	}
}

func (p *pipedStream) stdoutDrain(r io.Reader) func() error {
	return func() error {
		defer close(p.chunks)
		for {
			buf := make([]byte, chunkSize)
			n, err := r.Read(buf)
			if n > 0 {
				p.chunks <- buf[:n:n]
			}
			if err == io.EOF || errors.Is(err, fs.ErrClosed) {
				return nil
			}
			if err != nil {
				return err
			}
		}
	}
}

func (p *pipedStream) Read(b []byte) (int, error) {
	if p.writing {
		return 0, ErrUnsupportedOperation
	}
	for len(p.cur) == 0 {
		if p.eof {
			if err := p.wait(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
		chunk, ok := <-p.chunks
		if !ok {
			// Producer finished; reap the process now so a corrupt
			// or truncated source fails the read that hits EOF.
			p.eof = true
			continue
		}
		p.cur = chunk
	}
	n := copy(b, p.cur)
	p.cur = p.cur[n:]
	return n, nil
}

func (p *pipedStream) Write(b []byte) (int, error) {
	if !p.writing {
		return 0, ErrUnsupportedOperation
	}
	n, err := p.stdin.Write(b)
	if err != nil {
		// The pipe broke: the child is gone. Reap it and surface its
		// diagnostics instead of the bare EPIPE.
		p.stdin.Close()
		if werr := p.wait(); werr != nil {
			return n, werr
		}
		return n, err
	}
	return n, nil
}

// Close releases the child process and both drain goroutines exactly once.
// A second Close is a no-op.
func (p *pipedStream) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	if p.writing {
		err := p.stdin.Close()
		if werr := p.wait(); werr != nil {
			return werr
		}
		return err
	}

	if !p.eof {
		// Closed before end of stream: stop the child, then unblock
		// the drain goroutine by discarding what it already queued.
		p.terminate()
		for range p.chunks {
		}
		p.eof = true
	}
	return p.wait()
}

func (p *pipedStream) terminate() {
	p.mu.Lock()
	p.terminated = true
	p.mu.Unlock()
	p.cmd.Process.Signal(syscall.SIGTERM)
}

func (p *pipedStream) wasTerminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminated
}

// wait joins the drain goroutines and reaps the child, translating a
// non-zero exit into a ProcessError carrying the captured stderr. The exit
// status is inspected only once; the result is sticky. A child that ignores
// SIGTERM is killed after terminateGrace.
func (p *pipedStream) wait() error {
	p.waitOnce.Do(func() {
		timer := time.AfterFunc(terminateGrace, func() {
			p.cmd.Process.Kill()
		})
		drainErr := p.drains.Wait()
		err := p.cmd.Wait()
		timer.Stop()
		switch {
		case err != nil:
			p.waitErr = p.exitError(err)
		case drainErr != nil:
			p.waitErr = drainErr
		}
	})
	return p.waitErr
}

func (p *pipedStream) exitError(err error) error {
	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		return err
	}
	if p.wasTerminated() {
		// We asked the child to stop; its exit status is not an error.
		return nil
	}
	return &ProcessError{
		Program: p.program,
		Exit:    ee.ExitCode(),
		Stderr:  strings.TrimSpace(p.stderr.String()),
		Err:     err,
	}
}
