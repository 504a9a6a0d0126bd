package audioio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"sync/atomic"
)

// ExecSink plays audio by piping raw PCM16 into an external player process.
// Clear kills the process so queued audio stops at once; the next Write
// starts a fresh one.
type ExecSink struct {
	cfg    Config
	argv   []string
	logger *slog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	gen     uint64
	running bool
	closed  bool

	chunksWritten  atomic.Int64
	samplesWritten atomic.Int64
	clears         atomic.Int64
}

// NewExecSink creates a sink for cfg. It fails if the player binary cannot
// be found.
func NewExecSink(cfg Config, logger *slog.Logger) (*ExecSink, error) {
	if logger == nil {
		logger = slog.Default()
	}

	argv := cfg.Command
	if len(argv) == 0 {
		argv = playerCommand(cfg)
	}
	if _, err := exec.LookPath(argv[0]); err != nil {
		return nil, fmt.Errorf("audio player %q: %w", argv[0], err)
	}

	return &ExecSink{cfg: cfg, argv: argv, logger: logger}, nil
}

// Start launches the player process.
func (s *ExecSink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}
	if err := s.spawnLocked(); err != nil {
		return err
	}
	s.running = true
	return nil
}

func (s *ExecSink) spawnLocked() error {
	cmd := exec.Command(s.argv[0], s.argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", s.argv[0], err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.gen++
	s.logger.Debug("audio player started", "cmd", s.argv[0], "pid", cmd.Process.Pid)
	return nil
}

// killLocked terminates the player immediately, discarding queued audio.
func (s *ExecSink) killLocked() {
	if s.cmd == nil {
		return
	}
	s.stdin.Close()
	s.cmd.Process.Kill()
	s.cmd.Wait()
	s.cmd = nil
	s.stdin = nil
	s.gen++
}

// Stop closes the player's input and waits for it to drain.
func (s *ExecSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	if s.cmd == nil {
		return nil
	}

	s.stdin.Close()
	err := s.cmd.Wait()
	s.cmd = nil
	s.stdin = nil
	s.gen++
	if err != nil {
		s.logger.Debug("audio player exited", "error", err)
	}
	return nil
}

// Write sends a chunk to the player.
func (s *ExecSink) Write(ctx context.Context, chunk AudioChunk) error {
	s.mu.Lock()
	if s.closed || !s.running {
		s.mu.Unlock()
		return io.ErrClosedPipe
	}
	// Checked under the lock so a cancel followed by Clear cannot respawn
	// the player.
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.cmd == nil {
		if err := s.spawnLocked(); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	stdin, gen := s.stdin, s.gen
	s.mu.Unlock()

	// Written outside the lock so Clear can kill a blocked write.
	if _, err := stdin.Write(chunk.Bytes()); err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen {
			// Cleared while writing.
			return nil
		}
		s.killLocked()
		return fmt.Errorf("write to player: %w", err)
	}

	s.chunksWritten.Add(1)
	s.samplesWritten.Add(int64(len(chunk.Samples)))
	return nil
}

// Flush is a no-op: Write returns once the player has accepted the data.
func (s *ExecSink) Flush(ctx context.Context) error {
	return ctx.Err()
}

// Clear kills the player, cutting off any audio still queued.
func (s *ExecSink) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clears.Add(1)
	s.killLocked()
	return nil
}

func (s *ExecSink) Config() Config {
	return s.cfg
}

// Name returns "exec".
func (s *ExecSink) Name() string {
	return string(BackendExec)
}

// Close stops the player. The sink cannot be restarted.
func (s *ExecSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.running = false
	s.killLocked()
	s.mu.Unlock()
	return nil
}

// Stats returns sink statistics.
func (s *ExecSink) Stats() SinkStats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	return SinkStats{
		ChunksWritten:  s.chunksWritten.Load(),
		SamplesWritten: s.samplesWritten.Load(),
		Clears:         s.clears.Load(),
		Running:        running,
		Backend:        string(BackendExec),
	}
}

var _ SinkWithStats = (*ExecSink)(nil)
