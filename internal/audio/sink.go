package audio

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"
)

// ExecSink plays buffers through a system audio player. Each buffer is
// written to a temporary WAV file that is removed when playback ends.
type ExecSink struct {
	TempDir string
	command func(file string) (*exec.Cmd, error)
}

// NewExecSink picks a player for the current platform
func NewExecSink() *ExecSink {
	return &ExecSink{command: playerCommand}
}

// playerCommand returns a platform-specific command that plays a WAV file
func playerCommand(file string) (*exec.Cmd, error) {
	switch runtime.GOOS {
	case "darwin": // macOS
		return exec.Command("afplay", file), nil
	case "linux":
		// Try multiple commands in order of preference
		if _, err := exec.LookPath("aplay"); err == nil {
			return exec.Command("aplay", "-q", file), nil
		} else if _, err := exec.LookPath("paplay"); err == nil {
			return exec.Command("paplay", file), nil
		} else if _, err := exec.LookPath("ffplay"); err == nil {
			return exec.Command("ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", file), nil
		} else if _, err := exec.LookPath("play"); err == nil {
			// SoX play command
			return exec.Command("play", "-q", file), nil
		}
		return nil, fmt.Errorf("no audio player found. Install aplay, paplay, ffplay, or sox")
	case "windows":
		return exec.Command("powershell", "-c", fmt.Sprintf("(New-Object Media.SoundPlayer '%s').PlaySync()", file)), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// Play writes the buffer to a temporary file and starts the player
func (s *ExecSink) Play(buf *Buffer) (Playback, error) {
	f, err := os.CreateTemp(s.TempDir, "kotoba-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create audio file: %w", err)
	}
	if err := buf.WriteWAV(f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to write audio file: %w", err)
	}
	f.Close()

	cmd, err := s.command(f.Name())
	if err != nil {
		os.Remove(f.Name())
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to start audio player: %w", err)
	}

	pb := &execPlayback{cmd: cmd, done: make(chan struct{})}
	go func() {
		cmd.Wait()
		os.Remove(f.Name())
		close(pb.done)
	}()
	return pb, nil
}

type execPlayback struct {
	cmd  *exec.Cmd
	once sync.Once
	done chan struct{}
}

func (p *execPlayback) Stop() {
	p.once.Do(func() {
		if p.cmd.Process != nil {
			p.cmd.Process.Kill()
		}
	})
}

func (p *execPlayback) Done() <-chan struct{} {
	return p.done
}

// DiscardSink drops audio. Every playback ends immediately.
type DiscardSink struct{}

// Play returns a finished playback
func (DiscardSink) Play(*Buffer) (Playback, error) {
	done := make(chan struct{})
	close(done)
	return finished{done: done}, nil
}

type finished struct {
	done chan struct{}
}

func (f finished) Stop()                 {}
func (f finished) Done() <-chan struct{} { return f.done }
