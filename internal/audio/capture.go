package audio

import (
	"context"
	"fmt"
	"io"
	"os/exec"
)

const captureSampleRate = 16000

// MicSource captures single-channel 16 kHz WAV from the default ALSA device
// by shelling out to arecord. Open fails synchronously when the recorder
// binary is missing or the device is unavailable.
type MicSource struct{}

func (MicSource) Open(ctx context.Context) (io.ReadCloser, string, error) {
	cmd := exec.CommandContext(ctx, "arecord",
		"-q",
		"-f", "S16_LE",
		"-r", fmt.Sprintf("%d", captureSampleRate),
		"-c", "1",
		"-t", "wav",
		"-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, "", err
	}
	if err := cmd.Start(); err != nil {
		return nil, "", fmt.Errorf("microphone unavailable: %w", err)
	}
	return &processStream{cmd: cmd, reader: stdout}, "audio/wav", nil
}

type processStream struct {
	cmd    *exec.Cmd
	reader io.ReadCloser
}

func (s *processStream) Read(p []byte) (int, error) {
	return s.reader.Read(p)
}

// Close kills the capture process, which releases the device and unblocks
// any pending Read with EOF.
func (s *processStream) Close() error {
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.reader.Close()
	s.cmd.Wait()
	return nil
}
