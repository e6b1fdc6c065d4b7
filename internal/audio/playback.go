package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// PlayPCM plays raw little-endian PCM16 mono samples through aplay. Voice
// output is a non-critical enhancement, so callers treat a returned error
// as a logged degradation, never a blocking failure.
func PlayPCM(ctx context.Context, pcm []byte, sampleRate int) error {
	if len(pcm) == 0 {
		return nil
	}
	cmd := exec.CommandContext(ctx, "aplay",
		"-q",
		"-f", "S16_LE",
		"-r", fmt.Sprintf("%d", sampleRate),
		"-c", "1",
		"-t", "raw",
		"-",
	)
	cmd.Stdin = bytes.NewReader(pcm)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("audio playback failed: %w", err)
	}
	return nil
}
