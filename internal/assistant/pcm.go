package assistant

// Speech synthesis returns raw PCM: 16-bit signed little-endian samples,
// single channel, at SpeechSampleRate.
const SpeechSampleRate = 24000

// DecodePCM16 pairs little-endian byte pairs into normalized float samples
// in [-1, 1] for playback. A trailing odd byte is dropped.
func DecodePCM16(data []byte) []float32 {
	samples := make([]float32, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		sample := int16(uint16(data[i]) | uint16(data[i+1])<<8)
		samples = append(samples, float32(sample)/32768)
	}
	return samples
}
