package voice

import (
	"testing"

	"github.com/pion/rtp"
)

func TestPCMConversionRoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 127, -128, 32767, -32768, 12345}

	bytes := int16ToPCM(samples)
	if len(bytes) != 2*len(samples) {
		t.Fatalf("byte length = %d, want %d", len(bytes), 2*len(samples))
	}

	back := make([]int16, len(samples))
	pcmToInt16(bytes, back)
	for i := range samples {
		if back[i] != samples[i] {
			t.Errorf("sample %d = %d, want %d", i, back[i], samples[i])
		}
	}
}

func TestPCMLittleEndian(t *testing.T) {
	dst := make([]int16, 1)
	pcmToInt16([]byte{0x01, 0x02}, dst)
	if dst[0] != 0x0201 {
		t.Errorf("sample = %#x, want 0x0201", dst[0])
	}

	out := int16ToPCM([]int16{0x0201})
	if out[0] != 0x01 || out[1] != 0x02 {
		t.Errorf("bytes = % x, want 01 02", out)
	}
}

func TestFrameConstants(t *testing.T) {
	if samplesPerFrame != 960 {
		t.Errorf("samplesPerFrame = %d, want 960 (20ms at 48kHz)", samplesPerFrame)
	}
	if bytesPerFrame != 1920 {
		t.Errorf("bytesPerFrame = %d, want 1920", bytesPerFrame)
	}
}

func TestOpusPayloadSkipsSilentPackets(t *testing.T) {
	if got := opusPayload(nil); got != nil {
		t.Errorf("opusPayload(nil) = %v, want nil", got)
	}
	if got := opusPayload(&rtp.Packet{}); got != nil {
		t.Errorf("opusPayload(no payload) = %v, want nil", got)
	}

	pkt := &rtp.Packet{Payload: []byte{0x78, 0x01, 0x02}}
	if got := opusPayload(pkt); len(got) != 3 {
		t.Errorf("opusPayload(audio) length = %d, want 3", len(got))
	}
}
