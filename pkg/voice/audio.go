package voice

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3/pkg/media"
	"gopkg.in/hraban/opus.v2"
)

// Audio format for both directions of the bridge.
const (
	// SampleRate is the PCM sample rate in Hz.
	SampleRate = 48000

	// Channels is the PCM channel count.
	Channels = 1

	// FrameDuration is the opus frame size sent on the uplink.
	FrameDuration = 20 * time.Millisecond

	samplesPerFrame = SampleRate / 50 // 960 samples per 20ms
	bytesPerFrame   = samplesPerFrame * 2

	// maxDecodedSamples covers the largest legal opus frame (120ms).
	maxDecodedSamples = SampleRate * 120 / 1000
)

// sampleWriter is the uplink target, normally a local WebRTC track.
type sampleWriter interface {
	WriteSample(s media.Sample) error
}

// micEncoder turns a PCM16 byte stream into 20ms opus samples on the
// uplink track. Partial frames are carried until enough samples
// arrive. Not goroutine-safe; the session serializes writes.
type micEncoder struct {
	enc     *opus.Encoder
	out     sampleWriter
	pending []byte
	frame   []int16
	packet  []byte
}

func newMicEncoder(out sampleWriter) (*micEncoder, error) {
	enc, err := opus.NewEncoder(SampleRate, Channels, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("voice: create opus encoder: %w", err)
	}
	return &micEncoder{
		enc:    enc,
		out:    out,
		frame:  make([]int16, samplesPerFrame),
		packet: make([]byte, 1500),
	}, nil
}

// write consumes PCM16 bytes, emitting one opus sample per complete
// 20ms frame.
func (m *micEncoder) write(pcm []byte) error {
	m.pending = append(m.pending, pcm...)

	for len(m.pending) >= bytesPerFrame {
		pcmToInt16(m.pending[:bytesPerFrame], m.frame)
		n, err := m.enc.Encode(m.frame, m.packet)
		if err != nil {
			return fmt.Errorf("voice: opus encode: %w", err)
		}

		data := make([]byte, n)
		copy(data, m.packet[:n])
		if err := m.out.WriteSample(media.Sample{Data: data, Duration: FrameDuration}); err != nil {
			return fmt.Errorf("voice: write uplink sample: %w", err)
		}

		m.pending = m.pending[bytesPerFrame:]
	}

	// Reclaim the consumed prefix so pending does not grow unbounded.
	if len(m.pending) == 0 {
		m.pending = nil
	} else if cap(m.pending) > 4*bytesPerFrame {
		m.pending = append([]byte(nil), m.pending...)
	}
	return nil
}

// opusPayload returns the opus payload of one RTP packet, or nil for
// packets carrying no usable audio. Padding-only packets and empty DTX
// frames arrive on real tracks and must not reach the decoder.
func opusPayload(pkt *rtp.Packet) []byte {
	if pkt == nil || len(pkt.Payload) == 0 {
		return nil
	}
	return pkt.Payload
}

// speakerDecoder turns received opus packets back into PCM16 bytes.
type speakerDecoder struct {
	dec *opus.Decoder
	pcm []int16
}

func newSpeakerDecoder() (*speakerDecoder, error) {
	dec, err := opus.NewDecoder(SampleRate, Channels)
	if err != nil {
		return nil, fmt.Errorf("voice: create opus decoder: %w", err)
	}
	return &speakerDecoder{
		dec: dec,
		pcm: make([]int16, maxDecodedSamples),
	}, nil
}

// decode returns the PCM16 bytes for one opus packet. The returned
// slice is freshly allocated and safe to retain.
func (s *speakerDecoder) decode(packet []byte) ([]byte, error) {
	n, err := s.dec.Decode(packet, s.pcm)
	if err != nil {
		return nil, fmt.Errorf("voice: opus decode: %w", err)
	}
	return int16ToPCM(s.pcm[:n]), nil
}

// pcmToInt16 unpacks little-endian PCM16 bytes into dst.
func pcmToInt16(src []byte, dst []int16) {
	for i := range dst {
		dst[i] = int16(binary.LittleEndian.Uint16(src[2*i:]))
	}
}

// int16ToPCM packs samples into little-endian PCM16 bytes.
func int16ToPCM(samples []int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}
