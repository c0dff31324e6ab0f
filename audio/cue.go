package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

const (
	sampleRate = 44100
	channels   = 1
	amplitude  = 0.25
	// fade keeps tone edges from clicking.
	fade = 5 * time.Millisecond
)

// Tone is a sequence of sine notes played back to back.
type Tone struct {
	Freqs []float64
	Note  time.Duration
}

var (
	ToneRecord   = Tone{Freqs: []float64{660, 990}, Note: 70 * time.Millisecond}
	TonePlayback = Tone{Freqs: []float64{880}, Note: 90 * time.Millisecond}
	ToneFailed   = Tone{Freqs: []float64{220}, Note: 180 * time.Millisecond}
)

// Duration is the total play time.
func (t Tone) Duration() time.Duration {
	return time.Duration(len(t.Freqs)) * t.Note
}

// PCM renders the tone as signed 16-bit little-endian mono samples.
func (t Tone) PCM() []byte {
	perNote := int(float64(sampleRate) * t.Note.Seconds())
	ramp := int(float64(sampleRate) * fade.Seconds())
	if ramp*2 > perNote {
		ramp = perNote / 2
	}

	out := make([]byte, 0, perNote*len(t.Freqs)*2)
	for _, f := range t.Freqs {
		for i := 0; i < perNote; i++ {
			gain := amplitude
			switch {
			case i < ramp:
				gain *= float64(i) / float64(ramp)
			case i >= perNote-ramp:
				gain *= float64(perNote-1-i) / float64(ramp)
			}
			v := gain * math.Sin(2*math.Pi*f*float64(i)/sampleRate)
			out = binary.LittleEndian.AppendUint16(out, uint16(int16(v*math.MaxInt16)))
		}
	}
	return out
}

// Player plays short tones on the default output device.
type Player struct {
	malgoCtx *malgo.AllocatedContext

	// mu serializes tones; overlapping cues are not useful.
	mu sync.Mutex
}

// NewPlayer initializes the audio backend.
func NewPlayer() (*Player, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	return &Player{malgoCtx: ctx}, nil
}

// Play blocks until the tone has been handed to the device.
func (p *Player) Play(t Tone) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.malgoCtx == nil {
		return fmt.Errorf("player closed")
	}

	pcm := t.PCM()
	var (
		pos      int
		done     = make(chan struct{})
		doneOnce sync.Once
	)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = channels
	deviceConfig.SampleRate = sampleRate
	deviceConfig.Alsa.NoMMap = 1

	onData := func(pOutputSample, pInputSamples []byte, framecount uint32) {
		n := copy(pOutputSample, pcm[pos:])
		pos += n
		clear(pOutputSample[n:])
		if pos >= len(pcm) {
			doneOnce.Do(func() { close(done) })
		}
	}

	device, err := malgo.InitDevice(p.malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onData,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}

	select {
	case <-done:
		// Let the last buffer drain.
		time.Sleep(50 * time.Millisecond)
	case <-time.After(t.Duration() + time.Second):
	}

	device.Stop()
	return nil
}

// Close releases resources
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.malgoCtx != nil {
		_ = p.malgoCtx.Uninit()
		p.malgoCtx.Free()
		p.malgoCtx = nil
	}
	return nil
}
