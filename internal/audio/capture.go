// Package audio handles microphone capture and the session working file
package audio

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/meetingmind/platform/internal/errdefs"
)

// Source produces raw PCM frames. The microphone implements it; tests
// replay fixed byte streams through a fake.
type Source interface {
	Start(ctx context.Context) error
	Frames() <-chan []int16
	Stop() error
}

// Microphone captures mono PCM frames from the best available input device.
type Microphone struct {
	sampleRate   int
	framesPerBuf int
	excluded     []string

	mu       sync.Mutex
	outCh    chan []int16
	stream   *portaudio.Stream
	cancel   context.CancelFunc
	stopOnce *sync.Once
	running  bool
}

// NewMicrophone creates a microphone source. bufferSize bounds the frame
// channel; full-channel frames are dropped rather than blocking the device
// callback.
func NewMicrophone(sampleRate, bufferSize int, excludedDevices []string) *Microphone {
	return &Microphone{
		sampleRate:   sampleRate,
		framesPerBuf: 1024, // ~64ms at 16kHz
		excluded:     excludedDevices,
		outCh:        make(chan []int16, bufferSize),
	}
}

// Frames returns the channel delivering captured frames. The channel closes
// when capture stops or the device fails mid-stream.
func (m *Microphone) Frames() <-chan []int16 { return m.outCh }

// Start opens the input device and begins streaming.
func (m *Microphone) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return errdefs.Wrap(err, errdefs.CodeCapture, "audio subsystem init failed")
	}

	dev, err := m.pickDevice()
	if err != nil {
		_ = portaudio.Terminate()
		return err
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: NumChannels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(m.sampleRate),
		FramesPerBuffer: m.framesPerBuf,
	}

	buf := make([]int16, m.framesPerBuf)
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		_ = portaudio.Terminate()
		return errdefs.Wrapf(err, errdefs.CodeCapture, "open stream on %q", dev.Name)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return errdefs.Wrapf(err, errdefs.CodeCapture, "start stream on %q", dev.Name)
	}

	devCtx, cancel := context.WithCancel(ctx)
	m.stream = stream
	m.cancel = cancel
	m.stopOnce = &sync.Once{}
	m.running = true

	slog.Info("started audio capture", "device", dev.Name, "sample_rate", m.sampleRate)

	go m.readLoop(devCtx, stream, buf, dev.Name)
	return nil
}

func (m *Microphone) readLoop(ctx context.Context, stream *portaudio.Stream, buf []int16, device string) {
	defer close(m.outCh)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := stream.Read(); err != nil {
			// Mid-stream device failure; the recorder keeps the partial file.
			slog.Warn("audio read error, capture ending", "device", device, "error", err)
			return
		}

		frame := append([]int16(nil), buf...)
		select {
		case m.outCh <- frame:
		default:
			slog.Debug("audio buffer full, dropping frame", "device", device)
		}
	}
}

// pickDevice scans input devices, skipping exclusions, preferring built-in mics.
func (m *Microphone) pickDevice() (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, errdefs.Wrap(err, errdefs.CodeCapture, "enumerate devices")
	}

	var best *portaudio.DeviceInfo
	for _, dev := range devices {
		if dev.MaxInputChannels < 1 || m.isExcluded(dev.Name) {
			continue
		}
		if best == nil || preferDevice(dev.Name, best.Name) {
			best = dev
		}
	}
	if best == nil {
		return nil, errdefs.New(errdefs.CodeCapture, "no usable input device")
	}
	return best, nil
}

func (m *Microphone) isExcluded(name string) bool {
	for _, ex := range m.excluded {
		if containsFold(name, ex) {
			return true
		}
	}
	return false
}

// preferDevice prefers built-in mics over external/virtual ones.
func preferDevice(name, current string) bool {
	preferred := []string{"macbook", "built-in", "internal"}
	for _, p := range preferred {
		if containsFold(name, p) && !containsFold(current, p) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Stop ends capture and releases the device.
func (m *Microphone) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return nil
	}
	m.stopOnce.Do(func() {
		m.cancel()
		_ = m.stream.Stop()
		_ = m.stream.Close()
		_ = portaudio.Terminate()
	})
	m.running = false
	return nil
}
