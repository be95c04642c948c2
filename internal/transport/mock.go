package transport

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

const (
	// MockPort selects the synthetic device.
	MockPort = "MOCK"

	DefaultMockInterval = 50 * time.Millisecond
	// DefaultNoiseEvery makes every Nth line a firmware message instead of a record.
	DefaultNoiseEvery   = 25
)

// Synthetic signal shape.
const (
	mockBaseIR    = 52000.0
	mockIRSwing   = 1800.0
	mockBaseBPM   = 74.0
	mockBPMSwing  = 9.0
	mockBaseGSR   = 480.0
	mockGSRDrift  = 0.6 // per line
	mockAvgWindow = 4.0
	mockNoiseLine = "Place your index finger on the sensor with steady pressure."
	mockStartByte = 'L'
	mockStopByte  = 'D'
)

// Mock emulates the sensor board: one record per interval while streaming.
// Writing 'D' pauses the stream and 'L' resumes it, like the firmware.
type Mock struct {
	mu         sync.Mutex
	interval   time.Duration
	noiseEvery int
	next       time.Time
	seq        int
	avgBPM     float64
	gsr        float64
	streaming  bool
	closed     bool
	written    []byte
	rng        *rand.Rand
}

// NewMock returns a streaming synthetic device. noiseEvery <= 0 disables noise lines.
func NewMock(interval time.Duration, noiseEvery int) *Mock {
	if interval <= 0 {
		interval = DefaultMockInterval
	}
	return &Mock{
		interval:   interval,
		noiseEvery: noiseEvery,
		next:       time.Now().Add(interval),
		avgBPM:     mockBaseBPM,
		gsr:        mockBaseGSR,
		streaming:  true,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *Mock) ReadLine(timeout time.Duration) (string, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", ErrClosed
	}
	wait := time.Until(m.next)
	if !m.streaming || wait > timeout {
		m.mu.Unlock()
		time.Sleep(timeout)
		return "", ErrTimeout
	}
	m.next = m.next.Add(m.interval)
	line := m.lineLocked()
	m.mu.Unlock()

	if wait > 0 {
		time.Sleep(wait)
	}
	return line, nil
}

func (m *Mock) Write(p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.written = append(m.written, p...)
	for _, c := range p {
		switch c {
		case mockStartByte:
			if !m.streaming {
				m.next = time.Now().Add(m.interval)
			}
			m.streaming = true
		case mockStopByte:
			m.streaming = false
		}
	}
	return nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Written returns every byte written to the device so far.
func (m *Mock) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.written...)
}

// lineLocked produces the next line of output. m.mu must be held.
func (m *Mock) lineLocked() string {
	m.seq++
	if m.noiseEvery > 0 && m.seq%m.noiseEvery == 0 {
		return mockNoiseLine
	}

	phase := float64(m.seq) / 20
	ir := mockBaseIR + mockIRSwing*math.Sin(phase) + m.rng.Float64()*100
	bpm := mockBaseBPM + mockBPMSwing*math.Sin(phase/3) + m.rng.NormFloat64()
	m.avgBPM += (bpm - m.avgBPM) / mockAvgWindow
	m.gsr += mockGSRDrift * m.rng.NormFloat64()

	return fmt.Sprintf("%.0f,%.2f,%.0f,%.0f", ir, bpm, m.avgBPM, m.gsr)
}
