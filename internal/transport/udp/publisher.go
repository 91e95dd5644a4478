// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	applog "audio/internal/log"
	"audio/internal/pv"
)

// UDPPublisher periodically snapshots the most recently completed
// spectral frame from a phase-vocoder View, packs the magnitudes into a
// defined binary format, and sends them over UDP using a UDPSender. It
// runs in a separate goroutine managed by Start and Stop methods.
//
// The View does not expose which row is "most recent" (spec §9), so the
// publisher tracks its own shadow round-robin cursor via Observe, the
// same pattern used by the analysis package's BandEnergyProcessor and by
// the pv/transform Transformers.
type UDPPublisher struct {
	sender   *UDPSender    // The underlying UDP sender instance.
	view     pv.View       // The View to snapshot magnitudes from.
	interval time.Duration // The interval at which packets are sent.

	overcount int // Shadow cursor, advanced by Observe on each hop.

	ticker   *time.Ticker   // Ticker that triggers packet sending.
	doneChan chan struct{}  // Channel used to signal the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects ticker/doneChan and the magnitude snapshot.

	sequenceNum uint32 // Monotonically increasing sequence number for packets.

	// Pre-allocated buffers to reduce allocations in the hot path (buildAndSendPacket).
	udpMagBuffer []float64     // Snapshot of the latest magnitude row.
	udpF32Buffer []float32     // Buffer to hold float32 magnitudes for binary packing.
	packetBuffer *bytes.Buffer // Reusable buffer for constructing the binary packet.
}

// NewUDPPublisher creates and initializes a new UDPPublisher.
// It requires a valid UDPSender and a pv.View to observe.
// If the provided interval is invalid (<= 0), it defaults to 16ms (~60Hz).
func NewUDPPublisher(interval time.Duration, sender *UDPSender, view pv.View) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if view == nil {
		return nil, fmt.Errorf("UDPPublisher: pv.View cannot be nil")
	}

	if interval <= 0 {
		interval = 16 * time.Millisecond // Default to ~60Hz if invalid
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}

	requiredLen := view.Geometry().H + 1
	applog.Infof("UDPPublisher: Initializing (Interval: %s, FFT Bins: %d)", interval, requiredLen)

	return &UDPPublisher{
		sender:       sender,
		view:         view,
		interval:     interval,
		udpMagBuffer: make([]float64, requiredLen),
		udpF32Buffer: make([]float32, requiredLen),
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Observe scans a processed block for hop boundaries and snapshots the
// newly completed magnitude row for the next ticker-driven send. It must
// be called from the same goroutine that drives the pv.Graph, once per
// block, after the graph's ComputeNextDataFrame.
func (p *UDPPublisher) Observe(b int) {
	g := p.view.Geometry()
	for i := 0; i < b; i++ {
		if p.view.Count(i) == g.N-1 {
			p.mu.Lock()
			copy(p.udpMagBuffer, p.view.MagnRow(p.overcount))
			p.mu.Unlock()
			p.overcount = (p.overcount + 1) % g.O
		}
	}
}

// Start begins the periodic publishing process.
// It launches a goroutine that ticks at the configured interval, calling
// buildAndSendPacket on each tick until Stop is called.
// It is safe to call Start multiple times; subsequent calls are no-ops if already started.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan

	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				applog.Infof("UDPPublisher: Publisher goroutine received stop signal.")
				return
			}
		}
	}()
}

// Stop gracefully signals the publisher goroutine to terminate and waits for it to exit.
// It stops the internal ticker and closes the done channel.
// It is safe to call Stop multiple times; subsequent calls are no-ops.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		applog.Debugf("UDPPublisher: Stop called but not running.")
		return nil
	}

	p.stopOnce.Do(func() {
		applog.Infof("UDPPublisher: Initiating stop sequence...")
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})

	p.mu.Unlock()

	applog.Debugf("UDPPublisher: Waiting for publisher goroutine to finish...")
	p.wg.Wait()
	applog.Infof("UDPPublisher: Publisher goroutine finished.")
	return nil
}

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Magnitude Count   | uint16         | 2            | Number of floats (N)    |
| Magnitudes        | []float32      | N * 4        | Array of FFT magnitudes |
+-----------------------------------------------------------------------------+
*/

// buildAndSendPacket is the core function executed on each ticker interval.
func (p *UDPPublisher) buildAndSendPacket() {
	p.mu.Lock()
	for i, v := range p.udpMagBuffer {
		p.udpF32Buffer[i] = float32(v)
	}
	p.mu.Unlock()

	p.sequenceNum++
	timestamp := time.Now().UnixNano()
	magnitudeCount := uint16(len(p.udpF32Buffer))

	p.packetBuffer.Reset()

	err := binary.Write(p.packetBuffer, binary.BigEndian, p.sequenceNum)
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, timestamp)
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, magnitudeCount)
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, p.udpF32Buffer)
	}

	if err != nil {
		applog.Errorf("UDPPublisher: Error packing data into binary buffer: %v", err)
		return
	}

	packetBytes := p.packetBuffer.Bytes()

	if err := p.sender.Send(packetBytes); err == nil {
		applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, len(packetBytes))
	}
}

// Close implements the io.Closer interface. It gracefully stops the publisher goroutine.
func (p *UDPPublisher) Close() error {
	applog.Debugf("UDPPublisher: Close called, stopping publisher...")
	return p.Stop()
}

// Ensure UDPPublisher satisfies the io.Closer interface at compile time.
var _ interface{ Close() error } = (*UDPPublisher)(nil)
