package profiler

import (
	"log"
	"runtime"
	"time"
)

// FrameSample is the streaming outcome of one frame, reported through ObserveFrame.
type FrameSample struct {
	// Dropped is true when the frame was abandoned before recording.
	Dropped bool
	// Overflow and ResourceKey give the cause of a dropped frame.
	Overflow    bool
	ResourceKey bool

	Instances int
	DrawCalls int
	// StreamingBytes is the number of instance bytes written this frame.
	StreamingBytes uint64
}

// StreamingCounters accumulate FrameSamples over one profiler interval.
type StreamingCounters struct {
	FramesBuilt        int
	FramesDropped      int
	DroppedOverflow    int
	DroppedResourceKey int
	DrawCalls          int
	Instances          int
	// PeakStreamingBytes is the largest StreamingBytes seen in the interval.
	PeakStreamingBytes uint64
}

// Profiler tracks frame rate, memory and world streaming statistics for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	streaming StreamingCounters
	last      StreamingCounters
}

// ProfilerBuilderOption is a functional option applied to a profiler during construction via NewProfiler.
type ProfilerBuilderOption func(*Profiler)

// WithUpdateInterval sets how often Tick logs. Zero logs on every tick.
//
// Parameters:
//   - d: the logging interval
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the interval to a profiler
func WithUpdateInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.updateInterval = d
	}
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Parameters:
//   - opts: optional ProfilerBuilderOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(opts ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
		memStats:       runtime.MemStats{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ObserveFrame adds one frame's streaming outcome to the current interval.
//
// Parameters:
//   - s: the frame sample
func (p *Profiler) ObserveFrame(s FrameSample) {
	c := &p.streaming
	if s.Dropped {
		c.FramesDropped++
		if s.Overflow {
			c.DroppedOverflow++
		}
		if s.ResourceKey {
			c.DroppedResourceKey++
		}
		return
	}
	c.FramesBuilt++
	c.DrawCalls += s.DrawCalls
	c.Instances += s.Instances
	c.PeakStreamingBytes = max(c.PeakStreamingBytes, s.StreamingBytes)
}

// LastInterval returns the streaming counters of the most recently logged interval.
func (p *Profiler) LastInterval() StreamingCounters {
	return p.last
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times, total memory.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed >= p.updateInterval {
		fps := float64(p.frameCount) / elapsed.Seconds()

		runtime.ReadMemStats(&p.memStats)
		// Alloc: Bytes of allocated heap objects (live memory)
		// TotalAlloc: Cumulative bytes allocated for heap objects (increases forever, tracks churn)
		// Sys: Total bytes of memory obtained from the OS (actual process footprint)
		allocMB := float64(p.memStats.Alloc) / 1024 / 1024
		sysMB := float64(p.memStats.Sys) / 1024 / 1024

		// Calculate allocation rate (MB/sec)
		allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
		allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

		// Calculate GC pause stats (last pause and max recent pause)
		gcCount := p.memStats.NumGC
		var lastPauseUs, maxPauseUs uint64
		if gcCount > 0 {
			// PauseNs is a circular buffer of last 256 GC pauses
			lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

			// Find max pause since last tick
			startIdx := p.lastGCCount
			if gcCount-startIdx > 256 {
				startIdx = gcCount - 256
			}
			for i := startIdx; i < gcCount; i++ {
				pause := p.memStats.PauseNs[i%256] / 1000
				if pause > maxPauseUs {
					maxPauseUs = pause
				}
			}
		}

		log.Printf("[Profiler] FPS: %.2f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
			fps, allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)

		c := p.streaming
		if c.FramesBuilt > 0 || c.FramesDropped > 0 {
			var drawsPerFrame float64
			if c.FramesBuilt > 0 {
				drawsPerFrame = float64(c.DrawCalls) / float64(c.FramesBuilt)
			}
			log.Printf("[Profiler] Streaming: built %d | dropped %d (overflow %d, resource key %d) | Draws/frame: %.1f | Peak: %.2f KB",
				c.FramesBuilt, c.FramesDropped, c.DroppedOverflow, c.DroppedResourceKey, drawsPerFrame, float64(c.PeakStreamingBytes)/1024)
		}
		p.last = c
		p.streaming = StreamingCounters{}

		p.frameCount = 0
		p.lastTime = currentTime
		p.lastGCCount = gcCount
		p.lastTotalAlloc = p.memStats.TotalAlloc
		return true
	}

	return false
}
