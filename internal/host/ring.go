package host

import "sync"

// SampleRing buffers beeper samples between the emulation goroutine and the
// audio device. When full the oldest samples are dropped; reads past the
// end return silence.
type SampleRing struct {
	mu    sync.Mutex
	buf   []float32
	read  int
	count int
	last  float32
}

func NewSampleRing(capacity int) *SampleRing {
	if capacity < 1 {
		capacity = 1
	}
	return &SampleRing{buf: make([]float32, capacity)}
}

// AddSamples implements beeper.SoundProvider.
func (r *SampleRing) AddSamples(samples []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	size := len(r.buf)
	if len(samples) > size {
		samples = samples[len(samples)-size:]
	}
	for _, s := range samples {
		if r.count == size {
			r.read = (r.read + 1) % size
			r.count--
		}
		r.buf[(r.read+r.count)%size] = s
		r.count++
	}
}

// ReadSamples fills dst. Underruns repeat the last level so a starved
// device holds the line instead of clicking.
func (r *SampleRing) ReadSamples(dst []float32) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := min(len(dst), r.count)
	for i := range n {
		dst[i] = r.buf[r.read]
		r.read = (r.read + 1) % len(r.buf)
	}
	r.count -= n
	if n > 0 {
		r.last = dst[n-1]
	}
	for i := n; i < len(dst); i++ {
		dst[i] = r.last
	}
	return n
}

func (r *SampleRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// SoundFanout forwards every batch of samples to several providers.
type SoundFanout []interface{ AddSamples([]float32) }

func (f SoundFanout) AddSamples(samples []float32) {
	for _, p := range f {
		p.AddSamples(samples)
	}
}
