//go:build headless

package host

// OtoPlayer drains the ring without a sound device in headless builds.
type OtoPlayer struct {
	ring    *SampleRing
	started bool
}

func NewOtoPlayer(sampleRate int, ring *SampleRing) (*OtoPlayer, error) {
	return &OtoPlayer{ring: ring}, nil
}

func (op *OtoPlayer) Read(p []byte) (n int, err error) {
	buf := make([]float32, len(p)/4)
	op.ring.ReadSamples(buf)
	clear(p)
	return len(p), nil
}

func (op *OtoPlayer) Start()          { op.started = true }
func (op *OtoPlayer) Close()          { op.started = false }
func (op *OtoPlayer) IsStarted() bool { return op.started }
