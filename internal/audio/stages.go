package audio

import (
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-dsp/dsp/effects/pitch"
	"github.com/cwbudde/algo-dsp/dsp/effects/reverb"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
	"github.com/faiface/beep"
)

// Equalizer band layout. The corner frequencies are fixed; only the gains
// are user controls.
const (
	eqLowShelfHz  = 120.0
	eqMidPeakHz   = 1000.0
	eqHighShelfHz = 8000.0
	eqShelfQ      = 0.707
	eqMidQ        = 0.9
)

// Resampler quality indices passed to beep.ResampleRatio. The linked stage
// is the "HQ" path: it does the whole speed/pitch job in one resampler, so
// it gets the more expensive filter.
const (
	resampleQuality   = 4
	resampleQualityHQ = 8
)

// frameCounter counts frames pulled through it since the last reset. It
// sits between the scheduled segment and the rate stage, so it counts
// source frames and the count is readable from any goroutine.
type frameCounter struct {
	src beep.Streamer
	n   int64
}

func (c *frameCounter) Stream(samples [][2]float64) (int, bool) {
	n, ok := c.src.Stream(samples)
	atomic.AddInt64(&c.n, int64(n))
	return n, ok
}

func (c *frameCounter) Err() error { return c.src.Err() }

func (c *frameCounter) frames() int { return int(atomic.LoadInt64(&c.n)) }

// eqStage is the 3-band tonal balance stage: low shelf, parametric mid,
// high shelf, one biquad chain per channel.
type eqStage struct {
	src        beep.Streamer
	sampleRate float64
	chains     [2]*biquad.Chain
}

func newEQStage(sampleRate float64) *eqStage {
	coeffs := eqCoefficients(sampleRate, [3]float64{})
	e := &eqStage{sampleRate: sampleRate}
	for i := range e.chains {
		e.chains[i] = biquad.NewChain(coeffs)
	}
	return e
}

func eqCoefficients(sampleRate float64, gainsDB [3]float64) []biquad.Coefficients {
	return []biquad.Coefficients{
		design.LowShelf(eqLowShelfHz, gainsDB[0], eqShelfQ, sampleRate),
		design.Peak(eqMidPeakHz, gainsDB[1], eqMidQ, sampleRate),
		design.HighShelf(eqHighShelfHz, gainsDB[2], eqShelfQ, sampleRate),
	}
}

// setBandGains recomputes the filter coefficients in place. Callers
// serialize against the render thread via the sink lock; a change lands
// between pulls, which is fine for a continuous control.
func (e *eqStage) setBandGains(gainsDB [3]float64) {
	coeffs := eqCoefficients(e.sampleRate, gainsDB)
	for i := range e.chains {
		e.chains[i].SetGain(1.0)
		for j := range coeffs {
			e.chains[i].Section(j).Coefficients = coeffs[j]
		}
	}
}

func (e *eqStage) reset() {
	for i := range e.chains {
		e.chains[i].Reset()
	}
}

func (e *eqStage) Stream(samples [][2]float64) (int, bool) {
	n, ok := e.src.Stream(samples)
	for i := 0; i < n; i++ {
		samples[i][0] = e.chains[0].ProcessSample(samples[i][0])
		samples[i][1] = e.chains[1].ProcessSample(samples[i][1])
	}
	return n, ok
}

func (e *eqStage) Err() error { return e.src.Err() }

// reverbStage runs a fixed-preset feedback delay network per channel and
// exposes only the wet/dry mix.
type reverbStage struct {
	src  beep.Streamer
	fdns [2]*reverb.FDNReverb
}

func newReverbStage(sampleRate float64) (*reverbStage, error) {
	r := &reverbStage{}
	for i := range r.fdns {
		fdn, err := reverb.NewFDNReverb(sampleRate)
		if err != nil {
			return nil, err
		}
		r.fdns[i] = fdn
	}
	if err := r.setMix(0); err != nil {
		return nil, err
	}
	return r, nil
}

// setMix maps a 0-100 percent control onto the wet/dry crossfade.
func (r *reverbStage) setMix(percent float64) error {
	w := percent / 100
	for i := range r.fdns {
		if err := r.fdns[i].SetWet(w); err != nil {
			return err
		}
		if err := r.fdns[i].SetDry(1 - w); err != nil {
			return err
		}
	}
	return nil
}

func (r *reverbStage) reset() {
	for i := range r.fdns {
		r.fdns[i].Reset()
	}
}

func (r *reverbStage) Stream(samples [][2]float64) (int, bool) {
	n, ok := r.src.Stream(samples)
	for i := 0; i < n; i++ {
		samples[i][0] = r.fdns[0].ProcessSample(samples[i][0])
		samples[i][1] = r.fdns[1].ProcessSample(samples[i][1])
	}
	return n, ok
}

func (r *reverbStage) Err() error { return r.src.Err() }

// pitchCompStage undoes the pitch change a resampler introduced and applies
// the user's pitch offset on top. Together with the resampler in front of
// it this forms the independent tempo/pitch stage: the resampler sets
// tempo, this stage sets pitch.
type pitchCompStage struct {
	src      beep.Streamer
	shifters [2]*pitch.PitchShifter
	identity bool
	scratch  [2][]float64
}

func newPitchCompStage(sampleRate float64) (*pitchCompStage, error) {
	p := &pitchCompStage{identity: true}
	for i := range p.shifters {
		sh, err := pitch.NewPitchShifter(sampleRate)
		if err != nil {
			return nil, err
		}
		p.shifters[i] = sh
	}
	return p, nil
}

// compensationRatio is the total pitch correction for a playback rate and a
// user pitch offset in cents. Resampling by rate shifts pitch by rate, so
// the correction is the inverse times the requested offset.
func compensationRatio(rate, pitchCents float64) float64 {
	return math.Pow(2, pitchCents/1200) / rate
}

func (p *pitchCompStage) setRatio(ratio float64) error {
	for i := range p.shifters {
		if err := p.shifters[i].SetPitchRatio(ratio); err != nil {
			return err
		}
	}
	p.identity = math.Abs(ratio-1) < 1e-9
	return nil
}

func (p *pitchCompStage) Stream(samples [][2]float64) (int, bool) {
	n, ok := p.src.Stream(samples)
	if p.identity || n == 0 {
		return n, ok
	}

	for ch := 0; ch < 2; ch++ {
		if cap(p.scratch[ch]) < n {
			p.scratch[ch] = make([]float64, n)
		}
		buf := p.scratch[ch][:n]
		for i := 0; i < n; i++ {
			buf[i] = samples[i][ch]
		}
		out := p.shifters[ch].Process(buf)
		for i := 0; i < n; i++ {
			samples[i][ch] = out[i]
		}
	}
	return n, ok
}

func (p *pitchCompStage) Err() error { return p.src.Err() }
