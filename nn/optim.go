package nn

import (
	"errors"
	"fmt"
	"math"
)

var ErrOptimizerState = errors.New("optimizer state does not match parameters")

// OptimizerState is the serializable part of an optimizer. Buffers are keyed
// by "<param name>/<buffer name>".
type OptimizerState struct {
	Kind    string               `json:"kind"`
	Step    int                  `json:"step"`
	Buffers map[string][]float64 `json:"buffers"`
}

type Optimizer interface {
	Step(params []*Param)
	State() *OptimizerState
	LoadState(*OptimizerState) error
}

// RMSprop mirrors the torch update rule:
// avg = alpha*avg + (1-alpha)*g^2, p -= lr * g / (sqrt(avg) + eps).
type RMSprop struct {
	LR    float64
	Alpha float64
	Eps   float64

	step      int
	squareAvg map[string][]float64
}

var _ Optimizer = &RMSprop{}

func NewRMSprop(lr, alpha, eps float64) *RMSprop {
	return &RMSprop{
		LR:        lr,
		Alpha:     alpha,
		Eps:       eps,
		squareAvg: make(map[string][]float64),
	}
}

func (o *RMSprop) Step(params []*Param) {
	o.step++
	for _, p := range params {
		values := p.Value.RawMatrix().Data
		grads := p.Grad.RawMatrix().Data
		avg, ok := o.squareAvg[p.Name]
		if !ok {
			avg = make([]float64, len(values))
			o.squareAvg[p.Name] = avg
		}
		for i, g := range grads {
			avg[i] = o.Alpha*avg[i] + (1-o.Alpha)*g*g
			values[i] -= o.LR * g / (math.Sqrt(avg[i]) + o.Eps)
		}
	}
}

func (o *RMSprop) State() *OptimizerState {
	s := &OptimizerState{
		Kind:    "rmsprop",
		Step:    o.step,
		Buffers: make(map[string][]float64),
	}
	for name, avg := range o.squareAvg {
		s.Buffers[name+"/square_avg"] = append([]float64(nil), avg...)
	}
	return s
}

func (o *RMSprop) LoadState(s *OptimizerState) error {
	if s.Kind != "rmsprop" {
		return fmt.Errorf("%w: expected rmsprop, got %q", ErrOptimizerState, s.Kind)
	}
	o.step = s.Step
	o.squareAvg = make(map[string][]float64)
	for key, buf := range s.Buffers {
		name, ok := trimBuffer(key, "/square_avg")
		if !ok {
			return fmt.Errorf("%w: unknown buffer %q", ErrOptimizerState, key)
		}
		o.squareAvg[name] = append([]float64(nil), buf...)
	}
	return nil
}

// Adam uses the default torch betas (0.9, 0.999).
type Adam struct {
	LR    float64
	Beta1 float64
	Beta2 float64
	Eps   float64

	step int
	m    map[string][]float64
	v    map[string][]float64
}

var _ Optimizer = &Adam{}

func NewAdam(lr, eps float64) *Adam {
	return &Adam{
		LR:    lr,
		Beta1: 0.9,
		Beta2: 0.999,
		Eps:   eps,
		m:     make(map[string][]float64),
		v:     make(map[string][]float64),
	}
}

func (o *Adam) Step(params []*Param) {
	o.step++
	c1 := 1 - math.Pow(o.Beta1, float64(o.step))
	c2 := 1 - math.Pow(o.Beta2, float64(o.step))
	for _, p := range params {
		values := p.Value.RawMatrix().Data
		grads := p.Grad.RawMatrix().Data
		m, ok := o.m[p.Name]
		if !ok {
			m = make([]float64, len(values))
			o.m[p.Name] = m
		}
		v, ok := o.v[p.Name]
		if !ok {
			v = make([]float64, len(values))
			o.v[p.Name] = v
		}
		for i, g := range grads {
			m[i] = o.Beta1*m[i] + (1-o.Beta1)*g
			v[i] = o.Beta2*v[i] + (1-o.Beta2)*g*g
			values[i] -= o.LR * (m[i] / c1) / (math.Sqrt(v[i]/c2) + o.Eps)
		}
	}
}

func (o *Adam) State() *OptimizerState {
	s := &OptimizerState{
		Kind:    "adam",
		Step:    o.step,
		Buffers: make(map[string][]float64),
	}
	for name, m := range o.m {
		s.Buffers[name+"/exp_avg"] = append([]float64(nil), m...)
	}
	for name, v := range o.v {
		s.Buffers[name+"/exp_avg_sq"] = append([]float64(nil), v...)
	}
	return s
}

func (o *Adam) LoadState(s *OptimizerState) error {
	if s.Kind != "adam" {
		return fmt.Errorf("%w: expected adam, got %q", ErrOptimizerState, s.Kind)
	}
	o.step = s.Step
	o.m = make(map[string][]float64)
	o.v = make(map[string][]float64)
	for key, buf := range s.Buffers {
		if name, ok := trimBuffer(key, "/exp_avg"); ok {
			o.m[name] = append([]float64(nil), buf...)
		} else if name, ok := trimBuffer(key, "/exp_avg_sq"); ok {
			o.v[name] = append([]float64(nil), buf...)
		} else {
			return fmt.Errorf("%w: unknown buffer %q", ErrOptimizerState, key)
		}
	}
	return nil
}

func trimBuffer(key, suffix string) (string, bool) {
	if len(key) <= len(suffix) || key[len(key)-len(suffix):] != suffix {
		return "", false
	}
	return key[:len(key)-len(suffix)], true
}

// ClipGradNorm rescales all gradients so that their joint L2 norm is at most
// maxNorm and returns the norm measured before clipping.
func ClipGradNorm(params []*Param, maxNorm float64) float64 {
	total := 0.0
	for _, p := range params {
		for _, g := range p.Grad.RawMatrix().Data {
			total += g * g
		}
	}
	total = math.Sqrt(total)
	if total > maxNorm {
		scale := maxNorm / (total + 1e-6)
		for _, p := range params {
			p.Grad.Scale(scale, p.Grad)
		}
	}
	return total
}
