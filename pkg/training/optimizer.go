package training

import (
	"fmt"
	"math"

	"github.com/dualword/chemicalx/pkg/nn"
	"github.com/dualword/chemicalx/pkg/tensor"
)

// Optimizer updates model parameters from their accumulated gradients
type Optimizer interface {
	Step() error
	ZeroGrad()
}

// SGD is stochastic gradient descent with optional momentum
type SGD struct {
	LearningRate float64
	Momentum     float64

	params   []*nn.Parameter
	velocity []*tensor.Matrix
}

// NewSGD creates an SGD optimizer over the given parameters
func NewSGD(params []*nn.Parameter, learningRate, momentum float64) (*SGD, error) {
	if learningRate <= 0 {
		return nil, fmt.Errorf("learning rate must be positive, got %f", learningRate)
	}
	if momentum < 0 || momentum >= 1 {
		return nil, fmt.Errorf("momentum %f must be in [0,1)", momentum)
	}

	velocity := make([]*tensor.Matrix, len(params))
	for i, p := range params {
		velocity[i] = tensor.MustNewMatrix(p.Value.Rows, p.Value.Cols)
	}
	return &SGD{
		LearningRate: learningRate,
		Momentum:     momentum,
		params:       params,
		velocity:     velocity,
	}, nil
}

// Step applies one update: v = momentum*v + grad; w -= lr*v
func (s *SGD) Step() error {
	for i, p := range s.params {
		v := s.velocity[i]
		for r := 0; r < p.Value.Rows; r++ {
			for c := 0; c < p.Value.Cols; c++ {
				v.Data[r][c] = s.Momentum*v.Data[r][c] + p.Grad.Data[r][c]
				p.Value.Data[r][c] -= s.LearningRate * v.Data[r][c]
			}
		}
	}
	return nil
}

// ZeroGrad clears the accumulated gradients
func (s *SGD) ZeroGrad() {
	for _, p := range s.params {
		p.ZeroGrad()
	}
}

// Adam is the Adam optimizer with bias-corrected moment estimates
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64

	params []*nn.Parameter
	m      []*tensor.Matrix
	v      []*tensor.Matrix
	step   int
}

// NewAdam creates an Adam optimizer with the usual beta defaults
func NewAdam(params []*nn.Parameter, learningRate float64) (*Adam, error) {
	if learningRate <= 0 {
		return nil, fmt.Errorf("learning rate must be positive, got %f", learningRate)
	}

	m := make([]*tensor.Matrix, len(params))
	v := make([]*tensor.Matrix, len(params))
	for i, p := range params {
		m[i] = tensor.MustNewMatrix(p.Value.Rows, p.Value.Cols)
		v[i] = tensor.MustNewMatrix(p.Value.Rows, p.Value.Cols)
	}
	return &Adam{
		LearningRate: learningRate,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		params:       params,
		m:            m,
		v:            v,
	}, nil
}

// Step applies one bias-corrected Adam update
func (a *Adam) Step() error {
	a.step++
	correction1 := 1 - math.Pow(a.Beta1, float64(a.step))
	correction2 := 1 - math.Pow(a.Beta2, float64(a.step))

	for i, p := range a.params {
		m, v := a.m[i], a.v[i]
		for r := 0; r < p.Value.Rows; r++ {
			for c := 0; c < p.Value.Cols; c++ {
				g := p.Grad.Data[r][c]
				m.Data[r][c] = a.Beta1*m.Data[r][c] + (1-a.Beta1)*g
				v.Data[r][c] = a.Beta2*v.Data[r][c] + (1-a.Beta2)*g*g
				mHat := m.Data[r][c] / correction1
				vHat := v.Data[r][c] / correction2
				p.Value.Data[r][c] -= a.LearningRate * mHat / (math.Sqrt(vHat) + a.Epsilon)
			}
		}
	}
	return nil
}

// ZeroGrad clears the accumulated gradients
func (a *Adam) ZeroGrad() {
	for _, p := range a.params {
		p.ZeroGrad()
	}
}
