// Package nn provides the inference-only neural network primitives shared
// by the pattern, network, and fusion models. Weights are plain exported
// matrices so a model-loading collaborator can populate them from a trained
// checkpoint; the seeded constructors exist for development and tests.
//
// Convention throughout: rows are batch/time steps, columns are features.
package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Linear is a fully connected layer: y = xW + b.
type Linear struct {
	W *mat.Dense    // in x out
	B *mat.VecDense // out
}

// NewLinear creates a Linear layer with Xavier-uniform weights.
func NewLinear(in, out int, rng *rand.Rand) *Linear {
	return &Linear{
		W: xavier(in, out, rng),
		B: mat.NewVecDense(out, nil),
	}
}

// Forward applies the layer to x (n x in), returning n x out.
func (l *Linear) Forward(x *mat.Dense) *mat.Dense {
	n, _ := x.Dims()
	_, out := l.W.Dims()

	y := mat.NewDense(n, out, nil)
	y.Mul(x, l.W)
	for i := 0; i < n; i++ {
		for j := 0; j < out; j++ {
			y.Set(i, j, y.At(i, j)+l.B.AtVec(j))
		}
	}
	return y
}

// BatchNorm normalizes each feature column with running statistics.
// Inference-only: statistics are loaded, never updated.
type BatchNorm struct {
	Gamma *mat.VecDense
	Beta  *mat.VecDense
	Mean  *mat.VecDense
	Var   *mat.VecDense
	Eps   float64
}

// NewBatchNorm creates an identity-initialized BatchNorm over dim features
// (gamma=1, beta=0, mean=0, var=1).
func NewBatchNorm(dim int) *BatchNorm {
	gamma := mat.NewVecDense(dim, nil)
	variance := mat.NewVecDense(dim, nil)
	for i := 0; i < dim; i++ {
		gamma.SetVec(i, 1)
		variance.SetVec(i, 1)
	}
	return &BatchNorm{
		Gamma: gamma,
		Beta:  mat.NewVecDense(dim, nil),
		Mean:  mat.NewVecDense(dim, nil),
		Var:   variance,
		Eps:   1e-5,
	}
}

// Forward normalizes x (n x dim) in a new matrix.
func (b *BatchNorm) Forward(x *mat.Dense) *mat.Dense {
	n, dim := x.Dims()
	y := mat.NewDense(n, dim, nil)
	for j := 0; j < dim; j++ {
		inv := 1 / math.Sqrt(b.Var.AtVec(j)+b.Eps)
		for i := 0; i < n; i++ {
			y.Set(i, j, (x.At(i, j)-b.Mean.AtVec(j))*inv*b.Gamma.AtVec(j)+b.Beta.AtVec(j))
		}
	}
	return y
}

// Dropout is a no-op outside training mode. The engine only runs inference,
// so Forward returns its input unless Training is set.
type Dropout struct {
	P        float64
	Training bool
	rng      *rand.Rand
}

// NewDropout creates a dropout layer in inference mode.
func NewDropout(p float64, rng *rand.Rand) *Dropout {
	return &Dropout{P: p, rng: rng}
}

// Forward applies dropout when Training, otherwise passes x through.
func (d *Dropout) Forward(x *mat.Dense) *mat.Dense {
	if !d.Training || d.P <= 0 {
		return x
	}
	n, m := x.Dims()
	y := mat.NewDense(n, m, nil)
	scale := 1 / (1 - d.P)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			if d.rng.Float64() < d.P {
				y.Set(i, j, 0)
			} else {
				y.Set(i, j, x.At(i, j)*scale)
			}
		}
	}
	return y
}

// ReLU applies max(0, x) element-wise in place and returns x.
func ReLU(x *mat.Dense) *mat.Dense {
	apply(x, func(v float64) float64 { return math.Max(0, v) })
	return x
}

// ELU applies the exponential linear unit element-wise in place.
func ELU(x *mat.Dense) *mat.Dense {
	apply(x, func(v float64) float64 {
		if v >= 0 {
			return v
		}
		return math.Expm1(v)
	})
	return x
}

// LeakyReLU applies max(slope*x, x) element-wise in place.
func LeakyReLU(x *mat.Dense, slope float64) *mat.Dense {
	apply(x, func(v float64) float64 {
		if v >= 0 {
			return v
		}
		return slope * v
	})
	return x
}

// Sigmoid applies the logistic function element-wise in place.
func Sigmoid(x *mat.Dense) *mat.Dense {
	apply(x, sigmoid)
	return x
}

// Tanh applies tanh element-wise in place.
func Tanh(x *mat.Dense) *mat.Dense {
	apply(x, math.Tanh)
	return x
}

func sigmoid(v float64) float64 { return 1 / (1 + math.Exp(-v)) }

// SoftmaxRows applies a numerically stable softmax to each row in place.
// Every row sums to exactly the accumulated 1 within float tolerance.
func SoftmaxRows(x *mat.Dense) *mat.Dense {
	n, m := x.Dims()
	for i := 0; i < n; i++ {
		maxv := math.Inf(-1)
		for j := 0; j < m; j++ {
			if v := x.At(i, j); v > maxv {
				maxv = v
			}
		}
		sum := 0.0
		for j := 0; j < m; j++ {
			e := math.Exp(x.At(i, j) - maxv)
			x.Set(i, j, e)
			sum += e
		}
		for j := 0; j < m; j++ {
			x.Set(i, j, x.At(i, j)/sum)
		}
	}
	return x
}

// SoftmaxVec applies a stable softmax to a slice in place.
func SoftmaxVec(v []float64) []float64 {
	maxv := math.Inf(-1)
	for _, x := range v {
		if x > maxv {
			maxv = x
		}
	}
	sum := 0.0
	for i, x := range v {
		e := math.Exp(x - maxv)
		v[i] = e
		sum += e
	}
	for i := range v {
		v[i] /= sum
	}
	return v
}

// MeanRows returns the column-wise mean of x as a 1 x m matrix.
func MeanRows(x *mat.Dense) *mat.Dense {
	n, m := x.Dims()
	out := mat.NewDense(1, m, nil)
	if n == 0 {
		return out
	}
	for j := 0; j < m; j++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += x.At(i, j)
		}
		out.Set(0, j, sum/float64(n))
	}
	return out
}

// ConcatCols joins a and b side by side.
func ConcatCols(a, b *mat.Dense) *mat.Dense {
	n, am := a.Dims()
	bn, bm := b.Dims()
	if n != bn {
		panic("nn: ConcatCols row mismatch")
	}
	out := mat.NewDense(n, am+bm, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < am; j++ {
			out.Set(i, j, a.At(i, j))
		}
		for j := 0; j < bm; j++ {
			out.Set(i, am+j, b.At(i, j))
		}
	}
	return out
}

// Row extracts row i of x as a copy.
func Row(x *mat.Dense, i int) []float64 {
	_, m := x.Dims()
	out := make([]float64, m)
	mat.Row(out, i, x)
	return out
}

// xavier returns an in x out matrix with Xavier-uniform entries.
func xavier(in, out int, rng *rand.Rand) *mat.Dense {
	limit := math.Sqrt(6.0 / float64(in+out))
	data := make([]float64, in*out)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * limit
	}
	return mat.NewDense(in, out, data)
}

func apply(x *mat.Dense, f func(float64) float64) {
	n, m := x.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			x.Set(i, j, f(x.At(i, j)))
		}
	}
}
