package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// MultiHeadAttention implements scaled dot-product self-attention with
// heads operating on disjoint column slices of the projected input.
type MultiHeadAttention struct {
	WQ, WK, WV, WO *Linear
	Dim            int
	Heads          int
}

// NewMultiHeadAttention creates an attention block over dim features.
// dim must be divisible by heads.
func NewMultiHeadAttention(dim, heads int, rng *rand.Rand) *MultiHeadAttention {
	if dim%heads != 0 {
		panic("nn: attention dim must be divisible by heads")
	}
	return &MultiHeadAttention{
		WQ:    NewLinear(dim, dim, rng),
		WK:    NewLinear(dim, dim, rng),
		WV:    NewLinear(dim, dim, rng),
		WO:    NewLinear(dim, dim, rng),
		Dim:   dim,
		Heads: heads,
	}
}

// Forward runs self-attention over x (T x dim). It returns the attended
// output (T x dim) and the attention weights averaged across heads
// (T x T, each row summing to 1).
func (a *MultiHeadAttention) Forward(x *mat.Dense) (*mat.Dense, *mat.Dense) {
	T, _ := x.Dims()
	dk := a.Dim / a.Heads
	scale := 1 / math.Sqrt(float64(dk))

	q := a.WQ.Forward(x)
	k := a.WK.Forward(x)
	v := a.WV.Forward(x)

	out := mat.NewDense(T, a.Dim, nil)
	avgAttn := mat.NewDense(T, T, nil)

	for h := 0; h < a.Heads; h++ {
		lo := h * dk
		qh := q.Slice(0, T, lo, lo+dk)
		kh := k.Slice(0, T, lo, lo+dk)
		vh := v.Slice(0, T, lo, lo+dk)

		scores := mat.NewDense(T, T, nil)
		scores.Mul(qh, kh.T())
		scores.Scale(scale, scores)
		SoftmaxRows(scores)

		headOut := mat.NewDense(T, dk, nil)
		headOut.Mul(scores, vh)
		for i := 0; i < T; i++ {
			for j := 0; j < dk; j++ {
				out.Set(i, lo+j, headOut.At(i, j))
			}
		}
		avgAttn.Add(avgAttn, scores)
	}
	avgAttn.Scale(1/float64(a.Heads), avgAttn)

	return a.WO.Forward(out), avgAttn
}
