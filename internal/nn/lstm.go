package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// LSTMCell holds the parameters for one LSTM direction. Gate weights are
// packed in i, f, g, o order.
type LSTMCell struct {
	Wx     *mat.Dense    // in x 4h
	Wh     *mat.Dense    // h x 4h
	B      *mat.VecDense // 4h
	Hidden int
}

// NewLSTMCell creates a cell with Xavier-uniform weights.
func NewLSTMCell(in, hidden int, rng *rand.Rand) *LSTMCell {
	return &LSTMCell{
		Wx:     xavier(in, 4*hidden, rng),
		Wh:     xavier(hidden, 4*hidden, rng),
		B:      mat.NewVecDense(4*hidden, nil),
		Hidden: hidden,
	}
}

// step advances one timestep. x is the input row, h and c are the previous
// hidden and cell states; both are overwritten with the new states.
func (cell *LSTMCell) step(x []float64, h, c []float64) {
	hid := cell.Hidden
	gates := make([]float64, 4*hid)

	in := len(x)
	for j := 0; j < 4*hid; j++ {
		sum := cell.B.AtVec(j)
		for k := 0; k < in; k++ {
			sum += x[k] * cell.Wx.At(k, j)
		}
		for k := 0; k < hid; k++ {
			sum += h[k] * cell.Wh.At(k, j)
		}
		gates[j] = sum
	}

	for k := 0; k < hid; k++ {
		i := sigmoid(gates[k])
		f := sigmoid(gates[hid+k])
		g := math.Tanh(gates[2*hid+k])
		o := sigmoid(gates[3*hid+k])

		c[k] = f*c[k] + i*g
		h[k] = o * math.Tanh(c[k])
	}
}

// forward runs the cell over all rows of x in the given direction and
// returns the T x hidden output matrix.
func (cell *LSTMCell) forward(x *mat.Dense, reverse bool) *mat.Dense {
	T, _ := x.Dims()
	out := mat.NewDense(T, cell.Hidden, nil)

	h := make([]float64, cell.Hidden)
	c := make([]float64, cell.Hidden)

	for step := 0; step < T; step++ {
		t := step
		if reverse {
			t = T - 1 - step
		}
		cell.step(Row(x, t), h, c)
		out.SetRow(t, h)
	}
	return out
}

// BiLSTM is a stacked bidirectional LSTM. Layer l consumes the
// concatenated forward/backward outputs of layer l-1, so its input width
// is 2*hidden for every layer after the first.
type BiLSTM struct {
	Fwd    []*LSTMCell
	Bwd    []*LSTMCell
	Hidden int
}

// NewBiLSTM creates numLayers bidirectional layers with hidden units per
// direction.
func NewBiLSTM(in, hidden, numLayers int, rng *rand.Rand) *BiLSTM {
	l := &BiLSTM{Hidden: hidden}
	for i := 0; i < numLayers; i++ {
		width := in
		if i > 0 {
			width = 2 * hidden
		}
		l.Fwd = append(l.Fwd, NewLSTMCell(width, hidden, rng))
		l.Bwd = append(l.Bwd, NewLSTMCell(width, hidden, rng))
	}
	return l
}

// Forward runs the full stack over x (T x in) and returns T x 2*hidden.
func (l *BiLSTM) Forward(x *mat.Dense) *mat.Dense {
	cur := x
	for i := range l.Fwd {
		fwd := l.Fwd[i].forward(cur, false)
		bwd := l.Bwd[i].forward(cur, true)
		cur = ConcatCols(fwd, bwd)
	}
	return cur
}
