package network

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/monguard/riskengine/internal/features"
	"github.com/monguard/riskengine/internal/nn"
)

// Model dimensions, fixed by the trained-model contract.
const (
	InputDim       = features.WalletDim
	HiddenDim      = 128
	EmbeddingDim   = 32
	NumCommunities = 10
	numLayers      = 4
	numHeads       = 4
	leakySlope     = 0.2
)

// Output is the raw graph model output.
type Output struct {
	RiskScores      []float64  // per node, in [0,1]
	CommunityLogits *mat.Dense // n x NumCommunities, pre-softmax
	Embeddings      *mat.Dense // n x EmbeddingDim
	EdgeEmbeddings  *mat.Dense // per edge, nil when no edge attributes supplied
	GraphEmbedding  *mat.Dense // graphs x HiddenDim, nil unless batch supplied
}

// Model is the inference contract the analyzer depends on.
type Model interface {
	Forward(x *mat.Dense, edges [][2]int, edgeAttr *mat.Dense, batch []int) (*Output, error)
}

// GATLayer is a single graph attention layer. Each head projects nodes and
// scores edge endpoints with learned source/target vectors; attention is
// normalized over each node's incoming edges.
type GATLayer struct {
	W          *nn.Linear // in x heads*out
	ASrc, ADst *mat.Dense // heads x out
	Heads, Out int
	Concat     bool
}

// NewGATLayer creates a layer with Xavier-initialized projections.
func NewGATLayer(in, out, heads int, concat bool, rng *rand.Rand) *GATLayer {
	limit := math.Sqrt(6.0 / float64(out+1))
	attn := func() *mat.Dense {
		data := make([]float64, heads*out)
		for i := range data {
			data[i] = (rng.Float64()*2 - 1) * limit
		}
		return mat.NewDense(heads, out, data)
	}
	return &GATLayer{
		W:      nn.NewLinear(in, heads*out, rng),
		ASrc:   attn(),
		ADst:   attn(),
		Heads:  heads,
		Out:    out,
		Concat: concat,
	}
}

// Forward propagates node states along edges. Self-loops are added so every
// node attends at least to itself. Output width is heads*out when Concat,
// otherwise out (heads averaged).
func (l *GATLayer) Forward(x *mat.Dense, edges [][2]int) *mat.Dense {
	n, _ := x.Dims()
	h := l.W.Forward(x) // n x heads*out

	// Edge list with self-loops appended.
	all := make([][2]int, 0, len(edges)+n)
	all = append(all, edges...)
	for i := 0; i < n; i++ {
		all = append(all, [2]int{i, i})
	}

	outWidth := l.Out
	if l.Concat {
		outWidth = l.Heads * l.Out
	}
	out := mat.NewDense(n, outWidth, nil)

	for head := 0; head < l.Heads; head++ {
		lo := head * l.Out

		// Per-node endpoint scores for this head.
		srcScore := make([]float64, n)
		dstScore := make([]float64, n)
		for i := 0; i < n; i++ {
			var s, d float64
			for j := 0; j < l.Out; j++ {
				v := h.At(i, lo+j)
				s += v * l.ASrc.At(head, j)
				d += v * l.ADst.At(head, j)
			}
			srcScore[i] = s
			dstScore[i] = d
		}

		// Raw attention logits, grouped by target for softmax.
		logits := make([]float64, len(all))
		maxPerTarget := make([]float64, n)
		for i := range maxPerTarget {
			maxPerTarget[i] = math.Inf(-1)
		}
		for e, edge := range all {
			v := srcScore[edge[0]] + dstScore[edge[1]]
			if v < 0 {
				v *= leakySlope
			}
			logits[e] = v
			if v > maxPerTarget[edge[1]] {
				maxPerTarget[edge[1]] = v
			}
		}

		sumPerTarget := make([]float64, n)
		weights := make([]float64, len(all))
		for e, edge := range all {
			w := math.Exp(logits[e] - maxPerTarget[edge[1]])
			weights[e] = w
			sumPerTarget[edge[1]] += w
		}

		// Weighted aggregation of source states into targets.
		for e, edge := range all {
			alpha := weights[e] / sumPerTarget[edge[1]]
			src, dst := edge[0], edge[1]
			if l.Concat {
				for j := 0; j < l.Out; j++ {
					out.Set(dst, lo+j, out.At(dst, lo+j)+alpha*h.At(src, lo+j))
				}
			} else {
				for j := 0; j < l.Out; j++ {
					out.Set(dst, j, out.At(dst, j)+alpha*h.At(src, lo+j)/float64(l.Heads))
				}
			}
		}
	}
	return out
}

// WalletGNN is the wallet relationship model: input projection, stacked
// graph attention with multi-head concatenation on non-terminal layers,
// and risk, community, and embedding heads.
type WalletGNN struct {
	InputProj *nn.Linear

	Layers []*GATLayer
	Norms  []*nn.BatchNorm

	EdgeEnc1 *nn.Linear
	EdgeEnc2 *nn.Linear

	RiskHidden *nn.Linear
	RiskOut    *nn.Linear
	CommHidden *nn.Linear
	CommOut    *nn.Linear
	EmbedProj  *nn.Linear

	Drop *nn.Dropout
}

// NewWalletGNN constructs the model with seeded Xavier weights. Production
// deployments overwrite the exported weights from a trained checkpoint.
func NewWalletGNN(seed int64) *WalletGNN {
	rng := rand.New(rand.NewSource(seed))
	m := &WalletGNN{
		InputProj:  nn.NewLinear(InputDim, HiddenDim, rng),
		EdgeEnc1:   nn.NewLinear(features.EdgeDim, HiddenDim, rng),
		EdgeEnc2:   nn.NewLinear(HiddenDim, HiddenDim, rng),
		RiskHidden: nn.NewLinear(HiddenDim, HiddenDim/2, rng),
		RiskOut:    nn.NewLinear(HiddenDim/2, 1, rng),
		CommHidden: nn.NewLinear(HiddenDim, HiddenDim/2, rng),
		CommOut:    nn.NewLinear(HiddenDim/2, NumCommunities, rng),
		EmbedProj:  nn.NewLinear(HiddenDim, EmbeddingDim, rng),
		Drop:       nn.NewDropout(0.3, rng),
	}

	for i := 0; i < numLayers; i++ {
		in := HiddenDim
		if i > 0 {
			in = HiddenDim * numHeads
		}
		heads := numHeads
		concat := true
		if i == numLayers-1 {
			heads = 1
			concat = false
		}
		m.Layers = append(m.Layers, NewGATLayer(in, HiddenDim, heads, concat, rng))

		normDim := HiddenDim * heads
		if !concat {
			normDim = HiddenDim
		}
		m.Norms = append(m.Norms, nn.NewBatchNorm(normDim))
	}
	return m
}

// Forward scores every node. edgeAttr may be nil; when present it is
// encoded separately and surfaced in the output without altering the
// propagation topology. batch assigns nodes to graphs for the optional
// pooled graph embedding; nil skips pooling.
func (m *WalletGNN) Forward(x *mat.Dense, edges [][2]int, edgeAttr *mat.Dense, batch []int) (*Output, error) {
	n, cols := x.Dims()
	if cols != InputDim {
		return nil, fmt.Errorf("network: node features have width %d, want %d", cols, InputDim)
	}
	for _, e := range edges {
		if e[0] < 0 || e[0] >= n || e[1] < 0 || e[1] >= n {
			return nil, fmt.Errorf("network: edge (%d,%d) out of range for %d nodes", e[0], e[1], n)
		}
	}
	if batch != nil && len(batch) != n {
		return nil, fmt.Errorf("network: batch vector has %d entries for %d nodes", len(batch), n)
	}
	for i, b := range batch {
		if b < 0 {
			return nil, fmt.Errorf("network: batch id %d for node %d is negative", b, i)
		}
	}

	out := &Output{}
	if edgeAttr != nil {
		out.EdgeEmbeddings = m.EdgeEnc2.Forward(nn.ReLU(m.EdgeEnc1.Forward(edgeAttr)))
	}

	h := nn.ReLU(m.InputProj.Forward(x))
	for i, layer := range m.Layers {
		h = m.Norms[i].Forward(layer.Forward(h, edges))
		if i < len(m.Layers)-1 {
			h = m.Drop.Forward(nn.ELU(h))
		}
	}

	risk := nn.Sigmoid(m.RiskOut.Forward(nn.ReLU(m.RiskHidden.Forward(h))))
	out.RiskScores = make([]float64, n)
	for i := 0; i < n; i++ {
		out.RiskScores[i] = risk.At(i, 0)
	}
	out.CommunityLogits = m.CommOut.Forward(nn.ReLU(m.CommHidden.Forward(h)))
	out.Embeddings = m.EmbedProj.Forward(h)

	if batch != nil {
		out.GraphEmbedding = meanPool(h, batch)
	}
	return out, nil
}

// meanPool averages node states per graph id. Graph ids are assumed to be
// 0..maxID as produced by the builder's batching.
func meanPool(h *mat.Dense, batch []int) *mat.Dense {
	maxID := 0
	for _, b := range batch {
		if b > maxID {
			maxID = b
		}
	}
	_, dim := h.Dims()
	pooled := mat.NewDense(maxID+1, dim, nil)
	counts := make([]float64, maxID+1)

	for i, b := range batch {
		counts[b]++
		for j := 0; j < dim; j++ {
			pooled.Set(b, j, pooled.At(b, j)+h.At(i, j))
		}
	}
	for b := 0; b <= maxID; b++ {
		if counts[b] == 0 {
			continue
		}
		for j := 0; j < dim; j++ {
			pooled.Set(b, j, pooled.At(b, j)/counts[b])
		}
	}
	return pooled
}
