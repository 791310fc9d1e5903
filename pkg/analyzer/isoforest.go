package analyzer

import (
	"math"
	"math/rand"
	"sort"
)

// 隔离森林：随机切分下更容易被提早隔离的点视为离群。
// 随机源由调用方注入，种子固定时输出完全可复现。

type isoNode struct {
	attr  int
	split float64
	left  *isoNode
	right *isoNode
	size  int
}

type isoForest struct {
	trees     []*isoNode
	subsample int
}

func newIsoForest(data [][]float64, treeCount, subsample int, rng *rand.Rand) *isoForest {
	n := len(data)
	if subsample > n {
		subsample = n
	}
	if subsample < 1 {
		subsample = 1
	}
	heightLimit := int(math.Ceil(math.Log2(float64(subsample))))
	if heightLimit < 1 {
		heightLimit = 1
	}

	f := &isoForest{subsample: subsample}
	sample := make([][]float64, subsample)
	for t := 0; t < treeCount; t++ {
		perm := rng.Perm(n)
		for i := 0; i < subsample; i++ {
			sample[i] = data[perm[i]]
		}
		f.trees = append(f.trees, buildIsoTree(sample, 0, heightLimit, rng))
	}
	return f
}

func buildIsoTree(data [][]float64, depth, limit int, rng *rand.Rand) *isoNode {
	if depth >= limit || len(data) <= 1 {
		return &isoNode{attr: -1, size: len(data)}
	}

	dims := len(data[0])
	mins := make([]float64, dims)
	maxs := make([]float64, dims)
	copy(mins, data[0])
	copy(maxs, data[0])
	for _, row := range data[1:] {
		for d, v := range row {
			if v < mins[d] {
				mins[d] = v
			}
			if v > maxs[d] {
				maxs[d] = v
			}
		}
	}

	// 只在取值有跨度的维度上切分；所有点重合时直接成叶
	candidates := make([]int, 0, dims)
	for d := 0; d < dims; d++ {
		if maxs[d] > mins[d] {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return &isoNode{attr: -1, size: len(data)}
	}

	attr := candidates[rng.Intn(len(candidates))]
	split := mins[attr] + rng.Float64()*(maxs[attr]-mins[attr])

	var left, right [][]float64
	for _, row := range data {
		if row[attr] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	return &isoNode{
		attr:  attr,
		split: split,
		left:  buildIsoTree(left, depth+1, limit, rng),
		right: buildIsoTree(right, depth+1, limit, rng),
	}
}

func (n *isoNode) pathLength(x []float64, depth float64) float64 {
	if n.attr < 0 {
		return depth + avgPathLength(n.size)
	}
	if x[n.attr] < n.split {
		return n.left.pathLength(x, depth+1)
	}
	return n.right.pathLength(x, depth+1)
}

// avgPathLength BST不成功查找的平均路径长度 c(n)，用于归一化
func avgPathLength(n int) float64 {
	const eulerGamma = 0.5772156649015329
	if n <= 1 {
		return 0
	}
	if n == 2 {
		return 1
	}
	f := float64(n)
	return 2*(math.Log(f-1)+eulerGamma) - 2*(f-1)/f
}

// Score 异常得分，取值(0,1)，越接近1越异常
func (f *isoForest) Score(x []float64) float64 {
	var sum float64
	for _, tree := range f.trees {
		sum += tree.pathLength(x, 0)
	}
	avg := sum / float64(len(f.trees))
	denom := avgPathLength(f.subsample)
	if denom == 0 {
		denom = 1
	}
	return math.Pow(2, -avg/denom)
}

// OutlierLabels 按得分从高到低取前 floor(n*fraction) 个标记为离群。
// 得分相同的按下标顺序决胜，保证同一输入输出稳定。
func (f *isoForest) OutlierLabels(data [][]float64, fraction float64) []bool {
	n := len(data)
	labels := make([]bool, n)
	k := int(fraction * float64(n))
	if k <= 0 {
		return labels
	}

	scores := make([]float64, n)
	for i, row := range data {
		scores[i] = f.Score(row)
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	for _, idx := range order[:k] {
		labels[idx] = true
	}
	return labels
}
