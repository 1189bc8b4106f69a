package tally

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// probEpsilon отодвигает вероятности от 0 и 1, чтобы KL-дивергенция оставалась конечной.
const probEpsilon = 1e-9

// RelativeEntropy — KL(Bernoulli(p) || Bernoulli(q)) в битах.
func RelativeEntropy(p, q float64) float64 {
	p, q = clamp(p), clamp(q)
	kl := stat.KullbackLeibler([]float64{p, 1 - p}, []float64{q, 1 - q})
	return kl / math.Ln2
}

// EffectSize — сколько информации (в битах на голос, умноженных на число
// информированных голосов) добавляет комментарий к оценке предка.
func EffectSize(p, q float64, pSize int) float64 {
	if pSize <= 0 {
		return 0
	}
	return RelativeEntropy(p, q) * float64(pSize)
}

func clamp(x float64) float64 {
	return math.Min(math.Max(x, probEpsilon), 1-probEpsilon)
}
