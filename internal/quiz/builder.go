package quiz

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// maxRerolls bounds how often a colliding numeric distractor is redrawn
// before it is nudged by one display step instead.
const maxRerolls = 8

// perturbation derives a distractor value from the true value.
type perturbation func(r *rand.Rand, v float64) float64

// between returns a value uniformly drawn from [lo, hi).
func between(r *rand.Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

// above shifts up by [lo, hi).
func above(lo, hi float64) perturbation {
	return func(r *rand.Rand, v float64) float64 { return v + between(r, lo, hi) }
}

// below shifts down by [lo, hi).
func below(lo, hi float64) perturbation {
	return func(r *rand.Rand, v float64) float64 { return v - between(r, lo, hi) }
}

// belowFloor shifts down by [lo, hi) without crossing zero.
func belowFloor(lo, hi float64) perturbation {
	return func(r *rand.Rand, v float64) float64 { return math.Max(0, v-between(r, lo, hi)) }
}

// numberFormat renders a value with fixed precision and a unit suffix.
type numberFormat struct {
	precision int
	unit      string
}

func (f numberFormat) render(v float64) string {
	return fmt.Sprintf("%.*f%s", f.precision, v, f.unit)
}

func (f numberFormat) step() float64 {
	return math.Pow(10, -float64(f.precision))
}

var (
	formatTemperature = numberFormat{precision: 1, unit: "°C"}
	formatHumidity    = numberFormat{precision: 1, unit: "%"}
	formatWind        = numberFormat{precision: 2, unit: " m/s"}
	formatPressure    = numberFormat{precision: 2, unit: " kPa"}
	formatSolar       = numberFormat{precision: 2, unit: " kWh/m²/day"}
)

// builder assembles options for one round. It shares the generator's
// source and is only used while the generator lock is held.
type builder struct {
	rng *rand.Rand
}

// numeric builds a question whose answer is a formatted measurement.
func (b *builder) numeric(id int, kind Kind, prompt string, truth float64, f numberFormat, points int, perturbs ...perturbation) Question {
	correct := f.render(truth)
	used := map[string]bool{correct: true}
	distractors := make([]string, 0, len(perturbs))

	for _, p := range perturbs {
		var (
			v    float64
			text string
		)
		for try := 0; try < maxRerolls; try++ {
			v = p(b.rng, truth)
			text = f.render(v)
			if !used[text] {
				break
			}
		}
		for k := 1; used[text]; k++ {
			text = f.render(v + float64(k)*f.step())
		}
		used[text] = true
		distractors = append(distractors, text)
	}
	return b.assemble(id, kind, prompt, correct, distractors, points)
}

// categorical builds a question whose answer is one vocabulary entry. When
// exactly three other entries exist they are all used; otherwise three are
// sampled.
func (b *builder) categorical(id int, kind Kind, prompt, truth string, vocabulary []string, points int) Question {
	others := make([]string, 0, len(vocabulary))
	for _, c := range vocabulary {
		if c != truth {
			others = append(others, c)
		}
	}
	if len(others) > 3 {
		b.rng.Shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })
		others = others[:3]
	}
	return b.assemble(id, kind, prompt, truth, others, points)
}

// assemble numbers the correct answer 1 and distractors 2..4, colors them
// from the palette and shuffles the display order.
func (b *builder) assemble(id int, kind Kind, prompt, correct string, distractors []string, points int) Question {
	colors := b.colors(1 + len(distractors))

	options := make([]Answer, 0, 1+len(distractors))
	options = append(options, Answer{ID: 1, Description: correct, Color: colors[0]})
	for i, d := range distractors {
		options = append(options, Answer{ID: i + 2, Description: d, Color: colors[i+1]})
	}
	answer := options[0]
	b.rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	return Question{
		ID:            id,
		Kind:          kind,
		Prompt:        prompt,
		Options:       options,
		CorrectAnswer: answer,
		Points:        points,
	}
}

func (b *builder) colors(n int) []string {
	idx := b.rng.Perm(len(Palette))
	out := make([]string, n)
	for i := range out {
		out[i] = Palette[idx[i%len(idx)]]
	}
	return out
}
