package gan

import (
	"sort"

	"github.com/pkg/errors"

	"eyescream-forge/internal/nn"
	"eyescream-forge/internal/tensor"
)

// Ranked pairs an image with the discriminator's belief that it is real.
type Ranked struct {
	Image *tensor.Tensor
	Score float64
	Index int // position in the ranked input
}

// Score runs images through the discriminator and returns one score per image.
func (p *Pipeline) Score(images *tensor.Batch) ([]float64, error) {
	if images.Len() == 0 {
		return nil, nil
	}
	out, err := forwardChunks(p.nets.Discriminator, images.Tensor(), p.opts.BatchSize)
	if err != nil {
		return nil, errors.Wrap(err, "score")
	}
	if out.Numel() != images.Len() {
		return nil, errors.Wrapf(nn.ErrShape, "discriminator produced %v for %d images", out.Shape(), images.Len())
	}
	return append([]float64(nil), out.Data()...), nil
}

// Rank orders images by discriminator score, most real first unless
// ascending is set. Equal scores keep their input order. At most maxOut
// entries are returned; maxOut <= 0 keeps them all.
func (p *Pipeline) Rank(images *tensor.Batch, ascending bool, maxOut int) ([]Ranked, error) {
	scores, err := p.Score(images)
	if err != nil {
		return nil, err
	}
	ranked := make([]Ranked, len(scores))
	for i, s := range scores {
		img, err := images.Get(i)
		if err != nil {
			return nil, err
		}
		ranked[i] = Ranked{Image: img, Score: s, Index: i}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ascending {
			return ranked[i].Score < ranked[j].Score
		}
		return ranked[i].Score > ranked[j].Score
	})
	if maxOut > 0 && maxOut < len(ranked) {
		ranked = ranked[:maxOut]
	}
	return ranked, nil
}

// RankList is Rank for images held as a slice.
func (p *Pipeline) RankList(images []*tensor.Tensor, ascending bool, maxOut int) ([]Ranked, error) {
	if len(images) == 0 {
		return nil, nil
	}
	b, err := tensor.BatchOf(images)
	if err != nil {
		return nil, err
	}
	return p.Rank(b, ascending, maxOut)
}

// Scores extracts the score column of a ranking.
func Scores(ranked []Ranked) []float64 {
	out := make([]float64, len(ranked))
	for i, r := range ranked {
		out[i] = r.Score
	}
	return out
}

// Images extracts the image column of a ranking.
func Images(ranked []Ranked) []*tensor.Tensor {
	out := make([]*tensor.Tensor, len(ranked))
	for i, r := range ranked {
		out[i] = r.Image
	}
	return out
}
