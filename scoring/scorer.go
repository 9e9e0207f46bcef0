// Package scoring holds the demo cockpit stand-ins: a randomized lens scorer
// and the connector tester. Neither is a real validation engine.
package scoring

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/validtech/valid_backend/models"
)

// PassScore is the minimum score for a lens to count toward consensus.
const PassScore = 0.5

// Scorer turns demo input into a verdict for one deployment.
type Scorer interface {
	Score(ctx context.Context, deployment *models.Deployment, input string) (models.DemoOutcome, error)
}

// RandomScorer draws one score per enabled lens.
type RandomScorer struct {
	mu    sync.Mutex
	float func() float64
	now   func() time.Time
}

func NewRandomScorer() *RandomScorer {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &RandomScorer{float: r.Float64, now: time.Now}
}

// NewSeededScorer uses float as its source of [0,1) draws.
func NewSeededScorer(float func() float64, now func() time.Time) *RandomScorer {
	if now == nil {
		now = time.Now
	}
	return &RandomScorer{float: float, now: now}
}

func (s *RandomScorer) Score(ctx context.Context, deployment *models.Deployment, input string) (models.DemoOutcome, error) {
	if err := ctx.Err(); err != nil {
		return models.DemoOutcome{}, err
	}
	lenses := deployment.Lenses.Enabled()
	scores := make(models.ScoreMap, len(lenses))
	var flags []string
	passed := 0

	s.mu.Lock()
	for _, lens := range lenses {
		score := math.Round(s.float()*100) / 100
		scores[lens] = score
		if score >= PassScore {
			passed++
		} else {
			flags = append(flags, lens+"_below_threshold")
		}
	}
	ranAt := s.now().UTC()
	s.mu.Unlock()

	verdict := Consensus(passed, deployment.ConsensusThreshold)
	output, _ := json.Marshal(struct {
		Verdict models.Verdict  `json:"verdict"`
		Scores  models.ScoreMap `json:"scores"`
	}{verdict, scores})

	return models.DemoOutcome{
		Verdict:    verdict,
		Scores:     scores,
		Flags:      flags,
		InputHash:  PlaceholderDigest(input),
		OutputHash: PlaceholderDigest(string(output)),
		RanAt:      ranAt,
	}, nil
}

// Consensus maps the number of passing lenses to a verdict. Reaching the
// threshold is OK, reaching half of it is REVIEW, anything less blocks.
func Consensus(passed, threshold int) models.Verdict {
	if threshold < 1 {
		threshold = 1
	}
	switch {
	case passed >= threshold:
		return models.VerdictOK
	case passed*2 >= threshold:
		return models.VerdictReview
	default:
		return models.VerdictBlock
	}
}

// PlaceholderDigest is the first 64 characters of the base64 text. It is a
// display fingerprint, not a hash.
func PlaceholderDigest(text string) string {
	enc := base64.StdEncoding.EncodeToString([]byte(text))
	if len(enc) > 64 {
		return enc[:64]
	}
	return enc
}
