package seeder

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/asinrank/internal/domain/model"
)

const (
	asinPrefix   = "S"
	maxRank      = 100000
	missingOneIn = 10
)

// DefaultCategories are used when Config.Categories is empty.
var DefaultCategories = []string{ //nolint:gochecknoglobals // read-only defaults
	"Books",
	"Kindle Store",
	"Home & Kitchen",
	"Toys & Games",
	"Electronics",
	"Garden & Outdoor",
}

func randomInt(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// newASIN returns a full-length upper-case identifier that will not collide
// with real ASINs or with earlier runs.
func newASIN() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return asinPrefix + id[:model.MaxASINLength-len(asinPrefix)]
}

// randomRank returns a rank, or nil for roughly one in missingOneIn calls.
func randomRank() *int {
	if randomInt(missingOneIn) == 0 {
		return nil
	}
	r := 1 + randomInt(maxRank)
	return &r
}

// generate builds PerASIN observations for each of ASINs identifiers. Every
// other ASIN also carries a second category so both chart shapes get exercised.
func generate(cfg *Config) ([]Observation, Plan) {
	categories := cfg.Categories
	if len(categories) == 0 {
		categories = DefaultCategories
	}

	obs := make([]Observation, 0, cfg.ASINs*cfg.PerASIN)
	plan := make(Plan, cfg.ASINs)
	for i := 0; i < cfg.ASINs; i++ {
		asin := newASIN()
		primary := categories[randomInt(len(categories))]
		secondary := ""
		if i%2 == 1 {
			secondary = categories[randomInt(len(categories))]
		}
		plan[asin] = 1
		if secondary != "" {
			plan[asin] = 2
		}

		for j := 0; j < cfg.PerASIN; j++ {
			o := Observation{ASIN: asin, Category1Name: primary, Category1Rank: randomRank()}
			if secondary != "" {
				o.Category2Name = secondary
				o.Category2Rank = randomRank()
			}
			obs = append(obs, o)
		}
	}
	return obs, plan
}
