// Package classify turns NER detections into deduplicated, sorted entity
// buckets according to the (site, language) profile of a page.
package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/IshaanNene/entitymap/internal/config"
	"github.com/IshaanNene/entitymap/internal/ner"
	"github.com/IshaanNene/entitymap/internal/observability"
	"github.com/IshaanNene/entitymap/internal/pipeline"
	"github.com/IshaanNene/entitymap/internal/types"
)

// Buckets holds the classified entities of one page.
type Buckets struct {
	Persons         []types.BucketedEntity
	Countries       []types.BucketedEntity
	Dates           []types.BucketedEntity
	PlacesEras      []types.BucketedEntity
	CitiesMaterials []types.BucketedEntity
}

// All returns every bucket's entities, persons first.
func (b Buckets) All() []types.BucketedEntity {
	all := make([]types.BucketedEntity, 0, b.Len())
	all = append(all, b.Persons...)
	all = append(all, b.Countries...)
	all = append(all, b.Dates...)
	all = append(all, b.PlacesEras...)
	all = append(all, b.CitiesMaterials...)
	return all
}

// Len is the total number of entities.
func (b Buckets) Len() int {
	return len(b.Persons) + len(b.Countries) + len(b.Dates) + len(b.PlacesEras) + len(b.CitiesMaterials)
}

func (b *Buckets) slot(bucket types.Bucket) *[]types.BucketedEntity {
	switch bucket {
	case types.BucketPerson:
		return &b.Persons
	case types.BucketCountry:
		return &b.Countries
	case types.BucketDate:
		return &b.Dates
	case types.BucketPlaceEra:
		return &b.PlacesEras
	default:
		return &b.CitiesMaterials
	}
}

// Classifier runs the predictor over page chunks and buckets the results.
type Classifier struct {
	predictor ner.Predictor
	profiles  *Profiles
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// New creates a Classifier. metrics may be nil.
func New(predictor ner.Predictor, lookup pipeline.Demonyms, cfg config.NERConfig, metrics *observability.Metrics, logger *slog.Logger) *Classifier {
	return &Classifier{
		predictor: predictor,
		profiles:  NewProfiles(lookup, cfg.ThresholdEnglish, cfg.ThresholdArabic, logger),
		metrics:   metrics,
		logger:    logger.With("component", "classifier"),
	}
}

// Profile returns the active profile for (site, lang).
func (c *Classifier) Profile(site types.SiteType, lang types.Language) (*Profile, error) {
	return c.profiles.Get(site, lang)
}

// Classify predicts entities for every chunk and sorts them into buckets.
// A predictor error aborts the page.
func (c *Classifier) Classify(ctx context.Context, chunks []string, site types.SiteType, lang types.Language) (Buckets, error) {
	var out Buckets

	profile, err := c.profiles.Get(site, lang)
	if err != nil {
		return out, err
	}

	seen := make(map[types.Bucket]map[[2]string]struct{})
	detected, kept := 0, 0

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return Buckets{}, err
		}
		raw, err := c.predictor.Predict(ctx, chunk, profile.Labels, profile.Threshold)
		if err != nil {
			return Buckets{}, fmt.Errorf("predict chunk %d with %s: %w", i, c.predictor.Name(), err)
		}
		detected += len(raw)

		for _, r := range raw {
			if _, err := profile.Gate.Process(r); err != nil {
				if errors.Is(err, types.ErrUnknownLabel) {
					c.logger.Debug("label outside profile", "label", r.Label, "text", r.Text)
					continue
				}
				return Buckets{}, err
			}
			rule := profile.Rules[r.Label]
			e, err := rule.Chain.Process(r)
			if err != nil {
				return Buckets{}, err
			}
			if e == nil {
				continue
			}

			be := types.BucketedEntity{Text: e.Text, Label: rule.Label, Bucket: rule.Bucket}
			set := seen[rule.Bucket]
			if set == nil {
				set = make(map[[2]string]struct{})
				seen[rule.Bucket] = set
			}
			if _, dup := set[be.Key()]; dup {
				continue
			}
			set[be.Key()] = struct{}{}
			slot := out.slot(rule.Bucket)
			*slot = append(*slot, be)
			kept++
		}
	}

	for _, s := range []*[]types.BucketedEntity{&out.Persons, &out.Countries, &out.Dates, &out.PlacesEras, &out.CitiesMaterials} {
		SortEntities(*s)
	}

	if c.metrics != nil {
		c.metrics.ChunksExtracted.Add(int64(len(chunks)))
		c.metrics.EntitiesDetected.Add(int64(detected))
		c.metrics.EntitiesKept.Add(int64(kept))
	}
	c.logger.Debug("page classified",
		"site", site,
		"language", lang,
		"chunks", len(chunks),
		"detected", detected,
		"kept", kept,
	)
	return out, nil
}

// SortEntities orders entities by text, numerically when both texts are
// all digits, then by label.
func SortEntities(es []types.BucketedEntity) {
	sort.SliceStable(es, func(i, j int) bool {
		if es[i].Text != es[j].Text {
			return textLess(es[i].Text, es[j].Text)
		}
		return es[i].Label < es[j].Label
	})
}

func textLess(a, b string) bool {
	if isDigits(a) && isDigits(b) {
		x, errA := strconv.ParseUint(a, 10, 64)
		y, errB := strconv.ParseUint(b, 10, 64)
		if errA == nil && errB == nil && x != y {
			return x < y
		}
	}
	return a < b
}

func isDigits(s string) bool {
	return s != "" && strings.IndexFunc(s, func(r rune) bool { return r > unicode.MaxASCII || !unicode.IsDigit(r) }) < 0
}
