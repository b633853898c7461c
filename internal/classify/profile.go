package classify

import (
	"fmt"
	"log/slog"

	"github.com/IshaanNene/entitymap/internal/pipeline"
	"github.com/IshaanNene/entitymap/internal/types"
)

// Rule is the bucket and rule chain for one label.
type Rule struct {
	Label  string
	Bucket types.Bucket
	Chain  *pipeline.Pipeline
}

// Profile is the label vocabulary, threshold and per-label rules for one
// (site, language) pair. Labels keep the order they are sent to the model.
type Profile struct {
	Site      types.SiteType
	Language  types.Language
	Labels    []string
	Threshold float64
	Rules     map[string]Rule

	// Gate rejects detections whose label is outside Labels with
	// types.ErrUnknownLabel.
	Gate *pipeline.Pipeline
}

type profileKey struct {
	site types.SiteType
	lang types.Language
}

type labelSpec struct {
	label  string
	bucket types.Bucket
}

var profileLabels = map[profileKey][]labelSpec{
	{types.SiteCollection, types.English}: {
		{"Human", types.BucketPerson},
		{"Country", types.BucketCountry},
		{"Date", types.BucketDate},
		{"Era", types.BucketPlaceEra},
		{"Material", types.BucketCityMaterial},
	},
	{types.SiteCollection, types.Arabic}: {
		{"مادة", types.BucketCityMaterial},
		{"عصر", types.BucketPlaceEra},
		{"تاريخ", types.BucketDate},
		{"دولة", types.BucketCountry},
		{"إنسان", types.BucketPerson},
	},
	{types.SiteEncyclopedia, types.English}: {
		{"Person", types.BucketPerson},
		{"Place", types.BucketPlaceEra},
		{"City", types.BucketCityMaterial},
		{"Country", types.BucketCountry},
		{"Date", types.BucketDate},
	},
	{types.SiteEncyclopedia, types.Arabic}: {
		{"مدينة", types.BucketCityMaterial},
		{"مكان", types.BucketPlaceEra},
		{"تاريخ", types.BucketDate},
		{"دولة", types.BucketCountry},
		{"اسم", types.BucketPerson},
	},
}

// Profiles builds the rule chains for every (site, language) pair.
type Profiles struct {
	byKey map[profileKey]*Profile
}

// NewProfiles builds all profiles against the given lookup and thresholds.
func NewProfiles(lookup pipeline.Demonyms, thresholdEnglish, thresholdArabic float64, logger *slog.Logger) *Profiles {
	ps := &Profiles{byKey: make(map[profileKey]*Profile, len(profileLabels))}
	for key, specs := range profileLabels {
		threshold := thresholdEnglish
		if key.lang == types.Arabic {
			threshold = thresholdArabic
		}
		p := &Profile{
			Site:      key.site,
			Language:  key.lang,
			Threshold: threshold,
			Rules:     make(map[string]Rule, len(specs)),
		}
		allowed := make(map[string]bool, len(specs))
		for _, s := range specs {
			p.Labels = append(p.Labels, s.label)
			p.Rules[s.label] = Rule{
				Label:  s.label,
				Bucket: s.bucket,
				Chain:  buildChain(key, s.bucket, lookup, logger),
			}
			allowed[s.label] = true
		}
		p.Gate = pipeline.New(logger).Use(&pipeline.LabelMiddleware{Allowed: allowed})
		ps.byKey[key] = p
	}
	return ps
}

// Get returns the profile for (site, lang).
func (ps *Profiles) Get(site types.SiteType, lang types.Language) (*Profile, error) {
	p, ok := ps.byKey[profileKey{site, lang}]
	if !ok {
		return nil, &types.ConfigurationError{
			Field:  "profile",
			Value:  fmt.Sprintf("%s/%s", site, lang),
			Reason: "no label profile for this site and language",
		}
	}
	return p, nil
}

func buildChain(key profileKey, bucket types.Bucket, lookup pipeline.Demonyms, logger *slog.Logger) *pipeline.Pipeline {
	chain := pipeline.New(logger).Use(&pipeline.TrimMiddleware{})
	arabic := key.lang == types.Arabic

	// Arabic encyclopedia dates are kept in any script.
	if arabic && !(bucket == types.BucketDate && key.site == types.SiteEncyclopedia) {
		chain.Use(&pipeline.ArabicScriptMiddleware{})
	}

	switch bucket {
	case types.BucketPerson:
		chain.Use(&pipeline.CapitalizedNameMiddleware{}, pipeline.NewStoplistMiddleware(pipeline.DefaultPronouns))
	case types.BucketCountry:
		chain.Use(&pipeline.DemonymMiddleware{Lookup: lookup})
	case types.BucketDate:
		chain.Use(&pipeline.YearMiddleware{})
	case types.BucketCityMaterial:
		if arabic {
			chain.Use(&pipeline.ArabicCountryExclusionMiddleware{Lookup: lookup})
		}
	}
	return chain
}
