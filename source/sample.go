package source

import (
	"context"
	"strconv"

	"github.com/scoutdex/scoutdex/record"
)

// SampleSource is the built-in fixed corpus used when every other source is
// unavailable. It keeps the service demonstrable on a fresh install.
type SampleSource struct{}

// NewSampleSource creates the built-in sample fetcher.
func NewSampleSource() *SampleSource { return &SampleSource{} }

// Name identifies the source.
func (s *SampleSource) Name() string { return "sample" }

// Fetch returns the sample corpus.
func (s *SampleSource) Fetch(ctx context.Context) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seeds := []record.Record{
		{
			Name:        "TechFlow",
			Description: "AI-powered workflow automation platform for enterprise teams",
			Industry:    "Enterprise Software",
			Funding:     "$15M Series A",
			Location:    "San Francisco, CA",
			Founded:     2021,
			TeamSize:    45,
		},
		{
			Name:        "GreenEnergy",
			Description: "Renewable energy solutions for residential and commercial buildings",
			Industry:    "Clean Energy",
			Funding:     "$8M Seed",
			Location:    "Austin, TX",
			Founded:     2022,
			TeamSize:    23,
		},
		{
			Name:        "HealthAI",
			Description: "Machine learning platform for early disease detection and diagnosis",
			Industry:    "Healthcare",
			Funding:     "$25M Series B",
			Location:    "Boston, MA",
			Founded:     2020,
			TeamSize:    67,
		},
		{
			Name:        "EduTech",
			Description: "Personalized learning platform using adaptive algorithms",
			Industry:    "Education",
			Funding:     "$12M Series A",
			Location:    "Seattle, WA",
			Founded:     2021,
			TeamSize:    34,
		},
		{
			Name:        "FinTechPro",
			Description: "Blockchain-based payment processing and financial services",
			Industry:    "Financial Services",
			Funding:     "$30M Series C",
			Location:    "New York, NY",
			Founded:     2019,
			TeamSize:    89,
		},
	}

	records := make([]record.Record, 0, len(seeds))
	for i, r := range seeds {
		r.Source = "sample"
		r.SourceID = strconv.Itoa(i)
		normalized, err := record.Normalize(r)
		if err != nil {
			return nil, err
		}
		records = append(records, normalized)
	}
	return records, nil
}
