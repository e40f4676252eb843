package plans

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the set of plans an administrator seeds into the database
type Catalog struct {
	Plans []Plan `yaml:"plans"`
}

// DefaultCatalog returns the built-in plan tiers
func DefaultCatalog() *Catalog {
	return &Catalog{Plans: []Plan{
		{
			Name:            "Free",
			Description:     "Perfect for trying out laman with basic features",
			PriceCents:      0,
			BillingPeriod:   BillingMonthly,
			GenerationLimit: Limit(3),
			Features: []string{
				"3 page generations per month",
				"Basic templates",
				"Standard support",
				"Export to HTML/CSS",
			},
			IsActive:  true,
			SortOrder: 1,
		},
		{
			Name:            "Pro",
			Description:     "Ideal for professionals and small businesses",
			PriceCents:      1999,
			BillingPeriod:   BillingMonthly,
			GenerationLimit: Limit(50),
			Features: []string{
				"50 page generations per month",
				"Premium templates",
				"Advanced customization",
				"Priority support",
				"Export to HTML/CSS",
				"Custom domain integration",
			},
			IsActive:  true,
			SortOrder: 2,
		},
		{
			Name:          "Business",
			Description:   "Perfect for agencies and large teams",
			PriceCents:    4999,
			BillingPeriod: BillingMonthly,
			Features: []string{
				"Unlimited page generations",
				"All premium templates",
				"Advanced customization",
				"White-label options",
				"Priority support",
				"Export to HTML/CSS",
				"Custom domain integration",
				"Team collaboration tools",
				"API access",
			},
			IsActive:  true,
			SortOrder: 3,
		},
		{
			Name:            "Pro Annual",
			Description:     "Pro plan with annual billing (2 months free)",
			PriceCents:      19999,
			BillingPeriod:   BillingYearly,
			GenerationLimit: Limit(50),
			Features: []string{
				"50 page generations per month",
				"Premium templates",
				"Advanced customization",
				"Priority support",
				"Export to HTML/CSS",
				"Custom domain integration",
				"Annual billing discount",
			},
			IsActive:  true,
			SortOrder: 4,
		},
		{
			Name:          "Business Annual",
			Description:   "Business plan with annual billing (2 months free)",
			PriceCents:    49999,
			BillingPeriod: BillingYearly,
			Features: []string{
				"Unlimited page generations",
				"All premium templates",
				"Advanced customization",
				"White-label options",
				"Priority support",
				"Export to HTML/CSS",
				"Custom domain integration",
				"Team collaboration tools",
				"API access",
				"Annual billing discount",
			},
			IsActive:  true,
			SortOrder: 5,
		},
	}}
}

// LoadCatalog decodes and validates a YAML catalog:
//
//	plans:
//	  - name: Free
//	    price_cents: 0
//	    billing_period: monthly
//	    generation_limit: 3
//	    is_active: true
//	    sort_order: 1
//	  - name: Business
//	    price_cents: 4999
//	    billing_period: monthly
//	    generation_limit: null   # unlimited
//	    is_active: true
//	    sort_order: 3
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("catalog is empty")
		}
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCatalogFile reads a YAML catalog from path
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	return LoadCatalog(f)
}

// Validate checks every plan and rejects duplicate names
func (c *Catalog) Validate() error {
	if len(c.Plans) == 0 {
		return fmt.Errorf("catalog has no plans")
	}
	seen := make(map[string]struct{}, len(c.Plans))
	for i := range c.Plans {
		p := &c.Plans[i]
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("duplicate plan name %q", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}
