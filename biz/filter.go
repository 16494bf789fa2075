package biz

import (
	"github.com/vearne/httpcap/config"
	"github.com/vearne/httpcap/filter"
)

func NewFilterChain(settings *config.AppSettings) (*filter.FilterChain, error) {
	c := filter.NewFilterChain()

	if len(settings.IncludeFilterMethodMatch) > 0 {
		f, err := filter.NewMethodMatchIncludeFilter(settings.IncludeFilterMethodMatch)
		if err != nil {
			return nil, err
		}
		c.AddIncludeFilter(f)
	}

	if len(settings.IncludeFilterHostMatch) > 0 {
		f, err := filter.NewHostMatchIncludeFilter(settings.IncludeFilterHostMatch)
		if err != nil {
			return nil, err
		}
		c.AddIncludeFilter(f)
	}

	for _, path := range settings.ExcludeFilterPath {
		if path == "" {
			continue
		}
		c.AddExcludeFilters(filter.NewPathExcludeFilter(path))
	}
	return c, nil
}
