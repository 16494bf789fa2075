package filter

import (
	"strings"

	"github.com/vearne/httpcap/model"
)

type PathExcludeFilter struct {
	exclude string
}

func NewPathExcludeFilter(exclude string) *PathExcludeFilter {
	var f PathExcludeFilter
	f.exclude = exclude
	return &f
}

// Filter :If ok is true, it means that the request can pass
func (f *PathExcludeFilter) Filter(req *model.HTTPRequest) (*model.HTTPRequest, bool) {
	if strings.Contains(req.Path, f.exclude) {
		return nil, false
	}
	return req, true
}
