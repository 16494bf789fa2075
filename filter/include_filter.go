package filter

import (
	"regexp"

	"github.com/pkg/errors"
	"github.com/vearne/httpcap/model"
)

type MethodMatchIncludeFilter struct {
	r *regexp.Regexp
}

func NewMethodMatchIncludeFilter(expr string) (*MethodMatchIncludeFilter, error) {
	r, err := regexp.Compile(expr)
	if err != nil {
		return nil, errors.Wrapf(err, "method match expr %q", expr)
	}
	return &MethodMatchIncludeFilter{r: r}, nil
}

// Filter :If ok is true, it means that the request can pass
func (f *MethodMatchIncludeFilter) Filter(req *model.HTTPRequest) (*model.HTTPRequest, bool) {
	if f.r.MatchString(req.Method) {
		return req, true
	}
	return nil, false
}

type HostMatchIncludeFilter struct {
	r *regexp.Regexp
}

func NewHostMatchIncludeFilter(expr string) (*HostMatchIncludeFilter, error) {
	r, err := regexp.Compile(expr)
	if err != nil {
		return nil, errors.Wrapf(err, "host match expr %q", expr)
	}
	return &HostMatchIncludeFilter{r: r}, nil
}

// Filter :If ok is true, it means that the request can pass
func (f *HostMatchIncludeFilter) Filter(req *model.HTTPRequest) (*model.HTTPRequest, bool) {
	if f.r.MatchString(req.Host) {
		return req, true
	}
	return nil, false
}
