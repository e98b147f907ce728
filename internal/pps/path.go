package pps

import (
	"fmt"
	"path"
	"strings"
)

// Path is a property-store object path plus its open options, e.g.
// "/pps/services/power/battery?wait,delta".
type Path struct {
	Object  string
	Options []string
}

// ParsePath splits a raw PPS path into the object path and its options.
func ParsePath(raw string) (Path, error) {
	var p Path
	obj, opts, _ := strings.Cut(raw, "?")
	obj = strings.TrimSpace(obj)
	if obj == "" || obj[0] != '/' {
		return p, fmt.Errorf("pps path must be absolute: %q", raw)
	}
	p.Object = path.Clean(obj)
	for _, o := range strings.Split(opts, ",") {
		if o = strings.TrimSpace(o); o != "" {
			p.Options = append(p.Options, o)
		}
	}
	return p, nil
}

// ObjectPath strips the options from raw. Unparseable input is returned as is.
func ObjectPath(raw string) string {
	p, err := ParsePath(raw)
	if err != nil {
		return raw
	}
	return p.Object
}

// Name is the object name, the last element of the object path.
func (p Path) Name() string { return path.Base(p.Object) }

// Has reports whether the option opt was requested.
func (p Path) Has(opt string) bool {
	for _, o := range p.Options {
		if o == opt {
			return true
		}
	}
	return false
}

func (p Path) String() string {
	if len(p.Options) == 0 {
		return p.Object
	}
	return p.Object + "?" + strings.Join(p.Options, ",")
}
