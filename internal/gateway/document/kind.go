package document

import (
	"fmt"
	"slices"

	"observe/internal/domain"
)

// Kind describes an instrument family: which function reports its state,
// which document the report becomes, and how execute documents are named.
type Kind struct {
	Name         string
	InfoFunction string
	ExecuteRoot  string
	newInfo      func() any
}

var kinds = map[string]Kind{
	"telescope": {
		Name:         "telescope",
		InfoFunction: "telescope_info",
		ExecuteRoot:  "telescope_execute",
		newInfo:      func() any { return &TelescopeInfo{} },
	},
	"spectrograph": {
		Name:         "spectrograph",
		InfoFunction: "spectrograph_info",
		ExecuteRoot:  "spectrograph_execute",
		newInfo:      func() any { return &SpectrographInfo{} },
	},
	"expose": {
		Name:         "expose",
		InfoFunction: "expose_info",
		ExecuteRoot:  "expose_execute",
		newInfo:      func() any { return &ExposeInfo{} },
	},
}

// LookupKind returns the instrument family registered under name.
func LookupKind(name string) (Kind, error) {
	k, ok := kinds[name]
	if !ok {
		return Kind{}, fmt.Errorf("unknown instrument kind %q (known: %v)", name, KindNames())
	}
	return k, nil
}

// KindNames lists the registered instrument families in sorted order.
func KindNames() []string {
	names := make([]string, 0, len(kinds))
	for n := range kinds {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// DecodeInfo converts an info call result into the kind's typed document.
func (k Kind) DecodeInfo(m domain.Map) (any, error) {
	doc := k.newInfo()
	if err := Decode(m, doc); err != nil {
		return nil, err
	}
	return doc, nil
}
