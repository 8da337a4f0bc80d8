package registry

import "fmt"

// View is a filtered view over a dataset.
//
// Views carry no registry state of their own; every registry operation
// resolves to the root dataset.
type View struct {
	dataset *Dataset
	filter  string
}

// NewView creates a named view over the given dataset.
func NewView(dataset *Dataset, filter string) *View {
	return &View{dataset: dataset, filter: filter}
}

// Name returns the view's display name, derived from the dataset and filter.
func (v *View) Name() string {
	if v.filter == "" {
		return v.dataset.Name()
	}
	return fmt.Sprintf("%s[%s]", v.dataset.Name(), v.filter)
}

// Root returns the full dataset underlying the view.
func (v *View) Root() *Dataset { return v.dataset }
