package model

import "github.com/peak-solution/openatfx-sub003/internal/value"

// Instance is one instance of an element as handed to a store for loading.
type Instance struct {
	ID     int64
	Values map[string]value.Value // attribute name → value; missing means no value
	Links  map[string][]int64     // relation name → target ids, in order
}

// ElementData is the instance data of one element, in load order.
type ElementData struct {
	Element   string
	Instances []Instance
}

// Dataset is a batch of instance data across elements.
type Dataset struct {
	Elements []ElementData
}

// Len returns the number of instances in d.
func (d *Dataset) Len() int {
	n := 0
	for _, e := range d.Elements {
		n += len(e.Instances)
	}
	return n
}
