// Copyright (c) 2026, The RLs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package specs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/emer/etable/v2/etensor"
)

// PathSep separates levels in a flattened field path, e.g. "obs.vector_0".
// Field names therefore must not contain a '.'.
const PathSep = "."

// Data is a recursively nested record of named tensors, the unit of exchange
// between environments, algorithms, and the experience buffer.  Leaves are
// tensors whose leading dimension is the batch of parallel environment copies;
// sub-records group related fields (e.g. an "obs" record holding one tensor
// per sensor).
type Data struct {

	// tensor-valued leaf fields, by name
	Fields map[string]etensor.Tensor

	// nested sub-records, by name -- a name is either a field or a sub,
	// never both
	Subs map[string]*Data
}

// NewData returns an empty record.
func NewData() *Data {
	return &Data{
		Fields: make(map[string]etensor.Tensor),
		Subs:   make(map[string]*Data),
	}
}

// Set sets the tensor at the given path, creating intermediate sub-records
// as needed.  Returns an error if any path element is already used with the
// other kind (field vs. sub-record).
func (d *Data) Set(path string, tsr etensor.Tensor) error {
	parts := strings.Split(path, PathSep)
	cur := d
	for _, p := range parts[:len(parts)-1] {
		if _, bad := cur.Fields[p]; bad {
			return fmt.Errorf("specs.Data: path element %q is a field, not a sub-record", p)
		}
		sub, ok := cur.Subs[p]
		if !ok {
			sub = NewData()
			cur.Subs[p] = sub
		}
		cur = sub
	}
	leaf := parts[len(parts)-1]
	if _, bad := cur.Subs[leaf]; bad {
		return fmt.Errorf("specs.Data: path element %q is a sub-record, not a field", leaf)
	}
	cur.Fields[leaf] = tsr
	return nil
}

// Get returns the tensor at the given path, or an error if not present.
func (d *Data) Get(path string) (etensor.Tensor, error) {
	parts := strings.Split(path, PathSep)
	cur := d
	for _, p := range parts[:len(parts)-1] {
		sub, ok := cur.Subs[p]
		if !ok {
			return nil, fmt.Errorf("specs.Data: no sub-record %q in path %q", p, path)
		}
		cur = sub
	}
	tsr, ok := cur.Fields[parts[len(parts)-1]]
	if !ok {
		return nil, fmt.Errorf("specs.Data: no field at path %q", path)
	}
	return tsr, nil
}

// Flatten returns the record as a flat path -> tensor map, using PathSep
// between levels.  Flatten and Unflatten form an exact inverse pair for any
// record built through Set.
func (d *Data) Flatten() map[string]etensor.Tensor {
	flat := make(map[string]etensor.Tensor)
	d.flatten("", flat)
	return flat
}

func (d *Data) flatten(prefix string, flat map[string]etensor.Tensor) {
	for nm, tsr := range d.Fields {
		flat[prefix+nm] = tsr
	}
	for nm, sub := range d.Subs {
		sub.flatten(prefix+nm+PathSep, flat)
	}
}

// Unflatten reconstitutes a nested record from a flat path -> tensor map,
// the inverse of Flatten.  A map whose paths conflict (one path naming both
// a field and a sub-record level) returns an error; maps produced by
// Flatten never do.
func Unflatten(flat map[string]etensor.Tensor) (*Data, error) {
	d := NewData()
	paths := make([]string, 0, len(flat))
	for p := range flat {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, path := range paths {
		if err := d.Set(path, flat[path]); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Paths returns the sorted flattened field paths.
func (d *Data) Paths() []string {
	flat := d.Flatten()
	paths := make([]string, 0, len(flat))
	for p := range flat {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (d *Data) String() string {
	var sb strings.Builder
	for _, p := range d.Paths() {
		tsr, _ := d.Get(p)
		fmt.Fprintf(&sb, "%s: %v\n", p, tsr.Shapes())
	}
	return sb.String()
}

// OneHot returns a [n] float32 tensor with a 1 at index i.
func OneHot(i, n int) *etensor.Float32 {
	tsr := etensor.NewFloat32([]int{n}, nil, nil)
	if i >= 0 && i < n {
		tsr.Values[i] = 1
	}
	return tsr
}
