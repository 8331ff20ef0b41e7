// Copyright (c) 2026, The RLs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package memories implements the experience replay buffer shared by all
algorithms: a fixed-capacity, multi-key, multi-field circular time series of
transitions produced by parallel environment copies, sampled as temporally
contiguous windows for recurrent-friendly training.
*/
package memories

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/bird-group/stepneverstop-RLs/specs"
	"github.com/c2h5oh/datasize"
	"github.com/emer/etable/v2/etensor"
)

var (
	// ErrNotEnoughData is returned by Sample when the requested window
	// length exceeds the number of filled slots.
	ErrNotEnoughData = errors.New("memories: not enough data in buffer")

	// ErrShapeMismatch is returned by Add when a field does not match the
	// shape or dtype fixed at its first write.  This is a caller contract
	// violation and must be treated as fatal to that Add call.
	ErrShapeMismatch = errors.New("memories: field shape or dtype mismatch")
)

// DataBuffer is a ring buffer over synchronized time slices of experience.
// Each top-level key (an agent behavior name, or "global") holds a set of
// named fields; each field is stored as one tensor of shape
// [MaxHorizon, NCopys, fieldDims...].  A single write pointer is shared by
// every field under every key: one Add call writes one slot across all of
// them in lockstep, so a slot index always refers to the same moment in
// time for the whole record.
//
// Add and Sample are expected to be called serially from a single training
// loop; there is no locking.
type DataBuffer struct {

	// number of parallel environment copies writing into each slot
	NCopys int

	// default number of (start, copy) samples drawn per Sample call
	BatchSize int

	// total transition capacity across all copies
	BufferSize int

	// default sampled window length
	TimeStep int

	// per-copy ring capacity: BufferSize / NCopys
	MaxHorizon int

	// fields[key][fieldPath] -> [MaxHorizon, NCopys, dims...] ring store
	fields map[string]map[string]etensor.Tensor

	// number of filled slots, capped at MaxHorizon
	horizLen int

	// next slot to write, wraps modulo MaxHorizon
	pointer int

	rng *rand.Rand
}

// NewDataBuffer returns a buffer for the given geometry.  BufferSize is
// truncated down to a whole number of per-copy slots.
func NewDataBuffer(nCopys, batchSize, bufferSize, timeStep int) (*DataBuffer, error) {
	if nCopys <= 0 || batchSize <= 0 || timeStep <= 0 {
		return nil, fmt.Errorf("memories: nCopys, batchSize, timeStep must be positive, got %d, %d, %d", nCopys, batchSize, timeStep)
	}
	horizon := bufferSize / nCopys
	if horizon < timeStep {
		return nil, fmt.Errorf("memories: horizon %d (bufferSize %d / nCopys %d) shorter than timeStep %d", horizon, bufferSize, nCopys, timeStep)
	}
	return &DataBuffer{
		NCopys:     nCopys,
		BatchSize:  batchSize,
		BufferSize: bufferSize,
		TimeStep:   timeStep,
		MaxHorizon: horizon,
		fields:     make(map[string]map[string]etensor.Tensor),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Seed seeds the buffer's random source, for reproducible sampling.
func (b *DataBuffer) Seed(seed int64) {
	b.rng = rand.New(rand.NewSource(seed))
}

// Add appends one synchronized time slice: for every key, every flattened
// field of the record, shaped [NCopys, dims...], is written into the current
// slot.  Fields are allocated lazily on first write, fixing their shape and
// dtype; later mismatches return ErrShapeMismatch before any slot is
// touched.  The shared pointer advances once per call, wrapping modulo
// MaxHorizon, silently overwriting the oldest slot once the ring is full.
func (b *DataBuffer) Add(data map[string]*specs.Data) error {
	flat := make(map[string]map[string]etensor.Tensor, len(data))
	for key, rec := range data {
		flat[key] = rec.Flatten()
	}
	// validate everything up front so a contract violation cannot leave a
	// half-written slot or a skewed pointer
	for key, fm := range flat {
		for path, v := range fm {
			if v.NumDims() < 1 || v.Dim(0) != b.NCopys {
				return fmt.Errorf("%w: %s/%s leading dim %v, want NCopys=%d", ErrShapeMismatch, key, path, v.Shapes(), b.NCopys)
			}
			st, ok := b.fields[key][path]
			if !ok {
				continue
			}
			if st.DataType() != v.DataType() || !sameShape(st.Shapes()[1:], v.Shapes()) {
				return fmt.Errorf("%w: %s/%s got %v %v, allocated %v %v", ErrShapeMismatch,
					key, path, v.Shapes(), v.DataType(), st.Shapes()[1:], st.DataType())
			}
		}
	}
	for key, fm := range flat {
		kf, ok := b.fields[key]
		if !ok {
			kf = make(map[string]etensor.Tensor, len(fm))
			b.fields[key] = kf
		}
		for path, v := range fm {
			st, ok := kf[path]
			if !ok {
				shp := append([]int{b.MaxHorizon}, v.Shapes()...)
				st = etensor.New(v.DataType(), shp, nil, nil)
				kf[path] = st
			}
			n := v.Len()
			st.CopyCellsFrom(v, b.pointer*n, 0, n)
		}
	}
	b.pointer = (b.pointer + 1) % b.MaxHorizon
	if b.horizLen < b.MaxHorizon {
		b.horizLen++
	}
	return nil
}

// Sample draws a batch of temporally contiguous windows.  batchSize and
// timeStep of 0 use the buffer defaults.  Each of the B samples pairs an
// independent uniform window start with an independent uniform copy index;
// the window of T consecutive slots wraps modulo the filled length.  The
// result has the same key and field structure as was added, with each field
// shaped [T, B, dims...].  Sampling is read-only and with replacement.
func (b *DataBuffer) Sample(batchSize, timeStep int) (map[string]*specs.Data, error) {
	B := batchSize
	if B == 0 {
		B = b.BatchSize
	}
	T := timeStep
	if T == 0 {
		T = b.TimeStep
	}
	if T > b.horizLen {
		return nil, fmt.Errorf("%w: window %d > filled %d", ErrNotEnoughData, T, b.horizLen)
	}

	// valid window starts: anywhere in the ring once wrapped, else only
	// over the contiguous filled prefix
	lo := 0
	if b.horizLen == b.MaxHorizon {
		lo = b.pointer - b.MaxHorizon
	}
	hi := b.pointer - T + 1

	starts := make([]int, B)
	copys := make([]int, B)
	for i := 0; i < B; i++ {
		starts[i] = lo + b.rng.Intn(hi-lo)
		copys[i] = b.rng.Intn(b.NCopys)
	}

	out := make(map[string]*specs.Data, len(b.fields))
	for key, kf := range b.fields {
		flat := make(map[string]etensor.Tensor, len(kf))
		for path, st := range kf {
			flat[path] = b.gather(st, starts, copys, T, B)
		}
		rec, err := specs.Unflatten(flat)
		if err != nil {
			return nil, err
		}
		out[key] = rec
	}
	return out, nil
}

// gather assembles a [T, B, dims...] tensor from the [H, NCopys, dims...]
// ring store at the given window starts and copy indices.
func (b *DataBuffer) gather(st etensor.Tensor, starts, copys []int, T, B int) etensor.Tensor {
	dims := st.Shapes()[2:]
	cell := 1
	for _, d := range dims {
		cell *= d
	}
	out := etensor.New(st.DataType(), append([]int{T, B}, dims...), nil, nil)
	for t := 0; t < T; t++ {
		for i := 0; i < B; i++ {
			row := mod(starts[i]+t, b.horizLen)
			src := (row*b.NCopys + copys[i]) * cell
			dst := (t*B + i) * cell
			out.CopyCellsFrom(st, dst, src, cell)
		}
	}
	return out
}

// CanSample reports whether enough distinct (start, copy) combinations
// exist to plausibly draw a default batch without forcing heavy
// duplication.  Sampling is with replacement, so this does not rule out
// duplicate draws.
func (b *DataBuffer) CanSample() bool {
	return (b.horizLen-b.TimeStep)*b.NCopys >= b.BatchSize
}

// IsMulti reports whether more than two top-level keys are tracked, the
// usual signature of multi-agent data (single-agent runs store one behavior
// key plus "global").
func (b *DataBuffer) IsMulti() bool {
	return len(b.fields) > 2
}

// Keys returns the tracked top-level keys, sorted.
func (b *DataBuffer) Keys() []string {
	keys := make([]string, 0, len(b.fields))
	for k := range b.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Filled returns the number of filled slots, capped at MaxHorizon.
func (b *DataBuffer) Filled() int { return b.horizLen }

// Pointer returns the current write slot.
func (b *DataBuffer) Pointer() int { return b.pointer }

// MemSize returns the total bytes held across all ring stores.
func (b *DataBuffer) MemSize() datasize.ByteSize {
	var n uint64
	for _, kf := range b.fields {
		for _, st := range kf {
			n += uint64(st.Len()) * uint64(dtypeSize(st.DataType()))
		}
	}
	return datasize.ByteSize(n)
}

func (b *DataBuffer) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "DataBuffer horizon %d/%d pointer %d size %v\n",
		b.horizLen, b.MaxHorizon, b.pointer, b.MemSize().HumanReadable())
	for _, key := range b.Keys() {
		fmt.Fprintf(&sb, "%s:\n", key)
		kf := b.fields[key]
		paths := make([]string, 0, len(kf))
		for p := range kf {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			fmt.Fprintf(&sb, "  %s: %v %v\n", p, kf[p].Shapes()[1:], kf[p].DataType())
		}
	}
	return sb.String()
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// mod is the positive modulus: window starts can be negative once the ring
// has wrapped.
func mod(i, n int) int {
	m := i % n
	if m < 0 {
		m += n
	}
	return m
}

func dtypeSize(dt etensor.Type) int {
	switch dt {
	case etensor.BOOL, etensor.INT8, etensor.UINT8:
		return 1
	case etensor.INT16, etensor.UINT16, etensor.FLOAT16:
		return 2
	case etensor.INT32, etensor.UINT32, etensor.FLOAT32:
		return 4
	default:
		return 8
	}
}
