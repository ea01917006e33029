package normalize

import (
	"fmt"

	"bioimagelab/pkg/diag"
	"bioimagelab/pkg/tensor"
)

// Engine normalizes channels of a raw 5D tensor and caches the result per
// channel. Each fluorophore has its own peak intensity, so channels are
// always normalized independently of each other.
//
// Cache entries have shape (T, Z, 1, Y, X): entry i corresponds to raw
// channel i with the channel axis collapsed. Entries stay nil until the
// first Normalize call for that channel, are overwritten by later calls on
// the same channel, and are never touched by calls on other channels. The
// engine owns its cache; Normalize returns defensive copies.
type Engine struct {
	shape    tensor.Shape
	channels []string
	cache    []*tensor.Tensor[float64]
	sink     diag.Sink
}

// NewEngine builds an engine for a raw store of the given shape and channel
// name table. A nil sink discards diagnostics.
func NewEngine(shape tensor.Shape, channels []string, sink diag.Sink) *Engine {
	if sink == nil {
		sink = diag.Nop()
	}
	return &Engine{
		shape:    shape,
		channels: channels,
		sink:     sink,
	}
}

// Normalize computes the normalized tensor for one channel under the given
// strategy and method, stores it in the per-channel cache and returns a deep
// copy of the full (T, Z, 1, Y, X) result. Downstream consumers always index
// by absolute (t, z), so the whole cached channel is returned even when only
// part of it was recomputed.
//
// The raw tensor is cast to float64 before any statistic is computed;
// deriving a statistic from integer samples would truncate and silently
// corrupt the result. Calling Normalize twice with identical arguments on an
// unchanged raw tensor yields bit-identical output.
//
// Every error path returns before the cache is touched.
func (e *Engine) Normalize(raw *tensor.Tensor[uint16], channel int, strat Strategy, method Method) (*tensor.Tensor[float64], error) {
	if raw == nil {
		return nil, fmt.Errorf("raw tensor must not be nil")
	}
	if raw.Shape() != e.shape {
		return nil, fmt.Errorf("raw tensor shape %s does not match engine shape %s", raw.Shape(), e.shape)
	}
	if method == nil {
		return nil, fmt.Errorf("normalization method must not be nil")
	}
	if err := tensor.CheckIndex("channel", channel, e.shape.C); err != nil {
		return nil, err
	}
	if err := e.validateStrategy(strat); err != nil {
		return nil, err
	}

	ft := toFloat(raw)

	if e.cache == nil {
		e.cache = make([]*tensor.Tensor[float64], e.shape.C)
	}
	if e.cache[channel] == nil {
		out, err := tensor.New[float64](tensor.Shape{
			T: e.shape.T, Z: e.shape.Z, C: 1, Y: e.shape.Y, X: e.shape.X,
		})
		if err != nil {
			return nil, err
		}
		e.cache[channel] = out
	}
	dst := e.cache[channel]

	switch s := strat.(type) {
	case Global:
		block := e.channelBlock(ft, channel)
		tr, ok := method.Fit(block)
		if !ok {
			e.warnDegenerate(channel, strat, method, diag.Fields{})
		}
		e.storeChannel(dst, block, tr)

	case ZReference:
		ref := e.zBlock(ft, channel, s.Z)
		tr, ok := method.Fit(ref)
		if !ok {
			e.warnDegenerate(channel, strat, method, diag.Fields{"z": s.Z})
		}
		// The reference slice's transform applies to the entire channel,
		// not just the reference z-stack.
		e.storeChannel(dst, e.channelBlock(ft, channel), tr)

	case ZPerSlice:
		for z := 0; z < e.shape.Z; z++ {
			block := e.zBlock(ft, channel, z)
			tr, ok := method.Fit(block)
			if !ok {
				e.warnDegenerate(channel, strat, method, diag.Fields{"z": z})
			}
			e.storeZ(dst, z, block, tr)
		}

	case TReference:
		ref := e.tBlock(ft, channel, s.T)
		tr, ok := method.Fit(ref)
		if !ok {
			e.warnDegenerate(channel, strat, method, diag.Fields{"t": s.T})
		}
		e.storeChannel(dst, e.channelBlock(ft, channel), tr)

	case TPerSlice:
		for t := 0; t < e.shape.T; t++ {
			block := e.tBlock(ft, channel, t)
			tr, ok := method.Fit(block)
			if !ok {
				e.warnDegenerate(channel, strat, method, diag.Fields{"t": t})
			}
			e.storeT(dst, t, block, tr)
		}

	default:
		return nil, fmt.Errorf("unsupported normalization strategy %T", strat)
	}

	e.sink.Info("normalize", "channel normalized", diag.Fields{
		"channel":  channel,
		"name":     e.channelName(channel),
		"strategy": strat.String(),
		"method":   method.Name(),
	})
	return dst.Clone(), nil
}

// Cached returns the engine's live normalized tensor for a channel, or false
// if that channel has not been normalized yet. The tensor is borrowed: it is
// read-only for the caller and remains owned by the engine. Use the returned
// tensor's Clone or Plane methods before handing data further out.
func (e *Engine) Cached(channel int) (*tensor.Tensor[float64], bool) {
	if e.cache == nil || channel < 0 || channel >= len(e.cache) || e.cache[channel] == nil {
		return nil, false
	}
	return e.cache[channel], true
}

// Reset drops every cached normalized channel.
func (e *Engine) Reset() {
	e.cache = nil
}

func (e *Engine) validateStrategy(strat Strategy) error {
	switch s := strat.(type) {
	case Global, ZPerSlice, TPerSlice:
		return nil
	case ZReference:
		return tensor.CheckIndex("zRef", s.Z, e.shape.Z)
	case TReference:
		return tensor.CheckIndex("tRef", s.T, e.shape.T)
	default:
		return fmt.Errorf("unsupported normalization strategy %T", strat)
	}
}

func (e *Engine) channelName(channel int) string {
	if channel < len(e.channels) {
		return e.channels[channel]
	}
	return ""
}

func (e *Engine) warnDegenerate(channel int, strat Strategy, method Method, extra diag.Fields) {
	fields := diag.Fields{
		"channel":  channel,
		"name":     e.channelName(channel),
		"strategy": strat.String(),
		"method":   method.Name(),
	}
	for k, v := range extra {
		fields[k] = v
	}
	e.sink.Warn("normalize", "degenerate statistic, values passed through unnormalized", fields)
}

// toFloat casts the full raw tensor to float64.
func toFloat(raw *tensor.Tensor[uint16]) *tensor.Tensor[float64] {
	src := raw.Values()
	dst := make([]float64, len(src))
	for i, v := range src {
		dst[i] = float64(v)
	}
	ft, _ := tensor.FromData(raw.Shape(), dst)
	return ft
}

// channelBlock gathers the (T, Z, Y, X) sub-tensor of one channel in
// t-z-y-x order.
func (e *Engine) channelBlock(ft *tensor.Tensor[float64], c int) []float64 {
	s := e.shape
	block := make([]float64, 0, s.T*s.Z*s.Y*s.X)
	for t := 0; t < s.T; t++ {
		for z := 0; z < s.Z; z++ {
			for y := 0; y < s.Y; y++ {
				for x := 0; x < s.X; x++ {
					block = append(block, ft.At(t, z, c, y, x))
				}
			}
		}
	}
	return block
}

// zBlock gathers the (T, Y, X) sub-tensor of one channel at a fixed z.
func (e *Engine) zBlock(ft *tensor.Tensor[float64], c, z int) []float64 {
	s := e.shape
	block := make([]float64, 0, s.T*s.Y*s.X)
	for t := 0; t < s.T; t++ {
		for y := 0; y < s.Y; y++ {
			for x := 0; x < s.X; x++ {
				block = append(block, ft.At(t, z, c, y, x))
			}
		}
	}
	return block
}

// tBlock gathers the (Z, Y, X) sub-tensor of one channel at a fixed t.
func (e *Engine) tBlock(ft *tensor.Tensor[float64], c, t int) []float64 {
	s := e.shape
	block := make([]float64, 0, s.Z*s.Y*s.X)
	for z := 0; z < s.Z; z++ {
		for y := 0; y < s.Y; y++ {
			for x := 0; x < s.X; x++ {
				block = append(block, ft.At(t, z, c, y, x))
			}
		}
	}
	return block
}

// storeChannel writes a transformed (T, Z, Y, X) block into the whole
// destination channel tensor.
func (e *Engine) storeChannel(dst *tensor.Tensor[float64], block []float64, tr Transform) {
	s := e.shape
	i := 0
	for t := 0; t < s.T; t++ {
		for z := 0; z < s.Z; z++ {
			for y := 0; y < s.Y; y++ {
				for x := 0; x < s.X; x++ {
					dst.Set(t, z, 0, y, x, tr(block[i]))
					i++
				}
			}
		}
	}
}

// storeZ writes a transformed (T, Y, X) block into one z-slot.
func (e *Engine) storeZ(dst *tensor.Tensor[float64], z int, block []float64, tr Transform) {
	s := e.shape
	i := 0
	for t := 0; t < s.T; t++ {
		for y := 0; y < s.Y; y++ {
			for x := 0; x < s.X; x++ {
				dst.Set(t, z, 0, y, x, tr(block[i]))
				i++
			}
		}
	}
}

// storeT writes a transformed (Z, Y, X) block into one timepoint.
func (e *Engine) storeT(dst *tensor.Tensor[float64], t int, block []float64, tr Transform) {
	s := e.shape
	i := 0
	for z := 0; z < s.Z; z++ {
		for y := 0; y < s.Y; y++ {
			for x := 0; x < s.X; x++ {
				dst.Set(t, z, 0, y, x, tr(block[i]))
				i++
			}
		}
	}
}
