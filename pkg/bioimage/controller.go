package bioimage

import (
	"fmt"
	"iter"

	"bioimagelab/pkg/diag"
	"bioimagelab/pkg/normalize"
	"bioimagelab/pkg/tensor"
)

// Controller owns one loaded bioimage and its derived tensors. It ties the
// origin classifier, the raw tensor store, the normalization engine and the
// binarization step together behind one handle.
//
// Ownership: the controller owns the raw and processed tensors, the
// normalization engine owns its per-channel cache, and the controller owns
// the per-channel binary masks. Every public getter returns a deep copy, so
// callers can never overwrite data through something that should be
// read-only.
type Controller struct {
	path    string
	origin  Origin
	decoder Decoder
	sink    diag.Sink

	// raw is the (T, Z, C, Y, X) store; nil until Load succeeds.
	raw      *tensor.Tensor[uint16]
	channels []string

	// processed mirrors raw and receives per-slice write-backs from plane
	// operations. Allocated zero-filled at load time.
	processed *tensor.Tensor[uint16]

	engine *normalize.Engine

	// binary[i] is the 0/255 mask of channel i, shape (T, Z, 1, Y, X).
	// nil slice until the first successful Binarize.
	binary []*tensor.Tensor[uint8]
}

// Option configures a Controller.
type Option func(*Controller)

// WithSink routes the controller's diagnostics to s.
func WithSink(s diag.Sink) Option {
	return func(c *Controller) { c.sink = s }
}

// WithDecoder replaces the default TIFF decoder for the bioformats path,
// e.g. with an .ics/.ids capable reader.
func WithDecoder(d Decoder) Option {
	return func(c *Controller) { c.decoder = d }
}

// NewController classifies the file at path and prepares a controller for
// it. Nothing is read from disk until Load.
func NewController(path string, opts ...Option) *Controller {
	c := &Controller{
		path:    path,
		origin:  Classify(path),
		decoder: TIFFDecoder{},
		sink:    diag.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads the file into the 5D store. On failure the controller is left
// exactly as it was: empty if nothing was loaded before, or holding the
// previous tensor otherwise. Callers must check the error before using any
// accessor.
func (c *Controller) Load() error {
	var (
		raw      *tensor.Tensor[uint16]
		channels []string
		err      error
	)

	switch c.origin.(type) {
	case BioFormats:
		raw, channels, err = c.decoder.Decode(c.path)
	case StandardImage:
		raw, channels, err = readStandard(c.path)
	default:
		err = fmt.Errorf("unsupported origin %T", c.origin)
	}
	if err != nil {
		c.sink.Error("load", err, diag.Fields{"path": c.path})
		return fmt.Errorf("load %s: %w", c.path, err)
	}

	processed, err := tensor.New[uint16](raw.Shape())
	if err != nil {
		return err
	}

	c.raw = raw
	c.channels = channels
	c.processed = processed
	c.engine = normalize.NewEngine(raw.Shape(), channels, c.sink)
	c.binary = nil

	c.sink.Info("load", "bioimage loaded", diag.Fields{
		"path":     c.path,
		"shape":    raw.Shape().String(),
		"channels": channels,
	})
	return nil
}

// Loaded reports whether a raw tensor is available.
func (c *Controller) Loaded() bool {
	return c.raw != nil
}

// Shape returns the raw store's (T, Z, C, Y, X) extents. The zero Shape is
// returned before a successful Load.
func (c *Controller) Shape() tensor.Shape {
	if c.raw == nil {
		return tensor.Shape{}
	}
	return c.raw.Shape()
}

// ChannelNames returns a copy of the channel name table parallel to the C
// axis.
func (c *Controller) ChannelNames() []string {
	out := make([]string, len(c.channels))
	copy(out, c.channels)
	return out
}

// ChannelName returns the name of one channel.
func (c *Controller) ChannelName(channel int) (string, error) {
	if c.raw == nil {
		return "", ErrNotLoaded
	}
	if err := tensor.CheckIndex("channel", channel, c.raw.Shape().C); err != nil {
		return "", err
	}
	return c.channels[channel], nil
}

// Normalize computes the normalized (T, Z, 1, Y, X) tensor for one channel
// and returns a deep copy. Results are cached per channel; repeated calls
// with the same arguments are idempotent. See the normalize package for the
// strategy/method semantics.
func (c *Controller) Normalize(channel int, strat normalize.Strategy, method normalize.Method) (*tensor.Tensor[float64], error) {
	if c.raw == nil {
		return nil, ErrNotLoaded
	}
	return c.engine.Normalize(c.raw, channel, strat, method)
}

// Binarize thresholds a previously normalized channel into a 0/255 mask and
// returns a deep copy of the (T, Z, 1, Y, X) result. Samples strictly above
// threshold become 255. The channel must have been normalized first; the
// binary cache is only allocated once a binarization actually runs.
func (c *Controller) Binarize(channel int, threshold float64) (*tensor.Tensor[uint8], error) {
	if c.raw == nil {
		return nil, ErrNotLoaded
	}
	shape := c.raw.Shape()
	if err := tensor.CheckIndex("channel", channel, shape.C); err != nil {
		return nil, err
	}
	norm, ok := c.engine.Cached(channel)
	if !ok {
		return nil, fmt.Errorf("%w: channel %d, call Normalize first", ErrNotNormalized, channel)
	}

	mask, err := tensor.New[uint8](norm.Shape())
	if err != nil {
		return nil, err
	}
	src := norm.Values()
	dst := mask.Values()
	for i, v := range src {
		if v > threshold {
			dst[i] = 255
		}
	}

	if c.binary == nil {
		c.binary = make([]*tensor.Tensor[uint8], shape.C)
	}
	c.binary[channel] = mask

	c.sink.Info("binarize", "channel binarized", diag.Fields{
		"channel":   channel,
		"threshold": threshold,
	})
	return mask.Clone(), nil
}

// RawSlice returns a deep-copied 2D (Y, X) view into the raw tensor.
func (c *Controller) RawSlice(channel, t, z int) (*tensor.Plane[uint16], error) {
	if c.raw == nil {
		return nil, ErrNotLoaded
	}
	return c.raw.Plane(channel, t, z)
}

// NormalizedSlice returns a deep-copied 2D view into a channel's normalized
// tensor. The (t, z) indices are validated against that tensor's own shape;
// its channel extent is always 1.
func (c *Controller) NormalizedSlice(channel, t, z int) (*tensor.Plane[float64], error) {
	if c.raw == nil {
		return nil, ErrNotLoaded
	}
	if err := tensor.CheckIndex("channel", channel, c.raw.Shape().C); err != nil {
		return nil, err
	}
	norm, ok := c.engine.Cached(channel)
	if !ok {
		return nil, fmt.Errorf("%w: channel %d", ErrNotNormalized, channel)
	}
	return norm.Plane(0, t, z)
}

// BinarySlice returns a deep-copied 2D view into a channel's binary mask.
func (c *Controller) BinarySlice(channel, t, z int) (*tensor.Plane[uint8], error) {
	if c.raw == nil {
		return nil, ErrNotLoaded
	}
	if err := tensor.CheckIndex("channel", channel, c.raw.Shape().C); err != nil {
		return nil, err
	}
	if c.binary == nil || c.binary[channel] == nil {
		return nil, fmt.Errorf("%w: channel %d", ErrNotBinarized, channel)
	}
	return c.binary[channel].Plane(0, t, z)
}

// ProcessedSlice returns a deep-copied 2D view into the processed tensor.
func (c *Controller) ProcessedSlice(channel, t, z int) (*tensor.Plane[uint16], error) {
	if c.raw == nil {
		return nil, ErrNotLoaded
	}
	return c.processed.Plane(channel, t, z)
}

// SetProcessedSlice stores one processed 2D plane back into the (T, Z, C, Y, X)
// processed tensor. A nil plane clears the slot to zeros.
func (c *Controller) SetProcessedSlice(channel, t, z int, p *tensor.Plane[uint16]) error {
	if c.raw == nil {
		return ErrNotLoaded
	}
	shape := c.raw.Shape()
	if p == nil {
		p = tensor.NewPlane[uint16](shape.Y, shape.X)
	}
	return c.processed.SetPlane(channel, t, z, p)
}

// Slices iterates one channel's raw 2D planes, t outer, z inner. Each plane
// is a deep copy and the sequence restarts from (0, 0) every time it is
// ranged over.
func (c *Controller) Slices(channel int) (iter.Seq2[tensor.Index, *tensor.Plane[uint16]], error) {
	if c.raw == nil {
		return nil, ErrNotLoaded
	}
	return c.raw.Planes(channel)
}

// AllSlices iterates every raw 2D plane: channel outer, then t, then z.
func (c *Controller) AllSlices() (iter.Seq2[tensor.Index, *tensor.Plane[uint16]], error) {
	if c.raw == nil {
		return nil, ErrNotLoaded
	}
	return c.raw.AllPlanes(), nil
}
