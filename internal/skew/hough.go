package skew

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultTopK is the number of lines DetectLines returns by default.
const DefaultTopK = 20

// HoughLine is a line ranked from the accumulator. Points on the line solve
// y*cos(Angle) - x*sin(Angle) = Distance.
type HoughLine struct {
	Angle    float64 `json:"angle"`
	Distance float64 `json:"distance"`
	Votes    int     `json:"votes"`
}

// DetectOptions configures a detection pass.
//
// Zero values select the defaults: DefaultAngleRange, DefaultTopK,
// DefaultLuminanceCutoff and one worker per available CPU.
type DetectOptions struct {
	Range           AngleRange
	TopK            int
	LuminanceCutoff int
	Workers         int
}

func (o DetectOptions) withDefaults() DetectOptions {
	if o.Range == (AngleRange{}) {
		o.Range = DefaultAngleRange
	}
	if o.TopK == 0 {
		o.TopK = DefaultTopK
	}
	if o.LuminanceCutoff == 0 {
		o.LuminanceCutoff = DefaultLuminanceCutoff
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// Accumulator is the (angle, distance) voting space.
//
// Cells are stored flat with index distanceIndex*Range.Steps + angleIndex.
// Once Accumulate returns the accumulator is read-only.
type Accumulator struct {
	Range AngleRange
	Axis  DistanceAxis

	// Cast counts votes that landed in a cell; Dropped counts votes whose
	// distance bucket fell outside the axis. Dropped votes are a robustness
	// trade-off, not a correctness guarantee: a healthy pass drops none.
	Cast    int
	Dropped int

	cells []int32
}

// NewAccumulator allocates an all-zero accumulator.
func NewAccumulator(r AngleRange, axis DistanceAxis) *Accumulator {
	return &Accumulator{
		Range: r,
		Axis:  axis,
		cells: make([]int32, axis.Count*r.Steps),
	}
}

// Len returns the number of cells.
func (a *Accumulator) Len() int {
	return len(a.cells)
}

// Votes returns the count of cell (angleIndex, distanceIndex).
func (a *Accumulator) Votes(angleIndex, distanceIndex int) int {
	return int(a.cells[distanceIndex*a.Range.Steps+angleIndex])
}

// vote casts one vote per angle bucket for the pixel (x, y).
func (a *Accumulator) vote(x, y int, sin, cos []float64) {
	fx, fy := float64(x), float64(y)
	steps := a.Range.Steps
	for i := 0; i < steps; i++ {
		d := fy*cos[i] - fx*sin[i]
		j := a.Axis.Bucket(d)
		if j < 0 || j >= a.Axis.Count {
			a.Dropped++
			continue
		}
		a.cells[j*steps+i]++
		a.Cast++
	}
}

// merge adds the cells and counters of o into a.
func (a *Accumulator) merge(o *Accumulator) {
	for i, v := range o.cells {
		a.cells[i] += v
	}
	a.Cast += o.Cast
	a.Dropped += o.Dropped
}

// line resolves a flat cell index into a HoughLine.
func (a *Accumulator) line(index int, votes int32) HoughLine {
	j := index / a.Range.Steps
	i := index - j*a.Range.Steps
	return HoughLine{
		Angle:    a.Range.Angle(i),
		Distance: a.Axis.Distance(j),
		Votes:    int(votes),
	}
}

// Top returns up to k lines with the most votes, in descending vote order.
//
// Ranking is a bounded insertion into a size-k list rather than a sort of the
// whole accumulator. A cell replaces the current minimum only when it has
// strictly more votes, so among equal counts the lower cell index ranks
// first. Cells without votes are never returned.
func (a *Accumulator) Top(k int) []HoughLine {
	if k <= 0 {
		return nil
	}
	type ranked struct {
		index int
		votes int32
	}
	top := make([]ranked, k)
	last := k - 1
	for idx, v := range a.cells {
		if v <= top[last].votes {
			continue
		}
		top[last] = ranked{index: idx, votes: v}
		for j := last; j > 0 && top[j].votes > top[j-1].votes; j-- {
			top[j], top[j-1] = top[j-1], top[j]
		}
	}

	lines := make([]HoughLine, 0, k)
	for _, r := range top {
		if r.votes == 0 {
			break
		}
		lines = append(lines, a.line(r.index, r.votes))
	}
	return lines
}

// AngleVotes is the strongest cell of one angle bucket.
type AngleVotes struct {
	Angle float64 `json:"angle"`
	Votes int     `json:"votes"`
}

// AngleProfile returns, for every angle bucket, the highest vote count over
// all distances. A sharp single peak indicates a confident skew estimate.
func (a *Accumulator) AngleProfile() []AngleVotes {
	profile := make([]AngleVotes, a.Range.Steps)
	for i := range profile {
		profile[i] = AngleVotes{Angle: a.Range.Angle(i), Votes: a.strongest(i)}
	}
	return profile
}

// PeakAt returns the strongest cell of the bucket nearest to angle.
func (a *Accumulator) PeakAt(angle float64) AngleVotes {
	i := a.Range.Index(angle)
	return AngleVotes{Angle: a.Range.Angle(i), Votes: a.strongest(i)}
}

func (a *Accumulator) strongest(angleIndex int) int {
	best := 0
	for j := 0; j < a.Axis.Count; j++ {
		if v := a.Votes(angleIndex, j); v > best {
			best = v
		}
	}
	return best
}

// ScanBand returns the rows [top, bottom) that take part in voting: the middle
// half of the image, which holds body text and skips headers and footers.
func ScanBand(height int) (top, bottom int) {
	return height / 4, height * 3 / 4
}

// Accumulate runs the voting pass over buf.
//
// A pixel votes when it is foreground and the pixel directly below it is
// background, i.e. it sits on the lower edge of a stroke. Rows of the scan
// band are split among opts.Workers goroutines, each filling a private
// accumulator; the partial accumulators are summed once all workers finish.
// ctx is checked before every row. On cancellation ctx.Err() is returned and
// no partial result is merged.
func Accumulate(ctx context.Context, buf *PixelBuffer, opts DetectOptions) (*Accumulator, error) {
	if err := buf.validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	if err := opts.Range.Validate(); err != nil {
		return nil, err
	}

	sin, cos := opts.Range.trig()
	axis := NewDistanceAxis(buf.Width, buf.Height)
	cls := newClassifier(buf, opts.LuminanceCutoff)
	yMin, yMax := ScanBand(buf.Height)

	rows := yMax - yMin
	workers := opts.Workers
	if workers > rows {
		workers = rows
	}
	if workers < 1 {
		workers = 1
	}

	partials := make([]*Accumulator, workers)
	g, gctx := errgroup.WithContext(ctx)
	chunk := (rows + workers - 1) / workers
	for w := 0; w < workers; w++ {
		from := yMin + w*chunk
		to := from + chunk
		if to > yMax {
			to = yMax
		}
		g.Go(func() error {
			acc := NewAccumulator(opts.Range, axis)
			for y := from; y < to; y++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				for x := 0; x < buf.Width; x++ {
					if cls.isForeground(x, y) && !cls.isForeground(x, y+1) {
						acc.vote(x, y, sin, cos)
					}
				}
			}
			partials[w] = acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// errgroup only cancels gctx on a worker error; a parent cancellation
	// after the last row must still discard the result.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := partials[0]
	if result == nil {
		result = NewAccumulator(opts.Range, axis)
	}
	for _, p := range partials[1:] {
		result.merge(p)
	}
	return result, nil
}

// DetectLines returns the topK most voted lines of buf over the angle range r.
//
// An image without lower-edge transitions in the scan band yields an empty
// slice; callers should read that as "no reliable skew estimate".
//
// Unlike DetectOptions, r and topK carry no defaults: a zero AngleRange is
// rejected like any other invalid range.
func DetectLines(buf *PixelBuffer, r AngleRange, topK int) ([]HoughLine, error) {
	if topK <= 0 {
		return nil, invalid("topK", "%d must be positive", topK)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return DetectLinesContext(context.Background(), buf, DetectOptions{Range: r, TopK: topK})
}

// DetectLinesContext is DetectLines with cancellation and worker control.
func DetectLinesContext(ctx context.Context, buf *PixelBuffer, opts DetectOptions) ([]HoughLine, error) {
	if opts.TopK < 0 {
		return nil, invalid("topK", "%d must be positive", opts.TopK)
	}
	acc, err := Accumulate(ctx, buf, opts)
	if err != nil {
		return nil, err
	}
	return acc.Top(opts.withDefaults().TopK), nil
}
