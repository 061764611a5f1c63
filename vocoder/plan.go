package vocoder

import "fmt"

// BlockKind identifies the role of a planned block.
type BlockKind int

const (
	// BlockStem is the initial convolution lifting the input signal to the
	// base channel count.
	BlockStem BlockKind = iota
	// BlockRes is a residual block, optionally followed by attention.
	BlockRes
	// BlockCodeCond embeds discrete spectrogram codes and concatenates
	// them onto the signal, doubling the channel count. Input path only;
	// its output is not pushed onto the skip stack.
	BlockCodeCond
	// BlockDown is a between-level downsampling transition.
	BlockDown
	// BlockUp is a between-level upsampling step attached to the last
	// residual block of an output level.
	BlockUp
	// BlockAttn is a standalone attention block (middle of the graph).
	BlockAttn
)

func (k BlockKind) String() string {
	switch k {
	case BlockStem:
		return "stem"
	case BlockRes:
		return "res"
	case BlockCodeCond:
		return "codecond"
	case BlockDown:
		return "down"
	case BlockUp:
		return "up"
	case BlockAttn:
		return "attn"
	default:
		return fmt.Sprintf("BlockKind(%d)", int(k))
	}
}

// BlockPlan describes one block of the graph. The plan is pure configuration:
// building it allocates no weights.
type BlockPlan struct {
	Kind       BlockKind
	Level      int // channel-mult level index
	Resolution int // downsampling rate the block runs at
	In         int // input channels
	Out        int // output channels
	Attention  bool
	// Skip is the channel count popped from the skip stack and concatenated
	// onto the block input. Output path only.
	Skip int
	// Upsample marks an output-path block followed by an upsampling step.
	Upsample bool
}

// Plan is the explicit channel bookkeeping for a vocoder graph: every block
// on the input path, the middle, and the output path, plus the skip-channel
// stack the two paths communicate through.
type Plan struct {
	Input  []BlockPlan
	Middle []BlockPlan
	Output []BlockPlan

	// SkipChannels records, in push order, the channel count of every
	// feature map the input path pushes onto the skip stack.
	SkipChannels []int

	// OutHeadChannels is the channel count entering the output head.
	OutHeadChannels int

	// TotalStride is the product of all between-level resampling factors.
	TotalStride int
}

// BuildPlan lays out the vocoder graph for the given options. It is
// deterministic and side-effect free.
func BuildPlan(o Options) (*Plan, error) {
	if err := o.normalize(); err != nil {
		return nil, err
	}

	codeRes := toSet(o.CodeResolutions)
	attnRes := toSet(o.AttentionResolutions)

	p := &Plan{TotalStride: o.TotalStride()}

	ch := o.ModelChannels
	ds := 1

	p.Input = append(p.Input, BlockPlan{Kind: BlockStem, Resolution: ds, In: o.InChannels, Out: ch})
	p.SkipChannels = append(p.SkipChannels, ch)

	for level, mult := range o.ChannelMult {
		if codeRes[ds] {
			p.Input = append(p.Input, BlockPlan{Kind: BlockCodeCond, Level: level, Resolution: ds, In: ch, Out: 2 * ch})
			ch *= 2
		}
		for i := 0; i < o.NumResBlocks; i++ {
			out := mult * o.ModelChannels
			p.Input = append(p.Input, BlockPlan{
				Kind:       BlockRes,
				Level:      level,
				Resolution: ds,
				In:         ch,
				Out:        out,
				Attention:  attnRes[ds],
			})
			ch = out
			p.SkipChannels = append(p.SkipChannels, ch)
		}
		if level != len(o.ChannelMult)-1 {
			p.Input = append(p.Input, BlockPlan{Kind: BlockDown, Level: level, Resolution: ds, In: ch, Out: ch})
			p.SkipChannels = append(p.SkipChannels, ch)
			ds *= o.ScaleFactor
		}
	}

	lastLevel := len(o.ChannelMult) - 1
	p.Middle = []BlockPlan{
		{Kind: BlockRes, Level: lastLevel, Resolution: ds, In: ch, Out: ch},
		{Kind: BlockAttn, Level: lastLevel, Resolution: ds, In: ch, Out: ch},
		{Kind: BlockRes, Level: lastLevel, Resolution: ds, In: ch, Out: ch},
	}

	skip := len(p.SkipChannels)
	for level := len(o.ChannelMult) - 1; level >= 0; level-- {
		mult := o.ChannelMult[level]
		for i := 0; i <= o.NumResBlocks; i++ {
			skip--
			if skip < 0 {
				return nil, fmt.Errorf("vocoder: skip stack underflow at level %d", level)
			}
			ich := p.SkipChannels[skip]
			out := o.ModelChannels * mult
			bp := BlockPlan{
				Kind:       BlockRes,
				Level:      level,
				Resolution: ds,
				In:         ch + ich,
				Out:        out,
				Attention:  attnRes[ds],
				Skip:       ich,
			}
			ch = out
			if level > 0 && i == o.NumResBlocks {
				bp.Upsample = true
				ds /= o.ScaleFactor
			}
			p.Output = append(p.Output, bp)
		}
	}
	if skip != 0 {
		return nil, fmt.Errorf("vocoder: %d skip connections left unconsumed", skip)
	}

	p.OutHeadChannels = ch
	return p, nil
}

// SkipBalance returns the number of feature maps pushed by the input path and
// the number consumed by the output path. A well-formed plan has equal counts.
func (p *Plan) SkipBalance() (pushed, popped int) {
	pushed = len(p.SkipChannels)
	for _, b := range p.Output {
		if b.Skip > 0 {
			popped++
		}
	}
	return pushed, popped
}

// Validate re-checks the structural invariants of the plan.
func (p *Plan) Validate() error {
	pushed, popped := p.SkipBalance()
	if pushed != popped {
		return fmt.Errorf("vocoder: skip imbalance: %d pushed, %d consumed", pushed, popped)
	}
	for i, b := range p.Output {
		if b.Kind == BlockRes && b.Skip == 0 {
			return fmt.Errorf("vocoder: output block %d consumes no skip connection", i)
		}
	}
	return nil
}

func toSet(xs []int) map[int]bool {
	m := make(map[int]bool, len(xs))
	for _, x := range xs {
		m[x] = true
	}
	return m
}
