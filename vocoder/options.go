package vocoder

import "fmt"

// Options configures a Vocoder. The zero value is not usable; start from
// DefaultOptions. Fields carry yaml tags so model configurations can be
// loaded from an options file.
type Options struct {
	// ModelChannels is the base channel count.
	ModelChannels int `yaml:"model_channels"`

	// NumResBlocks is the residual block count per resolution level.
	NumResBlocks int `yaml:"num_res_blocks"`

	// InChannels is the channel count of the noisy input signal.
	InChannels int `yaml:"in_channels"`

	// OutChannels is the output channel count (mean and variance).
	OutChannels int `yaml:"out_channels"`

	// DiscreteCodes is the size of the spectrogram code vocabulary.
	DiscreteCodes int `yaml:"discrete_codes"`

	// Dropout is the dropout rate carried by residual blocks.
	Dropout float32 `yaml:"dropout"`

	// ChannelMult is the channel multiplier per resolution level.
	ChannelMult []int `yaml:"channel_mult"`

	// CodeResolutions lists the downsampling rates at which discrete
	// spectrogram code conditioning is injected. Injection doubles the
	// running channel count.
	CodeResolutions []int `yaml:"code_resolutions"`

	// AttentionResolutions lists the downsampling rates at which
	// self-attention runs.
	AttentionResolutions []int `yaml:"attention_resolutions"`

	// ConvResample selects learned convolutions for up/downsampling.
	ConvResample bool `yaml:"conv_resample"`

	// NumHeads is the attention head count.
	NumHeads int `yaml:"num_heads"`

	// NumHeadChannels, when positive, fixes the channel width per head
	// instead of NumHeads.
	NumHeadChannels int `yaml:"num_head_channels"`

	// NumHeadsUpsample overrides NumHeads on the upsampling path.
	// Negative means "same as NumHeads".
	NumHeadsUpsample int `yaml:"num_heads_upsample"`

	// ScaleShiftNorm selects FiLM-style embedding conditioning in residual
	// blocks.
	ScaleShiftNorm bool `yaml:"scale_shift_norm"`

	// ResBlockUpDown uses residual blocks (instead of plain samplers) for
	// the up/down transitions.
	ResBlockUpDown bool `yaml:"resblock_updown"`

	// KernelSize is the convolution kernel size (3 or 5).
	KernelSize int `yaml:"kernel_size"`

	// ScaleFactor is the temporal resampling factor between levels.
	ScaleFactor int `yaml:"scale_factor"`

	// Conditioned requires reference conditioning inputs at Forward time.
	Conditioned bool `yaml:"conditioned"`

	// ConditioningDim is the channel count of reference conditioning
	// signals (mel bands).
	ConditioningDim int `yaml:"conditioning_dim"`

	// Seed drives deterministic weight initialization.
	Seed int64 `yaml:"seed"`
}

// DefaultOptions mirrors the published vocoder configuration:
// nine levels halving ~2s of 22.05kHz audio down to a couple hundred samples,
// code conditioning injected at shallow resolutions and attention at deep
// ones.
func DefaultOptions() Options {
	return Options{
		ModelChannels:        32,
		NumResBlocks:         2,
		InChannels:           1,
		OutChannels:          2,
		DiscreteCodes:        8192,
		ChannelMult:          []int{1, 1, 2, 2, 4, 8, 16, 32, 64},
		CodeResolutions:      []int{4, 8, 16, 32},
		AttentionResolutions: []int{64, 128, 256},
		ConvResample:         true,
		NumHeads:             1,
		NumHeadChannels:      -1,
		NumHeadsUpsample:     -1,
		KernelSize:           3,
		ScaleFactor:          2,
		Conditioned:          true,
		ConditioningDim:      80,
		Seed:                 1,
	}
}

func (o *Options) normalize() error {
	if o.ModelChannels <= 0 {
		return fmt.Errorf("vocoder: model channels must be positive, got %d", o.ModelChannels)
	}
	if o.NumResBlocks <= 0 {
		return fmt.Errorf("vocoder: res blocks per level must be positive, got %d", o.NumResBlocks)
	}
	if len(o.ChannelMult) == 0 {
		return fmt.Errorf("vocoder: channel mult must not be empty")
	}
	if o.InChannels <= 0 {
		o.InChannels = 1
	}
	if o.OutChannels <= 0 {
		o.OutChannels = 2
	}
	if o.DiscreteCodes <= 0 {
		o.DiscreteCodes = 8192
	}
	if o.NumHeads <= 0 {
		o.NumHeads = 1
	}
	if o.NumHeadsUpsample <= 0 {
		o.NumHeadsUpsample = o.NumHeads
	}
	if o.KernelSize <= 0 {
		o.KernelSize = 3
	}
	if o.KernelSize != 3 && o.KernelSize != 5 {
		return fmt.Errorf("vocoder: kernel size must be 3 or 5, got %d", o.KernelSize)
	}
	if o.ScaleFactor <= 1 {
		o.ScaleFactor = 2
	}
	if o.Conditioned && o.ConditioningDim <= 0 {
		o.ConditioningDim = 80
	}
	return nil
}

// EmbedDim returns the conditioning embedding width (4x the base channels).
func (o Options) EmbedDim() int { return 4 * o.ModelChannels }

// TotalStride returns the product of all between-level resampling factors.
// Forward inputs must have a temporal length divisible by this.
func (o Options) TotalStride() int {
	stride := 1
	for i := 0; i < len(o.ChannelMult)-1; i++ {
		stride *= o.ScaleFactor
	}
	return stride
}
