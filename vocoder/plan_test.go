package vocoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPlan(t *testing.T) {
	t.Run("default options validate", func(t *testing.T) {
		p, err := BuildPlan(DefaultOptions())
		require.NoError(t, err)
		require.NoError(t, p.Validate())

		assert.Equal(t, 256, p.TotalStride)
		assert.Equal(t, BlockStem, p.Input[0].Kind)
		assert.Equal(t, 1, p.Input[0].In)
	})

	t.Run("skip stack balances", func(t *testing.T) {
		p, err := BuildPlan(DefaultOptions())
		require.NoError(t, err)

		pushed, popped := p.SkipBalance()
		assert.Equal(t, pushed, popped)
		assert.Len(t, p.SkipChannels, pushed)
	})

	t.Run("code conditioning doubles channels", func(t *testing.T) {
		o := DefaultOptions()
		p, err := BuildPlan(o)
		require.NoError(t, err)

		codeRes := toSet(o.CodeResolutions)
		var seen []int
		for _, bp := range p.Input {
			if bp.Kind != BlockCodeCond {
				continue
			}
			assert.True(t, codeRes[bp.Resolution])
			assert.Equal(t, 2*bp.In, bp.Out)
			seen = append(seen, bp.Resolution)
		}
		assert.Len(t, seen, len(o.CodeResolutions))
	})

	t.Run("attention gated by resolution", func(t *testing.T) {
		o := DefaultOptions()
		p, err := BuildPlan(o)
		require.NoError(t, err)

		attnRes := toSet(o.AttentionResolutions)
		for _, bp := range p.Input {
			if bp.Kind == BlockRes {
				assert.Equal(t, attnRes[bp.Resolution], bp.Attention, "resolution %d", bp.Resolution)
			}
		}
		for _, bp := range p.Output {
			assert.Equal(t, attnRes[bp.Resolution], bp.Attention, "resolution %d", bp.Resolution)
		}
	})

	t.Run("middle is res-attn-res", func(t *testing.T) {
		p, err := BuildPlan(DefaultOptions())
		require.NoError(t, err)

		require.Len(t, p.Middle, 3)
		assert.Equal(t, BlockRes, p.Middle[0].Kind)
		assert.Equal(t, BlockAttn, p.Middle[1].Kind)
		assert.Equal(t, BlockRes, p.Middle[2].Kind)
	})

	t.Run("one upsample per transition", func(t *testing.T) {
		o := DefaultOptions()
		p, err := BuildPlan(o)
		require.NoError(t, err)

		ups := 0
		for _, bp := range p.Output {
			if bp.Upsample {
				ups++
			}
		}
		assert.Equal(t, len(o.ChannelMult)-1, ups)

		downs := 0
		for _, bp := range p.Input {
			if bp.Kind == BlockDown {
				downs++
			}
		}
		assert.Equal(t, len(o.ChannelMult)-1, downs)
	})

	t.Run("invalid options", func(t *testing.T) {
		o := DefaultOptions()
		o.KernelSize = 4
		_, err := BuildPlan(o)
		assert.Error(t, err)

		o = DefaultOptions()
		o.ChannelMult = nil
		_, err = BuildPlan(o)
		assert.Error(t, err)
	})
}
