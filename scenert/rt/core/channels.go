package core

// LightingChannels is a bitmask deciding which lights may affect which primitives.
type LightingChannels uint32

const (
	ChannelBSP LightingChannels = 1 << iota
	ChannelStatic
	ChannelDynamic
	ChannelCompositeDynamic
	ChannelSkybox
	ChannelCinematic1
	ChannelCinematic2
	ChannelGameplay1
	ChannelGameplay2
)

func (c LightingChannels) OverlapsWith(o LightingChannels) bool {
	return c&o != 0
}

// ForLightEnvironment is the mask a light uses when tested against a light
// environment owner: Dynamic is dropped and CompositeDynamic takes its place.
func (c LightingChannels) ForLightEnvironment() LightingChannels {
	composite := c&ChannelCompositeDynamic != 0
	c &^= ChannelDynamic | ChannelCompositeDynamic
	if composite {
		c |= ChannelDynamic
	}
	return c
}
