package volume

import "fmt"

// MultiVolume is an ordered stack of equally-shaped single-channel volumes,
// the in-memory equivalent of a (C, Z, Y, X) array. Channel order is fixed
// for the lifetime of the stack.
type MultiVolume struct {
	Channels []*Volume
}

// Stack builds a MultiVolume from the given channels, validating that every
// channel is usable and that all channels share identical extents.
func Stack(channels ...*Volume) (*MultiVolume, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("%w: multichannel volume needs at least one channel", ErrInvalidInput)
	}
	for i, ch := range channels {
		if err := ch.Validate(); err != nil {
			return nil, fmt.Errorf("channel %d: %w", i, err)
		}
		if !SameShape(channels[0], ch) {
			return nil, fmt.Errorf("%w: channel %d extents %dx%dx%d differ from channel 0 extents %dx%dx%d",
				ErrInvalidInput, i, ch.Width, ch.Height, ch.Depth,
				channels[0].Width, channels[0].Height, channels[0].Depth)
		}
	}
	return &MultiVolume{Channels: channels}, nil
}

// NumChannels returns the number of channels in the stack.
func (m *MultiVolume) NumChannels() int {
	return len(m.Channels)
}
