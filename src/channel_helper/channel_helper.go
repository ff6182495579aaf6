// Package channel_helper resolves band masks to concrete scan frequencies.
package channel_helper

import (
	"github.com/OpenScanMux/scanmux-module-go/src/scan_scheduler"
)

// Frequency tables in MHz. DFS channels are kept separate so a collection
// only includes them when the DFS band bit is requested.
var (
	frequencies24GHz = []int{
		2412, 2417, 2422, 2427, 2432, 2437, 2442,
		2447, 2452, 2457, 2462, 2467, 2472,
	}
	frequencies5GHz = []int{
		5180, 5200, 5220, 5240, 5745, 5765, 5785, 5805, 5825,
	}
	frequencies5GHzDFS = []int{
		5260, 5280, 5300, 5320, 5500, 5520, 5540, 5560,
		5580, 5600, 5620, 5640, 5660, 5680, 5700,
	}
)

// Helper creates channel collections for the standard channel plan.
type Helper struct{}

// New creates a channel helper.
func New() *Helper {
	return &Helper{}
}

// CreateChannelCollection returns an empty collection.
func (h *Helper) CreateChannelCollection() scan_scheduler.ChannelCollection {
	return &collection{frequencies: make(map[int]struct{})}
}

type collection struct {
	frequencies map[int]struct{}
}

// AddBand adds every frequency of the bands selected by the mask.
func (c *collection) AddBand(band int) {
	if band&scan_scheduler.Band24GHz != 0 {
		c.addAll(frequencies24GHz)
	}
	if band&scan_scheduler.Band5GHz != 0 {
		c.addAll(frequencies5GHz)
	}
	if band&scan_scheduler.Band5GHzDFSOnly != 0 {
		c.addAll(frequencies5GHzDFS)
	}
}

// AddChannel adds a single frequency.
func (c *collection) AddChannel(frequencyMHz int) {
	c.frequencies[frequencyMHz] = struct{}{}
}

// GetScanFrequencies returns a copy of the accumulated frequency set.
func (c *collection) GetScanFrequencies() map[int]struct{} {
	out := make(map[int]struct{}, len(c.frequencies))
	for frequency := range c.frequencies {
		out[frequency] = struct{}{}
	}
	return out
}

func (c *collection) addAll(frequencies []int) {
	for _, frequency := range frequencies {
		c.frequencies[frequency] = struct{}{}
	}
}
