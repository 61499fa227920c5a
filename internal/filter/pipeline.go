package filter

import (
	"fmt"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/message"
)

// Pipeline decodes chunks written through a dataset's filter pipeline.
// The zero value and a nil *Pipeline pass data through unchanged.
type Pipeline struct {
	stages []decodeFunc
	// optional marks stages whose absence may be tolerated
	optional []bool
}

// NewPipeline prepares the decoder for fp. elemSize is the datatype size,
// used by shuffle when its client data omits it. Unsupported optional
// filters are kept as pass-through stages so filter mask bits still line
// up with pipeline positions.
func NewPipeline(fp *message.FilterPipeline, elemSize int) (*Pipeline, error) {
	if fp == nil || len(fp.Filters) == 0 {
		return nil, nil
	}
	p := &Pipeline{
		stages:   make([]decodeFunc, len(fp.Filters)),
		optional: make([]bool, len(fp.Filters)),
	}
	for i, f := range fp.Filters {
		fn, err := stage(f, elemSize)
		if err != nil {
			if !f.Optional() {
				return nil, err
			}
			fn = nil
		}
		p.stages[i] = fn
		p.optional[i] = f.Optional()
	}
	return p, nil
}

// Len reports the number of stages.
func (p *Pipeline) Len() int {
	if p == nil {
		return 0
	}
	return len(p.stages)
}

// Decode runs the stages in reverse order, skipping those whose bit is
// set in mask.
func (p *Pipeline) Decode(data []byte, mask uint32) ([]byte, error) {
	if p == nil {
		return data, nil
	}
	var err error
	for i := len(p.stages) - 1; i >= 0; i-- {
		if mask&(1<<uint(i)) != 0 || p.stages[i] == nil {
			continue
		}
		if data, err = p.stages[i](data); err != nil {
			return nil, fmt.Errorf("filter stage %d: %w", i, err)
		}
	}
	return data, nil
}
