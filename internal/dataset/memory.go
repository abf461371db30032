package dataset

import "context"

// Memory is an in-memory dataset.
type Memory struct {
	frames []SensorData
	// FailAt makes SensorData fail for the listed indices.
	FailAt map[int]error
}

// NewMemory returns a dataset serving frames in order.
func NewMemory(frames ...SensorData) *Memory {
	return &Memory{frames: frames}
}

// Len returns the number of frames.
func (m *Memory) Len() int {
	return len(m.frames)
}

// SensorData returns a shallow copy of frame index.
func (m *Memory) SensorData(ctx context.Context, index int) (*SensorData, error) {
	if err := checkIndex(index, len(m.frames)); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.FailAt[index]; ok {
		return nil, err
	}
	sd := m.frames[index]
	return &sd, nil
}
