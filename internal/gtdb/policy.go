package gtdb

import (
	"fmt"
	"path/filepath"
	"strconv"
)

// SamplingPolicy decides which annotated objects of a frame are extracted.
// Keep is called once per object with the dataset index of the frame.
type SamplingPolicy interface {
	Keep(frame int, class string) bool
}

// KeepAll retains every object.
type KeepAll struct{}

// Keep always returns true.
func (KeepAll) Keep(int, string) bool { return true }

// StrideSampler keeps objects of a listed class only on frames whose index
// is a multiple of the class stride. Unlisted classes are always kept.
type StrideSampler map[string]int

// Keep reports whether class survives on frame.
func (s StrideSampler) Keep(frame int, class string) bool {
	stride, ok := s[class]
	if !ok || stride <= 1 {
		return true
	}
	return frame%stride == 0
}

// NamingParams are the inputs to a naming policy.
type NamingParams struct {
	NSweeps int
	Sensor  string
	Virtual bool
	// Ext is the index file extension including the dot, e.g. ".json.zst".
	Ext string
}

// NamingPolicy resolves the default database directory and index file names
// (relative to the data root) for a dataset family.
type NamingPolicy interface {
	Names(p NamingParams) (dbDir, indexFile string, err error)
}

// SweepNaming embeds the sweep count and the velocity and virtual-point
// flags in the names.
type SweepNaming struct{}

// Names returns gt_database_<n>sweeps_withvelo[_virtual] and the matching
// dbinfos_train file.
func (SweepNaming) Names(p NamingParams) (string, string, error) {
	if p.NSweeps < 1 {
		return "", "", fmt.Errorf("sweep naming needs nsweeps >= 1, got %d", p.NSweeps)
	}
	stem := strconv.Itoa(p.NSweeps) + "sweeps_withvelo" + virtualSuffix(p.Virtual)
	return "gt_database_" + stem, "dbinfos_train_" + stem + p.Ext, nil
}

// SensorNaming embeds the sensor modality tag in the names.
type SensorNaming struct{}

// Names returns gt_database_<sensor>[_virtual] and the matching
// dbinfos_train file.
func (SensorNaming) Names(p NamingParams) (string, string, error) {
	if p.Sensor == "" {
		return "", "", fmt.Errorf("sensor naming needs a sensor tag")
	}
	if filepath.Base(p.Sensor) != p.Sensor {
		return "", "", fmt.Errorf("sensor tag %q must not contain path separators", p.Sensor)
	}
	stem := p.Sensor + virtualSuffix(p.Virtual)
	return "gt_database_" + stem, "dbinfos_train_" + stem + p.Ext, nil
}

func virtualSuffix(virtual bool) string {
	if virtual {
		return "_virtual"
	}
	return ""
}
