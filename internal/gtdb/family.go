package gtdb

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrUnknownFamily is returned for dataset families that were never registered.
var ErrUnknownFamily = errors.New("unknown dataset family")

// Family bundles the dataset-specific policies of one dataset family.
type Family struct {
	// Name is the identifier used on the command line, e.g. "NUSC".
	Name string
	// DatasetType is the dataset class the training framework loads.
	DatasetType string
	// Classes is the vocabulary of the merged index. Empty accepts any class.
	Classes  []string
	Naming   NamingPolicy
	Sampling SamplingPolicy
}

// Accepts reports whether class belongs to the family vocabulary.
func (f Family) Accepts(class string) bool {
	return len(f.Classes) == 0 || slices.Contains(f.Classes, class)
}

var (
	familyMu sync.RWMutex
	families = map[string]Family{
		"NUSC": {
			Name:        "NUSC",
			DatasetType: "NuScenesDataset",
			Classes: []string{
				"car", "truck", "construction_vehicle", "bus", "trailer",
				"barrier", "motorcycle", "bicycle", "pedestrian", "traffic_cone",
			},
			Naming:   SweepNaming{},
			Sampling: KeepAll{},
		},
		// Waymo has millions of vehicles and pedestrians; cyclists are rare
		// and always kept.
		"WAYMO": {
			Name:        "WAYMO",
			DatasetType: "WaymoDataset",
			Classes:     []string{"VEHICLE", "PEDESTRIAN", "CYCLIST"},
			Naming:      SweepNaming{},
			Sampling:    StrideSampler{"VEHICLE": 4, "PEDESTRIAN": 2},
		},
		"NIA": {
			Name:        "NIA",
			DatasetType: "NIADataset",
			Classes: []string{
				"median_strip", "road_sign", "overpass", "ramp_sect",
				"sound_barrier", "street_trees", "tunnel",
			},
			Naming:   SensorNaming{},
			Sampling: KeepAll{},
		},
	}
)

// LookupFamily returns the registered family called name.
func LookupFamily(name string) (Family, error) {
	familyMu.RLock()
	defer familyMu.RUnlock()
	f, ok := families[name]
	if !ok {
		return Family{}, fmt.Errorf("%w: %q", ErrUnknownFamily, name)
	}
	return f, nil
}

// RegisterFamily adds or replaces a dataset family.
func RegisterFamily(f Family) error {
	if f.Name == "" {
		return fmt.Errorf("dataset family needs a name")
	}
	if f.Naming == nil {
		return fmt.Errorf("dataset family %q needs a naming policy", f.Name)
	}
	if f.Sampling == nil {
		f.Sampling = KeepAll{}
	}
	familyMu.Lock()
	defer familyMu.Unlock()
	families[f.Name] = f
	return nil
}

// FamilyNames returns the registered family names in sorted order.
func FamilyNames() []string {
	familyMu.RLock()
	defer familyMu.RUnlock()
	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
