package gtdb

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPartition_CoversRangeExactlyOnce(t *testing.T) {
	for n := 0; n <= 41; n++ {
		for parts := 1; parts <= 9; parts++ {
			ranges := Partition(n, parts)
			require.Len(t, ranges, parts)

			next := 0
			for _, r := range ranges {
				require.Equal(t, next, r.Start, "n=%d parts=%d", n, parts)
				require.GreaterOrEqual(t, r.Len(), 0)
				next = r.End
			}
			assert.Equal(t, n, next, "n=%d parts=%d", n, parts)
		}
	}
}

func TestPartition_RemainderGoesToLastSlice(t *testing.T) {
	got := Partition(10, 3)
	want := []Range{{0, 3}, {3, 6}, {6, 10}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Partition mismatch (-want +got):\n%s", diff)
	}

	got = Partition(2, 3)
	want = []Range{{0, 0}, {0, 0}, {0, 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Partition mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []int{6, 7, 8, 9}, Range{6, 10}.Indices())
	assert.Empty(t, Range{}.Indices())
}

func TestSweepNaming(t *testing.T) {
	db, idx, err := SweepNaming{}.Names(NamingParams{NSweeps: 10, Ext: ".json"})
	require.NoError(t, err)
	assert.Equal(t, "gt_database_10sweeps_withvelo", db)
	assert.Equal(t, "dbinfos_train_10sweeps_withvelo.json", idx)

	db, idx, err = SweepNaming{}.Names(NamingParams{NSweeps: 1, Virtual: true, Ext: ".json.zst"})
	require.NoError(t, err)
	assert.Equal(t, "gt_database_1sweeps_withvelo_virtual", db)
	assert.Equal(t, "dbinfos_train_1sweeps_withvelo_virtual.json.zst", idx)

	_, _, err = SweepNaming{}.Names(NamingParams{})
	assert.Error(t, err)
}

func TestSensorNaming(t *testing.T) {
	db, idx, err := SensorNaming{}.Names(NamingParams{Sensor: "lidar", Ext: ".json"})
	require.NoError(t, err)
	assert.Equal(t, "gt_database_lidar", db)
	assert.Equal(t, "dbinfos_train_lidar.json", idx)

	db, idx, err = SensorNaming{}.Names(NamingParams{Sensor: "lidar", Virtual: true, Ext: ".json.lz4"})
	require.NoError(t, err)
	assert.Equal(t, "gt_database_lidar_virtual", db)
	assert.Equal(t, "dbinfos_train_lidar_virtual.json.lz4", idx)

	_, _, err = SensorNaming{}.Names(NamingParams{Ext: ".json"})
	assert.Error(t, err)
	_, _, err = SensorNaming{}.Names(NamingParams{Sensor: "a/b", Ext: ".json"})
	assert.Error(t, err)
}

func TestStrideSampler(t *testing.T) {
	s := StrideSampler{"VEHICLE": 4, "PEDESTRIAN": 2}
	tests := []struct {
		frame int
		class string
		want  bool
	}{
		{0, "VEHICLE", true},
		{1, "VEHICLE", false},
		{4, "VEHICLE", true},
		{6, "VEHICLE", false},
		{2, "PEDESTRIAN", true},
		{3, "PEDESTRIAN", false},
		{3, "CYCLIST", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Keep(tt.frame, tt.class), "frame %d %s", tt.frame, tt.class)
	}
	assert.True(t, KeepAll{}.Keep(3, "VEHICLE"))
}

func TestLookupFamily(t *testing.T) {
	nusc, err := LookupFamily("NUSC")
	require.NoError(t, err)
	assert.Equal(t, "NuScenesDataset", nusc.DatasetType)
	assert.Len(t, nusc.Classes, 10)
	assert.IsType(t, SweepNaming{}, nusc.Naming)

	waymo, err := LookupFamily("WAYMO")
	require.NoError(t, err)
	assert.False(t, waymo.Sampling.Keep(1, "VEHICLE"))
	assert.True(t, waymo.Sampling.Keep(1, "CYCLIST"))

	nia, err := LookupFamily("NIA")
	require.NoError(t, err)
	assert.IsType(t, SensorNaming{}, nia.Naming)
	assert.True(t, nia.Accepts("tunnel"))
	assert.False(t, nia.Accepts("car"))

	_, err = LookupFamily("KITTI")
	assert.ErrorIs(t, err, ErrUnknownFamily)
}

func TestRegisterFamily(t *testing.T) {
	require.Error(t, RegisterFamily(Family{Naming: SweepNaming{}}))
	require.Error(t, RegisterFamily(Family{Name: "NO_NAMING"}))

	require.NoError(t, RegisterFamily(Family{Name: "LYFT", DatasetType: "LyftDataset", Naming: SweepNaming{}}))
	f, err := LookupFamily("LYFT")
	require.NoError(t, err)
	assert.Equal(t, KeepAll{}, f.Sampling)
	assert.True(t, f.Accepts("anything"))
	assert.Contains(t, FamilyNames(), "LYFT")
}

func entries(class string, groups ...int64) []Entry {
	out := make([]Entry, len(groups))
	for i, g := range groups {
		out[i] = Entry{Name: class, GTIdx: i, GroupID: g, NumPointsInGT: 10 * (i + 1)}
	}
	return out
}

func TestMerge_OffsetsByEntryCount(t *testing.T) {
	partials := []Index{
		{"A": entries("A", 0, 0, 1)},
		{"A": entries("A", 0), "B": entries("B", 1, 2)},
		{},
		{"B": entries("B", 0)},
	}

	merged := Merge([]string{"A", "B", "C"}, partials, nil)

	assert.Equal(t, []string{"A", "B"}, merged.Classes())
	var groupsA, groupsB []int64
	for _, e := range merged["A"] {
		groupsA = append(groupsA, e.GroupID)
	}
	for _, e := range merged["B"] {
		groupsB = append(groupsB, e.GroupID)
	}
	assert.Equal(t, []int64{0, 0, 1, 3}, groupsA)
	assert.Equal(t, []int64{4, 5, 6}, groupsB)

	// Inputs are left untouched.
	assert.Equal(t, int64(0), partials[1]["A"][0].GroupID)
}

func TestMerge_DropsClassesOutsideVocabulary(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	partials := []Index{
		{"A": entries("A", 0), "Z": entries("Z", 1, 2)},
		{"A": entries("A", 0)},
	}

	merged := Merge([]string{"A"}, partials, zap.New(core))

	assert.Equal(t, []string{"A"}, merged.Classes())
	// The dropped Z entries still advance the offset.
	assert.Equal(t, int64(3), merged["A"][1].GroupID)
	require.Equal(t, 1, logs.FilterMessage("dropping class outside dataset vocabulary").Len())
}

func TestMerge_EmptyVocabularyKeepsAll(t *testing.T) {
	merged := Merge(nil, []Index{{"X": entries("X", 0)}, {"Y": entries("Y", 0)}}, nil)
	assert.Equal(t, map[string]int{"X": 1, "Y": 1}, merged.Counts())
	assert.Equal(t, []int64{0, 1}, merged.GroupIDs())

	assert.Empty(t, Merge([]string{"A"}, nil, nil))
}

func TestIndex_Filters(t *testing.T) {
	idx := Index{
		"car": {
			{Name: "car", NumPointsInGT: 3, Difficulty: 0},
			{Name: "car", NumPointsInGT: 8, Difficulty: -1},
		},
		"bus": {{Name: "bus", NumPointsInGT: 1}},
		"cone": {{Name: "cone", NumPointsInGT: 2}},
	}

	byPoints := idx.FilterByMinPoints(map[string]int{"car": 5, "bus": 5})
	assert.Equal(t, map[string]int{"car": 1, "cone": 1}, byPoints.Counts())
	assert.Equal(t, 8, byPoints["car"][0].NumPointsInGT)

	byDifficulty := idx.FilterByDifficulty([]int{-1})
	assert.Equal(t, map[string]int{"car": 1, "bus": 1, "cone": 1}, byDifficulty.Counts())

	assert.Equal(t, 4, idx.Len())
	assert.Equal(t, []string{"bus", "car", "cone"}, idx.Classes())
}
