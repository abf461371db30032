// Package pointcloud holds the point and box primitives of the ground-truth
// database: flat multi-channel point clouds, 7-DOF oriented boxes, the
// points-in-boxes containment filter, and the float32 blob format used for
// extracted object points.
//
// Coordinates are sensor-frame metres. The first three channels of every
// point are x, y, z; any further channels (intensity, time lag, ...) are
// carried through untouched.
package pointcloud
