// Package distance provides the partitioning and distance capability used by
// spatial trees.
//
// A Space bundles the three operations a k-d tree needs:
//
//   - Compare: three-way comparison of two keys on one axis
//   - Distance: the (squared) metric between two keys
//   - AxisDistance: a lower bound on Distance for any key on the other side of
//     the splitting hyperplane through b on the given axis
//
// # Supported Spaces
//
//   - Planar: squared Euclidean distance over the Lat/Lon of model.Record
//   - Euclidean: squared Euclidean distance over fixed-length []float64 points
//
// # Usage
//
//	var s distance.Planar
//	ord, err := s.Compare(&a, &b, 0)
//	d := s.Distance(&a, &b)
package distance
