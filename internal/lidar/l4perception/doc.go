// Package l4perception owns the perception layer of the localizer.
//
// Responsibilities: DBSCAN clustering of a scan's point cloud, Kasa circle
// fitting of cluster members, and the size/radius filters that turn
// clusters into landmarks.
// Key types: Clustering, Circle, Landmark.
//
// Dependency rule: l4perception depends only on internal/lidar. It has no
// I/O and keeps no state between calls.
package l4perception
