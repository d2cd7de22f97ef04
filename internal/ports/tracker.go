package ports

// AssetTracker receives one (category, asset, event) tuple per record the
// stage forwards onward, on the filtered and bypass paths alike.
type AssetTracker interface {
	AddTrackingTuple(category, asset, event string)
}
