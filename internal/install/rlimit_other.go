//go:build !unix

package install

// TryIncreaseRlimitToSensible is a no-op on platforms without a file
// descriptor resource limit to raise.
func TryIncreaseRlimitToSensible() {}
