//go:build tinygo || !cgo

package gmarchaux

import "errors"

func ui(d *Driver, cfg UIConfig) error {
	return errors.New("require cgo for UI rendering")
}
