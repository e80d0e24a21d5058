package transaction

import "errors"

var (
	errUnknownPackage = errors.New("unknown package")
	errNotInstalled   = errors.New("package not installed")
)
