//go:build !statsview

package statsview

import "io"

const Address = ""

func Launch(output io.Writer) {}

func Available() bool { return false }
