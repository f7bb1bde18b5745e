// Copyright (c) The vmdump Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build !linkprintk

package crashguest

import (
	_ "unsafe"

	"vmdump/console"
)

//go:linkname printk runtime.printk
func printk(c byte) {
	console.Default().Write([]byte{c})
}
