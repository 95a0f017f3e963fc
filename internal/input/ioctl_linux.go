// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package input

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// asm-generic ioctl request layout.
const (
	iocWrite = 1
	iocRead  = 2

	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30
)

func ioc(dir, typ, nr, size uintptr) uint {
	return uint(dir<<iocDirShift | size<<iocSizeShift | typ<<iocTypeShift | nr)
}

// IOR builds a read request number, like the kernel's _IOR macro.
func IOR(typ, nr byte, size uintptr) uint { return ioc(iocRead, uintptr(typ), uintptr(nr), size) }

// IOW builds a write request number, like the kernel's _IOW macro.
func IOW(typ, nr byte, size uintptr) uint { return ioc(iocWrite, uintptr(typ), uintptr(nr), size) }

// Ioctl issues req on fd with a pointer argument.
func Ioctl(fd int, req uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// AbsInfo mirrors struct input_absinfo.
type AbsInfo struct {
	Value      int32
	Minimum    int32
	Maximum    int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

func eviocgabs(code uint16) uint {
	return IOR('E', byte(0x40+code), unsafe.Sizeof(AbsInfo{}))
}

func eviocgname(size int) uint {
	return ioc(iocRead, 'E', 0x06, uintptr(size))
}
