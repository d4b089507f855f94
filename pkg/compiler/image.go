package compiler

import (
	"errors"
	"fmt"

	"scriptvm/pkg/vm"
)

// ErrBadImage is returned by Validate for an image whose layout fields
// disagree with each other or with its code.
var ErrBadImage = errors.New("inconsistent image")

// Image is a compiled program. Code holds the argument scratch area followed
// by the bytecode; execution starts at ArgsSize and ends when the
// instruction pointer reaches CodeEnd, with the entry function's result at
// CodeEnd.
type Image struct {
	Code     []byte
	ArgsSize int
	CodeEnd  uint64

	Entry           string
	EntryReturnType string
	EntryReturnSize int
	EntryParams     []string // parameter types of the entry function
	EntryParamSizes []int

	Natives []vm.Native       // indexed by the CallNative operand
	Symbols map[uint64]string // label addresses, for listings
}

// CodeStart is the address of the first instruction.
func (img *Image) CodeStart() uint64 { return uint64(img.ArgsSize) }

// Disassemble lists the bytecode of img with its labels.
func (img *Image) Disassemble() (string, error) {
	return vm.Disassemble(vm.NewMemory(img.Code), img.CodeStart(), img.CodeEnd, img.Symbols)
}

// Validate checks that the layout fields describe the code. Images built by
// Compile always pass; loaded images may not.
func (img *Image) Validate() error {
	switch {
	case uint64(len(img.Code)) != img.CodeEnd:
		return fmt.Errorf("%w: %d code bytes, code end %d", ErrBadImage, len(img.Code), img.CodeEnd)
	case img.ArgsSize < 0 || uint64(img.ArgsSize) > img.CodeEnd:
		return fmt.Errorf("%w: argument area of %d bytes", ErrBadImage, img.ArgsSize)
	case img.EntryReturnSize < 0:
		return fmt.Errorf("%w: %s returns %d bytes", ErrBadImage, img.Entry, img.EntryReturnSize)
	case len(img.EntryParamSizes) != len(img.EntryParams):
		return fmt.Errorf("%w: %d parameter types, %d sizes", ErrBadImage, len(img.EntryParams), len(img.EntryParamSizes))
	}
	total := 0
	for i, size := range img.EntryParamSizes {
		if size <= 0 {
			return fmt.Errorf("%w: parameter %d of %s has size %d", ErrBadImage, i, img.Entry, size)
		}
		total += size
	}
	if total != img.ArgsSize {
		return fmt.Errorf("%w: parameters of %s take %d bytes, argument area is %d", ErrBadImage, img.Entry, total, img.ArgsSize)
	}
	return nil
}
