package script

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"

	"scriptvm/pkg/compiler"
	"scriptvm/pkg/vm"
)

func bindDouble(t *testing.T, p *Program, name string) {
	t.Helper()
	be.Err(t, p.AddFunction(compiler.TypeInt, name, []string{compiler.TypeInt}, func(args vm.Args) (vm.Value, error) {
		return vm.Int(args.Int(0) * 2), nil
	}), nil)
}

func TestImageRoundTrip(t *testing.T) {
	p1 := NewProgram("", 0, "")
	bindDouble(t, p1, "double")
	be.Err(t, p1.CompileSource("int main(int a, int b) { return double(a) - b; }"), nil)

	path := filepath.Join(t.TempDir(), "main.img")
	be.Err(t, p1.SaveImage(path), nil)

	p2 := NewProgram("", 0, "")
	bindDouble(t, p2, "double")
	be.Err(t, p2.LoadImage(path), nil)
	be.True(t, p2.Compiled())

	img1, img2 := p1.Image(), p2.Image()
	be.Equal(t, img2.Code, img1.Code)
	be.Equal(t, img2.CodeEnd, img1.CodeEnd)
	be.Equal(t, img2.ArgsSize, img1.ArgsSize)
	be.Equal(t, img2.EntryParams, img1.EntryParams)
	be.Equal(t, img2.Symbols, img1.Symbols)

	got, err := p2.Execute(compiler.TypeInt, vm.Int(10), vm.Int(3))
	be.Err(t, err, nil)
	be.Equal(t, got.Int(), int32(17))
}

func TestImageNativeMismatch(t *testing.T) {
	p1 := NewProgram("", 0, "")
	bindDouble(t, p1, "double")
	be.Err(t, p1.CompileSource("int main() { return double(1); }"), nil)
	data, err := p1.ImageToBytes()
	be.Err(t, err, nil)

	renamed := NewProgram("", 0, "")
	bindDouble(t, renamed, "twice")
	be.Err(t, renamed.ImageFromBytes(data), ErrNativeMismatch)
	be.True(t, !renamed.Compiled())

	empty := NewProgram("", 0, "")
	be.Err(t, empty.ImageFromBytes(data), ErrNativeMismatch)
}

func TestImageRequiresCompiledProgram(t *testing.T) {
	_, err := NewProgram("", 0, "").ImageToBytes()
	be.Err(t, err, ErrNotCompiled)
}

func TestImageFromGarbage(t *testing.T) {
	err := NewProgram("", 0, "").ImageFromBytes([]byte("not a zip"))
	be.Err(t, err)
}

// editManifest rewrites the manifest of a saved image through edit.
func editManifest(t *testing.T, data []byte, edit func(m *imageManifest)) []byte {
	t.Helper()
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	be.Err(t, err, nil)
	fileMap := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileMap[f.Name] = f
	}
	raw, err := readZipEntry(fileMap, "manifest.json")
	be.Err(t, err, nil)
	code, err := readZipEntry(fileMap, "code.bin")
	be.Err(t, err, nil)

	var m imageManifest
	be.Err(t, json.Unmarshal(raw, &m), nil)
	edit(&m)
	raw, err = json.Marshal(m)
	be.Err(t, err, nil)

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	be.Err(t, writeZipEntry(zw, "manifest.json", raw), nil)
	be.Err(t, writeZipEntry(zw, "code.bin", code), nil)
	be.Err(t, zw.Close(), nil)
	return buf.Bytes()
}

func TestImageRejectsBadLayout(t *testing.T) {
	src := NewProgram("", 0, "")
	be.Err(t, src.CompileSource("int main(int a, char c) { return a; }"), nil)
	data, err := src.ImageToBytes()
	be.Err(t, err, nil)

	tests := []struct {
		name string
		edit func(m *imageManifest)
	}{
		{"Negative Return Size", func(m *imageManifest) { m.EntryReturnSize = -1 }},
		{"Return Size Of Known Type", func(m *imageManifest) { m.EntryReturnSize = 8 }},
		{"Args Size", func(m *imageManifest) { m.EntryParamSizes = []int{4, 4} }},
		{"Missing Param Sizes", func(m *imageManifest) { m.EntryParamSizes = nil }},
		{"Zero Param Size", func(m *imageManifest) { m.EntryParamSizes = []int{5, 0} }},
		{"Code End", func(m *imageManifest) { m.CodeEnd++ }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProgram("", 0, "")
			be.Err(t, p.ImageFromBytes(editManifest(t, data, tt.edit)), compiler.ErrBadImage)
			be.True(t, !p.Compiled())
		})
	}

	p := NewProgram("", 0, "")
	be.Err(t, p.ImageFromBytes(editManifest(t, data, func(*imageManifest) {})), nil)
	got, err := p.Execute(compiler.TypeInt, vm.Int(9), vm.Char(1))
	be.Err(t, err, nil)
	be.Equal(t, got.Int(), int32(9))
}
