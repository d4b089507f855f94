package script

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"time"

	"scriptvm/pkg/compiler"
	"scriptvm/pkg/vm"
)

const imageFormat = 2

// ErrNativeMismatch is returned when a saved image refers to host functions
// the program does not bind in the same order with the same signatures.
var ErrNativeMismatch = errors.New("image natives do not match program bindings")

type nativeDescriptor struct {
	Name       string `json:"name"`
	ParamSizes []int  `json:"param_sizes"`
	ReturnSize int    `json:"return_size"`
}

type symbolDescriptor struct {
	Addr uint64 `json:"addr"`
	Name string `json:"name"`
}

// imageManifest is the JSON part of a saved image; the bytecode is stored
// alongside it as code.bin.
type imageManifest struct {
	Format          int                `json:"format"`
	Saved           time.Time          `json:"saved"`
	Source          string             `json:"source,omitempty"`
	ArgsSize        int                `json:"args_size"`
	CodeEnd         uint64             `json:"code_end"`
	Entry           string             `json:"entry"`
	EntryReturnType string             `json:"entry_return_type"`
	EntryReturnSize int                `json:"entry_return_size"`
	EntryParams     []string           `json:"entry_params"`
	EntryParamSizes []int              `json:"entry_param_sizes"`
	Natives         []nativeDescriptor `json:"natives"`
	Symbols         []symbolDescriptor `json:"symbols"`
}

// ImageToBytes serialises the current image into an in-memory ZIP archive.
func (p *Program) ImageToBytes() ([]byte, error) {
	img := p.img
	if img == nil {
		return nil, ErrNotCompiled
	}
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	manifest := imageManifest{
		Format:          imageFormat,
		Saved:           time.Now().UTC(),
		Source:          p.path,
		ArgsSize:        img.ArgsSize,
		CodeEnd:         img.CodeEnd,
		Entry:           img.Entry,
		EntryReturnType: img.EntryReturnType,
		EntryReturnSize: img.EntryReturnSize,
		EntryParams:     img.EntryParams,
		EntryParamSizes: img.EntryParamSizes,
	}
	for _, n := range img.Natives {
		manifest.Natives = append(manifest.Natives, nativeDescriptor{Name: n.Name, ParamSizes: n.ParamSizes, ReturnSize: n.ReturnSize})
	}
	for addr, name := range img.Symbols {
		manifest.Symbols = append(manifest.Symbols, symbolDescriptor{Addr: addr, Name: name})
	}
	sort.Slice(manifest.Symbols, func(i, j int) bool { return manifest.Symbols[i].Addr < manifest.Symbols[j].Addr })

	jsonData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := writeZipEntry(zw, "manifest.json", jsonData); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "code.bin", img.Code); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// ImageFromBytes loads an archive produced by ImageToBytes. Host functions
// are rebound from this program's registry; they must have been added in the
// same order with the same signatures as when the image was built.
func (p *Program) ImageFromBytes(data []byte) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	fileMap := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileMap[f.Name] = f
	}

	jsonData, err := readZipEntry(fileMap, "manifest.json")
	if err != nil {
		return err
	}
	var manifest imageManifest
	if err := json.Unmarshal(jsonData, &manifest); err != nil {
		return fmt.Errorf("unmarshal manifest: %w", err)
	}
	if manifest.Format != imageFormat {
		return fmt.Errorf("unsupported image format %d", manifest.Format)
	}
	code, err := readZipEntry(fileMap, "code.bin")
	if err != nil {
		return err
	}

	natives, err := p.rebind(manifest.Natives)
	if err != nil {
		return err
	}
	symbols := make(map[uint64]string, len(manifest.Symbols))
	for _, s := range manifest.Symbols {
		symbols[s.Addr] = s.Name
	}

	img := &compiler.Image{
		Code:            code,
		ArgsSize:        manifest.ArgsSize,
		CodeEnd:         manifest.CodeEnd,
		Entry:           manifest.Entry,
		EntryReturnType: manifest.EntryReturnType,
		EntryReturnSize: manifest.EntryReturnSize,
		EntryParams:     manifest.EntryParams,
		EntryParamSizes: manifest.EntryParamSizes,
		Natives:         natives,
		Symbols:         symbols,
	}
	if err := img.Validate(); err != nil {
		return err
	}
	if size, ok := p.reg.TypeSize(img.EntryReturnType); ok && size != img.EntryReturnSize {
		return fmt.Errorf("%w: %s is %d bytes, image says %d", compiler.ErrBadImage, img.EntryReturnType, size, img.EntryReturnSize)
	}
	p.setImage(img)
	return nil
}

func (p *Program) rebind(saved []nativeDescriptor) ([]vm.Native, error) {
	bound := p.reg.Natives()
	if len(saved) > len(bound) {
		return nil, fmt.Errorf("%w: image uses %d natives, program binds %d", ErrNativeMismatch, len(saved), len(bound))
	}
	for i, s := range saved {
		b := bound[i]
		if b.Name != s.Name || b.ReturnSize != s.ReturnSize || !slices.Equal(b.ParamSizes, s.ParamSizes) {
			return nil, fmt.Errorf("%w: native %d is %s, image expects %s", ErrNativeMismatch, i, b.Name, s.Name)
		}
	}
	return bound[:len(saved)], nil
}

// SaveImage writes the current image archive to path.
func (p *Program) SaveImage(path string) error {
	data, err := p.ImageToBytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadImage reads an image archive from path and makes it current.
func (p *Program) LoadImage(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return p.ImageFromBytes(data)
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %q: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}

func readZipEntry(fileMap map[string]*zip.File, name string) ([]byte, error) {
	f, ok := fileMap[name]
	if !ok {
		return nil, fmt.Errorf("zip entry %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %q: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
