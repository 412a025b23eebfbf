// Package checkpoint saves and restores named model parameters in a simple
// binary container:
//
//	[4 bytes: magic "ESML"]
//	[4 bytes: version (uint32 LE)]
//	[8 bytes: header size (uint64 LE)]
//	[header: JSON tensor index]
//	[tensor data: raw float32 LE, in index order]
//
// The JSON header lists each tensor's name, shape, and byte offset into the
// data section, so a file can be inspected without reading the weights.
package checkpoint

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/mmcdermott/EventStreamML/internal/tensor"
)

const (
	magic   = "ESML"
	version = 1
)

type entry struct {
	Name   string `json:"name"`
	Shape  []int  `json:"shape"`
	Offset uint64 `json:"offset"`
}

type header struct {
	Tensors []entry `json:"tensors"`
}

// Save writes the named tensors to path. Tensors are written in name order
// so identical parameter sets produce identical files.
func Save(path string, params map[string]*tensor.Tensor[float32]) error {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var hdr header
	var offset uint64
	for _, name := range names {
		t := params[name]
		hdr.Tensors = append(hdr.Tensors, entry{
			Name:   name,
			Shape:  []int(t.Shape()),
			Offset: offset,
		})
		offset += uint64(4 * t.NumElements())
	}
	hdrBytes, err := json.Marshal(hdr)
	if err != nil {
		return fmt.Errorf("encoding checkpoint header: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating checkpoint %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(magic); err != nil {
		return fmt.Errorf("writing checkpoint %s: %w", path, err)
	}
	fixed := make([]byte, 12)
	binary.LittleEndian.PutUint32(fixed[0:4], version)
	binary.LittleEndian.PutUint64(fixed[4:12], uint64(len(hdrBytes)))
	if _, err := f.Write(fixed); err != nil {
		return fmt.Errorf("writing checkpoint %s: %w", path, err)
	}
	if _, err := f.Write(hdrBytes); err != nil {
		return fmt.Errorf("writing checkpoint %s: %w", path, err)
	}

	buf := make([]byte, 0, 4096)
	for _, name := range names {
		buf = buf[:0]
		for _, v := range params[name].Data() {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
		if _, err := f.Write(buf); err != nil {
			return fmt.Errorf("writing checkpoint %s: %w", path, err)
		}
	}
	return f.Sync()
}

// Load reads every tensor from a checkpoint file.
func Load(path string) (map[string]*tensor.Tensor[float32], error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}
	if len(raw) < 16 || string(raw[:4]) != magic {
		return nil, fmt.Errorf("%s is not a checkpoint file", path)
	}
	if v := binary.LittleEndian.Uint32(raw[4:8]); v != version {
		return nil, fmt.Errorf("%s has unsupported checkpoint version %d", path, v)
	}
	hdrSize := binary.LittleEndian.Uint64(raw[8:16])
	if uint64(len(raw)) < 16+hdrSize {
		return nil, fmt.Errorf("%s is truncated: header claims %d bytes", path, hdrSize)
	}

	var hdr header
	if err := json.Unmarshal(raw[16:16+hdrSize], &hdr); err != nil {
		return nil, fmt.Errorf("decoding checkpoint header of %s: %w", path, err)
	}

	data := raw[16+hdrSize:]
	out := make(map[string]*tensor.Tensor[float32], len(hdr.Tensors))
	for _, e := range hdr.Tensors {
		n := tensor.Shape(e.Shape).NumElements()
		end := e.Offset + uint64(4*n)
		if end > uint64(len(data)) {
			return nil, fmt.Errorf("%s is truncated: tensor %q needs bytes [%d, %d)", path, e.Name, e.Offset, end)
		}
		values := make([]float32, n)
		for i := range values {
			values[i] = math.Float32frombits(
				binary.LittleEndian.Uint32(data[e.Offset+uint64(4*i):]))
		}
		t, err := tensor.FromSlice(values, tensor.Shape(e.Shape))
		if err != nil {
			return nil, fmt.Errorf("tensor %q in %s: %w", e.Name, path, err)
		}
		out[e.Name] = t
	}
	return out, nil
}

// Restore copies loaded tensors into an existing parameter set in place.
// The file must cover exactly the given parameters, with matching shapes.
func Restore(path string, params map[string]*tensor.Tensor[float32]) error {
	loaded, err := Load(path)
	if err != nil {
		return err
	}
	if len(loaded) != len(params) {
		return fmt.Errorf("%s holds %d tensors but the model has %d parameters", path, len(loaded), len(params))
	}
	for name, dst := range params {
		src, ok := loaded[name]
		if !ok {
			return fmt.Errorf("%s is missing parameter %q", path, name)
		}
		if !src.Shape().Equal(dst.Shape()) {
			return fmt.Errorf("parameter %q has shape %v in %s but %v in the model",
				name, src.Shape(), path, dst.Shape())
		}
		copy(dst.Data(), src.Data())
	}
	return nil
}
