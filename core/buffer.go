package core

import (
	"encoding/binary"
	"fmt"
)

// bufferBuilderSize is the byte width of a BufferBuilder record in guest
// linear memory: four little-endian uint32 words (start, capacity, size,
// owner). spec.md §3 describes the fields as "unsigned machine words";
// wasmer-go's 32-bit linear memory makes uint32 the natural width.
const bufferBuilderSize = 4 * 4

// bufferBuilder mirrors the in-memory layout the guest constructs when the
// host calls initiate_buffer. It is never held onto across a call that
// might grow memory — see memoryAccessor below.
type bufferBuilder struct {
	Start    uint32
	Capacity uint32
	Size     uint32
	Owner    uint32 // 0 = guest-owned, nonzero = host-owned
}

func readBufferBuilder(mem []byte, ptr uint32) (bufferBuilder, error) {
	if uint64(ptr)+bufferBuilderSize > uint64(len(mem)) {
		return bufferBuilder{}, fmt.Errorf("buffer builder at %#x out of bounds (memory size %d)", ptr, len(mem))
	}
	r := mem[ptr : ptr+bufferBuilderSize]
	return bufferBuilder{
		Start:    binary.LittleEndian.Uint32(r[0:4]),
		Capacity: binary.LittleEndian.Uint32(r[4:8]),
		Size:     binary.LittleEndian.Uint32(r[8:12]),
		Owner:    binary.LittleEndian.Uint32(r[12:16]),
	}, nil
}

func writeBufferBuilder(mem []byte, ptr uint32, b bufferBuilder) error {
	if uint64(ptr)+bufferBuilderSize > uint64(len(mem)) {
		return fmt.Errorf("buffer builder at %#x out of bounds (memory size %d)", ptr, len(mem))
	}
	w := mem[ptr : ptr+bufferBuilderSize]
	binary.LittleEndian.PutUint32(w[0:4], b.Start)
	binary.LittleEndian.PutUint32(w[4:8], b.Capacity)
	binary.LittleEndian.PutUint32(w[8:12], b.Size)
	binary.LittleEndian.PutUint32(w[12:16], b.Owner)
	return nil
}

// memoryAccessor returns the current linear-memory backing slice. It is a
// closure rather than a cached []byte because a guest call can grow
// memory and relocate the backing allocation; every access to a
// BufferHandle must go through this indirection instead of a remembered
// pointer (spec.md §4.2, §9).
type memoryAccessor func() []byte

// BufferHandle is a re-resolved reference to a BufferBuilder living in
// guest linear memory. It never stores a raw address across calls.
type BufferHandle struct {
	ptr uint32
	mem memoryAccessor
}

func newBufferHandle(ptr uint32, mem memoryAccessor) *BufferHandle {
	return &BufferHandle{ptr: ptr, mem: mem}
}

// Ptr is the builder's own address, passed to entry points as an integer.
func (h *BufferHandle) Ptr() uint32 { return h.ptr }

func (h *BufferHandle) read() (bufferBuilder, error) {
	return readBufferBuilder(h.mem(), h.ptr)
}

// Size returns the number of payload bytes currently written.
func (h *BufferHandle) Size() (uint32, error) {
	b, err := h.read()
	return b.Size, err
}

// Write copies data into the payload region and updates size. Fails if
// data does not fit within the reserved capacity.
func (h *BufferHandle) Write(data []byte) error {
	b, err := h.read()
	if err != nil {
		return err
	}
	if uint64(len(data)) > uint64(b.Capacity) {
		return fmt.Errorf("write %d bytes exceeds buffer capacity %d", len(data), b.Capacity)
	}
	mem := h.mem()
	if uint64(b.Start)+uint64(len(data)) > uint64(len(mem)) {
		return fmt.Errorf("buffer payload at %#x (%d bytes) out of bounds (memory size %d)", b.Start, len(data), len(mem))
	}
	copy(mem[b.Start:], data)
	b.Size = uint32(len(data))
	return writeBufferBuilder(mem, h.ptr, b)
}

// ReadBytes copies n bytes starting at the buffer's payload offset. The
// invariant size <= capacity guarantees this read stays in-bounds as long
// as n <= the builder's recorded size.
func (h *BufferHandle) ReadBytes(n uint32) ([]byte, error) {
	b, err := h.read()
	if err != nil {
		return nil, err
	}
	mem := h.mem()
	if uint64(b.Start)+uint64(n) > uint64(len(mem)) {
		return nil, fmt.Errorf("buffer read at %#x (%d bytes) out of bounds (memory size %d)", b.Start, n, len(mem))
	}
	out := make([]byte, n)
	copy(out, mem[b.Start:uint64(b.Start)+uint64(n)])
	return out, nil
}

// FlipOwnership re-resolves this handle against the current memory
// snapshot. A contract's update_state may have grown memory while
// producing its replacement state buffer; callers must call this (rather
// than trust a previously cached builder) before reading the result.
// spec.md §4.2 and §9 call this out explicitly as the pointer-invalidation
// hazard the host must guard against.
func (h *BufferHandle) FlipOwnership() *BufferHandle {
	return newBufferHandle(h.ptr, h.mem)
}
