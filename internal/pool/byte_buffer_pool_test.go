package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewByteBuffer(t *testing.T) {
	capacity := 1024
	bb := NewByteBuffer(capacity)

	require.NotNil(t, bb)
	require.NotNil(t, bb.B)
	assert.Equal(t, 0, len(bb.B), "new buffer should have zero length")
	assert.Equal(t, capacity, cap(bb.B), "new buffer should have specified capacity")
}

func TestByteBuffer_Bytes(t *testing.T) {
	bb := NewByteBuffer(PageBufferDefaultSize)
	bb.B = append(bb.B, []byte("hello")...)

	data := bb.Bytes()

	assert.Equal(t, []byte("hello"), data)
	// Should return the same underlying slice
	assert.True(t, &bb.B[0] == &data[0], "Bytes() should return the same underlying slice")
}

func TestByteBuffer_Reset(t *testing.T) {
	bb := NewByteBuffer(PageBufferDefaultSize)
	bb.B = append(bb.B, []byte("some data")...)
	originalCap := cap(bb.B)

	bb.Reset()

	assert.Equal(t, 0, len(bb.B), "Reset should clear the buffer length")
	assert.Equal(t, originalCap, cap(bb.B), "Reset should preserve capacity")
}

func TestByteBuffer_Extend(t *testing.T) {
	bb := NewByteBuffer(64)

	require.True(t, bb.Extend(32), "Extend within capacity should succeed")
	assert.Equal(t, 32, bb.Len())

	require.False(t, bb.Extend(64), "Extend beyond capacity should fail")
	assert.Equal(t, 32, bb.Len())
}

func TestByteBuffer_ExtendOrGrow(t *testing.T) {
	bb := NewByteBuffer(16)
	bb.ExtendOrGrow(1024)

	assert.Equal(t, 1024, bb.Len())
	assert.GreaterOrEqual(t, bb.Cap(), 1024)
}

func TestByteBuffer_Grow(t *testing.T) {
	bb := NewByteBuffer(16)
	bb.B = append(bb.B, []byte("abcd")...)

	bb.Grow(4 * PageBufferDefaultSize)

	assert.Equal(t, []byte("abcd"), bb.B, "Grow should preserve contents")
	assert.GreaterOrEqual(t, bb.Cap()-bb.Len(), 4*PageBufferDefaultSize)
}

func TestByteBuffer_Write(t *testing.T) {
	bb := NewByteBuffer(8)

	n, err := bb.Write([]byte("page data"))
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.Equal(t, []byte("page data"), bb.Bytes())
}

func TestByteBufferPool_RoundTrip(t *testing.T) {
	p := NewByteBufferPool(64, 1024)

	bb := p.Get()
	require.NotNil(t, bb)
	bb.B = append(bb.B, []byte("payload")...)
	p.Put(bb)

	bb = p.Get()
	require.NotNil(t, bb)
	assert.Equal(t, 0, bb.Len(), "pooled buffer should come back reset")
}

func TestByteBufferPool_DiscardsOversized(t *testing.T) {
	p := NewByteBufferPool(64, 128)

	bb := p.Get()
	bb.ExtendOrGrow(4096)
	p.Put(bb)

	next := p.Get()
	assert.Equal(t, 0, next.Len(), "oversized buffer must not come back with stale length")
}

func TestByteBufferPool_PutNil(t *testing.T) {
	p := NewByteBufferPool(64, 0)
	require.NotPanics(t, func() { p.Put(nil) })
}

func TestPageBufferPool_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bb := GetPageBuffer()
				bb.ExtendOrGrow(PageBufferDefaultSize)
				PutPageBuffer(bb)
			}
		}()
	}
	wg.Wait()
}
