package main

import (
	"bytes"
	"context"
	"io"
	"sync"
)

const keyCtrlC = 3

// keyReader feeds raw terminal input to the line editor. Raw mode disables
// the interrupt signal, so while a run is in flight Ctrl-C is taken out of
// the input and cancels the run instead.
type keyReader struct {
	chunks  chan []byte
	pending []byte

	mu     sync.Mutex
	cancel context.CancelFunc // non-nil while a run is in flight
}

func newKeyReader(src io.Reader) *keyReader {
	k := &keyReader{chunks: make(chan []byte, 64)}
	go k.pump(src)
	return k
}

// pump reads src until it fails. The goroutine lives as long as the input.
func (k *keyReader) pump(src io.Reader) {
	buf := make([]byte, 256)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if chunk := k.filter(buf[:n]); len(chunk) > 0 {
				k.chunks <- chunk
			}
		}
		if err != nil {
			close(k.chunks)
			return
		}
	}
}

func (k *keyReader) filter(b []byte) []byte {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.cancel == nil || bytes.IndexByte(b, keyCtrlC) < 0 {
		return bytes.Clone(b)
	}
	k.cancel()
	return bytes.ReplaceAll(b, []byte{keyCtrlC}, nil)
}

func (k *keyReader) Read(p []byte) (int, error) {
	if len(k.pending) == 0 {
		chunk, ok := <-k.chunks
		if !ok {
			return 0, io.EOF
		}
		k.pending = chunk
	}
	n := copy(p, k.pending)
	k.pending = k.pending[n:]
	return n, nil
}

// interruptible returns a context for one run that Ctrl-C cancels. done must
// be called when the run ends.
func (k *keyReader) interruptible(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	k.mu.Lock()
	k.cancel = cancel
	k.mu.Unlock()
	return ctx, func() {
		k.mu.Lock()
		k.cancel = nil
		k.mu.Unlock()
		cancel()
	}
}
