package isolate

import (
	"io"
	"sync"
)

// Wraps an [io.Reader] and signals when it has been read to [io.EOF].
//
// The done channel is closed exactly once on the first EOF. Launch waits
// on it to join the background output drain: the copy loop's final write
// happens before the read that returns EOF, so a fired channel means all
// output has been delivered.
type drainedReader struct {
	r    io.Reader
	once sync.Once
	done chan struct{}
}

// Creates a [drainedReader] wrapping the given reader.
func newDrainedReader(r io.Reader) *drainedReader {
	return &drainedReader{r: r, done: make(chan struct{})}
}

// Delegates to the underlying reader, closing the done channel on the
// first [io.EOF]. Non-EOF errors are returned without closing it.
func (d *drainedReader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if err == io.EOF {
		d.finish()
	}
	return n, err
}

// Closes the done channel. Called by the drain goroutine when the copy
// stops for a reason other than EOF, such as a write error on the
// caller's stream.
func (d *drainedReader) finish() {
	d.once.Do(func() { close(d.done) })
}
