// Package tail follows a growing log file across rotation and
// truncation, delivering only lines appended after the tail started.
package tail

import (
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"time"
)

type Tailer struct {
	Path string

	// ExistInterval is the wait between checks while the file does
	// not exist yet. PollInterval is the wait between reads once it
	// does. Both have sane defaults; tests shrink them.
	ExistInterval time.Duration
	PollInterval  time.Duration
}

func New(path string) *Tailer {
	return &Tailer{
		Path:          path,
		ExistInterval: time.Second,
		PollInterval:  200 * time.Millisecond,
	}
}

// Follow tails the file until ctx is cancelled. The returned channel
// carries complete lines without trailing newlines and is closed on
// cancellation. I/O errors never stop the tail; the file is treated
// as temporarily unavailable and reopened when it comes back.
//
// The first successful open seeks to end-of-file, so history is never
// replayed. When the file is replaced (rotation) or shrinks below the
// read offset (truncation), the replacement is read from the start.
//
// Known limitation: a line written and rotated away within a single
// poll interval is lost.
func (t *Tailer) Follow(ctx context.Context) <-chan string {
	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		t.run(ctx, lines)
	}()
	return lines
}

// cursor tracks the open file by identity so rotation (identity
// change) and truncation (size below offset) are detectable.
type cursor struct {
	file   *os.File
	info   os.FileInfo
	offset int64
	// pending holds a trailing partial line until its newline
	// arrives.
	pending []byte

	// Identity and offset of the last file tailed, kept across a
	// close so a transient error on the same file resumes where it
	// left off instead of replaying history.
	prev       os.FileInfo
	prevOffset int64
}

func (c *cursor) close() {
	if c.file != nil {
		c.file.Close()
		c.prev = c.info
		c.prevOffset = c.offset
	}
	c.file = nil
	c.info = nil
	c.offset = 0
	c.pending = nil
}

func (t *Tailer) run(ctx context.Context, lines chan<- string) {
	var cur cursor
	defer cur.close()

	first := true
	for {
		if ctx.Err() != nil {
			return
		}
		if cur.file == nil {
			if !t.open(ctx, &cur, first) {
				return
			}
			first = false
		}

		info, err := os.Stat(t.Path)
		if err != nil {
			log.Printf("tail: stat %s: %v (waiting for file)", t.Path, err)
			cur.close()
			continue
		}

		// Rotation replaces the file; truncation rewinds it. Either
		// way the offset no longer means anything: drop the handle
		// and let open pick up the replacement from the start.
		if !os.SameFile(cur.info, info) || info.Size() < cur.offset {
			log.Printf("tail: %s rotated or truncated, reopening", t.Path)
			cur.close()
			cur.prev = nil
			continue
		}

		if info.Size() > cur.offset {
			if err := t.consume(ctx, &cur, info.Size(), lines); err != nil {
				log.Printf("tail: read %s: %v", t.Path, err)
				cur.close()
				continue
			}
			continue
		}

		if !sleep(ctx, t.PollInterval) {
			return
		}
	}
}

// open waits for the file to exist and positions the cursor: at
// end-of-file on the very first open, at the remembered offset when
// the same file came back after a transient error, at the beginning
// for a brand-new file. Returns false on cancellation.
func (t *Tailer) open(ctx context.Context, cur *cursor, first bool) bool {
	for {
		f, err := os.Open(t.Path)
		if err == nil {
			info, serr := f.Stat()
			if serr == nil {
				var offset int64
				switch {
				case first:
					offset = info.Size()
				case cur.prev != nil && os.SameFile(cur.prev, info) && cur.prevOffset <= info.Size():
					offset = cur.prevOffset
				}
				cur.file = f
				cur.info = info
				cur.offset = offset
				cur.pending = nil
				log.Printf("tail: following %s from offset %d", t.Path, offset)
				return true
			}
			f.Close()
			err = serr
		}
		if !os.IsNotExist(err) {
			log.Printf("tail: open %s: %v", t.Path, err)
		}
		if !sleep(ctx, t.ExistInterval) {
			return false
		}
	}
}

// consume reads the bytes between the cursor offset and size, emitting
// every complete line and buffering any trailing partial one.
func (t *Tailer) consume(ctx context.Context, cur *cursor, size int64, lines chan<- string) error {
	buf := make([]byte, size-cur.offset)
	n, err := io.ReadFull(io.NewSectionReader(cur.file, cur.offset, size-cur.offset), buf)
	if n == 0 && err != nil {
		return err
	}
	cur.offset += int64(n)
	cur.pending = append(cur.pending, buf[:n]...)

	for {
		i := bytes.IndexByte(cur.pending, '\n')
		if i < 0 {
			return nil
		}
		line := string(bytes.TrimRight(cur.pending[:i], "\r"))
		cur.pending = cur.pending[i+1:]
		select {
		case lines <- line:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
