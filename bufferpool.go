package asyncstream

import "container/list"

// bufferPool manages the per-stream input (LRU) and output (FIFO) buffer
// lists. It has no lock of its own: every method is called with the
// owning Stream's mu already held.
//
// The LRU shape follows zhukovaskychina-xmysql-server's
// server/innodb/buffer_pool/buffer_lru.go: a container/list.List walked
// from the back (least-recently-touched) for eviction candidates, with
// the front holding the most-recently-touched entry.
type bufferPool struct {
	input  *list.List // Value = *IOBuffer; front = most-recently-touched
	output *list.List // Value = *IOBuffer; front = oldest (FIFO)
	cap    int        // 0 = uncapped (non-seekable streams)
	dev    Device
	obs    Observer
}

func newBufferPool(dev Device, cap int, obs Observer) *bufferPool {
	if obs == nil {
		obs = NoOpObserver{}
	}
	return &bufferPool{
		input:  list.New(),
		output: list.New(),
		cap:    cap,
		dev:    dev,
		obs:    obs,
	}
}

// acquire returns a buffer anchored at positionHint. Once the input list
// is at its cap it recycles the idle, non-dirty LRU-tail buffer; below the
// cap, or when no buffer qualifies, it allocates fresh.
func (p *bufferPool) acquire(positionHint int64, isInput bool) (*IOBuffer, error) {
	aligned := p.dev.IOStartPosition(positionHint)

	if !isInput {
		buf, err := p.dev.AllocIOBuffer(0, false)
		if err != nil {
			return nil, err
		}
		buf.Reset(aligned)
		buf.SetFlag(FlagIsOutput)
		p.pushOutputBack(buf)
		return buf, nil
	}

	if p.cap > 0 && p.input.Len() >= p.cap {
		if victim := p.evictionCandidate(); victim != nil {
			p.detach(victim)
			victim.Reset(aligned)
			victim.SetFlag(FlagIsInput)
			p.pushInputFront(victim)
			p.obs.ObserveCacheHit(false)
			return victim, nil
		}
		// Every input buffer is dirty or in-flight: allocate anyway.
	}

	buf, err := p.dev.AllocIOBuffer(0, false)
	if err != nil {
		return nil, err
	}
	buf.Reset(aligned)
	buf.SetFlag(FlagIsInput)
	p.pushInputFront(buf)
	return buf, nil
}

// evictionCandidate returns the least-recently-touched input buffer that
// is idle and not dirty, or nil if none qualifies.
func (p *bufferPool) evictionCandidate() *IOBuffer {
	for e := p.input.Back(); e != nil; e = e.Prev() {
		b := e.Value.(*IOBuffer)
		if b.state == OpIdle && !b.HasFlag(FlagUnsavedChanges) {
			return b
		}
	}
	return nil
}

// findInputContaining scans the input list for a buffer whose valid range
// contains pos, or whose end equals both pos and totalAvailable (the
// seek-to-EOF special case shared with cursor.go).
func (p *bufferPool) findInputContaining(pos, totalAvailable int64) *IOBuffer {
	for e := p.input.Front(); e != nil; e = e.Next() {
		b := e.Value.(*IOBuffer)
		if pos >= b.Pos() && pos < b.End() {
			return b
		}
		if pos == b.End() && pos == totalAvailable {
			return b
		}
	}
	return nil
}

// touch moves buf to the front of the input list. No-op if buf isn't currently in the input list.
func (p *bufferPool) touch(buf *IOBuffer) {
	if buf.list == p.input && buf.elem != nil {
		p.input.MoveToFront(buf.elem)
	}
}

func (p *bufferPool) pushInputFront(buf *IOBuffer) {
	buf.elem = p.input.PushFront(buf)
	buf.list = p.input
}

func (p *bufferPool) pushOutputBack(buf *IOBuffer) {
	buf.elem = p.output.PushBack(buf)
	buf.list = p.output
}

// detach removes buf from whichever list currently owns it. Safe to call
// on an already-detached buffer.
func (p *bufferPool) detach(buf *IOBuffer) {
	if buf.list != nil && buf.elem != nil {
		buf.list.Remove(buf.elem)
	}
	buf.list = nil
	buf.elem = nil
}

// popOutputFront removes and returns the oldest output buffer, or nil if
// the output list is empty.
func (p *bufferPool) popOutputFront() *IOBuffer {
	e := p.output.Front()
	if e == nil {
		return nil
	}
	buf := e.Value.(*IOBuffer)
	p.detach(buf)
	return buf
}

// combine appends src's valid bytes onto the end of dst and releases src
// from its list. Caller
// must ensure dst has RoomAtEnd() >= src.ValidBytes().
func (p *bufferPool) combine(dst, src *IOBuffer) {
	n := copy(dst.data[dst.logicalBase+dst.validBytes:], src.data[src.logicalBase:src.logicalBase+src.validBytes])
	dst.validBytes += int64(n)
	dst.flags |= src.flags & (FlagValidData | FlagError)
	p.detach(src)
	p.touch(dst)
}

// inputBuffers returns every buffer currently in the input list, in LRU
// order (front first). Used by flush to walk all dirty buffers.
func (p *bufferPool) inputBuffers() []*IOBuffer {
	out := make([]*IOBuffer, 0, p.input.Len())
	for e := p.input.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*IOBuffer))
	}
	return out
}

// outputBuffers returns every buffer currently in the output list, oldest
// first.
func (p *bufferPool) outputBuffers() []*IOBuffer {
	out := make([]*IOBuffer, 0, p.output.Len())
	for e := p.output.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*IOBuffer))
	}
	return out
}

// markInFlightDiscard flags every buffer currently mid-read or mid-write
// (in either list) as FlagDiscardWhenIdle: its eventual completion will
// release it instead of running the normal read/write/splice bookkeeping
// against a stream that's already gone or a range that's already cut.
func (p *bufferPool) markInFlightDiscard() {
	for e := p.input.Front(); e != nil; e = e.Next() {
		b := e.Value.(*IOBuffer)
		if b.state != OpIdle {
			b.SetFlag(FlagDiscardWhenIdle)
		}
	}
	for e := p.output.Front(); e != nil; e = e.Next() {
		b := e.Value.(*IOBuffer)
		if b.state != OpIdle {
			b.SetFlag(FlagDiscardWhenIdle)
		}
	}
}

// predecessorOf returns the input buffer immediately preceding buf's
// position in media-order (used by small-packet coalescing, which merges
// onto "the immediately-preceding input buffer" rather than the
// LRU-adjacent one).
func (p *bufferPool) predecessorOf(buf *IOBuffer) *IOBuffer {
	for e := p.input.Front(); e != nil; e = e.Next() {
		b := e.Value.(*IOBuffer)
		if b != buf && b.End() == buf.Pos() {
			return b
		}
	}
	return nil
}
