package runtime

// history is a fixed size ring of serialized frames, newest last.
type history struct {
	frames [][]byte
	head   int
	size   int
}

func newHistory(capacity int) *history {
	if capacity <= 0 {
		return nil
	}
	return &history{frames: make([][]byte, capacity)}
}

func (h *history) push(frame []byte) {
	if h == nil {
		return
	}
	h.frames[h.head] = frame
	h.head = (h.head + 1) % len(h.frames)
	if h.size < len(h.frames) {
		h.size++
	}
}

// pop removes and returns the n-th newest frame, dropping everything newer.
func (h *history) pop(n int) ([]byte, bool) {
	if h == nil || h.size == 0 || n <= 0 {
		return nil, false
	}
	if n > h.size {
		n = h.size
	}
	h.head = (h.head - n + len(h.frames)) % len(h.frames)
	h.size -= n
	frame := h.frames[h.head]
	for i := 0; i < n; i++ {
		h.frames[(h.head+i)%len(h.frames)] = nil
	}
	return frame, true
}

func (h *history) len() int {
	if h == nil {
		return 0
	}
	return h.size
}

func (h *history) clear() {
	if h == nil {
		return
	}
	for i := range h.frames {
		h.frames[i] = nil
	}
	h.head, h.size = 0, 0
}
