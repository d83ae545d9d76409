package asyncstream

// NotFound is returned by FindString when the needle does not occur
// before the stream's currently known end.
const NotFound int64 = -1

// FindString searches forward from the current read cursor for the
// first occurrence of needle, returning its absolute start position or
// NotFound. The search does not disturb the read cursor. It's a naive
// byte-at-a-time scan that crosses buffer boundaries transparently by
// going through PeekByte/SetPosition rather than assuming the needle
// fits in one cached buffer.
func (s *Stream) FindString(needle string) (int64, error) {
	if len(needle) == 0 {
		return s.GetPosition(), nil
	}

	start := s.GetPosition()
	defer s.SetPosition(start)

	pos := start
	for {
		matchStart := pos
		matched := true
		for i := 0; i < len(needle); i++ {
			if err := s.SetPosition(pos + int64(i)); err != nil {
				return NotFound, nil
			}
			b, err := s.PeekByte()
			if err != nil {
				return NotFound, nil
			}
			if b != needle[i] {
				matched = false
				break
			}
		}
		if matched {
			return matchStart, nil
		}
		pos++
		if pos+int64(len(needle)) > s.GetDataLength() {
			return NotFound, nil
		}
	}
}
