package leanimt

import (
	"encoding/binary"
	"errors"
)

func appendLength(buf []byte, n int) []byte {
	var tmpbuf [8]byte
	len := binary.PutUvarint(tmpbuf[:], uint64(n))
	return append(buf, tmpbuf[:len]...)
}

func decodeLength(buf []byte, n *int) ([]byte, error) {
	k, len := binary.Uvarint(buf)
	if len <= 0 {
		return nil, errors.New("bad length")
	}
	*n = int(k)
	return buf[len:], nil
}

func decodeBytes(buf []byte, body *[]byte) ([]byte, error) {
	var err error
	var n int
	buf, err = decodeLength(buf, &n)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return buf, nil
	}
	if len(buf) < n {
		return nil, errors.New("bad body length")
	}
	*body = buf[:n]
	return buf[n:], nil
}

// marshalSnapshot encodes the whole tree state (size, depth, every
// level) with uvarint framing. Node values are encoded with the given
// marshaler; the leaf index map is not stored, it is rebuilt from level
// 0 on load.
func marshalSnapshot[V comparable](t *LeanIMT[V], marshal func(interface{}) ([]byte, error)) ([]byte, error) {
	buf := appendLength(nil, t.size)
	buf = appendLength(buf, t.depth)
	buf = appendLength(buf, len(t.levels))
	for _, level := range t.levels {
		buf = appendLength(buf, len(level))
		for _, node := range level {
			body, err := marshal(node)
			if err != nil {
				return nil, err
			}
			buf = appendLength(buf, len(body))
			buf = append(buf, body...)
		}
	}
	return buf, nil
}

func unmarshalSnapshot[V comparable](buf []byte, t *LeanIMT[V], unmarshal func([]byte, interface{}) error) error {
	var err error
	buf, err = decodeLength(buf, &t.size)
	if err != nil {
		return err
	}
	buf, err = decodeLength(buf, &t.depth)
	if err != nil {
		return err
	}
	var levelCount int
	buf, err = decodeLength(buf, &levelCount)
	if err != nil {
		return err
	}
	t.levels = make([][]V, levelCount)
	for l := 0; l < levelCount; l++ {
		var width int
		buf, err = decodeLength(buf, &width)
		if err != nil {
			return err
		}
		level := make([]V, width)
		for i := 0; i < width; i++ {
			var body []byte
			buf, err = decodeBytes(buf, &body)
			if err != nil {
				return err
			}
			if body != nil {
				err = unmarshal(body, &level[i])
				if err != nil {
					return err
				}
			}
		}
		t.levels[l] = level
	}
	if len(buf) != 0 {
		return errors.New("trailing bytes after snapshot")
	}
	return nil
}
