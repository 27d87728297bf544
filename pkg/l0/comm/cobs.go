package comm

// Delimiter terminates every frame on the wire.
const Delimiter byte = 0x00

// MaxEncodedLen returns the worst-case size of n bytes after COBS stuffing.
func MaxEncodedLen(n int) int {
	return n + n/254 + 1
}

// EncodeCOBS stuffs src with Consistent Overhead Byte Stuffing.
// The result never contains Delimiter. The terminating Delimiter is
// not appended.
func EncodeCOBS(src []byte) []byte {
	return AppendCOBS(make([]byte, 0, MaxEncodedLen(len(src))+1), src)
}

// AppendCOBS appends the stuffed form of src to dst.
func AppendCOBS(dst, src []byte) []byte {
	codeAt := len(dst)
	dst = append(dst, 0)
	code := byte(1)
	for _, b := range src {
		if b == 0 {
			dst[codeAt] = code
			codeAt, code = len(dst), 1
			dst = append(dst, 0)
			continue
		}
		dst = append(dst, b)
		if code++; code == 0xff {
			dst[codeAt] = code
			codeAt, code = len(dst), 1
			dst = append(dst, 0)
		}
	}
	dst[codeAt] = code
	return dst
}

// DecodeCOBS reverses EncodeCOBS. src must not include the terminating
// Delimiter.
func DecodeCOBS(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, &DecodeError{Reason: "empty frame"}
	}
	dst := make([]byte, 0, len(src))
	for i := 0; i < len(src); {
		code := int(src[i])
		if code == 0 {
			return nil, &DecodeError{Offset: i, Reason: "unexpected delimiter"}
		}
		end := i + code
		if end > len(src) {
			return nil, &DecodeError{Offset: i, Reason: "run exceeds frame"}
		}
		for j := i + 1; j < end; j++ {
			if src[j] == 0 {
				return nil, &DecodeError{Offset: j, Reason: "unexpected delimiter"}
			}
			dst = append(dst, src[j])
		}
		i = end
		// A full run (0xff) carries no implicit zero, and the last run
		// is never followed by one.
		if code < 0xff && i < len(src) {
			dst = append(dst, 0)
		}
	}
	return dst, nil
}
