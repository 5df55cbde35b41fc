package parser

// Tags whose rows are framed as ID:TAG + HEX_LENGTH + "," + DATA with no
// terminator. A binary tag missing here would be scanned for a newline and
// every following row would be misaligned, so the set must stay complete.
var binaryTags = [256]bool{
	'A': true, // ArrayBuffer
	'O': true, // Int8Array
	'o': true, // Uint8Array
	'U': true, // Uint8ClampedArray
	'S': true, // Int16Array
	's': true, // Uint16Array
	'L': true, // Int32Array
	'l': true, // Uint32Array
	'G': true, // Float32Array
	'g': true, // Float64Array
	'M': true, // BigInt64Array
	'm': true, // BigUint64Array
	'V': true, // DataView
	'b': true, // byte stream chunk
}

// TagLongText frames UTF-8 text with a declared length.
const TagLongText byte = 'T'

// IsBinaryTag reports whether rows with this tag carry binary payloads.
func IsBinaryTag(tag byte) bool {
	return binaryTags[tag]
}

// IsLengthPrefixed reports whether rows with this tag are framed by a
// declared length instead of a newline terminator.
func IsLengthPrefixed(tag byte) bool {
	return binaryTags[tag] || tag == TagLongText
}

// BinaryTags lists every tag designated binary-framed, in byte order.
func BinaryTags() []byte {
	tags := make([]byte, 0, 16)
	for i, ok := range binaryTags {
		if ok {
			tags = append(tags, byte(i))
		}
	}
	return tags
}
