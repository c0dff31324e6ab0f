package binds

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"markestedt/snapkeys/keyset"
)

// Wire layout, protobuf-compatible:
//
//	message Bindings { repeated Binding binding = 1; }
//	message Binding  { uint64 key = 1; bytes image = 2; }
const (
	fieldBinding protowire.Number = 1
	fieldKey     protowire.Number = 1
	fieldImage   protowire.Number = 2
)

// Marshal encodes m with entries in ascending key order, so equal maps
// produce identical bytes. An empty map encodes to zero bytes.
func Marshal(m map[keyset.Key][]byte) []byte {
	keys := make([]keyset.Key, 0, len(m))
	size := 0
	for k, v := range m {
		keys = append(keys, k)
		size += entrySize(k, v)
	}
	keyset.Sort(keys)

	out := make([]byte, 0, size)
	for _, k := range keys {
		v := m[k]
		out = protowire.AppendTag(out, fieldBinding, protowire.BytesType)
		out = protowire.AppendVarint(out, uint64(bodySize(k, v)))
		out = protowire.AppendTag(out, fieldKey, protowire.VarintType)
		out = protowire.AppendVarint(out, uint64(k))
		out = protowire.AppendTag(out, fieldImage, protowire.BytesType)
		out = protowire.AppendBytes(out, v)
	}
	return out
}

// Unmarshal decodes data produced by Marshal. Unknown fields are skipped;
// a repeated key keeps the last image.
func Unmarshal(data []byte) (map[keyset.Key][]byte, error) {
	m := make(map[keyset.Key][]byte)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("decode bindings: %w", protowire.ParseError(n))
		}
		data = data[n:]

		if num != fieldBinding || typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("decode bindings: field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}

		body, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, fmt.Errorf("decode bindings: %w", protowire.ParseError(n))
		}
		data = data[n:]

		k, img, err := unmarshalEntry(body)
		if err != nil {
			return nil, err
		}
		m[k] = img
	}
	return m, nil
}

func unmarshalEntry(b []byte) (keyset.Key, []byte, error) {
	var (
		key keyset.Key
		img = []byte{}
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return 0, nil, fmt.Errorf("decode binding: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldKey && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, nil, fmt.Errorf("decode binding key: %w", protowire.ParseError(n))
			}
			key = keyset.Key(v)
			b = b[n:]
		case num == fieldImage && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return 0, nil, fmt.Errorf("decode binding image: %w", protowire.ParseError(n))
			}
			img = append([]byte{}, v...)
			b = b[n:]
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return 0, nil, fmt.Errorf("decode binding: field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return key, img, nil
}

func bodySize(k keyset.Key, v []byte) int {
	return protowire.SizeTag(fieldKey) + protowire.SizeVarint(uint64(k)) +
		protowire.SizeTag(fieldImage) + protowire.SizeBytes(len(v))
}

func entrySize(k keyset.Key, v []byte) int {
	return protowire.SizeTag(fieldBinding) + protowire.SizeBytes(bodySize(k, v))
}
