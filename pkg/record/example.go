package record

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformedExample is returned when a payload is not a valid
// tf.train.Example message
var ErrMalformedExample = errors.New("malformed example")

// Field numbers of the tf.train.Example schema
const (
	fieldExampleFeatures protowire.Number = 1
	fieldFeaturesMap     protowire.Number = 1
	fieldMapKey          protowire.Number = 1
	fieldMapValue        protowire.Number = 2
	fieldBytesList       protowire.Number = 1
	fieldFloatList       protowire.Number = 2
	fieldInt64List       protowire.Number = 3
	fieldListValue       protowire.Number = 1
)

// ParseExample decodes a serialized tf.train.Example. Unknown fields are
// skipped; for duplicate keys the last entry wins.
func ParseExample(b []byte) (Features, error) {
	feats := Features{}
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
		if num != fieldExampleFeatures || typ != protowire.BytesType {
			return nil
		}
		msg, err := consumeBytes(val)
		if err != nil {
			return err
		}
		return parseFeatures(msg, feats)
	})
	if err != nil {
		return nil, err
	}
	return feats, nil
}

func parseFeatures(b []byte, feats Features) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
		if num != fieldFeaturesMap || typ != protowire.BytesType {
			return nil
		}
		entry, err := consumeBytes(val)
		if err != nil {
			return err
		}
		var key string
		var feat Feature
		err = consumeFields(entry, func(num protowire.Number, typ protowire.Type, val []byte) error {
			if typ != protowire.BytesType {
				return nil
			}
			body, err := consumeBytes(val)
			if err != nil {
				return err
			}
			switch num {
			case fieldMapKey:
				key = string(body)
			case fieldMapValue:
				feat, err = parseFeature(body)
				return err
			}
			return nil
		})
		if err != nil {
			return err
		}
		feats[key] = feat
		return nil
	})
}

func parseFeature(b []byte) (Feature, error) {
	var feat Feature
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
		if typ != protowire.BytesType {
			return nil
		}
		list, err := consumeBytes(val)
		if err != nil {
			return err
		}
		switch num {
		case fieldBytesList:
			feat = Feature{Kind: KindBytes}
			return consumeFields(list, func(num protowire.Number, typ protowire.Type, val []byte) error {
				if num != fieldListValue || typ != protowire.BytesType {
					return nil
				}
				v, err := consumeBytes(val)
				if err != nil {
					return err
				}
				feat.Bytes = append(feat.Bytes, append([]byte(nil), v...))
				return nil
			})
		case fieldFloatList:
			feat = Feature{Kind: KindFloat}
			return consumeFields(list, func(num protowire.Number, typ protowire.Type, val []byte) error {
				if num != fieldListValue {
					return nil
				}
				switch typ {
				case protowire.Fixed32Type:
					v, _ := protowire.ConsumeFixed32(val)
					feat.Floats = append(feat.Floats, math.Float32frombits(v))
				case protowire.BytesType:
					packed, err := consumeBytes(val)
					if err != nil {
						return err
					}
					for len(packed) > 0 {
						v, n := protowire.ConsumeFixed32(packed)
						if n < 0 {
							return malformed(n)
						}
						feat.Floats = append(feat.Floats, math.Float32frombits(v))
						packed = packed[n:]
					}
				}
				return nil
			})
		case fieldInt64List:
			feat = Feature{Kind: KindInt64}
			return consumeFields(list, func(num protowire.Number, typ protowire.Type, val []byte) error {
				if num != fieldListValue {
					return nil
				}
				switch typ {
				case protowire.VarintType:
					v, _ := protowire.ConsumeVarint(val)
					feat.Ints = append(feat.Ints, int64(v))
				case protowire.BytesType:
					packed, err := consumeBytes(val)
					if err != nil {
						return err
					}
					for len(packed) > 0 {
						v, n := protowire.ConsumeVarint(packed)
						if n < 0 {
							return malformed(n)
						}
						feat.Ints = append(feat.Ints, int64(v))
						packed = packed[n:]
					}
				}
				return nil
			})
		}
		return nil
	})
	return feat, err
}

// consumeFields calls fn for every field of a message. val holds the raw
// field value, including the length prefix for length-delimited fields.
func consumeFields(b []byte, fn func(num protowire.Number, typ protowire.Type, val []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return malformed(n)
		}
		b = b[n:]
		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return malformed(m)
		}
		if err := fn(num, typ, b[:m]); err != nil {
			return err
		}
		b = b[m:]
	}
	return nil
}

func consumeBytes(val []byte) ([]byte, error) {
	v, n := protowire.ConsumeBytes(val)
	if n < 0 {
		return nil, malformed(n)
	}
	return v, nil
}

func malformed(n int) error {
	return fmt.Errorf("%w: %v", ErrMalformedExample, protowire.ParseError(n))
}

// Marshal encodes the features as a tf.train.Example. Keys are written in
// sorted order so the output is deterministic.
func (f Features) Marshal() []byte {
	var feats []byte
	for _, key := range f.Keys() {
		var entry []byte
		entry = protowire.AppendTag(entry, fieldMapKey, protowire.BytesType)
		entry = protowire.AppendString(entry, key)
		entry = protowire.AppendTag(entry, fieldMapValue, protowire.BytesType)
		entry = protowire.AppendBytes(entry, f[key].marshal())

		feats = protowire.AppendTag(feats, fieldFeaturesMap, protowire.BytesType)
		feats = protowire.AppendBytes(feats, entry)
	}

	var out []byte
	out = protowire.AppendTag(out, fieldExampleFeatures, protowire.BytesType)
	return protowire.AppendBytes(out, feats)
}

func (f Feature) marshal() []byte {
	var list []byte
	var num protowire.Number
	switch f.Kind {
	case KindBytes:
		num = fieldBytesList
		for _, v := range f.Bytes {
			list = protowire.AppendTag(list, fieldListValue, protowire.BytesType)
			list = protowire.AppendBytes(list, v)
		}
	case KindFloat:
		num = fieldFloatList
		if len(f.Floats) > 0 {
			var packed []byte
			for _, v := range f.Floats {
				packed = protowire.AppendFixed32(packed, math.Float32bits(v))
			}
			list = protowire.AppendTag(list, fieldListValue, protowire.BytesType)
			list = protowire.AppendBytes(list, packed)
		}
	case KindInt64:
		num = fieldInt64List
		if len(f.Ints) > 0 {
			var packed []byte
			for _, v := range f.Ints {
				packed = protowire.AppendVarint(packed, uint64(v))
			}
			list = protowire.AppendTag(list, fieldListValue, protowire.BytesType)
			list = protowire.AppendBytes(list, packed)
		}
	default:
		return nil
	}

	var out []byte
	out = protowire.AppendTag(out, num, protowire.BytesType)
	return protowire.AppendBytes(out, list)
}
