// Code generated by musgen-go. DO NOT EDIT.

package core

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

var (
	sliceHfYjUΣLicS5Li9IΔQyo4WgΞΞ = ord.NewSliceSer[FragmentVector](FragmentVectorMUS)
	sliceN9xNVx2nRokgLo2Rp3l1KAΞΞ = ord.NewSliceSer[float32](varint.Float32)
)

var SpeakerTypeMUS = speakerTypeMUS{}

type speakerTypeMUS struct{}

func (s speakerTypeMUS) Marshal(v SpeakerType, bs []byte) (n int) {
	return varint.Int.Marshal(int(v), bs)
}

func (s speakerTypeMUS) Unmarshal(bs []byte) (v SpeakerType, n int, err error) {
	tmp, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	v = SpeakerType(tmp)
	return
}

func (s speakerTypeMUS) Size(v SpeakerType) (size int) {
	return varint.Int.Size(int(v))
}

func (s speakerTypeMUS) Skip(bs []byte) (n int, err error) {
	return varint.Int.Skip(bs)
}

var IDMUS = iDMUS{}

type iDMUS struct{}

func (s iDMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (s iDMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	tmp, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	v = ID(tmp)
	return
}

func (s iDMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

func (s iDMUS) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}

var FragmentVectorMUS = fragmentVectorMUS{}

type fragmentVectorMUS struct{}

func (s fragmentVectorMUS) Marshal(v FragmentVector, bs []byte) (n int) {
	n = sliceN9xNVx2nRokgLo2Rp3l1KAΞΞ.Marshal(v.Vector, bs)
	n += ord.String.Marshal(v.Text, bs[n:])
	return n + varint.Int.Marshal(v.Page, bs[n:])
}

func (s fragmentVectorMUS) Unmarshal(bs []byte) (v FragmentVector, n int, err error) {
	v.Vector, n, err = sliceN9xNVx2nRokgLo2Rp3l1KAΞΞ.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Page, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	return
}

func (s fragmentVectorMUS) Size(v FragmentVector) (size int) {
	size = sliceN9xNVx2nRokgLo2Rp3l1KAΞΞ.Size(v.Vector)
	size += ord.String.Size(v.Text)
	return size + varint.Int.Size(v.Page)
}

func (s fragmentVectorMUS) Skip(bs []byte) (n int, err error) {
	n, err = sliceN9xNVx2nRokgLo2Rp3l1KAΞΞ.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	return
}

var DocumentMUS = documentMUS{}

type documentMUS struct{}

func (s documentMUS) Marshal(v Document, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += varint.Int64.Marshal(v.OwnerID, bs[n:])
	n += sliceHfYjUΣLicS5Li9IΔQyo4WgΞΞ.Marshal(v.Fragments, bs[n:])
	n += ord.String.Marshal(v.Summary, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.InsertedAt, bs[n:])
	return n + raw.TimeUnixMicro.Marshal(v.UpdatedAt, bs[n:])
}

func (s documentMUS) Unmarshal(bs []byte) (v Document, n int, err error) {
	v.Name, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.OwnerID, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Fragments, n1, err = sliceHfYjUΣLicS5Li9IΔQyo4WgΞΞ.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Summary, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	return
}

func (s documentMUS) Size(v Document) (size int) {
	size = ord.String.Size(v.Name)
	size += varint.Int64.Size(v.OwnerID)
	size += sliceHfYjUΣLicS5Li9IΔQyo4WgΞΞ.Size(v.Fragments)
	size += ord.String.Size(v.Summary)
	size += raw.TimeUnixMicro.Size(v.InsertedAt)
	return size + raw.TimeUnixMicro.Size(v.UpdatedAt)
}

func (s documentMUS) Skip(bs []byte) (n int, err error) {
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = varint.Int64.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = sliceHfYjUΣLicS5Li9IΔQyo4WgΞΞ.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	return
}

var ChatTurnMUS = chatTurnMUS{}

type chatTurnMUS struct{}

func (s chatTurnMUS) Marshal(v ChatTurn, bs []byte) (n int) {
	n = SpeakerTypeMUS.Marshal(v.Speaker, bs)
	n += ord.String.Marshal(v.Contents, bs[n:])
	return n + raw.TimeUnixMicro.Marshal(v.Timestamp, bs[n:])
}

func (s chatTurnMUS) Unmarshal(bs []byte) (v ChatTurn, n int, err error) {
	v.Speaker, n, err = SpeakerTypeMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Contents, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Timestamp, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	return
}

func (s chatTurnMUS) Size(v ChatTurn) (size int) {
	size = SpeakerTypeMUS.Size(v.Speaker)
	size += ord.String.Size(v.Contents)
	return size + raw.TimeUnixMicro.Size(v.Timestamp)
}

func (s chatTurnMUS) Skip(bs []byte) (n int, err error) {
	n, err = SpeakerTypeMUS.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	return
}
