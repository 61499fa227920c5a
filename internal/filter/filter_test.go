package filter

import (
	"bytes"
	"errors"
	"testing"

	"github.com/klauspost/compress/zlib"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/message"
)

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestShuffleRoundTrip(t *testing.T) {
	in := []byte{
		0x01, 0x02, 0x03, 0x04,
		0x11, 0x12, 0x13, 0x14,
		0x21, 0x22, 0x23, 0x24,
		0xff,
	}
	shuffled := Shuffle(in, 4)
	want := []byte{0x01, 0x11, 0x21, 0x02, 0x12, 0x22, 0x03, 0x13, 0x23, 0x04, 0x14, 0x24, 0xff}
	if !bytes.Equal(shuffled, want) {
		t.Fatalf("Shuffle = % x, want % x", shuffled, want)
	}
	if got := Unshuffle(shuffled, 4); !bytes.Equal(got, in) {
		t.Errorf("Unshuffle = % x, want % x", got, in)
	}
	if got := Unshuffle([]byte{1, 2, 3}, 1); !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("size 1 should be identity, got % x", got)
	}
}

func TestFletcher32(t *testing.T) {
	data := []byte("detector frame payload")
	out, err := verifyFletcher32(AppendFletcher32(append([]byte(nil), data...)))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("payload = %q, want %q", out, data)
	}

	bad := AppendFletcher32(append([]byte(nil), data...))
	bad[0] ^= 0xff
	if _, err := verifyFletcher32(bad); !errors.Is(err, ErrChecksum) {
		t.Errorf("err = %v, want ErrChecksum", err)
	}
}

func TestPipelineDecode(t *testing.T) {
	raw := make([]byte, 64)
	for i := range raw {
		raw[i] = byte(i * 7)
	}
	fp := &message.FilterPipeline{Filters: []message.Filter{
		{ID: message.FilterShuffle, ClientData: []uint32{4}},
		{ID: message.FilterDeflate, ClientData: []uint32{6}},
		{ID: message.FilterFletcher32},
	}}
	stored := AppendFletcher32(deflate(t, Shuffle(raw, 4)))

	p, err := NewPipeline(fp, 4)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	if p.Len() != 3 {
		t.Fatalf("Len = %d, want 3", p.Len())
	}
	got, err := p.Decode(stored, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Errorf("Decode mismatch")
	}

	// mask off shuffle: the deflated payload is still shuffled
	got, err = p.Decode(stored, 1)
	if err != nil {
		t.Fatalf("Decode with mask: %v", err)
	}
	if !bytes.Equal(got, Shuffle(raw, 4)) {
		t.Errorf("masked Decode should leave data shuffled")
	}
}

func TestPipelineUnsupported(t *testing.T) {
	required := &message.FilterPipeline{Filters: []message.Filter{{ID: message.FilterSZIP}}}
	if _, err := NewPipeline(required, 4); !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
	optional := &message.FilterPipeline{Filters: []message.Filter{{ID: 32001, Flags: 1, Name: "blosc"}}}
	p, err := NewPipeline(optional, 4)
	if err != nil {
		t.Fatalf("optional filter: %v", err)
	}
	got, err := p.Decode([]byte{1, 2}, 0)
	if err != nil || !bytes.Equal(got, []byte{1, 2}) {
		t.Errorf("optional stage should pass through, got % x, %v", got, err)
	}
}

func TestNilPipeline(t *testing.T) {
	p, err := NewPipeline(nil, 8)
	if err != nil || p != nil {
		t.Fatalf("NewPipeline(nil) = %v, %v", p, err)
	}
	got, err := p.Decode([]byte{9}, 0)
	if err != nil || !bytes.Equal(got, []byte{9}) {
		t.Errorf("nil pipeline Decode = % x, %v", got, err)
	}
}
