package wal

import "testing"

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	r := Record{
		LSN:         7,
		TxnID:       3,
		PrevLSN:     4,
		Kind:        Insert,
		PageID:      5,
		Key:         []byte("key"),
		Old:         nil,
		New:         []byte("value"),
		UndoNextLSN: NoLSN,
	}
	buf := r.Marshal()
	got, n, err := Unmarshal(buf)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("Unmarshal consumed %d bytes, want %d", n, len(buf))
	}
	if got.LSN != r.LSN || got.TxnID != r.TxnID || got.PrevLSN != r.PrevLSN || got.Kind != r.Kind || got.PageID != r.PageID {
		t.Fatalf("Unmarshal() = %+v, want %+v", got, r)
	}
	if string(got.Key) != "key" || string(got.New) != "value" || got.Old != nil {
		t.Fatalf("Unmarshal payload mismatch: %+v", got)
	}
}

func TestMarshalUnmarshalDistinguishesAbsentFromEmptyValue(t *testing.T) {
	r := Record{LSN: 1, TxnID: 1, Kind: Update, Key: []byte("k"), Old: []byte{}, New: nil}
	got, _, err := Unmarshal(r.Marshal())
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Old == nil {
		t.Fatalf("a present, zero-length Old must round-trip as non-nil, got nil")
	}
	if len(got.Old) != 0 {
		t.Fatalf("got.Old = %q, want empty", got.Old)
	}
	if got.New != nil {
		t.Fatalf("a genuinely absent New must round-trip as nil, got %q", got.New)
	}
}

func TestUnmarshalDetectsChecksumCorruption(t *testing.T) {
	r := Record{LSN: 1, TxnID: 1, PrevLSN: NoLSN, Kind: Begin}
	buf := r.Marshal()
	buf[len(buf)-1] ^= 0xFF

	if _, _, err := Unmarshal(buf); err == nil {
		t.Fatalf("expected a checksum error after corrupting the trailer")
	}
}

func TestUnmarshalDetectsTruncation(t *testing.T) {
	r := Record{LSN: 1, TxnID: 1, PrevLSN: NoLSN, Kind: Commit}
	buf := r.Marshal()

	if _, _, err := Unmarshal(buf[:len(buf)-1]); err == nil {
		t.Fatalf("expected an error unmarshaling a truncated record")
	}
}

func TestMarshalVariesWithPayloadLengths(t *testing.T) {
	short := Record{LSN: 1, TxnID: 1, Kind: Delete, Key: []byte("k")}
	long := Record{LSN: 1, TxnID: 1, Kind: Update, Key: []byte("k"), Old: []byte("old-value"), New: []byte("new-value")}
	if short.Size() >= long.Size() {
		t.Fatalf("expected a record carrying old/new payloads to be larger")
	}
}
