package recovery

import "testing"

func TestEncodeDecodeTxnIDsRoundTrip(t *testing.T) {
	ids := []uint32{3, 1, 4, 1, 5, 9}
	buf := encodeTxnIDs(ids)
	got := decodeTxnIDs(buf)
	if len(got) != len(ids) {
		t.Fatalf("decodeTxnIDs returned %v, want %v", got, ids)
	}
	for i := range ids {
		if got[i] != ids[i] {
			t.Fatalf("decodeTxnIDs returned %v, want %v", got, ids)
		}
	}
}

func TestEncodeDecodeEmptyTxnIDs(t *testing.T) {
	buf := encodeTxnIDs(nil)
	got := decodeTxnIDs(buf)
	if len(got) != 0 {
		t.Fatalf("expected an empty slice decoding zero txn ids, got %v", got)
	}
}
